package analytics

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/store"
)

func newTestAggregator(t *testing.T) (*Aggregator, *store.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	return New(st, nil, logger, 10), st
}

func TestClickThenConversion(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	_, err := st.AddTool(ctx, &model.Tool{
		ID:             "t1",
		Name:           "X",
		URL:            "http://x",
		CommissionRate: 10,
	})
	if err != nil {
		t.Fatalf("AddTool() error: %v", err)
	}

	if _, err := agg.RecordClick(ctx, ClickInput{ToolID: "t1"}); err != nil {
		t.Fatalf("RecordClick() error: %v", err)
	}

	conv, err := agg.RecordConversion(ctx, ConversionInput{ToolID: "t1", Amount: 100})
	if err != nil {
		t.Fatalf("RecordConversion() error: %v", err)
	}
	if conv.Commission != 10.0 {
		t.Errorf("commission = %v, want 10.0", conv.Commission)
	}

	summary, err := agg.Summarize(ctx, 30)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if summary.TotalRevenue != 10.0 {
		t.Errorf("totalRevenue = %v, want 10.0", summary.TotalRevenue)
	}
	if summary.ConversionRate != 1.0 {
		t.Errorf("conversionRate = %v, want 1.0", summary.ConversionRate)
	}
}

func TestSummarize_ConversionRateIsFraction(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	const clicks, conversions = 4, 2
	for i := 0; i < clicks; i++ {
		if _, err := agg.RecordClick(ctx, ClickInput{ToolID: "t1"}); err != nil {
			t.Fatalf("RecordClick() error: %v", err)
		}
	}
	for i := 0; i < conversions; i++ {
		if _, err := agg.RecordConversion(ctx, ConversionInput{ToolID: "t1", Amount: 10}); err != nil {
			t.Fatalf("RecordConversion() error: %v", err)
		}
	}

	summary, err := agg.Summarize(ctx, 30)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}

	want := float64(conversions) / float64(clicks)
	if math.Abs(summary.ConversionRate-want) > 1e-9 {
		t.Errorf("conversionRate = %v, want %v", summary.ConversionRate, want)
	}
}

func TestSummarize_NoClicksIsZeroRate(t *testing.T) {
	agg, _ := newTestAggregator(t)

	summary, err := agg.Summarize(context.Background(), 30)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if summary.ConversionRate != 0 {
		t.Errorf("conversionRate = %v, want 0 when no clicks", summary.ConversionRate)
	}
	if summary.TotalClicks != 0 || summary.TotalConversions != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}

func TestRecordConversion_UnknownToolUsesDefaultRate(t *testing.T) {
	agg, _ := newTestAggregator(t)

	conv, err := agg.RecordConversion(context.Background(), ConversionInput{ToolID: "ghost", Amount: 50})
	if err != nil {
		t.Fatalf("RecordConversion() error: %v", err)
	}
	// Default rate is 10%.
	if conv.Commission != 5.0 {
		t.Errorf("commission = %v, want 5.0 at default rate", conv.Commission)
	}
}

func TestRecordConversion_Validation(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	if _, err := agg.RecordConversion(ctx, ConversionInput{Amount: 10}); err == nil {
		t.Error("expected error for missing tool id")
	}
	if _, err := agg.RecordConversion(ctx, ConversionInput{ToolID: "t1", Amount: -1}); err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestToolStats_PerTool(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2"} {
		_, err := st.AddTool(ctx, &model.Tool{ID: id, Name: id, URL: "http://" + id, CommissionRate: 10})
		if err != nil {
			t.Fatalf("AddTool() error: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		if _, err := agg.RecordClick(ctx, ClickInput{ToolID: "t1"}); err != nil {
			t.Fatalf("RecordClick() error: %v", err)
		}
	}
	if _, err := agg.RecordClick(ctx, ClickInput{ToolID: "t2"}); err != nil {
		t.Fatalf("RecordClick() error: %v", err)
	}
	if _, err := agg.RecordConversion(ctx, ConversionInput{ToolID: "t1", Amount: 100}); err != nil {
		t.Fatalf("RecordConversion() error: %v", err)
	}

	stats, err := agg.ToolStats(ctx, "t1", 30)
	if err != nil {
		t.Fatalf("ToolStats() error: %v", err)
	}
	if stats.Clicks != 3 || stats.Conversions != 1 {
		t.Errorf("stats = %+v, want 3 clicks and 1 conversion", stats)
	}
	if math.Abs(stats.ConversionRate-1.0/3.0) > 1e-9 {
		t.Errorf("conversionRate = %v, want 1/3", stats.ConversionRate)
	}
	if stats.Revenue != 10.0 {
		t.Errorf("revenue = %v, want 10.0", stats.Revenue)
	}
}

func TestSummarize_TopToolsOrderedByRevenue(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := st.AddTool(ctx, &model.Tool{ID: id, Name: id, URL: "http://" + id, CommissionRate: 10})
		if err != nil {
			t.Fatalf("AddTool() error: %v", err)
		}
	}

	if _, err := agg.RecordConversion(ctx, ConversionInput{ToolID: "a", Amount: 10}); err != nil {
		t.Fatalf("RecordConversion() error: %v", err)
	}
	if _, err := agg.RecordConversion(ctx, ConversionInput{ToolID: "b", Amount: 100}); err != nil {
		t.Fatalf("RecordConversion() error: %v", err)
	}

	summary, err := agg.Summarize(ctx, 30)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if len(summary.TopTools) != 2 {
		t.Fatalf("expected 2 top tools, got %d", len(summary.TopTools))
	}
	if summary.TopTools[0].ToolID != "b" {
		t.Errorf("top tool = %s, want b", summary.TopTools[0].ToolID)
	}
}

func TestRevenue_Rollup(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	_, err := st.AddTool(ctx, &model.Tool{ID: "t1", Name: "X", URL: "http://x", CommissionRate: 10})
	if err != nil {
		t.Fatalf("AddTool() error: %v", err)
	}
	if _, err := agg.RecordConversion(ctx, ConversionInput{ToolID: "t1", Amount: 100}); err != nil {
		t.Fatalf("RecordConversion() error: %v", err)
	}

	summary, err := agg.Revenue(ctx, "monthly")
	if err != nil {
		t.Fatalf("Revenue() error: %v", err)
	}

	if summary.TotalRevenue != 10.0 {
		t.Errorf("totalRevenue = %v, want 10.0", summary.TotalRevenue)
	}
	if summary.TodayRevenue != 10.0 || summary.WeeklyRevenue != 10.0 || summary.MonthlyRevenue != 10.0 {
		t.Errorf("window revenue wrong: %+v", summary)
	}
	if summary.AverageCommission != 10.0 {
		t.Errorf("averageCommission = %v, want 10.0", summary.AverageCommission)
	}
	if summary.Period != "monthly" {
		t.Errorf("period = %q, want monthly", summary.Period)
	}
}
