package automation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/toolvane/toolvane/internal/analytics"
	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store, *analytics.Aggregator) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	agg := analytics.New(st, nil, logger, 10)

	engine := New(Config{
		Store:                 st,
		Aggregator:            agg,
		Logger:                logger,
		RetentionDays:         90,
		DefaultCommissionRate: 10,
	})
	return engine, st, agg
}

func addTool(t *testing.T, st *store.Store, id string, rate float64) {
	t.Helper()
	_, err := st.AddTool(context.Background(), &model.Tool{
		ID:             id,
		Name:           id,
		URL:            "http://" + id,
		CommissionRate: rate,
	})
	if err != nil {
		t.Fatalf("AddTool(%s) error: %v", id, err)
	}
}

func recordClicks(t *testing.T, agg *analytics.Aggregator, toolID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := agg.RecordClick(context.Background(), analytics.ClickInput{ToolID: toolID}); err != nil {
			t.Fatalf("RecordClick() error: %v", err)
		}
	}
}

func recordConversions(t *testing.T, agg *analytics.Aggregator, toolID string, n int, amount float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := agg.RecordConversion(context.Background(), analytics.ConversionInput{ToolID: toolID, Amount: amount})
		if err != nil {
			t.Fatalf("RecordConversion() error: %v", err)
		}
	}
}

func TestHourlyOptimization_LowersWeakConverters(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "weak", 10)
	recordClicks(t, agg, "weak", 100)
	recordConversions(t, agg, "weak", 1, 10) // 1% conversion rate

	if err := engine.RunHourlyOptimization(ctx); err != nil {
		t.Fatalf("RunHourlyOptimization() error: %v", err)
	}

	tool, err := st.GetTool(ctx, "weak")
	if err != nil {
		t.Fatalf("GetTool() error: %v", err)
	}
	if tool.CommissionRate != 7 {
		t.Errorf("commission rate = %v, want 7 after lowering", tool.CommissionRate)
	}

	runs, err := st.CountOptimizationRuns(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountOptimizationRuns() error: %v", err)
	}
	if runs != 1 {
		t.Errorf("optimization runs = %d, want 1", runs)
	}

	// The hourly job also refreshes the trending snapshot.
	trending, err := st.LatestTrending(ctx)
	if err != nil {
		t.Fatalf("LatestTrending() error: %v", err)
	}
	if len(trending.Tools) != 1 || trending.Tools[0].ToolID != "weak" {
		t.Errorf("trending snapshot wrong: %+v", trending.Tools)
	}
}

func TestHourlyOptimization_RaisesStrongConverters(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "strong", 10)
	recordClicks(t, agg, "strong", 1)
	recordConversions(t, agg, "strong", 2, 50) // rate above 1.0

	if err := engine.RunHourlyOptimization(ctx); err != nil {
		t.Fatalf("RunHourlyOptimization() error: %v", err)
	}

	tool, err := st.GetTool(ctx, "strong")
	if err != nil {
		t.Fatalf("GetTool() error: %v", err)
	}
	if tool.CommissionRate != 15 {
		t.Errorf("commission rate = %v, want 15 after raising", tool.CommissionRate)
	}
}

func TestHourlyOptimization_MidRangeRateIsLeftAlone(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	// No rate of its own: the configured default applies. A mid-range
	// conversion rate fires neither threshold, so the record must keep
	// its zero rate rather than being clamped to the floor.
	addTool(t, st, "defaulted", 0)
	recordClicks(t, agg, "defaulted", 10)
	recordConversions(t, agg, "defaulted", 5, 10) // rate 0.5

	if err := engine.RunHourlyOptimization(ctx); err != nil {
		t.Fatalf("RunHourlyOptimization() error: %v", err)
	}

	tool, err := st.GetTool(ctx, "defaulted")
	if err != nil {
		t.Fatalf("GetTool() error: %v", err)
	}
	if tool.CommissionRate != 0 {
		t.Errorf("commission rate = %v, want 0 (default still applies)", tool.CommissionRate)
	}
}

func TestHourlyOptimization_DefaultRateIsAdjustmentBase(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	// A weak converter without a rate of its own is lowered from the
	// default base (10), not from the stored zero.
	addTool(t, st, "defaulted", 0)
	recordClicks(t, agg, "defaulted", 100)
	recordConversions(t, agg, "defaulted", 1, 10) // 1% conversion rate

	if err := engine.RunHourlyOptimization(ctx); err != nil {
		t.Fatalf("RunHourlyOptimization() error: %v", err)
	}

	tool, err := st.GetTool(ctx, "defaulted")
	if err != nil {
		t.Fatalf("GetTool() error: %v", err)
	}
	if tool.CommissionRate != 7 {
		t.Errorf("commission rate = %v, want 7 (default 10 lowered by 3)", tool.CommissionRate)
	}
}

func TestHourlyOptimization_DisabledRuleSuppressesRun(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "weak", 10)
	recordClicks(t, agg, "weak", 100)
	recordConversions(t, agg, "weak", 1, 10)

	err := st.SaveRules(ctx, []*model.AutomationRule{
		{ID: JobHourlyOptimization, Name: "Hourly optimization", Enabled: false},
	})
	if err != nil {
		t.Fatalf("SaveRules() error: %v", err)
	}

	if err := engine.RunHourlyOptimization(ctx); err != nil {
		t.Fatalf("RunHourlyOptimization() error: %v", err)
	}

	tool, err := st.GetTool(ctx, "weak")
	if err != nil {
		t.Fatalf("GetTool() error: %v", err)
	}
	if tool.CommissionRate != 10 {
		t.Errorf("disabled rule still adjusted rate: %v", tool.CommissionRate)
	}
}

func TestDailyRanking_WritesSnapshot(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "a", 10)
	addTool(t, st, "b", 10)
	recordClicks(t, agg, "a", 10)
	recordClicks(t, agg, "b", 2)
	recordConversions(t, agg, "a", 1, 100)

	if err := engine.RunDailyRanking(ctx); err != nil {
		t.Fatalf("RunDailyRanking() error: %v", err)
	}

	run, err := st.LatestRankingRun(ctx)
	if err != nil {
		t.Fatalf("LatestRankingRun() error: %v", err)
	}
	if len(run.Tools) != 2 {
		t.Fatalf("expected 2 ranked tools, got %d", len(run.Tools))
	}
	if run.Tools[0].ToolID != "a" || run.Tools[0].Rank != 1 {
		t.Errorf("top tool = %+v, want a at rank 1", run.Tools[0])
	}
	if len(run.Revenue) != 1 || run.Revenue[0].ToolID != "a" {
		t.Errorf("revenue leaderboard wrong: %+v", run.Revenue)
	}
}

func TestGenerateReport_PersistsAndNotifies(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "a", 10)
	recordClicks(t, agg, "a", 2)
	recordConversions(t, agg, "a", 1, 100)

	// An optimizer pass inside the report period must be counted.
	if err := engine.RunHourlyOptimization(ctx); err != nil {
		t.Fatalf("RunHourlyOptimization() error: %v", err)
	}

	if err := engine.RunWeeklyReport(ctx); err != nil {
		t.Fatalf("RunWeeklyReport() error: %v", err)
	}

	reports, err := st.ListReports(ctx, model.ReportTypeWeekly, 0)
	if err != nil {
		t.Fatalf("ListReports() error: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 weekly report, got %d", len(reports))
	}

	report := reports[0]
	if report.Metrics.TotalClicks != 2 || report.Metrics.TotalConversions != 1 {
		t.Errorf("report metrics wrong: %+v", report.Metrics)
	}
	if report.Metrics.TotalRevenue != 10.0 {
		t.Errorf("report revenue = %v, want 10.0", report.Metrics.TotalRevenue)
	}
	if report.OptimizationRuns != 1 {
		t.Errorf("optimization runs = %d, want 1", report.OptimizationRuns)
	}
}

func TestConversionMonitor_TriggersEmergencyOnDrop(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "t1", 10)

	// Baseline sample: 2 clicks, 2 conversions -> rate 1.0.
	recordClicks(t, agg, "t1", 2)
	recordConversions(t, agg, "t1", 2, 10)
	if err := engine.RunConversionMonitor(ctx); err != nil {
		t.Fatalf("baseline monitor run error: %v", err)
	}

	emergencies, err := st.ListEmergencies(ctx)
	if err != nil {
		t.Fatalf("ListEmergencies() error: %v", err)
	}
	if len(emergencies) != 0 {
		t.Fatalf("baseline run must not trigger an emergency")
	}

	// Flood clicks without conversions: rate collapses well past 20%.
	recordClicks(t, agg, "t1", 18)
	if err := engine.RunConversionMonitor(ctx); err != nil {
		t.Fatalf("second monitor run error: %v", err)
	}

	emergencies, err = st.ListEmergencies(ctx)
	if err != nil {
		t.Fatalf("ListEmergencies() error: %v", err)
	}
	if len(emergencies) != 1 {
		t.Fatalf("expected 1 emergency, got %d", len(emergencies))
	}

	emergency := emergencies[0]
	if emergency.Trigger != "conversion_rate_drop" {
		t.Errorf("trigger = %q", emergency.Trigger)
	}
	if emergency.PreviousRate != 1.0 {
		t.Errorf("previous rate = %v, want 1.0", emergency.PreviousRate)
	}
	if emergency.CurrentRate >= emergency.PreviousRate {
		t.Errorf("current rate %v not below previous %v", emergency.CurrentRate, emergency.PreviousRate)
	}
}

func TestConversionMonitor_SmallDipIsIgnored(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "t1", 10)

	// Baseline: rate 1.0.
	recordClicks(t, agg, "t1", 10)
	recordConversions(t, agg, "t1", 10, 10)
	if err := engine.RunConversionMonitor(ctx); err != nil {
		t.Fatalf("baseline monitor run error: %v", err)
	}

	// Two more clicks: rate 10/12 = 0.83, a drop under 20%.
	recordClicks(t, agg, "t1", 2)
	if err := engine.RunConversionMonitor(ctx); err != nil {
		t.Fatalf("second monitor run error: %v", err)
	}

	emergencies, err := st.ListEmergencies(ctx)
	if err != nil {
		t.Fatalf("ListEmergencies() error: %v", err)
	}
	if len(emergencies) != 0 {
		t.Errorf("expected no emergency for a small dip, got %d", len(emergencies))
	}
}

func TestRunBackup_SnapshotsAndPrunes(t *testing.T) {
	engine, st, agg := newTestEngine(t)
	ctx := context.Background()

	addTool(t, st, "t1", 10)
	recordConversions(t, agg, "t1", 1, 100)

	// An event past the retention window must be pruned by the job.
	_, err := st.AddClick(ctx, &model.ClickEvent{
		ToolID:    "t1",
		Timestamp: time.Now().UTC().Add(-91 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("AddClick() error: %v", err)
	}

	if err := engine.RunBackup(ctx); err != nil {
		t.Fatalf("RunBackup() error: %v", err)
	}

	// The backup snapshot exists: pruning with a future cutoff removes it.
	removed, err := st.PruneBackups(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneBackups() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 backup snapshot, pruned %d", removed)
	}

	clicks, err := st.ListClicks(ctx, time.Time{})
	if err != nil {
		t.Fatalf("ListClicks() error: %v", err)
	}
	if len(clicks) != 0 {
		t.Errorf("expected expired click pruned, %d remain", len(clicks))
	}
}

func TestJobs_CadencesAndNames(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	want := map[string]time.Duration{
		JobHourlyOptimization: time.Hour,
		JobDailyRanking:       24 * time.Hour,
		JobWeeklyReport:       7 * 24 * time.Hour,
		JobMonthlyReport:      30 * 24 * time.Hour,
		JobConversionMonitor:  5 * time.Minute,
		JobCrawlTools:         6 * time.Hour,
		JobSocialPosting:      4 * time.Hour,
		JobBackup:             24 * time.Hour,
	}

	jobs := engine.Jobs()
	if len(jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d", len(want), len(jobs))
	}
	for _, job := range jobs {
		interval, ok := want[job.Name]
		if !ok {
			t.Errorf("unexpected job %q", job.Name)
			continue
		}
		if job.Interval != interval {
			t.Errorf("job %s interval = %v, want %v", job.Name, job.Interval, interval)
		}
		if job.Run == nil {
			t.Errorf("job %s has no run function", job.Name)
		}
	}
}
