// Package analytics turns the append-only event log into
// query-friendly summaries.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/toolvane/toolvane/internal/metrics"
	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/store"
)

// TopToolsLimit caps the leaderboard in a summary.
const TopToolsLimit = 10

// Aggregator records events and computes rollups over them.
// Conversion rates are fractions in [0, 1] throughout.
type Aggregator struct {
	store       *store.Store
	metrics     metrics.Recorder
	logger      *slog.Logger
	defaultRate float64
}

// New creates an Aggregator. defaultRate is the commission percentage
// applied when a conversion references a tool without a rate (or a
// tool that no longer exists - the foreign reference is not enforced).
func New(st *store.Store, recorder metrics.Recorder, logger *slog.Logger, defaultRate float64) *Aggregator {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Aggregator{
		store:       st,
		metrics:     recorder,
		logger:      logger.With("component", "analytics"),
		defaultRate: defaultRate,
	}
}

// ClickInput is the caller-supplied portion of a click event.
type ClickInput struct {
	ToolID    string
	SessionID string
	ClickType model.ClickType
	UserAgent string
	Referrer  string
	IP        string
}

// RecordClick appends a click event and bumps today's bucket.
func (a *Aggregator) RecordClick(ctx context.Context, input ClickInput) (*model.ClickEvent, error) {
	if input.ToolID == "" {
		return nil, fmt.Errorf("%w: tool id is required", store.ErrValidation)
	}

	event := &model.ClickEvent{
		ToolID:    input.ToolID,
		SessionID: input.SessionID,
		ClickType: input.ClickType,
		UserAgent: input.UserAgent,
		Referrer:  input.Referrer,
		IP:        input.IP,
		Timestamp: time.Now().UTC(),
	}

	event, err := a.store.AddClick(ctx, event)
	if err != nil {
		return nil, err
	}

	if err := a.store.IncrementDaily(ctx, event.Timestamp, 1, 0, 0); err != nil {
		return nil, err
	}

	a.metrics.IncClickRecorded(string(event.ClickType))
	return event, nil
}

// ConversionInput is the caller-supplied portion of a conversion event.
type ConversionInput struct {
	ToolID  string
	ClickID string
	Amount  float64
}

// RecordConversion appends a conversion event, deriving the commission
// from the tool's commission rate at call time. Using the current rate
// rather than the rate in effect at the originating click is a
// documented simplification: changing a tool's rate alters the
// commission of conversions recorded afterwards, not historical ones.
func (a *Aggregator) RecordConversion(ctx context.Context, input ConversionInput) (*model.ConversionEvent, error) {
	if input.ToolID == "" {
		return nil, fmt.Errorf("%w: tool id is required", store.ErrValidation)
	}
	if input.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", store.ErrValidation)
	}

	rate := a.defaultRate
	tool, err := a.store.GetTool(ctx, input.ToolID)
	switch {
	case err == nil:
		rate = tool.EffectiveCommissionRate(a.defaultRate)
	case errors.Is(err, store.ErrNotFound):
		// Unknown tool reference is tolerated; default rate applies.
		a.logger.Warn("conversion for unknown tool", "tool_id", input.ToolID)
	default:
		return nil, err
	}

	event := &model.ConversionEvent{
		ToolID:     input.ToolID,
		ClickID:    input.ClickID,
		Amount:     input.Amount,
		Commission: input.Amount * (rate / 100),
		Timestamp:  time.Now().UTC(),
	}

	event, err = a.store.AddConversion(ctx, event)
	if err != nil {
		return nil, err
	}

	if err := a.store.IncrementDaily(ctx, event.Timestamp, 0, 1, event.Commission); err != nil {
		return nil, err
	}

	a.metrics.IncConversionRecorded()
	return event, nil
}

// Summarize aggregates events from the trailing periodDays days.
func (a *Aggregator) Summarize(ctx context.Context, periodDays int) (*model.AnalyticsSummary, error) {
	summary, err := a.SummarizeWindow(ctx, time.Duration(periodDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}
	summary.PeriodDays = periodDays
	return summary, nil
}

// SummarizeWindow aggregates events from the trailing window.
// conversionRate is conversions/clicks as a fraction, and zero when no
// clicks were recorded.
func (a *Aggregator) SummarizeWindow(ctx context.Context, window time.Duration) (*model.AnalyticsSummary, error) {
	since := time.Now().UTC().Add(-window)

	clicks, err := a.store.ListClicks(ctx, since)
	if err != nil {
		return nil, err
	}
	conversions, err := a.store.ListConversions(ctx, since)
	if err != nil {
		return nil, err
	}
	dailyStats, err := a.store.GetDailyStats(ctx)
	if err != nil {
		return nil, err
	}

	summary := &model.AnalyticsSummary{
		TotalClicks:      int64(len(clicks)),
		TotalConversions: int64(len(conversions)),
		DailyStats:       dailyStats,
	}
	for _, conv := range conversions {
		summary.TotalRevenue += conv.Commission
	}
	if summary.TotalClicks > 0 {
		summary.ConversionRate = float64(summary.TotalConversions) / float64(summary.TotalClicks)
	}

	summary.TopTools = a.topTools(ctx, conversions)
	return summary, nil
}

// topTools ranks tools by summed commission descending, ties broken by
// tool id ascending so repeated calls are deterministic.
func (a *Aggregator) topTools(ctx context.Context, conversions []*model.ConversionEvent) []model.TopTool {
	byTool := make(map[string]*model.TopTool)
	for _, conv := range conversions {
		entry, ok := byTool[conv.ToolID]
		if !ok {
			entry = &model.TopTool{ToolID: conv.ToolID}
			byTool[conv.ToolID] = entry
		}
		entry.Revenue += conv.Commission
		entry.Conversions++
	}

	top := make([]model.TopTool, 0, len(byTool))
	for toolID, entry := range byTool {
		if tool, err := a.store.GetTool(ctx, toolID); err == nil {
			entry.Name = tool.Name
		} else {
			entry.Name = toolID
		}
		top = append(top, *entry)
	}

	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Revenue != top[j].Revenue {
			return top[i].Revenue > top[j].Revenue
		}
		return top[i].ToolID < top[j].ToolID
	})

	if len(top) > TopToolsLimit {
		top = top[:TopToolsLimit]
	}
	return top
}

// UserHistory returns the click events recorded under a session id,
// newest first. An unknown session yields an empty slice.
func (a *Aggregator) UserHistory(ctx context.Context, sessionID string) ([]*model.ClickEvent, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", store.ErrValidation)
	}

	clicks, err := a.store.ListClicks(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	history := make([]*model.ClickEvent, 0)
	for _, click := range clicks {
		if click.SessionID == sessionID {
			history = append(history, click)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
	return history, nil
}

// ToolStats aggregates the trailing-period signals for one tool.
// Missing data yields a zeroed record, never an error for the caller's
// ranking path.
func (a *Aggregator) ToolStats(ctx context.Context, toolID string, periodDays int) (model.ToolStats, error) {
	since := time.Now().UTC().Add(-time.Duration(periodDays) * 24 * time.Hour)
	stats := model.ToolStats{ToolID: toolID}

	clicks, err := a.store.ListClicks(ctx, since)
	if err != nil {
		return stats, err
	}
	conversions, err := a.store.ListConversions(ctx, since)
	if err != nil {
		return stats, err
	}

	for _, click := range clicks {
		if click.ToolID == toolID {
			stats.Clicks++
		}
	}
	for _, conv := range conversions {
		if conv.ToolID == toolID {
			stats.Conversions++
			stats.Revenue += conv.Commission
		}
	}
	if stats.Clicks > 0 {
		stats.ConversionRate = float64(stats.Conversions) / float64(stats.Clicks)
	}

	return stats, nil
}

// Revenue computes the rollup served by GET /api/revenue. Total revenue
// spans all retained conversions; the period tag only labels the
// response.
func (a *Aggregator) Revenue(ctx context.Context, period string) (*model.RevenueSummary, error) {
	all, err := a.store.ListConversions(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	summary := &model.RevenueSummary{Period: period}
	for _, conv := range all {
		summary.TotalRevenue += conv.Commission
		if !conv.Timestamp.Before(today) {
			summary.TodayRevenue += conv.Commission
		}
		if !conv.Timestamp.Before(weekAgo) {
			summary.WeeklyRevenue += conv.Commission
		}
		if !conv.Timestamp.Before(monthAgo) {
			summary.MonthlyRevenue += conv.Commission
		}
	}
	if len(all) > 0 {
		summary.AverageCommission = summary.TotalRevenue / float64(len(all))
	}

	window, err := a.SummarizeWindow(ctx, time.Hour)
	if err != nil {
		return nil, err
	}
	summary.ConversionRate = window.ConversionRate

	return summary, nil
}
