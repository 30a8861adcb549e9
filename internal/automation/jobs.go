package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/toolvane/toolvane/internal/analytics"
	"github.com/toolvane/toolvane/internal/discovery"
	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/ranking"
	"github.com/toolvane/toolvane/internal/store"
)

// RunHourlyOptimization reviews every active tool's trailing stats,
// adjusts commission rates where the heuristic says so, and refreshes
// the trending snapshot.
func (e *Engine) RunHourlyOptimization(ctx context.Context) error {
	if !e.ruleEnabled(ctx, JobHourlyOptimization) {
		e.logger.Info("job suppressed by rule", "job", JobHourlyOptimization)
		return nil
	}

	optimizations, err := e.optimizeTools(ctx)
	if err != nil {
		return err
	}

	run := &model.OptimizationRun{Optimizations: optimizations}
	if err := e.store.SaveOptimizationRun(ctx, run); err != nil {
		return err
	}

	ranked, err := e.rankActiveTools(ctx)
	if err != nil {
		return err
	}
	if len(ranked) > analytics.TopToolsLimit {
		ranked = ranked[:analytics.TopToolsLimit]
	}
	if err := e.store.SaveTrending(ctx, ranked); err != nil {
		return err
	}

	e.logger.Info("optimization finished",
		"run_id", run.ID,
		"tools_optimized", len(optimizations),
	)
	return nil
}

// optimizeTools derives and applies the per-tool rate adjustments.
// Only tools with at least one action appear in the result; a tool the
// heuristic leaves alone is not worth a snapshot entry.
func (e *Engine) optimizeTools(ctx context.Context) ([]model.ToolOptimization, error) {
	tools, err := e.activeTools(ctx)
	if err != nil {
		return nil, err
	}

	optimizations := make([]model.ToolOptimization, 0, len(tools))
	for _, tool := range tools {
		stats, err := e.agg.ToolStats(ctx, tool.ID, statsPeriodDays)
		if err != nil {
			return nil, err
		}
		if stats.Clicks == 0 {
			// No traffic yet; nothing to learn from.
			continue
		}

		opt := model.ToolOptimization{
			ToolID:         tool.ID,
			ToolName:       tool.Name,
			ConversionRate: stats.ConversionRate,
		}

		// The heuristic runs on the effective rate: a tool without a
		// rate of its own earns the configured default, so that is the
		// base an adjustment starts from. A mid-range conversion rate
		// fires neither threshold and must not touch the record.
		base := tool.EffectiveCommissionRate(e.defaultRate)
		var reason string
		switch {
		case stats.ConversionRate > ranking.RaiseThreshold:
			reason = "conversion rate above raise threshold"
		case stats.ConversionRate < ranking.LowerThreshold:
			reason = "conversion rate below lower threshold"
		}
		if newRate := ranking.EstimateOptimalCommission(base, stats.ConversionRate); reason != "" && newRate != base {
			if _, err := e.store.UpdateTool(ctx, tool.ID, map[string]any{"commission_rate": newRate}); err != nil {
				e.logger.Warn("rate adjustment failed", "tool_id", tool.ID, "error", err)
			} else {
				opt.Actions = append(opt.Actions, model.OptimizationAction{
					Action:  "adjust_commission",
					Reason:  reason,
					OldRate: base,
					NewRate: newRate,
				})
			}
		}
		if stats.ConversionRate < deprioritizeBelowRate {
			opt.Actions = append(opt.Actions, model.OptimizationAction{
				Action: "deprioritize",
				Reason: "conversion rate below recommendation floor",
			})
		}

		if len(opt.Actions) > 0 {
			optimizations = append(optimizations, opt)
		}
	}
	return optimizations, nil
}

// rankActiveTools scores the active tools over the trailing stats
// window, with fabricated ratings filled in.
func (e *Engine) rankActiveTools(ctx context.Context) ([]model.RankedTool, error) {
	tools, err := e.activeTools(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ranking.Entry, 0, len(tools))
	for _, tool := range tools {
		stats, err := e.agg.ToolStats(ctx, tool.ID, statsPeriodDays)
		if err != nil {
			return nil, err
		}
		stats.Rating = e.rater.Rating(tool.ID)
		entries = append(entries, ranking.Entry{Tool: tool, Stats: stats})
	}
	return ranking.Rank(entries), nil
}

// RunDailyRanking recomputes the full tool, category, and revenue
// rankings and stores the day's snapshot.
func (e *Engine) RunDailyRanking(ctx context.Context) error {
	if !e.ruleEnabled(ctx, JobDailyRanking) {
		e.logger.Info("job suppressed by rule", "job", JobDailyRanking)
		return nil
	}

	tools, err := e.activeTools(ctx)
	if err != nil {
		return err
	}
	ranked, err := e.rankActiveTools(ctx)
	if err != nil {
		return err
	}

	summary, err := e.agg.Summarize(ctx, statsPeriodDays)
	if err != nil {
		return err
	}

	run := &model.RankingRun{
		Tools:      ranked,
		Categories: ranking.RankCategories(tools, ranked),
		Revenue:    summary.TopTools,
	}
	if err := e.store.SaveRankingRun(ctx, run); err != nil {
		return err
	}

	e.logger.Info("ranking finished",
		"run_id", run.ID,
		"tools", len(run.Tools),
		"categories", len(run.Categories),
	)
	return nil
}

// GenerateReport builds and stores a report over the trailing days.
// Top tools come from the latest ranking snapshot when one exists.
func (e *Engine) GenerateReport(ctx context.Context, reportType string, days int) (*model.Report, error) {
	summary, err := e.agg.Summarize(ctx, days)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	report := &model.Report{
		Type:    reportType,
		Period:  model.ReportPeriod{Start: end.AddDate(0, 0, -days), End: end},
		Metrics: *summary,
	}

	optRuns, err := e.store.CountOptimizationRuns(ctx, report.Period.Start)
	if err != nil {
		return nil, err
	}
	report.OptimizationRuns = optRuns

	latest, err := e.store.LatestRankingRun(ctx)
	switch {
	case err == nil:
		top := latest.Tools
		if len(top) > analytics.TopToolsLimit {
			top = top[:analytics.TopToolsLimit]
		}
		report.TopTools = top
	case errors.Is(err, store.ErrNotFound):
		// No ranking run yet; the report ships without a leaderboard.
	default:
		return nil, err
	}

	if err := e.store.SaveReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// RunWeeklyReport generates the weekly report and hands it to the
// notifier.
func (e *Engine) RunWeeklyReport(ctx context.Context) error {
	if !e.ruleEnabled(ctx, JobWeeklyReport) {
		e.logger.Info("job suppressed by rule", "job", JobWeeklyReport)
		return nil
	}

	report, err := e.GenerateReport(ctx, model.ReportTypeWeekly, 7)
	if err != nil {
		return err
	}
	return e.notifier.Notify(ctx, report)
}

// RunMonthlyReport generates the monthly report.
func (e *Engine) RunMonthlyReport(ctx context.Context) error {
	_, err := e.GenerateReport(ctx, model.ReportTypeMonthly, 30)
	return err
}

// RunCrawlTools pulls candidates from the discovery sources and stores
// the ones not seen before as pending tools.
func (e *Engine) RunCrawlTools(ctx context.Context) error {
	if e.crawler == nil {
		e.logger.Info("crawl skipped: no sources configured")
		return nil
	}

	discovered, err := e.crawler.Discover(ctx)
	if err != nil {
		return err
	}

	added := 0
	for _, tool := range discovered {
		_, err := e.store.GetTool(ctx, tool.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := e.store.AddTool(ctx, tool); err != nil {
			e.logger.Warn("discovered tool rejected", "tool_id", tool.ID, "error", err)
			continue
		}
		added++
	}

	e.logger.Info("crawl finished", "discovered", len(discovered), "added", added)
	return nil
}

// RunSocialPosting promotes one active tool across the configured
// platforms. A single platform failure is logged; the job only fails
// when every platform rejected the post.
func (e *Engine) RunSocialPosting(ctx context.Context) error {
	if len(e.posters) == 0 {
		e.logger.Info("social posting skipped: no platforms configured")
		return nil
	}

	tools, err := e.activeTools(ctx)
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		return nil
	}

	tool := tools[e.rater.Pick(len(tools))]
	content := discovery.BuildPost(tool, e.rater.Pick(2))

	failures := 0
	for _, poster := range e.posters {
		if err := poster.Post(ctx, content); err != nil {
			failures++
			e.logger.Warn("social post failed", "platform", poster.Platform(), "error", err)
		}
	}
	if failures == len(e.posters) {
		return fmt.Errorf("social posting: all %d platforms failed", failures)
	}
	return nil
}

// RunBackup snapshots the tool catalog and conversion log, then prunes
// expired backups and events past the retention window.
func (e *Engine) RunBackup(ctx context.Context) error {
	tools, err := e.store.ListTools(ctx, model.ToolFilter{})
	if err != nil {
		return err
	}
	conversions, err := e.store.ListConversions(ctx, time.Time{})
	if err != nil {
		return err
	}

	backup := &model.Backup{Tools: tools, Conversions: conversions}
	if err := e.store.SaveBackup(ctx, backup); err != nil {
		return err
	}

	now := time.Now().UTC()
	prunedBackups, err := e.store.PruneBackups(ctx, now.Add(-backupRetention))
	if err != nil {
		return err
	}
	prunedEvents, err := e.store.PruneEvents(ctx, now.Add(-e.retention))
	if err != nil {
		return err
	}

	e.logger.Info("backup finished",
		"backup_id", backup.ID,
		"tools", len(tools),
		"conversions", len(conversions),
		"pruned_backups", prunedBackups,
		"pruned_events", prunedEvents,
	)
	return nil
}
