// Package automation implements the scheduled business jobs: commission
// optimization, ranking updates, periodic reports, real-time conversion
// monitoring, tool discovery, social posting, and backups.
package automation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/toolvane/toolvane/internal/analytics"
	"github.com/toolvane/toolvane/internal/discovery"
	"github.com/toolvane/toolvane/internal/mockdata"
	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/scheduler"
	"github.com/toolvane/toolvane/internal/store"
)

// Job names. These are also the task names accepted by the
// execute-task API endpoint.
const (
	JobHourlyOptimization = "hourly_optimization"
	JobDailyRanking       = "daily_ranking"
	JobWeeklyReport       = "weekly_report"
	JobMonthlyReport      = "monthly_report"
	JobConversionMonitor  = "conversion_monitor"
	JobCrawlTools         = "crawl_tools"
	JobSocialPosting      = "social_posting"
	JobBackup             = "backup"
)

// Policy constants for the jobs.
const (
	// deprioritizeBelowRate: below this conversion fraction a tool is
	// marked for lower recommendation priority.
	deprioritizeBelowRate = 0.2
	// monitorDropFraction: a short-window conversion rate more than
	// this far below the previous reading triggers the emergency
	// optimization sub-job.
	monitorDropFraction = 0.2
	// backupRetention is how long backup snapshots are kept.
	backupRetention = 7 * 24 * time.Hour
	// statsPeriodDays is the trailing window for per-tool stats.
	statsPeriodDays = 30
)

// Engine wires the aggregator, calculator, store, and outbound
// collaborators into runnable jobs.
type Engine struct {
	store       *store.Store
	agg         *analytics.Aggregator
	rater       *mockdata.Generator
	crawler     *discovery.Crawler
	posters     []discovery.Poster
	notifier    Notifier
	logger      *slog.Logger
	retention   time.Duration
	defaultRate float64

	// monitor state: previous short-window conversion rate.
	monitorMu sync.Mutex
	prevRate  float64
	hasPrev   bool
}

// Config holds the engine's construction parameters.
type Config struct {
	Store      *store.Store
	Aggregator *analytics.Aggregator
	Rater      *mockdata.Generator
	Crawler    *discovery.Crawler
	Posters    []discovery.Poster
	Notifier   Notifier
	Logger     *slog.Logger

	RetentionDays int

	// DefaultCommissionRate is the percentage assumed for tools without
	// a rate of their own, matching the aggregator's default.
	DefaultCommissionRate float64
}

// New creates an Engine.
func New(cfg Config) *Engine {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(cfg.Logger)
	}
	rater := cfg.Rater
	if rater == nil {
		rater = mockdata.New()
	}
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	return &Engine{
		store:       cfg.Store,
		agg:         cfg.Aggregator,
		rater:       rater,
		crawler:     cfg.Crawler,
		posters:     cfg.Posters,
		notifier:    notifier,
		logger:      cfg.Logger.With("component", "automation"),
		retention:   retention,
		defaultRate: cfg.DefaultCommissionRate,
	}
}

// Jobs returns the recurring jobs in their scheduled cadence.
func (e *Engine) Jobs() []scheduler.Job {
	return []scheduler.Job{
		{Name: JobHourlyOptimization, Interval: time.Hour, Run: e.RunHourlyOptimization},
		{Name: JobDailyRanking, Interval: 24 * time.Hour, Run: e.RunDailyRanking},
		{Name: JobWeeklyReport, Interval: 7 * 24 * time.Hour, Run: e.RunWeeklyReport},
		{Name: JobMonthlyReport, Interval: 30 * 24 * time.Hour, Run: e.RunMonthlyReport},
		{Name: JobConversionMonitor, Interval: 5 * time.Minute, Run: e.RunConversionMonitor},
		{Name: JobCrawlTools, Interval: 6 * time.Hour, Run: e.RunCrawlTools},
		{Name: JobSocialPosting, Interval: 4 * time.Hour, Run: e.RunSocialPosting},
		{Name: JobBackup, Interval: 24 * time.Hour, Run: e.RunBackup},
	}
}

// ruleEnabled checks the automation rules document for the job's rule.
// A disabled rule suppresses the run; a missing rule means the job is
// not gated.
func (e *Engine) ruleEnabled(ctx context.Context, ruleID string) bool {
	rule, err := e.store.GetRule(ctx, ruleID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("rule lookup failed", "rule_id", ruleID, "error", err)
		}
		return true
	}
	return rule.Enabled
}

// activeTools lists the tools that participate in optimization and
// ranking.
func (e *Engine) activeTools(ctx context.Context) ([]*model.Tool, error) {
	return e.store.ListTools(ctx, model.ToolFilter{Status: model.ToolStatusActive})
}
