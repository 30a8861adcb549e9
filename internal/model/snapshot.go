package model

import "time"

// Snapshot documents are immutable, timestamped outputs of batch jobs.
// They accumulate under their own namespaces and are never rewritten.

// OptimizationAction is one suggested change for a tool.
type OptimizationAction struct {
	Action  string  `json:"action"`
	Reason  string  `json:"reason,omitempty"`
	OldRate float64 `json:"old_rate,omitempty"`
	NewRate float64 `json:"new_rate,omitempty"`
}

// ToolOptimization holds the optimization outcome for a single tool.
type ToolOptimization struct {
	ToolID         string               `json:"tool_id"`
	ToolName       string               `json:"tool_name"`
	ConversionRate float64              `json:"conversion_rate"`
	Actions        []OptimizationAction `json:"actions"`
}

// OptimizationRun is the snapshot written by the hourly optimization job.
type OptimizationRun struct {
	ID            string             `json:"id"`
	Optimizations []ToolOptimization `json:"optimizations"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// RankedTool is one row of a ranking table.
type RankedTool struct {
	Rank   int       `json:"rank"`
	ToolID string    `json:"tool_id"`
	Name   string    `json:"name"`
	Score  float64   `json:"score"`
	Stats  ToolStats `json:"stats"`
}

// CategoryRank aggregates scores for one category.
type CategoryRank struct {
	Rank     int     `json:"rank"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Tools    int     `json:"tools"`
}

// RankingRun is the snapshot written by the daily ranking job.
type RankingRun struct {
	ID          string         `json:"id"`
	Tools       []RankedTool   `json:"tools"`
	Categories  []CategoryRank `json:"categories"`
	Revenue     []TopTool      `json:"revenue"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// TrendingSnapshot is the ranked trending list refreshed hourly.
type TrendingSnapshot struct {
	ID          string       `json:"id"`
	Tools       []RankedTool `json:"tools"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ReportPeriod is the window a report covers.
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Report types.
const (
	ReportTypeWeekly  = "weekly"
	ReportTypeMonthly = "monthly"
	ReportTypeCustom  = "custom"
)

// Report is a weekly, monthly, or on-demand summary document.
type Report struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"` // weekly, monthly, custom
	Period  ReportPeriod     `json:"period"`
	Metrics AnalyticsSummary `json:"metrics"`

	// OptimizationRuns counts the optimization snapshots generated
	// within the report period.
	OptimizationRuns int `json:"optimization_runs"`

	TopTools    []RankedTool `json:"top_tools,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// EmergencyOptimization records a monitor-triggered optimization run.
type EmergencyOptimization struct {
	ID           string               `json:"id"`
	Trigger      string               `json:"trigger"`
	CurrentRate  float64              `json:"current_rate"`
	PreviousRate float64              `json:"previous_rate"`
	DropFraction float64              `json:"drop_fraction"`
	Actions      []OptimizationAction `json:"actions"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// Backup is the periodic full-state snapshot kept for a retention window.
type Backup struct {
	ID          string             `json:"id"`
	Tools       []*Tool            `json:"tools"`
	Conversions []*ConversionEvent `json:"conversions"`
	GeneratedAt time.Time          `json:"generated_at"`
}
