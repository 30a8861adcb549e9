package model

import "time"

// ClickType distinguishes which outbound link was followed.
type ClickType string

const (
	ClickTypeDirect    ClickType = "direct"
	ClickTypeAffiliate ClickType = "affiliate"
)

// ClickEvent represents a single tracked click on a tool's outbound link.
// Click events are append-only and never mutated after recording.
type ClickEvent struct {
	ID        string    `json:"id"`
	ToolID    string    `json:"tool_id"`
	SessionID string    `json:"session_id,omitempty"`
	ClickType ClickType `json:"click_type"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversionEvent represents a purchase or signup attributed to a tool.
// The commission is derived once at record time and never recomputed.
type ConversionEvent struct {
	ID      string  `json:"id"`
	ToolID  string  `json:"tool_id"`
	ClickID string  `json:"click_id,omitempty"`
	Amount  float64 `json:"amount"`

	// Commission is amount * rate/100 using the tool's commission rate
	// at the moment the conversion was recorded. A later rate change
	// does not alter stored commissions, but two conversions for the
	// same click can earn different commissions if the rate moved
	// between them. Known limitation carried from the original system.
	Commission float64 `json:"commission"`

	Timestamp time.Time `json:"timestamp"`
}

// DailyStat is the per-day rollup bucket, keyed by ISO date (2006-01-02).
type DailyStat struct {
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

// ToolStats aggregates signals for a single tool over a period.
// ConversionRate is a fraction in [0, 1], not a percentage.
type ToolStats struct {
	ToolID         string  `json:"tool_id"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversion_rate"`
	Rating         float64 `json:"rating"`
}

// TopTool is one entry of the revenue leaderboard in a summary.
type TopTool struct {
	ToolID      string  `json:"tool_id"`
	Name        string  `json:"name"`
	Revenue     float64 `json:"revenue"`
	Conversions int64   `json:"conversions"`
}

// AnalyticsSummary is the aggregate view over a trailing period.
type AnalyticsSummary struct {
	PeriodDays       int                  `json:"period_days"`
	TotalClicks      int64                `json:"total_clicks"`
	TotalConversions int64                `json:"total_conversions"`
	TotalRevenue     float64              `json:"total_revenue"`
	ConversionRate   float64              `json:"conversion_rate"` // fraction, 0-1
	DailyStats       map[string]DailyStat `json:"daily_stats"`
	TopTools         []TopTool            `json:"top_tools"`
}

// RevenueSummary is the rollup served by GET /api/revenue.
type RevenueSummary struct {
	Period            string  `json:"period"`
	TotalRevenue      float64 `json:"total_revenue"`
	TodayRevenue      float64 `json:"today_revenue"`
	WeeklyRevenue     float64 `json:"weekly_revenue"`
	MonthlyRevenue    float64 `json:"monthly_revenue"`
	AverageCommission float64 `json:"average_commission"`
	ConversionRate    float64 `json:"conversion_rate"`
}
