package model

import "time"

// RuleTrigger describes the condition under which a rule fires.
type RuleTrigger struct {
	Action    string         `json:"action"`
	Condition map[string]any `json:"condition,omitempty"`
}

// RuleAction describes what a rule does when it fires.
type RuleAction struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// AutomationRule is a named, toggleable trigger/action policy.
// Disabled rules never fire.
type AutomationRule struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Enabled  bool        `json:"enabled"`
	Trigger  RuleTrigger `json:"trigger,omitempty"`
	Action   RuleAction  `json:"action,omitempty"`
	Schedule string      `json:"schedule,omitempty"` // cron-like, informational

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Settings is the single-document system configuration record.
type Settings struct {
	SiteTitle             string    `json:"site_title"`
	DefaultCommissionRate float64   `json:"default_commission_rate"`
	DataRetentionDays     int       `json:"data_retention_days"`
	AutomationEnabled     bool      `json:"automation_enabled"`
	UpdatedAt             time.Time `json:"updated_at,omitempty"`
}
