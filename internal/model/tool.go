// Package model defines domain entities for the application.
package model

import "time"

// ToolStatus represents the lifecycle status of a catalog tool.
type ToolStatus string

const (
	ToolStatusActive   ToolStatus = "active"
	ToolStatusInactive ToolStatus = "inactive"
	ToolStatusPending  ToolStatus = "pending" // discovered, awaiting review
)

// Tool represents a recommendable product entry in the directory.
type Tool struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category,omitempty"`
	Type         string `json:"type,omitempty"` // free, freemium, paid
	Description  string `json:"description,omitempty"`
	Pricing      string `json:"pricing,omitempty"`
	URL          string `json:"url"`
	AffiliateURL string `json:"affiliate_url,omitempty"`

	// CommissionRate is a percentage in [0, 100]. Zero means the
	// configured default applies.
	CommissionRate float64 `json:"commission_rate"`

	Features []string   `json:"features,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	Status   ToolStatus `json:"status"`
	Source   string     `json:"source,omitempty"` // manual, producthunt, github

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the tool is served to callers by default.
func (t *Tool) IsActive() bool {
	return t.Status == ToolStatusActive
}

// EffectiveCommissionRate returns the tool's rate, or the given default
// when the tool has none set.
func (t *Tool) EffectiveCommissionRate(defaultRate float64) float64 {
	if t.CommissionRate <= 0 {
		return defaultRate
	}
	return t.CommissionRate
}

// ToolFilter defines equality filters for listing tools.
// Zero-valued fields match everything.
type ToolFilter struct {
	Category string
	Type     string
	Status   ToolStatus
	Search   string // case-insensitive substring on name/description
}
