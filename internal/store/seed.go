package store

import (
	"context"
	"os"
	"time"

	"github.com/toolvane/toolvane/internal/model"
)

// Seed writes the sample catalog and default automation rules on first
// run. Existing records are never overwritten, so seeding is safe to
// call on every startup.
func (s *Store) Seed(ctx context.Context) error {
	for _, tool := range sampleTools() {
		if _, err := os.Stat(s.docPath(nsTools, tool.ID)); err == nil {
			continue
		}
		if _, err := s.AddTool(ctx, tool); err != nil {
			return err
		}
	}

	if _, err := os.Stat(s.docPath(".", trimExt(rulesFile))); err == nil {
		return nil
	}
	if err := s.SaveRules(ctx, DefaultRules()); err != nil {
		return err
	}

	s.logger.Info("seeded sample data")
	return nil
}

// sampleTools is the starter catalog shipped with a fresh data directory.
func sampleTools() []*model.Tool {
	return []*model.Tool{
		{
			ID:             "chatgpt",
			Name:           "ChatGPT",
			Category:       "chat",
			Type:           "freemium",
			Description:    "Conversational AI assistant by OpenAI",
			Pricing:        "Free / Plus $20 per month",
			URL:            "https://chat.openai.com",
			AffiliateURL:   "https://chat.openai.com?affiliate=toolvane",
			CommissionRate: 10,
			Features:       []string{"chat", "code generation", "writing", "translation"},
			Tags:           []string{"chat", "writing", "coding"},
			Status:         model.ToolStatusActive,
			Source:         "manual",
		},
		{
			ID:             "midjourney",
			Name:           "Midjourney",
			Category:       "image",
			Type:           "paid",
			Description:    "AI image generation tool",
			Pricing:        "$10-60 per month",
			URL:            "https://midjourney.com",
			AffiliateURL:   "https://midjourney.com?affiliate=toolvane",
			CommissionRate: 15,
			Features:       []string{"image generation", "art", "style transfer"},
			Tags:           []string{"image", "design", "art"},
			Status:         model.ToolStatusActive,
			Source:         "manual",
		},
		{
			ID:             "claude",
			Name:           "Claude",
			Category:       "chat",
			Type:           "freemium",
			Description:    "AI assistant by Anthropic",
			Pricing:        "Free / Pro $20 per month",
			URL:            "https://claude.ai",
			AffiliateURL:   "https://claude.ai?affiliate=toolvane",
			CommissionRate: 12,
			Features:       []string{"long documents", "code analysis", "writing"},
			Tags:           []string{"chat", "analysis", "writing"},
			Status:         model.ToolStatusActive,
			Source:         "manual",
		},
	}
}

// DefaultRules returns the automation rules used when none are stored.
func DefaultRules() []*model.AutomationRule {
	now := time.Now().UTC()
	return []*model.AutomationRule{
		{
			ID:      "hourly_optimization",
			Name:    "Hourly link optimization",
			Enabled: true,
			Trigger: model.RuleTrigger{
				Action:    "conversion",
				Condition: map[string]any{"conversion_rate": map[string]any{"lt": 0.3}},
			},
			Action:    model.RuleAction{Type: "optimize_links"},
			Schedule:  "0 * * * *",
			CreatedAt: now,
		},
		{
			ID:        "daily_ranking",
			Name:      "Daily ranking update",
			Enabled:   true,
			Action:    model.RuleAction{Type: "update_rankings"},
			Schedule:  "0 2 * * *",
			CreatedAt: now,
		},
		{
			ID:        "weekly_report",
			Name:      "Weekly report",
			Enabled:   true,
			Action:    model.RuleAction{Type: "generate_report"},
			Schedule:  "0 9 * * 1",
			CreatedAt: now,
		},
		{
			ID:      "conversion_monitor",
			Name:    "Conversion rate monitor",
			Enabled: true,
			Trigger: model.RuleTrigger{
				Action:    "monitor",
				Condition: map[string]any{"drop_fraction": map[string]any{"gt": 0.2}},
			},
			Action:    model.RuleAction{Type: "emergency_optimization"},
			Schedule:  "*/5 * * * *",
			CreatedAt: now,
		},
	}
}
