package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toolvane/toolvane/internal/model"
)

// Poster publishes a promotional post to a social platform.
type Poster interface {
	Platform() string
	Post(ctx context.Context, content string) error
}

// LogPoster stands in for a real platform integration: it logs the
// post instead of publishing it. Real Twitter/LinkedIn clients would
// satisfy the same interface.
type LogPoster struct {
	platform string
	logger   *slog.Logger
}

// NewLogPoster creates a stub poster for the named platform.
func NewLogPoster(platform string, logger *slog.Logger) *LogPoster {
	return &LogPoster{
		platform: platform,
		logger:   logger.With("component", "social", "platform", platform),
	}
}

func (p *LogPoster) Platform() string { return p.platform }

// Post logs the content that would have been published.
func (p *LogPoster) Post(ctx context.Context, content string) error {
	p.logger.Info("social post published", "content", content)
	return nil
}

// BuildPost renders the promotional copy for a tool. The template index
// lets the caller rotate copy variants.
func BuildPost(tool *model.Tool, variant int) string {
	features := ""
	if len(tool.Features) > 0 {
		n := len(tool.Features)
		if n > 2 {
			n = 2
		}
		features = strings.Join(tool.Features[:n], ", ")
	}

	templates := []string{
		fmt.Sprintf("Discovered a great AI tool: %s! %s Pricing: %s. Try it: %s #AITools",
			tool.Name, tool.Description, tool.Pricing, tool.URL),
		fmt.Sprintf("AI tool pick: %s. %s Highlights: %s. Link: %s #AI",
			tool.Name, tool.Description, features, tool.URL),
	}
	if variant < 0 || variant >= len(templates) {
		variant = 0
	}
	return templates[variant]
}
