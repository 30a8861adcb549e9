package automation

import (
	"context"
	"log/slog"

	"github.com/toolvane/toolvane/internal/model"
)

// Notifier delivers a generated report to whoever watches the site.
type Notifier interface {
	Notify(ctx context.Context, report *model.Report) error
}

// LogNotifier stands in for an email or chat integration: it logs the
// report headline instead of delivering it.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates the stub notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// Notify logs the report that would have been delivered.
func (n *LogNotifier) Notify(ctx context.Context, report *model.Report) error {
	n.logger.Info("report ready",
		"report_id", report.ID,
		"type", report.Type,
		"clicks", report.Metrics.TotalClicks,
		"conversions", report.Metrics.TotalConversions,
		"revenue", report.Metrics.TotalRevenue,
	)
	return nil
}
