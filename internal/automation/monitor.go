package automation

import (
	"context"
	"time"

	"github.com/toolvane/toolvane/internal/model"
)

// RunConversionMonitor samples the short-window conversion rate and
// compares it against the previous sample. A drop of more than
// monitorDropFraction triggers an emergency optimization in the same
// run, so the corrective rate changes land before the next sample.
func (e *Engine) RunConversionMonitor(ctx context.Context) error {
	if !e.ruleEnabled(ctx, JobConversionMonitor) {
		e.logger.Info("job suppressed by rule", "job", JobConversionMonitor)
		return nil
	}

	window, err := e.agg.SummarizeWindow(ctx, time.Hour)
	if err != nil {
		return err
	}
	current := window.ConversionRate

	e.monitorMu.Lock()
	previous, hadPrevious := e.prevRate, e.hasPrev
	e.prevRate, e.hasPrev = current, true
	e.monitorMu.Unlock()

	// The first sample and quiet periods establish a baseline only.
	if !hadPrevious || previous <= 0 {
		return nil
	}
	if current >= previous*(1-monitorDropFraction) {
		return nil
	}

	drop := (previous - current) / previous
	e.logger.Warn("conversion rate drop detected",
		"current", current,
		"previous", previous,
		"drop", drop,
	)
	return e.runEmergencyOptimization(ctx, current, previous, drop)
}

// runEmergencyOptimization applies the optimization heuristic outside
// its hourly schedule and records why it fired.
func (e *Engine) runEmergencyOptimization(ctx context.Context, current, previous, drop float64) error {
	optimizations, err := e.optimizeTools(ctx)
	if err != nil {
		return err
	}

	var actions []model.OptimizationAction
	for _, opt := range optimizations {
		actions = append(actions, opt.Actions...)
	}

	emergency := &model.EmergencyOptimization{
		Trigger:      "conversion_rate_drop",
		CurrentRate:  current,
		PreviousRate: previous,
		DropFraction: drop,
		Actions:      actions,
	}
	if err := e.store.SaveEmergency(ctx, emergency); err != nil {
		return err
	}

	e.logger.Info("emergency optimization recorded",
		"emergency_id", emergency.ID,
		"actions", len(actions),
	)
	return nil
}
