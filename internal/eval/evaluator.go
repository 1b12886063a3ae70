package eval

import (
	"fmt"
	"time"

	"github.com/samijaber1/aegis-guard/internal/service"
	"github.com/samijaber1/aegis-guard/internal/window"
)

// Evaluator converts window snapshots into burn-rate results
type Evaluator struct{}

// NewEvaluator creates a new evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate computes per-window availability and burn rate for one service and
// classifies each window against its configured threshold. The service-level
// result triggers when ANY window crosses its hard threshold; the early
// warning applies to the fastest window only.
func (e *Evaluator) Evaluate(def *service.Definition, snaps map[string]window.Snapshot, now time.Time) (*Result, error) {
	if def == nil {
		return nil, fmt.Errorf("nil definition")
	}

	result := &Result{
		ServiceID: def.Metadata.ID,
		Windows:   make(map[string]WindowResult, len(def.Spec.Windows)),
		Timestamp: now,
	}

	errorBudget := def.Spec.ErrorBudget()
	minSamples := def.Spec.Evaluation.MinSamplesPerWindow
	warnFactor := def.Spec.EarlyWarnFactorOrDefault()
	fastest := def.Spec.FastestWindow()

	for _, bw := range def.Spec.Windows {
		snap, ok := snaps[bw.Window]
		if !ok {
			return nil, fmt.Errorf("missing aggregate for window %q", bw.Window)
		}

		avail := ComputeAvailability(snap.OK, snap.Total, minSamples)
		wr := WindowResult{
			Window:           bw.Window,
			Threshold:        bw.BurnThreshold,
			InsufficientData: avail.InsufficientData,
		}

		if avail.InsufficientData {
			// Availability 0 but burn rate stays 0: thin data never triggers
			result.Windows[bw.Window] = wr
			continue
		}

		value := ApplyFreshnessPenalty(avail.Value, snap.FreshnessMiss, snap.Total)
		wr.Availability = value
		wr.BurnRate = ComputeBurnRate(value, errorBudget)

		if wr.BurnRate >= bw.BurnThreshold {
			wr.Trigger = true
			result.ShouldTrigger = true
			result.TriggerWindows = append(result.TriggerWindows, bw.Window)
		} else if bw.Window == fastest && wr.BurnRate >= bw.BurnThreshold*warnFactor {
			wr.Warn = true
			result.Warn = true
		}

		result.Windows[bw.Window] = wr
	}

	if result.ShouldTrigger {
		result.Severity = severityFor(result)
	}

	return result, nil
}

// severityFor grades how far past its threshold the worst window burns
func severityFor(r *Result) string {
	worst := 0.0
	for _, wr := range r.Windows {
		if !wr.Trigger || wr.Threshold <= 0 {
			continue
		}
		ratio := wr.BurnRate / wr.Threshold
		if ratio > worst {
			worst = ratio
		}
	}
	if worst >= 2 {
		return "high"
	}
	return "medium"
}
