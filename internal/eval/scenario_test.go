package eval

import (
	"math"
	"testing"
	"time"

	"github.com/samijaber1/aegis-guard/internal/service"
	"github.com/samijaber1/aegis-guard/internal/window"
)

func feedDefinition() *service.Definition {
	return &service.Definition{
		APIVersion: "guard/v1",
		Kind:       "Service",
		Metadata:   service.Metadata{ID: "feed_ws"},
		Spec: service.Spec{
			SLO:             service.SLO{UptimeTargetPct: 99.9},
			ErrorBudgetDays: 30,
			Windows: []service.BurnWindow{
				{Window: "5m", BurnThreshold: 14.4},
				{Window: "1h", BurnThreshold: 6.0},
			},
			Evaluation: service.Evaluation{MinSamplesPerWindow: 30},
		},
	}
}

func snapshotFor(windowName string, ok, total, freshnessMiss float64) window.Snapshot {
	return window.Snapshot{
		Window:        windowName,
		Total:         total,
		OK:            ok,
		Errors:        total - ok,
		FreshnessMiss: freshnessMiss,
	}
}

func TestEvaluate_HealthyService(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 1000, 1000, 0),
		"1h": snapshotFor("1h", 9995, 10000, 0),
	}

	result, err := evaluator.Evaluate(def, snaps, time.Now())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if result.ShouldTrigger {
		t.Error("healthy service should not trigger")
	}
	if result.Warn {
		t.Error("healthy service should not warn")
	}
	if result.Severity != "" {
		t.Errorf("expected no severity, got %q", result.Severity)
	}
	if len(result.Windows) != 2 {
		t.Fatalf("expected 2 window results, got %d", len(result.Windows))
	}
}

func TestEvaluate_HardTrigger(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	// 15% failure rate on a 0.1% budget: burn 150x on both windows
	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 850, 1000, 0),
		"1h": snapshotFor("1h", 8500, 10000, 0),
	}

	result, err := evaluator.Evaluate(def, snaps, time.Now())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if !result.ShouldTrigger {
		t.Fatal("expected trigger")
	}
	if len(result.TriggerWindows) != 2 {
		t.Errorf("expected both windows to trigger, got %v", result.TriggerWindows)
	}
	if result.Severity != "high" {
		t.Errorf("expected severity high at 150x burn, got %q", result.Severity)
	}

	fiveMin := result.Windows["5m"]
	if math.Abs(fiveMin.BurnRate-150.0) > 0.01 {
		t.Errorf("expected 5m burn rate ~150, got %.2f", fiveMin.BurnRate)
	}
	if math.Abs(fiveMin.Availability-0.85) > 0.0001 {
		t.Errorf("expected 5m availability 0.85, got %.4f", fiveMin.Availability)
	}
}

func TestEvaluate_SingleWindowTriggers(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	// Fast window hot, slow window still clean: any-window semantics trigger
	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 980, 1000, 0),
		"1h": snapshotFor("1h", 9998, 10000, 0),
	}

	result, err := evaluator.Evaluate(def, snaps, time.Now())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if !result.ShouldTrigger {
		t.Fatal("expected trigger from the 5m window alone")
	}
	if len(result.TriggerWindows) != 1 || result.TriggerWindows[0] != "5m" {
		t.Errorf("expected only 5m to trigger, got %v", result.TriggerWindows)
	}
	if result.Windows["1h"].Trigger {
		t.Error("1h window should not trigger")
	}
	if result.Severity != "medium" {
		t.Errorf("expected severity medium at 20x burn vs 14.4 threshold, got %q", result.Severity)
	}
}

func TestEvaluate_EarlyWarn(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	// 0.8% failures: burn 8x, past half the 14.4 threshold but under it
	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 992, 1000, 0),
		"1h": snapshotFor("1h", 10000, 10000, 0),
	}

	result, err := evaluator.Evaluate(def, snaps, time.Now())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if result.ShouldTrigger {
		t.Fatal("burn 8x should not hard-trigger at threshold 14.4")
	}
	if !result.Warn {
		t.Error("expected early warning at 8x burn with factor 0.5")
	}
	if !result.Windows["5m"].Warn {
		t.Error("expected warn flag on the 5m window")
	}
}

func TestEvaluate_EarlyWarnOnlyOnFastestWindow(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	// 1h burns 4x (past half its 6.0 threshold) while 5m is clean; the slow
	// window alone must not raise the warning
	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 1000, 1000, 0),
		"1h": snapshotFor("1h", 9960, 10000, 0),
	}

	result, err := evaluator.Evaluate(def, snaps, time.Now())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if result.ShouldTrigger {
		t.Fatal("unexpected trigger")
	}
	if result.Warn {
		t.Error("slow-window burn must not produce an early warning")
	}
}

func TestEvaluate_InsufficientData(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	// 5 samples, all failures, under the 30-sample floor
	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 0, 5, 0),
		"1h": snapshotFor("1h", 0, 5, 0),
	}

	result, err := evaluator.Evaluate(def, snaps, time.Now())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if result.ShouldTrigger {
		t.Error("insufficient data must never trigger")
	}
	if result.Warn {
		t.Error("insufficient data must never warn")
	}
	for name, wr := range result.Windows {
		if !wr.InsufficientData {
			t.Errorf("window %s: expected InsufficientData", name)
		}
		if wr.BurnRate != 0 {
			t.Errorf("window %s: expected zero burn rate, got %v", name, wr.BurnRate)
		}
	}
}

func TestEvaluate_FreshnessPenaltyTriggers(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	// Every sample succeeds but 5% are stale: availability 0.95, burn 50x
	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 1000, 1000, 50),
		"1h": snapshotFor("1h", 10000, 10000, 0),
	}

	result, err := evaluator.Evaluate(def, snaps, time.Now())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if !result.ShouldTrigger {
		t.Fatal("expected freshness misses to trigger")
	}
	fiveMin := result.Windows["5m"]
	if math.Abs(fiveMin.Availability-0.95) > 0.0001 {
		t.Errorf("expected penalized availability 0.95, got %.4f", fiveMin.Availability)
	}
	if math.Abs(fiveMin.BurnRate-50.0) > 0.01 {
		t.Errorf("expected burn rate ~50, got %.2f", fiveMin.BurnRate)
	}
}

func TestEvaluate_MissingWindow(t *testing.T) {
	evaluator := NewEvaluator()
	def := feedDefinition()

	snaps := map[string]window.Snapshot{
		"5m": snapshotFor("5m", 1000, 1000, 0),
	}

	if _, err := evaluator.Evaluate(def, snaps, time.Now()); err == nil {
		t.Fatal("expected error for missing window aggregate")
	}
}

func TestEvaluate_NilDefinition(t *testing.T) {
	evaluator := NewEvaluator()
	if _, err := evaluator.Evaluate(nil, nil, time.Now()); err == nil {
		t.Fatal("expected error for nil definition")
	}
}
