package metrics

import (
	"testing"
	"time"

	"github.com/samijaber1/aegis-guard/internal/adapter/memory"
	"github.com/samijaber1/aegis-guard/internal/events"
)

func TestCollector_Counters(t *testing.T) {
	collector := NewCollector()

	for i := 0; i < 3; i++ {
		collector.Evaluated(2 * time.Millisecond)
	}
	collector.Triggered()
	collector.Triggered()
	collector.Recovered()
	collector.EarlyWarned()
	collector.ActionDispatched("failover")
	collector.ActionDispatched("gate")
	collector.ActionDispatched("gate")
	collector.ActionDispatched("degrade")
	collector.ActionDispatched("circuit") // not separately counted

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := collector.Snapshot(now)

	if snap.Evaluated != 3 {
		t.Errorf("expected 3 evaluations, got %d", snap.Evaluated)
	}
	if snap.Triggers != 2 {
		t.Errorf("expected 2 triggers, got %d", snap.Triggers)
	}
	if snap.Recoveries != 1 {
		t.Errorf("expected 1 recovery, got %d", snap.Recoveries)
	}
	if snap.EarlyWarn != 1 {
		t.Errorf("expected 1 early warning, got %d", snap.EarlyWarn)
	}
	if snap.Failovers != 1 || snap.Gates != 2 || snap.Degrades != 1 {
		t.Errorf("unexpected action counts: %+v", snap)
	}
	if !snap.Timestamp.Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, snap.Timestamp)
	}
}

func TestCollector_P95(t *testing.T) {
	collector := NewCollector()

	// 100 evaluations at 1..100ms: the p95 lands at 95ms
	for i := 1; i <= 100; i++ {
		collector.Evaluated(time.Duration(i) * time.Millisecond)
	}

	snap := collector.Snapshot(time.Now())
	if snap.P95EvalMs < 94 || snap.P95EvalMs > 96 {
		t.Errorf("expected p95 ~95ms, got %v", snap.P95EvalMs)
	}
}

func TestCollector_EmptyP95(t *testing.T) {
	if snap := NewCollector().Snapshot(time.Now()); snap.P95EvalMs != 0 {
		t.Errorf("expected zero p95 with no samples, got %v", snap.P95EvalMs)
	}
}

func TestCollector_ReservoirBounded(t *testing.T) {
	collector := NewCollector()

	// Old slow samples are shed once the reservoir rolls over
	for i := 0; i < reservoirCap; i++ {
		collector.Evaluated(time.Second)
	}
	for i := 0; i < reservoirCap; i++ {
		collector.Evaluated(time.Millisecond)
	}

	snap := collector.Snapshot(time.Now())
	if snap.P95EvalMs > 2 {
		t.Errorf("expected old latencies shed from reservoir, p95 %v", snap.P95EvalMs)
	}
}

func TestEmitter_FinalSnapshot(t *testing.T) {
	collector := NewCollector()
	collector.Triggered()
	publisher := memory.NewPublisher()
	emitter := NewEmitter(collector, publisher, time.Hour)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		emitter.Run(done)
		close(finished)
	}()

	close(done)
	<-finished

	msgs := publisher.BySubject(events.SubjectMetrics)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 final metrics event, got %d", len(msgs))
	}
	if evt := msgs[0].Payload.(events.Metrics); evt.Triggers != 1 {
		t.Errorf("expected 1 trigger in final snapshot, got %d", evt.Triggers)
	}
}
