package metrics

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/samijaber1/aegis-guard/internal/events"
)

// Collector accumulates guard counters and evaluation latencies and emits a
// periodic slo.guard.metrics event. Counters are lifetime totals, not deltas.
type Collector struct {
	mu         sync.Mutex
	evaluated  int64
	triggers   int64
	recoveries int64
	earlyWarn  int64
	failovers  int64
	gates      int64
	degrades   int64

	// bounded reservoir of recent evaluation latencies for the p95
	latencies []float64
}

// reservoirCap bounds latency memory; old samples are shed FIFO
const reservoirCap = 512

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Evaluated records one completed per-service evaluation and its latency
func (c *Collector) Evaluated(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluated++
	ms := float64(d.Microseconds()) / 1000
	c.latencies = append(c.latencies, ms)
	if len(c.latencies) > reservoirCap {
		c.latencies = c.latencies[len(c.latencies)-reservoirCap:]
	}
}

// Triggered records one hard trigger
func (c *Collector) Triggered() {
	c.mu.Lock()
	c.triggers++
	c.mu.Unlock()
}

// Recovered records one completed recovery
func (c *Collector) Recovered() {
	c.mu.Lock()
	c.recoveries++
	c.mu.Unlock()
}

// EarlyWarned records one early-warning event
func (c *Collector) EarlyWarned() {
	c.mu.Lock()
	c.earlyWarn++
	c.mu.Unlock()
}

// ActionDispatched records one outbound remediation request by kind
func (c *Collector) ActionDispatched(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case "failover":
		c.failovers++
	case "gate":
		c.gates++
	case "degrade":
		c.degrades++
	}
}

// Snapshot returns the current metrics event payload
func (c *Collector) Snapshot(now time.Time) events.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return events.Metrics{
		Evaluated:  c.evaluated,
		Triggers:   c.triggers,
		Recoveries: c.recoveries,
		EarlyWarn:  c.earlyWarn,
		P95EvalMs:  p95(c.latencies),
		Failovers:  c.failovers,
		Gates:      c.gates,
		Degrades:   c.degrades,
		Timestamp:  now,
	}
}

// p95 computes the 95th percentile over a copy of the reservoir
func p95(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted))*0.95) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Emitter publishes the collector snapshot on a fixed interval until the
// context is done, then emits one final snapshot.
type Emitter struct {
	collector *Collector
	publisher events.Publisher
	interval  time.Duration
}

// NewEmitter creates a periodic metrics emitter
func NewEmitter(collector *Collector, publisher events.Publisher, interval time.Duration) *Emitter {
	return &Emitter{collector: collector, publisher: publisher, interval: interval}
}

// Run blocks until done is closed; the caller owns the goroutine
func (e *Emitter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			e.emit()
			return
		case <-ticker.C:
			e.emit()
		}
	}
}

func (e *Emitter) emit() {
	snap := e.collector.Snapshot(time.Now())
	if err := e.publisher.Publish(events.SubjectMetrics, snap); err != nil {
		log.Printf("Warning: failed to publish metrics: %v", err)
	}
}
