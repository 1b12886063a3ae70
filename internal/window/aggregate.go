package window

import (
	"math"
	"sync"
	"time"
)

// Sample is the uniform telemetry sample folded into aggregates.
// Every inbound signal kind normalizes to this shape.
type Sample struct {
	ServiceID string
	Timestamp time.Time
	Success   bool
	LatencyMs float64 // 0 when the signal carries no latency
	LagMs     float64 // freshness lag, 0 when not applicable
	ErrorKind string  // "5xx", "timeout", "circuit_open", ...
}

// Snapshot is a read-only copy of an aggregate's counters
type Snapshot struct {
	Window        string
	Total         float64
	OK            float64
	Errors        float64
	LatencySum    float64
	LatencyMax    float64
	LagSum        float64
	LagMax        float64
	FreshnessMiss float64
	FirstSample   time.Time
	LastSample    time.Time
}

// AvgLatencyMs returns the mean observed latency
func (s Snapshot) AvgLatencyMs() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.LatencySum / s.Total
}

// AvgLagMs returns the mean observed freshness lag
func (s Snapshot) AvgLagMs() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.LagSum / s.Total
}

// Aggregate approximates "all samples in the trailing window" with bounded
// memory. Counters age two ways: the periodic decay pass scales them so that
// mass older than one window length shrinks to the retention factor, and a
// fixed ceiling scales them on volume so memory stays bounded under any
// traffic. Counters are float64 because decay produces fractional counts.
type Aggregate struct {
	mu sync.Mutex

	window        string
	windowDur     time.Duration
	retention     float64
	decayCeiling  float64
	freshTargetMs float64 // 0 disables freshness-miss counting

	total         float64
	ok            float64
	errors        float64
	latencySum    float64
	latencyMax    float64
	lagSum        float64
	lagMax        float64
	freshnessMiss float64
	firstSample   time.Time
	lastSample    time.Time
}

// defaultDecayCeiling bounds the sample count an aggregate accumulates
// before a decay pass runs.
const defaultDecayCeiling = 10000

// NewAggregate creates an aggregate for one (service, window) pair
func NewAggregate(window string, windowDur time.Duration, retention float64, freshTargetMs float64) *Aggregate {
	if retention <= 0 || retention >= 1 {
		retention = 0.1
	}
	return &Aggregate{
		window:        window,
		windowDur:     windowDur,
		retention:     retention,
		decayCeiling:  defaultDecayCeiling,
		freshTargetMs: freshTargetMs,
	}
}

// Observe folds one sample into the aggregate
func (a *Aggregate) Observe(s Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if s.Success {
		a.ok++
	} else {
		a.errors++
	}

	if s.LatencyMs > 0 {
		a.latencySum += s.LatencyMs
		if s.LatencyMs > a.latencyMax {
			a.latencyMax = s.LatencyMs
		}
	}

	if s.LagMs > 0 {
		a.lagSum += s.LagMs
		if s.LagMs > a.lagMax {
			a.lagMax = s.LagMs
		}
		if a.freshTargetMs > 0 && s.LagMs > a.freshTargetMs {
			a.freshnessMiss++
		}
	}

	if a.firstSample.IsZero() || s.Timestamp.Before(a.firstSample) {
		a.firstSample = s.Timestamp
	}
	if s.Timestamp.After(a.lastSample) {
		a.lastSample = s.Timestamp
	}

	if a.total > a.decayCeiling {
		a.decayLocked()
	}
}

// Decay scales counters down by one full retention step, the same reduction
// Observe applies when the ceiling is hit.
func (a *Aggregate) Decay() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.decayLocked()
}

// DecayElapsed ages the counters for elapsed wall-clock time. The scale is
// chosen so that mass one window-length old has shrunk to the retention
// factor: a 5m aggregate sheds stale samples far faster than a 24h one, which
// is what makes the per-window snapshots of one service diverge.
func (a *Aggregate) DecayElapsed(elapsed time.Duration) {
	if elapsed <= 0 || a.windowDur <= 0 {
		return
	}
	factor := math.Pow(a.retention, elapsed.Seconds()/a.windowDur.Seconds())

	a.mu.Lock()
	defer a.mu.Unlock()
	a.scaleLocked(factor)
}

func (a *Aggregate) decayLocked() {
	a.scaleLocked(a.retention)
}

func (a *Aggregate) scaleLocked(factor float64) {
	a.total *= factor
	a.ok *= factor
	a.errors *= factor
	a.latencySum *= factor
	a.lagSum *= factor
	a.freshnessMiss *= factor
	// Running maxima are kept: they approximate the window p95 and re-seed
	// from fresh samples after a burst subsides.
}

// Snapshot returns a read-only copy of the current counters
func (a *Aggregate) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Snapshot{
		Window:        a.window,
		Total:         a.total,
		OK:            a.ok,
		Errors:        a.errors,
		LatencySum:    a.latencySum,
		LatencyMax:    a.latencyMax,
		LagSum:        a.lagSum,
		LagMax:        a.lagMax,
		FreshnessMiss: a.freshnessMiss,
		FirstSample:   a.firstSample,
		LastSample:    a.lastSample,
	}
}
