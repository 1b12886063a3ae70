package window

import (
	"fmt"
	"sync"
	"time"

	"github.com/samijaber1/aegis-guard/internal/service"
)

// Registry owns every (service, window) aggregate. Aggregates are created at
// startup for all configured pairs, live for the process lifetime and are
// only ever decayed, never deleted. All access goes through the registry so
// the single-writer discipline holds.
type Registry struct {
	// immutable after construction; the aggregates themselves lock internally
	services map[string]map[string]*Aggregate

	decayMu   sync.Mutex
	lastDecay time.Time
}

// NewRegistry builds aggregates for every configured service and window
func NewRegistry(defs []service.DefinitionWithFile) (*Registry, error) {
	r := &Registry{
		services: make(map[string]map[string]*Aggregate, len(defs)),
	}

	for _, defWithFile := range defs {
		def := defWithFile.Definition
		id := def.Metadata.ID
		if _, exists := r.services[id]; exists {
			return nil, fmt.Errorf("duplicate service id %q", id)
		}

		retention := def.Spec.DecayRetentionOrDefault()
		var freshTarget float64
		if def.Spec.SLO.FreshnessP95Ms != nil {
			freshTarget = float64(*def.Spec.SLO.FreshnessP95Ms)
		}

		aggs := make(map[string]*Aggregate, len(def.Spec.Windows))
		for _, w := range def.Spec.Windows {
			dur, err := service.ParseDuration(w.Window)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", id, err)
			}
			aggs[w.Window] = NewAggregate(w.Window, dur, retention, freshTarget)
		}
		r.services[id] = aggs
	}

	return r, nil
}

// Known reports whether a service id is configured
func (r *Registry) Known(serviceID string) bool {
	_, ok := r.services[serviceID]
	return ok
}

// Observe folds a sample into every window aggregate of its service.
// Returns false when the service id is not configured.
func (r *Registry) Observe(s Sample) bool {
	aggs, ok := r.services[s.ServiceID]
	if !ok {
		return false
	}
	for _, agg := range aggs {
		agg.Observe(s)
	}
	return true
}

// DecayTick ages every aggregate for the time elapsed since the previous
// pass. The scheduler calls it once per evaluation tick; each aggregate
// applies retention scaled to its own window length.
func (r *Registry) DecayTick(now time.Time) {
	r.decayMu.Lock()
	last := r.lastDecay
	r.lastDecay = now
	r.decayMu.Unlock()

	if last.IsZero() || !now.After(last) {
		return
	}
	elapsed := now.Sub(last)

	for _, aggs := range r.services {
		for _, agg := range aggs {
			agg.DecayElapsed(elapsed)
		}
	}
}

// Snapshots returns read-only copies of all window aggregates for a service
func (r *Registry) Snapshots(serviceID string) map[string]Snapshot {
	aggs, ok := r.services[serviceID]
	if !ok {
		return nil
	}
	snaps := make(map[string]Snapshot, len(aggs))
	for w, agg := range aggs {
		snaps[w] = agg.Snapshot()
	}
	return snaps
}

// ServiceIDs returns every configured service id
func (r *Registry) ServiceIDs() []string {
	ids := make([]string, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	return ids
}
