package dispatch

import (
	"sync"
	"time"

	"github.com/samijaber1/aegis-guard/internal/service"
)

// FlapLimiter guards against trigger/recover oscillation by rate-capping
// failover requests: a global failovers-per-hour ceiling plus a per-service
// minimum quiet period between failovers.
type FlapLimiter struct {
	mu            sync.Mutex
	globalPerHour int
	caps          map[string]service.Flapping
	recent        []time.Time          // global failover timestamps, pruned to 1h
	lastByService map[string]time.Time // last failover per service
}

// defaultGlobalFailoversPerHour applies when the server config leaves the
// global cap unset.
const defaultGlobalFailoversPerHour = 4

// NewFlapLimiter builds a limiter from the loaded definitions
func NewFlapLimiter(defs []service.DefinitionWithFile, globalPerHour int) *FlapLimiter {
	if globalPerHour <= 0 {
		globalPerHour = defaultGlobalFailoversPerHour
	}
	caps := make(map[string]service.Flapping, len(defs))
	for _, d := range defs {
		caps[d.Definition.Metadata.ID] = d.Definition.Spec.Flapping
	}
	return &FlapLimiter{
		globalPerHour: globalPerHour,
		caps:          caps,
		lastByService: make(map[string]time.Time),
	}
}

// AllowFailover reports whether a new failover for the service may be issued
func (f *FlapLimiter) AllowFailover(serviceID string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneLocked(now)

	limit := f.globalPerHour
	if caps, ok := f.caps[serviceID]; ok && caps.MaxFailoversPerHour > 0 {
		// Per-service cap tightens, never loosens, the global one
		if caps.MaxFailoversPerHour < limit {
			limit = caps.MaxFailoversPerHour
		}
	}
	if len(f.recent) >= limit {
		return false
	}

	if last, ok := f.lastByService[serviceID]; ok {
		minStable := f.caps[serviceID].MinStableMinBetweenFailovers
		if minStable > 0 && now.Sub(last) < time.Duration(minStable)*time.Minute {
			return false
		}
	}

	return true
}

// RecordFailover notes an issued failover for subsequent cap checks
func (f *FlapLimiter) RecordFailover(serviceID string, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = append(f.recent, now)
	f.lastByService[serviceID] = now
}

// pruneLocked drops global failover records older than one hour
func (f *FlapLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := f.recent[:0]
	for _, t := range f.recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	f.recent = kept
}
