package scheduler

import (
	"sync"
	"time"

	"github.com/samijaber1/aegis-guard/internal/eval"
	"github.com/samijaber1/aegis-guard/internal/guard"
)

// EvaluationState is the cached outcome of one service's latest tick
type EvaluationState struct {
	Result    *eval.Result
	Runtime   guard.RuntimeSnapshot
	UpdatedAt time.Time
	TTL       time.Duration
}

// IsStale returns true if the cached state is older than its TTL
func (s *EvaluationState) IsStale(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > s.TTL
}

// StateCache is a thread-safe cache of per-service evaluation states
type StateCache struct {
	mu     sync.RWMutex
	states map[string]*EvaluationState
}

// NewStateCache creates a new state cache
func NewStateCache() *StateCache {
	return &StateCache{
		states: make(map[string]*EvaluationState),
	}
}

// Get retrieves cached state for a service
func (c *StateCache) Get(serviceID string) (*EvaluationState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, exists := c.states[serviceID]
	return state, exists
}

// Set stores evaluation state for a service
func (c *StateCache) Set(serviceID string, state *EvaluationState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states[serviceID] = state
}

// GetAll returns a copy of all cached states
func (c *StateCache) GetAll() map[string]*EvaluationState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]*EvaluationState, len(c.states))
	for k, v := range c.states {
		snapshot[k] = v
	}

	return snapshot
}

// Delete removes a service's cached state
func (c *StateCache) Delete(serviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.states, serviceID)
}

// Clear removes all cached states
func (c *StateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states = make(map[string]*EvaluationState)
}

// Size returns the number of cached states
func (c *StateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.states)
}
