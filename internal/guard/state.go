package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/samijaber1/aegis-guard/internal/events"
)

// State is one lifecycle phase of a guarded service
type State string

const (
	StateIdle    State = "IDLE"
	StateTrigger State = "TRIGGER"
	StateEnforce State = "ENFORCE"
	StateMonitor State = "MONITOR"
	StateRecover State = "RECOVER"
)

// ActiveAction is one outstanding remediation. It prevents duplicate dispatch
// and carries the original request so the revert is derivable without
// re-reading configuration.
type ActiveAction struct {
	Kind         string
	Request      events.ActionRequest
	AppliedAt    time.Time
	GuardKey     string
	Acknowledged bool
	AckedAt      time.Time
	AckedFrom    string // original primary, reported by failover.done
}

// GuardKey derives the deterministic idempotency token for a detection:
// identical (service, kind, window-aligned time) inputs always produce the
// same key, so duplicate triggers inside one aligned window collapse.
func GuardKey(serviceID, kind string, alignedAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", serviceID, kind, alignedAt.Unix())))
	return hex.EncodeToString(sum[:12])
}

// AlignTime truncates t down to the window boundary used for guard keys
func AlignTime(t time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return t.Truncate(window)
}

// Tracker owns the stability clock for one service in MONITOR. It resets to
// "not stable" whenever a burn condition reappears and accrues continuously
// otherwise.
type Tracker struct {
	monitorSince time.Time
	stableSince  time.Time
}

// EnterMonitor starts the recovery-timeout clock
func (t *Tracker) EnterMonitor(now time.Time) {
	t.monitorSince = now
	t.stableSince = time.Time{}
}

// ObserveBurn resets stability: the service is not stabilizing
func (t *Tracker) ObserveBurn() {
	t.stableSince = time.Time{}
}

// ObserveStable starts or continues the stability timer
func (t *Tracker) ObserveStable(now time.Time) {
	if t.stableSince.IsZero() {
		t.stableSince = now
	}
}

// StableFor returns how long the service has been continuously stable
func (t *Tracker) StableFor(now time.Time) time.Duration {
	if t.stableSince.IsZero() {
		return 0
	}
	return now.Sub(t.stableSince)
}

// StableSince returns the start of the current stable run, zero when burning
func (t *Tracker) StableSince() time.Time {
	return t.stableSince
}

// MonitorSince returns when MONITOR was entered
func (t *Tracker) MonitorSince() time.Time {
	return t.monitorSince
}

// ReadyToRecover reports whether the stable run has met the threshold
func (t *Tracker) ReadyToRecover(now time.Time, stableAfter time.Duration) bool {
	if stableAfter <= 0 {
		return false
	}
	return t.StableFor(now) >= stableAfter
}

// TimedOut reports whether MONITOR has lasted past the recovery timeout
func (t *Tracker) TimedOut(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 || t.monitorSince.IsZero() {
		return false
	}
	return now.Sub(t.monitorSince) > timeout
}

// Reset clears both clocks
func (t *Tracker) Reset() {
	t.monitorSince = time.Time{}
	t.stableSince = time.Time{}
}

// ActiveActionInfo is the read-only view of an active action
type ActiveActionInfo struct {
	Kind         string    `json:"kind"`
	AppliedAt    time.Time `json:"appliedAt"`
	GuardKey     string    `json:"guardKey"`
	Acknowledged bool      `json:"acknowledged"`
}

// RuntimeSnapshot is the read-only view of one service's runtime state
type RuntimeSnapshot struct {
	ServiceID     string             `json:"serviceId"`
	State         State              `json:"state"`
	LastEval      time.Time          `json:"lastEval"`
	ActiveActions []ActiveActionInfo `json:"activeActions,omitempty"`
	StableSince   time.Time          `json:"stableSince,omitempty"`
	StableMinutes float64            `json:"stableMinutes"`
	Triggers      int64              `json:"triggers"`
	Recoveries    int64              `json:"recoveries"`
	EarlyWarnings int64              `json:"earlyWarnings"`
}
