package guard

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/samijaber1/aegis-guard/internal/dispatch"
	"github.com/samijaber1/aegis-guard/internal/eval"
	"github.com/samijaber1/aegis-guard/internal/events"
	"github.com/samijaber1/aegis-guard/internal/metrics"
	"github.com/samijaber1/aegis-guard/internal/service"
)

// Machine owns the remediation lifecycle for one service:
// IDLE -> TRIGGER -> ENFORCE -> MONITOR -> RECOVER -> IDLE.
// Advance is called once per evaluation tick; transitions for one service are
// strictly ordered under the machine's mutex.
type Machine struct {
	def        *service.Definition
	dispatcher *dispatch.Dispatcher
	publisher  events.Publisher
	collector  *metrics.Collector

	mu       sync.Mutex
	state    State
	lastEval time.Time
	active   map[string]*ActiveAction // by action kind
	keys     map[string]time.Time     // guard key -> expiry
	tracker  Tracker

	triggers      int64
	recoveries    int64
	earlyWarnings int64
}

// NewMachine creates a machine in IDLE for one service
func NewMachine(def *service.Definition, dispatcher *dispatch.Dispatcher, publisher events.Publisher, collector *metrics.Collector) *Machine {
	return &Machine{
		def:        def,
		dispatcher: dispatcher,
		publisher:  publisher,
		collector:  collector,
		state:      StateIdle,
		active:     make(map[string]*ActiveAction),
		keys:       make(map[string]time.Time),
	}
}

// Advance processes one evaluation result. TRIGGER and ENFORCE are walked
// through in the same tick: they exist as explicit transitions for
// observability, not for delay.
func (m *Machine) Advance(result *eval.Result, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastEval = now
	m.expireKeysLocked(now)

	switch m.state {
	case StateIdle:
		if result.ShouldTrigger {
			m.triggerLocked(result, now)
		} else if result.Warn {
			m.warnLocked(result, now)
		}
	case StateTrigger, StateEnforce:
		// Normally unreachable between ticks; finish the walk if a prior
		// tick was interrupted mid-transition.
		m.enforceLocked(now)
	case StateMonitor:
		m.monitorLocked(result, now)
	case StateRecover:
		m.transitionLocked(StateIdle)
	}
}

// triggerLocked handles IDLE -> TRIGGER. Multiple simultaneous window
// triggers produce exactly one transition; duplicates inside the same
// window-aligned timestamp are suppressed by the guard key.
func (m *Machine) triggerLocked(result *eval.Result, now time.Time) {
	aligned := AlignTime(now, m.alignWindow())
	key := GuardKey(m.def.Metadata.ID, "trigger", aligned)
	if _, dup := m.keys[key]; dup {
		return
	}
	m.keys[key] = aligned.Add(m.alignWindow())

	m.triggers++
	m.collector.Triggered()

	plan := make([]string, 0, len(m.def.Spec.ActionPlan))
	for _, a := range m.def.Spec.ActionPlan {
		plan = append(plan, a.Type)
	}

	m.publish(events.SubjectTriggered, events.Triggered{
		ServiceID:  m.def.Metadata.ID,
		SLO:        m.def.Spec.SLO.UptimeTargetPct,
		Windows:    windowBurns(result),
		Trigger:    result.TriggerWindows,
		ActionPlan: plan,
		Severity:   result.Severity,
		Hash:       key,
		Timestamp:  now,
	})

	m.transitionLocked(StateTrigger)
	m.enforceLocked(now)
}

// enforceLocked handles TRIGGER -> ENFORCE -> MONITOR, dispatching every plan
// action not already active. An empty plan still walks the states
// (detection-only mode).
func (m *Machine) enforceLocked(now time.Time) {
	m.transitionLocked(StateEnforce)
	aligned := AlignTime(now, m.alignWindow())

	for _, action := range m.def.Spec.ActionPlan {
		if _, exists := m.active[action.Type]; exists {
			continue
		}
		req, err := m.dispatcher.Dispatch(m.def.Metadata.ID, action, now)
		if err != nil {
			log.Printf("Error dispatching %s for %s: %v", action.Type, m.def.Metadata.ID, err)
			continue
		}
		if req == nil {
			// suppressed by the flapping guard
			continue
		}
		key := GuardKey(m.def.Metadata.ID, action.Type, aligned)
		m.keys[key] = aligned.Add(m.alignWindow())
		m.active[action.Type] = &ActiveAction{
			Kind:      action.Type,
			Request:   *req,
			AppliedAt: now,
			GuardKey:  key,
		}
	}

	m.transitionLocked(StateMonitor)
	m.tracker.EnterMonitor(now)
}

// monitorLocked re-evaluates each tick, accruing stability or resetting it,
// and exits to RECOVER or to a forced IDLE on timeout.
func (m *Machine) monitorLocked(result *eval.Result, now time.Time) {
	if result.ShouldTrigger {
		m.tracker.ObserveBurn()
	} else {
		m.tracker.ObserveStable(now)
	}

	stableAfter := time.Duration(m.def.Spec.Recovery.StableAfterMin) * time.Minute
	timeout := time.Duration(m.def.Spec.Recovery.RecoveryTimeoutMin) * time.Minute

	if m.tracker.ReadyToRecover(now, stableAfter) {
		m.recoverLocked(now)
		return
	}

	if m.tracker.TimedOut(now, timeout) {
		m.publish(events.SubjectAlert, events.Alert{
			Level:     events.AlertFatal,
			Message:   "recovery_timeout:" + m.def.Metadata.ID,
			Timestamp: now,
		})
		m.forceResetLocked()
	}
}

// recoverLocked handles MONITOR -> RECOVER -> IDLE: reverts every revertible
// active action with its original parameters, failbacks a recovered failover
// when enabled, and clears all bookkeeping.
func (m *Machine) recoverLocked(now time.Time) {
	m.transitionLocked(StateRecover)

	stableSince := m.tracker.StableSince()
	monitorSince := m.tracker.MonitorSince()

	var reverted []string
	failback := false

	// Walk the plan order so reverts mirror the enforcement order
	for _, action := range m.def.Spec.ActionPlan {
		act, ok := m.active[action.Type]
		if !ok {
			continue
		}
		if action.Revertible() {
			if err := m.dispatcher.Revert(m.def.Metadata.ID, act.Request, now); err != nil {
				log.Printf("Error reverting %s for %s: %v", action.Type, m.def.Metadata.ID, err)
			} else {
				reverted = append(reverted, action.Type)
			}
		}
		if action.Type == service.ActionFailover && action.Failover != nil && action.Failover.AutoFailback {
			// The failback target is the primary named by failover.done.
			// Without the acknowledgement there is nothing to fail back from.
			if !act.Acknowledged {
				log.Printf("Skipping failback for %s: failover was never acknowledged", m.def.Metadata.ID)
			} else if err := m.dispatcher.Failback(m.def.Metadata.ID, *action.Failover, act.AckedFrom, now); err != nil {
				log.Printf("Error requesting failback for %s: %v", m.def.Metadata.ID, err)
			} else {
				failback = true
			}
		}
	}

	m.active = make(map[string]*ActiveAction)
	m.keys = make(map[string]time.Time)
	m.tracker.Reset()
	m.recoveries++
	m.collector.Recovered()

	m.publish(events.SubjectRecovered, events.Recovered{
		ServiceID:       m.def.Metadata.ID,
		SLO:             m.def.Spec.SLO.UptimeTargetPct,
		Since:           stableSince,
		DurationMin:     now.Sub(monitorSince).Minutes(),
		ActionsReverted: reverted,
		Failback:        failback,
		Timestamp:       now,
	})

	m.transitionLocked(StateIdle)
}

// warnLocked emits at most one early warning per aligned window
func (m *Machine) warnLocked(result *eval.Result, now time.Time) {
	aligned := AlignTime(now, m.alignWindow())
	key := GuardKey(m.def.Metadata.ID, "warn", aligned)
	if _, dup := m.keys[key]; dup {
		return
	}
	m.keys[key] = aligned.Add(m.alignWindow())

	m.earlyWarnings++
	m.collector.EarlyWarned()

	fastest := m.def.Spec.FastestWindow()
	hint := "burn rate approaching threshold"
	if wr, ok := result.Windows[fastest]; ok {
		hint = "burn rate " + formatBurn(wr.BurnRate) + " approaching threshold " + formatBurn(wr.Threshold) + " in " + fastest
	}

	m.publish(events.SubjectEarlyWarn, events.EarlyWarn{
		ServiceID: m.def.Metadata.ID,
		SLO:       m.def.Spec.SLO.UptimeTargetPct,
		Windows:   windowBurns(result),
		Hint:      hint,
		Timestamp: now,
	})
}

// forceResetLocked fail-safes a stuck MONITOR back to IDLE. Active actions
// are dropped without reverts: the operator was alerted and owns cleanup.
func (m *Machine) forceResetLocked() {
	m.active = make(map[string]*ActiveAction)
	m.keys = make(map[string]time.Time)
	m.tracker.Reset()
	m.transitionLocked(StateIdle)
}

// FailoverAcknowledged marks the active failover acknowledged and records the
// primary the traffic left, so a later failback knows where to return it. It
// never advances the state machine by itself.
func (m *Machine) FailoverAcknowledged(from string, ackedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if act, ok := m.active[service.ActionFailover]; ok {
		act.Acknowledged = true
		act.AckedAt = ackedAt
		act.AckedFrom = from
	}
}

// State returns the current lifecycle state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a read-only view of the runtime state
func (m *Machine) Snapshot(now time.Time) RuntimeSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := RuntimeSnapshot{
		ServiceID:     m.def.Metadata.ID,
		State:         m.state,
		LastEval:      m.lastEval,
		StableSince:   m.tracker.StableSince(),
		StableMinutes: m.tracker.StableFor(now).Minutes(),
		Triggers:      m.triggers,
		Recoveries:    m.recoveries,
		EarlyWarnings: m.earlyWarnings,
	}
	for _, act := range m.active {
		snap.ActiveActions = append(snap.ActiveActions, ActiveActionInfo{
			Kind:         act.Kind,
			AppliedAt:    act.AppliedAt,
			GuardKey:     act.GuardKey,
			Acknowledged: act.Acknowledged,
		})
	}
	return snap
}

// transitionLocked logs and applies one state change
func (m *Machine) transitionLocked(next State) {
	if m.state == next {
		return
	}
	log.Printf("Service %s: %s -> %s", m.def.Metadata.ID, m.state, next)
	m.state = next
}

// expireKeysLocked drops guard keys whose aligned window has fully elapsed
func (m *Machine) expireKeysLocked(now time.Time) {
	for key, expiry := range m.keys {
		if now.After(expiry) {
			delete(m.keys, key)
		}
	}
}

// alignWindow returns the guard-key alignment, the fastest active window
func (m *Machine) alignWindow() time.Duration {
	fastest := m.def.Spec.FastestWindow()
	if fastest == "" {
		return 5 * time.Minute
	}
	d, err := service.ParseDuration(fastest)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// publish sends one outbound event, logging failures without propagating
func (m *Machine) publish(subject string, payload any) {
	if err := m.publisher.Publish(subject, payload); err != nil {
		log.Printf("Error publishing %s for %s: %v", subject, m.def.Metadata.ID, err)
	}
}

func formatBurn(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// windowBurns converts an evaluation result into the event wire shape
func windowBurns(result *eval.Result) map[string]events.WindowBurn {
	burns := make(map[string]events.WindowBurn, len(result.Windows))
	for w, wr := range result.Windows {
		burns[w] = events.WindowBurn{
			Availability: wr.Availability,
			BurnRate:     wr.BurnRate,
		}
	}
	return burns
}
