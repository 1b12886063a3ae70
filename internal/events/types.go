package events

import "time"

// Outbound event subjects
const (
	SubjectTriggered = "slo.guard.triggered"
	SubjectEarlyWarn = "slo.guard.earlywarn"
	SubjectRecovered = "slo.guard.recovered"
	SubjectAlert     = "slo.guard.alert"
	SubjectMetrics   = "slo.guard.metrics"

	SubjectFailoverRequest = "failover.request"
	SubjectDegradeRequest  = "degrade.request"
	SubjectGateRequest     = "gate.request"
	SubjectCircuitRequest  = "circuit.request"
	SubjectFailbackRequest = "failback.request"
)

// RevertSubject returns the revert subject for an action kind, e.g. "gate.revert"
func RevertSubject(kind string) string {
	return kind + ".revert"
}

// Request reasons
const (
	ReasonBurnRate = "slo_burn_rate"
	ReasonRecovery = "slo_recovery"
)

// Alert levels
const (
	AlertWarning = "warning"
	AlertError   = "error"
	AlertFatal   = "fatal"
)

// WindowBurn is one window's evaluation outcome carried on guard events
type WindowBurn struct {
	Availability float64 `json:"avail"`
	BurnRate     float64 `json:"burn"`
}

// Triggered is emitted once per detected burn condition
type Triggered struct {
	ServiceID  string                `json:"serviceId"`
	SLO        float64               `json:"slo"`
	Windows    map[string]WindowBurn `json:"windows"`
	Trigger    []string              `json:"trigger"` // windows that crossed their hard threshold
	ActionPlan []string              `json:"actionPlan"`
	Severity   string                `json:"severity"`
	Hash       string                `json:"hash"` // guard key
	Timestamp  time.Time             `json:"timestamp"`
}

// EarlyWarn is emitted when only the soft threshold is crossed
type EarlyWarn struct {
	ServiceID string                `json:"serviceId"`
	SLO       float64               `json:"slo"`
	Windows   map[string]WindowBurn `json:"windows"`
	Hint      string                `json:"hint"`
	Timestamp time.Time             `json:"timestamp"`
}

// Recovered is emitted exactly once per completed recovery
type Recovered struct {
	ServiceID       string    `json:"serviceId"`
	SLO             float64   `json:"slo"`
	Since           time.Time `json:"since"`
	DurationMin     float64   `json:"durationMin"`
	ActionsReverted []string  `json:"actionsReverted"`
	Failback        bool      `json:"failback,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Alert is the guard's operator-facing failure surface
type Alert struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics is the periodic counters snapshot
type Metrics struct {
	Evaluated  int64     `json:"evaluated"`
	Triggers   int64     `json:"triggers"`
	Recoveries int64     `json:"recoveries"`
	EarlyWarn  int64     `json:"earlyWarn"`
	P95EvalMs  float64   `json:"p95EvalMs"`
	Failovers  int64     `json:"failovers"`
	Gates      int64     `json:"gates"`
	Degrades   int64     `json:"degrades"`
	Timestamp  time.Time `json:"timestamp"`
}

// ActionRequest is a remediation request for one action kind
type ActionRequest struct {
	RequestID   string         `json:"requestId"`
	ServiceID   string         `json:"serviceId"`
	Kind        string         `json:"kind"`
	Params      map[string]any `json:"params"`
	Reason      string         `json:"reason"`
	RequestedBy string         `json:"requestedBy"`
	Timestamp   time.Time      `json:"timestamp"`
}

// RevertRequest undoes a previously requested action
type RevertRequest struct {
	RequestID      string        `json:"requestId"`
	ServiceID      string        `json:"serviceId"`
	Kind           string        `json:"kind"`
	OriginalAction ActionRequest `json:"originalAction"`
	Reason         string        `json:"reason"`
	RequestedBy    string        `json:"requestedBy"`
	Timestamp      time.Time     `json:"timestamp"`
}

// FailbackRequest returns traffic to the original target after recovery
type FailbackRequest struct {
	RequestID   string    `json:"requestId"`
	ServiceID   string    `json:"serviceId"`
	To          string    `json:"to"`
	From        string    `json:"from"`
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requestedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher is the outbound transport contract. Publish must not block the
// evaluation tick; transports queue or drop on backpressure.
type Publisher interface {
	Publish(subject string, payload any) error
}
