package ingest

import "time"

// Inbound subjects, one schema per signal kind
const (
	SubjectProbeResult     = "probe.result"
	SubjectFeedTick        = "feed.tick"
	SubjectHeartbeatMissed = "heartbeat.missed"
	SubjectErrorEvent      = "error.event"
	SubjectCircuitState    = "circuit.state"
	SubjectFailoverDone    = "failover.done"
)

// ProbeResult is one synthetic probe outcome
type ProbeResult struct {
	ServiceID string    `json:"serviceId"`
	Endpoint  string    `json:"endpoint"`
	OK        bool      `json:"ok"`
	Status    int       `json:"status"`
	LatencyMs float64   `json:"latencyMs"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedTick reports freshness of one streaming-feed symbol
type FeedTick struct {
	ServiceID string    `json:"serviceId"`
	Symbol    string    `json:"symbol"`
	LagMs     float64   `json:"lagMs"`
	GapMs     float64   `json:"gapMs"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatMissed reports missed heartbeats from a monitor
type HeartbeatMissed struct {
	ServiceID       string    `json:"serviceId"`
	MissedCount     int       `json:"missedCount"`
	ExpectedEveryMs int       `json:"expectedEveryMs"`
	Timestamp       time.Time `json:"timestamp"`
}

// ErrorEvent carries a batch of observed errors of one kind
type ErrorEvent struct {
	ServiceID string    `json:"serviceId"`
	Kind      string    `json:"kind"` // 5xx | timeout | circuit_open
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// CircuitState reports a circuit-breaker state change
type CircuitState struct {
	ServiceID string    `json:"serviceId"`
	State     string    `json:"state"` // open | half_open | closed
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// FailoverDone acknowledges a completed failover. It never feeds the window
// aggregates; it only updates active-action bookkeeping.
type FailoverDone struct {
	ServiceID       string    `json:"serviceId"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	LatencyImpactMs float64   `json:"latencyImpactMs"`
	Timestamp       time.Time `json:"timestamp"`
}
