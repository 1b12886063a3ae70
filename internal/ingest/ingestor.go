package ingest

import (
	"fmt"
	"log"

	"github.com/samijaber1/aegis-guard/internal/window"
)

// AckHandler receives collaborator acknowledgements routed past the aggregates
type AckHandler interface {
	FailoverAcknowledged(done FailoverDone)
}

// Ingestor normalizes heterogeneous inbound signals into uniform samples and
// forwards them to the window registry. Malformed input is dropped and logged,
// never fatal; unknown service ids are dropped with a warning.
type Ingestor struct {
	registry *window.Registry
	acks     AckHandler
}

// NewIngestor creates an ingestor over the given registry. acks may be nil
// when no acknowledgement consumer is wired.
func NewIngestor(registry *window.Registry, acks AckHandler) *Ingestor {
	return &Ingestor{registry: registry, acks: acks}
}

// heartbeatFoldCap bounds how many failure samples one missed-heartbeat or
// error event may fold, so a runaway counter cannot swamp an aggregate.
const heartbeatFoldCap = 1000

// Probe ingests one probe result
func (in *Ingestor) Probe(ev ProbeResult) error {
	if err := requireFields(ev.ServiceID, !ev.Timestamp.IsZero()); err != nil {
		return fmt.Errorf("probe.result: %w", err)
	}
	in.observe(window.Sample{
		ServiceID: ev.ServiceID,
		Timestamp: ev.Timestamp,
		Success:   ev.OK,
		LatencyMs: ev.LatencyMs,
	})
	return nil
}

// Feed ingests one streaming-feed tick. A tick that arrived is a success;
// its lag feeds the freshness penalty.
func (in *Ingestor) Feed(ev FeedTick) error {
	if err := requireFields(ev.ServiceID, !ev.Timestamp.IsZero()); err != nil {
		return fmt.Errorf("feed.tick: %w", err)
	}
	lag := ev.LagMs
	if ev.GapMs > lag {
		lag = ev.GapMs
	}
	in.observe(window.Sample{
		ServiceID: ev.ServiceID,
		Timestamp: ev.Timestamp,
		Success:   true,
		LagMs:     lag,
	})
	return nil
}

// Heartbeat ingests a missed-heartbeat report, folding one failure sample per
// missed beat.
func (in *Ingestor) Heartbeat(ev HeartbeatMissed) error {
	if err := requireFields(ev.ServiceID, !ev.Timestamp.IsZero()); err != nil {
		return fmt.Errorf("heartbeat.missed: %w", err)
	}
	count := ev.MissedCount
	if count < 1 {
		count = 1
	}
	if count > heartbeatFoldCap {
		count = heartbeatFoldCap
	}
	for i := 0; i < count; i++ {
		in.observe(window.Sample{
			ServiceID: ev.ServiceID,
			Timestamp: ev.Timestamp,
			Success:   false,
			ErrorKind: "heartbeat_missed",
		})
	}
	return nil
}

// Error ingests a batched error event, folding one failure sample per error
func (in *Ingestor) Error(ev ErrorEvent) error {
	if err := requireFields(ev.ServiceID, !ev.Timestamp.IsZero()); err != nil {
		return fmt.Errorf("error.event: %w", err)
	}
	if ev.Kind == "" {
		return fmt.Errorf("error.event: missing kind")
	}
	count := ev.Count
	if count < 1 {
		count = 1
	}
	if count > heartbeatFoldCap {
		count = heartbeatFoldCap
	}
	for i := 0; i < count; i++ {
		in.observe(window.Sample{
			ServiceID: ev.ServiceID,
			Timestamp: ev.Timestamp,
			Success:   false,
			ErrorKind: ev.Kind,
		})
	}
	return nil
}

// Circuit ingests a circuit-breaker state change. An open circuit is a
// failure sample; half-open and closed count as successes.
func (in *Ingestor) Circuit(ev CircuitState) error {
	if err := requireFields(ev.ServiceID, !ev.Timestamp.IsZero()); err != nil {
		return fmt.Errorf("circuit.state: %w", err)
	}
	switch ev.State {
	case "open":
		in.observe(window.Sample{
			ServiceID: ev.ServiceID,
			Timestamp: ev.Timestamp,
			Success:   false,
			ErrorKind: "circuit_open",
		})
	case "half_open", "closed":
		in.observe(window.Sample{
			ServiceID: ev.ServiceID,
			Timestamp: ev.Timestamp,
			Success:   true,
		})
	default:
		return fmt.Errorf("circuit.state: unknown state %q", ev.State)
	}
	return nil
}

// FailoverDone routes a failover acknowledgement to the guard
func (in *Ingestor) FailoverDone(ev FailoverDone) error {
	if err := requireFields(ev.ServiceID, !ev.Timestamp.IsZero()); err != nil {
		return fmt.Errorf("failover.done: %w", err)
	}
	if in.acks != nil {
		in.acks.FailoverAcknowledged(ev)
	}
	return nil
}

// observe forwards one sample, warning once per drop on unknown ids
func (in *Ingestor) observe(s window.Sample) {
	if !in.registry.Observe(s) {
		log.Printf("Warning: dropping sample for unknown service %q", s.ServiceID)
	}
}

func requireFields(serviceID string, hasTimestamp bool) error {
	if serviceID == "" {
		return fmt.Errorf("missing serviceId")
	}
	if !hasTimestamp {
		return fmt.Errorf("missing timestamp")
	}
	return nil
}
