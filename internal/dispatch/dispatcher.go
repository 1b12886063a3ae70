package dispatch

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samijaber1/aegis-guard/internal/events"
	"github.com/samijaber1/aegis-guard/internal/metrics"
	"github.com/samijaber1/aegis-guard/internal/service"
)

// requestedBy identifies the guard on every outbound request
const requestedBy = "aegis-guard"

// Dispatcher translates approved action-plan entries into typed outbound
// requests and the matching reverts. Dispatch is fire-and-forget: correctness
// of the remediation belongs to the collaborator.
type Dispatcher struct {
	publisher events.Publisher
	collector *metrics.Collector
	flap      *FlapLimiter
}

// NewDispatcher creates a dispatcher over the given publisher
func NewDispatcher(publisher events.Publisher, collector *metrics.Collector, flap *FlapLimiter) *Dispatcher {
	return &Dispatcher{publisher: publisher, collector: collector, flap: flap}
}

// Dispatch emits one remediation request for a plan action. It returns the
// emitted request for active-action bookkeeping, or nil when the flapping
// guard suppressed a failover.
func (d *Dispatcher) Dispatch(serviceID string, action service.PlanAction, now time.Time) (*events.ActionRequest, error) {
	if action.Type == service.ActionFailover && !d.flap.AllowFailover(serviceID, now) {
		log.Printf("Suppressing failover for %s: flapping guard", serviceID)
		return nil, nil
	}

	req := events.ActionRequest{
		RequestID:   uuid.NewString(),
		ServiceID:   serviceID,
		Kind:        action.Type,
		Params:      actionParams(action),
		Reason:      events.ReasonBurnRate,
		RequestedBy: requestedBy,
		Timestamp:   now,
	}

	subject, err := requestSubject(action.Type)
	if err != nil {
		return nil, err
	}
	if err := d.publisher.Publish(subject, req); err != nil {
		return nil, fmt.Errorf("publish %s: %w", subject, err)
	}

	if action.Type == service.ActionFailover {
		d.flap.RecordFailover(serviceID, now)
	}
	d.collector.ActionDispatched(action.Type)
	return &req, nil
}

// Revert emits the structurally matching revert request for a previously
// dispatched action, carrying its original parameters.
func (d *Dispatcher) Revert(serviceID string, original events.ActionRequest, now time.Time) error {
	req := events.RevertRequest{
		RequestID:      uuid.NewString(),
		ServiceID:      serviceID,
		Kind:           original.Kind,
		OriginalAction: original,
		Reason:         events.ReasonRecovery,
		RequestedBy:    requestedBy,
		Timestamp:      now,
	}

	subject := events.RevertSubject(original.Kind)
	if err := d.publisher.Publish(subject, req); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Failback requests the return of traffic after a recovered failover.
// originalPrimary is the target reported by the failover acknowledgement;
// from/to are swapped relative to the original request.
func (d *Dispatcher) Failback(serviceID string, params service.FailoverParams, originalPrimary string, now time.Time) error {
	req := events.FailbackRequest{
		RequestID:   uuid.NewString(),
		ServiceID:   serviceID,
		To:          originalPrimary,
		From:        params.To,
		Reason:      events.ReasonRecovery,
		RequestedBy: requestedBy,
		Timestamp:   now,
	}

	if err := d.publisher.Publish(events.SubjectFailbackRequest, req); err != nil {
		return fmt.Errorf("publish %s: %w", events.SubjectFailbackRequest, err)
	}
	return nil
}

// requestSubject maps an action kind to its outbound subject
func requestSubject(kind string) (string, error) {
	switch kind {
	case service.ActionFailover:
		return events.SubjectFailoverRequest, nil
	case service.ActionDegrade:
		return events.SubjectDegradeRequest, nil
	case service.ActionGate:
		return events.SubjectGateRequest, nil
	case service.ActionCircuit:
		return events.SubjectCircuitRequest, nil
	default:
		return "", fmt.Errorf("unknown action kind %q", kind)
	}
}

// actionParams flattens the typed plan parameters onto the wire
func actionParams(action service.PlanAction) map[string]any {
	params := make(map[string]any)
	switch action.Type {
	case service.ActionFailover:
		if action.Failover != nil {
			params["to"] = action.Failover.To
			params["autoFailback"] = action.Failover.AutoFailback
		}
	case service.ActionDegrade:
		if action.Degrade != nil {
			params["features"] = action.Degrade.Features
		}
	case service.ActionGate:
		if action.Gate != nil {
			params["maxRequestsPerSec"] = action.Gate.MaxRequestsPerSec
		}
	case service.ActionCircuit:
		if action.Circuit != nil {
			params["policy"] = action.Circuit.Policy
			if action.Circuit.CooldownSec > 0 {
				params["cooldownSec"] = action.Circuit.CooldownSec
			}
		}
	}
	return params
}
