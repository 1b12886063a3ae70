package dispatch

import (
	"testing"
	"time"

	"github.com/samijaber1/aegis-guard/internal/adapter/memory"
	"github.com/samijaber1/aegis-guard/internal/events"
	"github.com/samijaber1/aegis-guard/internal/metrics"
	"github.com/samijaber1/aegis-guard/internal/service"
)

func newTestDispatcher() (*Dispatcher, *memory.Publisher) {
	publisher := memory.NewPublisher()
	dispatcher := NewDispatcher(publisher, metrics.NewCollector(), NewFlapLimiter(nil, 10))
	return dispatcher, publisher
}

func TestDispatcher_Dispatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		action      service.PlanAction
		wantSubject string
		wantParams  map[string]any
	}{
		{
			name: "failover",
			action: service.PlanAction{
				Type:     service.ActionFailover,
				Failover: &service.FailoverParams{To: "backup", AutoFailback: true},
			},
			wantSubject: events.SubjectFailoverRequest,
			wantParams:  map[string]any{"to": "backup", "autoFailback": true},
		},
		{
			name: "gate",
			action: service.PlanAction{
				Type: service.ActionGate,
				Gate: &service.GateParams{MaxRequestsPerSec: 50},
			},
			wantSubject: events.SubjectGateRequest,
			wantParams:  map[string]any{"maxRequestsPerSec": float64(50)},
		},
		{
			name: "circuit",
			action: service.PlanAction{
				Type:    service.ActionCircuit,
				Circuit: &service.CircuitParams{Policy: "shed_noncritical", CooldownSec: 60},
			},
			wantSubject: events.SubjectCircuitRequest,
			wantParams:  map[string]any{"policy": "shed_noncritical", "cooldownSec": 60},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher, publisher := newTestDispatcher()

			req, err := dispatcher.Dispatch("feed_ws", tt.action, now)
			if err != nil {
				t.Fatalf("Dispatch returned error: %v", err)
			}
			if req == nil {
				t.Fatal("expected a request, got nil")
			}
			if req.RequestID == "" {
				t.Error("expected a request id")
			}
			if req.ServiceID != "feed_ws" {
				t.Errorf("expected serviceId feed_ws, got %s", req.ServiceID)
			}
			if req.Kind != tt.action.Type {
				t.Errorf("expected kind %s, got %s", tt.action.Type, req.Kind)
			}
			if req.Reason != events.ReasonBurnRate {
				t.Errorf("expected reason %s, got %s", events.ReasonBurnRate, req.Reason)
			}
			for key, want := range tt.wantParams {
				if got := req.Params[key]; got != want {
					t.Errorf("param %s: expected %v, got %v", key, want, got)
				}
			}

			msgs := publisher.BySubject(tt.wantSubject)
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message on %s, got %d", tt.wantSubject, len(msgs))
			}
		})
	}
}

func TestDispatcher_DispatchUnknownKind(t *testing.T) {
	dispatcher, publisher := newTestDispatcher()

	_, err := dispatcher.Dispatch("feed_ws", service.PlanAction{Type: "reboot"}, time.Now())
	if err == nil {
		t.Fatal("expected error for unknown action kind")
	}
	if publisher.Count() != 0 {
		t.Errorf("expected nothing published, got %d messages", publisher.Count())
	}
}

func TestDispatcher_Revert(t *testing.T) {
	dispatcher, publisher := newTestDispatcher()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	original, err := dispatcher.Dispatch("feed_ws", service.PlanAction{
		Type: service.ActionGate,
		Gate: &service.GateParams{MaxRequestsPerSec: 50},
	}, now)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if err := dispatcher.Revert("feed_ws", *original, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("Revert returned error: %v", err)
	}

	reverts := publisher.BySubject("gate.revert")
	if len(reverts) != 1 {
		t.Fatalf("expected 1 revert on gate.revert, got %d", len(reverts))
	}
	revert := reverts[0].Payload.(events.RevertRequest)
	if revert.OriginalAction.RequestID != original.RequestID {
		t.Error("revert must reference the original request")
	}
	if revert.OriginalAction.Params["maxRequestsPerSec"] != float64(50) {
		t.Errorf("revert must carry original params, got %v", revert.OriginalAction.Params)
	}
	if revert.Reason != events.ReasonRecovery {
		t.Errorf("expected reason %s, got %s", events.ReasonRecovery, revert.Reason)
	}
}

func TestDispatcher_Failback(t *testing.T) {
	dispatcher, publisher := newTestDispatcher()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	params := service.FailoverParams{To: "feed_ws_backup", AutoFailback: true}
	if err := dispatcher.Failback("feed_ws", params, "feed_ws_primary", now); err != nil {
		t.Fatalf("Failback returned error: %v", err)
	}

	msgs := publisher.BySubject(events.SubjectFailbackRequest)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 failback request, got %d", len(msgs))
	}
	req := msgs[0].Payload.(events.FailbackRequest)
	if req.To != "feed_ws_primary" {
		t.Errorf("expected traffic returned to the acknowledged primary, got %s", req.To)
	}
	if req.From != "feed_ws_backup" {
		t.Errorf("expected traffic leaving the failover target, got %s", req.From)
	}
	if req.Reason != events.ReasonRecovery {
		t.Errorf("expected reason %s, got %s", events.ReasonRecovery, req.Reason)
	}
}

func TestDispatcher_FailoverSuppressed(t *testing.T) {
	publisher := memory.NewPublisher()
	limiter := NewFlapLimiter(nil, 1)
	dispatcher := NewDispatcher(publisher, metrics.NewCollector(), limiter)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	limiter.RecordFailover("other", now.Add(-5*time.Minute))

	req, err := dispatcher.Dispatch("feed_ws", service.PlanAction{
		Type:     service.ActionFailover,
		Failover: &service.FailoverParams{To: "backup"},
	}, now)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if req != nil {
		t.Error("expected nil request when the flapping guard suppresses")
	}
	if publisher.Count() != 0 {
		t.Errorf("expected nothing published, got %d messages", publisher.Count())
	}
}
