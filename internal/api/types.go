package api

import (
	"time"

	"github.com/samijaber1/aegis-guard/internal/eval"
	"github.com/samijaber1/aegis-guard/internal/guard"
)

// ServiceListResponse represents a list of guarded services
type ServiceListResponse struct {
	Services []ServiceSummary `json:"services"`
}

// ServiceSummary contains summary information about a guarded service
type ServiceSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name,omitempty"`
	UptimeTargetPct float64 `json:"uptimeTargetPct"`
	Windows         int     `json:"windows"`
	ActionPlan      int     `json:"actionPlan"`
}

// StateResponse represents the latest evaluation and runtime state
type StateResponse struct {
	ServiceID string                       `json:"serviceId"`
	State     string                       `json:"state"`
	Windows   map[string]eval.WindowResult `json:"windows"`
	Trigger   bool                         `json:"trigger"`
	Warn      bool                         `json:"warn"`
	Severity  string                       `json:"severity,omitempty"`
	Runtime   guard.RuntimeSnapshot        `json:"runtime"`
	UpdatedAt time.Time                    `json:"updatedAt"`
	TTL       int                          `json:"ttl"` // seconds
	IsStale   bool                         `json:"isStale"`
}

// EvaluateRequest forces a fresh evaluation of one service
type EvaluateRequest struct {
	ServiceID string `json:"serviceId"`
}

// AuditRecordResponse represents one audit record on the wire
type AuditRecordResponse struct {
	ID            int64                        `json:"id"`
	ServiceID     string                       `json:"serviceId"`
	State         string                       `json:"state"`
	ShouldTrigger bool                         `json:"shouldTrigger"`
	Warn          bool                         `json:"warn"`
	Severity      string                       `json:"severity,omitempty"`
	Windows       map[string]eval.WindowResult `json:"windows"`
	ActiveActions []string                     `json:"activeActions,omitempty"`
	Timestamp     time.Time                    `json:"timestamp"`
	CreatedAt     time.Time                    `json:"createdAt"`
}

// AuditResponse represents an audit query result
type AuditResponse struct {
	Records []AuditRecordResponse `json:"records"`
	Total   int                   `json:"total"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Ready          bool     `json:"ready"`
	ServicesLoaded int      `json:"servicesLoaded"`
	Reasons        []string `json:"reasons,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
