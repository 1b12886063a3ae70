package storage

import (
	"time"

	"github.com/samijaber1/aegis-guard/internal/eval"
	"github.com/samijaber1/aegis-guard/internal/guard"
	"github.com/samijaber1/aegis-guard/internal/service"
)

// AuditStorage defines the interface for persisting guard activity
type AuditStorage interface {
	// StoreDefinition persists a service definition
	StoreDefinition(def *service.Definition) error

	// StoreEvaluation persists one evaluation tick outcome
	StoreEvaluation(result *eval.Result, runtime guard.RuntimeSnapshot) error

	// UpdateLatestState updates the latest state row for a service
	UpdateLatestState(serviceID string, result *eval.Result, runtime guard.RuntimeSnapshot) error

	// QueryAudit retrieves audit records with optional filtering
	QueryAudit(filter AuditFilter) ([]AuditRecord, error)

	// GetLatestState retrieves the latest state for a service
	GetLatestState(serviceID string) (*LatestState, error)

	// Close closes the storage connection
	Close() error
}

// AuditFilter defines filtering options for audit queries
type AuditFilter struct {
	ServiceID     string
	State         string // IDLE, TRIGGER, ENFORCE, MONITOR, RECOVER
	TriggeredOnly bool
	StartTime     *time.Time
	EndTime       *time.Time
	Limit         int
	Offset        int
}

// AuditRecord represents a single audit entry
type AuditRecord struct {
	ID            int64
	ServiceID     string
	State         string
	ShouldTrigger bool
	Warn          bool
	Severity      string
	Windows       map[string]eval.WindowResult
	ActiveActions []string
	Timestamp     time.Time
	CreatedAt     time.Time
}

// LatestState represents the most recent evaluation state for a service
type LatestState struct {
	ServiceID     string
	State         string
	ShouldTrigger bool
	Warn          bool
	Severity      string
	Windows       map[string]eval.WindowResult
	Triggers      int64
	Recoveries    int64
	EarlyWarnings int64
	Timestamp     time.Time
	UpdatedAt     time.Time
}
