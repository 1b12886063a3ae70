package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samijaber1/aegis-guard/internal/eval"
	"github.com/samijaber1/aegis-guard/internal/guard"
	"github.com/samijaber1/aegis-guard/internal/service"
	"github.com/samijaber1/aegis-guard/internal/storage"
)

// Store implements AuditStorage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite storage with the given database path
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// StoreDefinition persists a service definition
func (s *Store) StoreDefinition(def *service.Definition) error {
	specJSON, err := json.Marshal(def.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	query := `
		INSERT INTO service_definitions (id, name, owner, uptime_target, error_budget_days, spec_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner = excluded.owner,
			uptime_target = excluded.uptime_target,
			error_budget_days = excluded.error_budget_days,
			spec_json = excluded.spec_json,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.Exec(query,
		def.Metadata.ID,
		def.Metadata.Name,
		def.Metadata.Owner,
		def.Spec.SLO.UptimeTargetPct,
		def.Spec.ErrorBudgetDays,
		string(specJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store service definition: %w", err)
	}

	return nil
}

// StoreEvaluation persists one evaluation tick outcome
func (s *Store) StoreEvaluation(result *eval.Result, runtime guard.RuntimeSnapshot) error {
	windowsJSON, err := json.Marshal(result.Windows)
	if err != nil {
		return fmt.Errorf("failed to marshal windows: %w", err)
	}

	actionsJSON, err := json.Marshal(actionKinds(runtime))
	if err != nil {
		return fmt.Errorf("failed to marshal active actions: %w", err)
	}

	query := `
		INSERT INTO evaluations (
			service_id, state, should_trigger, warn, severity,
			windows_json, active_actions_json, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		result.ServiceID,
		string(runtime.State),
		result.ShouldTrigger,
		result.Warn,
		result.Severity,
		string(windowsJSON),
		string(actionsJSON),
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to store evaluation: %w", err)
	}

	return nil
}

// UpdateLatestState updates the latest state row for a service
func (s *Store) UpdateLatestState(serviceID string, result *eval.Result, runtime guard.RuntimeSnapshot) error {
	windowsJSON, err := json.Marshal(result.Windows)
	if err != nil {
		return fmt.Errorf("failed to marshal windows: %w", err)
	}

	query := `
		INSERT INTO latest_state (
			service_id, state, should_trigger, warn, severity, windows_json,
			triggers, recoveries, early_warnings, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(service_id) DO UPDATE SET
			state = excluded.state,
			should_trigger = excluded.should_trigger,
			warn = excluded.warn,
			severity = excluded.severity,
			windows_json = excluded.windows_json,
			triggers = excluded.triggers,
			recoveries = excluded.recoveries,
			early_warnings = excluded.early_warnings,
			timestamp = excluded.timestamp,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.Exec(query,
		serviceID,
		string(runtime.State),
		result.ShouldTrigger,
		result.Warn,
		result.Severity,
		string(windowsJSON),
		runtime.Triggers,
		runtime.Recoveries,
		runtime.EarlyWarnings,
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to update latest state: %w", err)
	}

	return nil
}

// QueryAudit retrieves audit records with optional filtering
func (s *Store) QueryAudit(filter storage.AuditFilter) ([]storage.AuditRecord, error) {
	query := `
		SELECT id, service_id, state, should_trigger, warn, severity,
		       windows_json, active_actions_json, timestamp, created_at
		FROM evaluations
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.ServiceID != "" {
		query += " AND service_id = ?"
		args = append(args, filter.ServiceID)
	}

	if filter.State != "" {
		query += " AND state = ?"
		args = append(args, filter.State)
	}

	if filter.TriggeredOnly {
		query += " AND should_trigger = 1"
	}

	if filter.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime)
	}

	if filter.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100" // Default limit
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []storage.AuditRecord
	for rows.Next() {
		var record storage.AuditRecord
		var windowsJSON, actionsJSON string

		err := rows.Scan(
			&record.ID,
			&record.ServiceID,
			&record.State,
			&record.ShouldTrigger,
			&record.Warn,
			&record.Severity,
			&windowsJSON,
			&actionsJSON,
			&record.Timestamp,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(windowsJSON), &record.Windows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal windows: %w", err)
		}

		if err := json.Unmarshal([]byte(actionsJSON), &record.ActiveActions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal active actions: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// GetLatestState retrieves the latest state for a service
func (s *Store) GetLatestState(serviceID string) (*storage.LatestState, error) {
	query := `
		SELECT service_id, state, should_trigger, warn, severity, windows_json,
		       triggers, recoveries, early_warnings, timestamp, updated_at
		FROM latest_state
		WHERE service_id = ?
	`

	var state storage.LatestState
	var windowsJSON string

	err := s.db.QueryRow(query, serviceID).Scan(
		&state.ServiceID,
		&state.State,
		&state.ShouldTrigger,
		&state.Warn,
		&state.Severity,
		&windowsJSON,
		&state.Triggers,
		&state.Recoveries,
		&state.EarlyWarnings,
		&state.Timestamp,
		&state.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest state: %w", err)
	}

	if err := json.Unmarshal([]byte(windowsJSON), &state.Windows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal windows: %w", err)
	}

	return &state, nil
}

// Close closes the storage connection
func (s *Store) Close() error {
	return s.db.Close()
}

// actionKinds flattens active actions to their kinds for the audit row
func actionKinds(runtime guard.RuntimeSnapshot) []string {
	kinds := make([]string, 0, len(runtime.ActiveActions))
	for _, act := range runtime.ActiveActions {
		kinds = append(kinds, act.Kind)
	}
	return kinds
}
