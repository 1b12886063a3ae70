package sqlite

// Schema defines the SQLite database schema
const Schema = `
-- Service definitions table
CREATE TABLE IF NOT EXISTS service_definitions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	owner TEXT NOT NULL DEFAULT '',
	uptime_target REAL NOT NULL,
	error_budget_days INTEGER NOT NULL,
	spec_json TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Evaluations audit table
CREATE TABLE IF NOT EXISTS evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	service_id TEXT NOT NULL,
	state TEXT NOT NULL,
	should_trigger BOOLEAN NOT NULL DEFAULT 0,
	warn BOOLEAN NOT NULL DEFAULT 0,
	severity TEXT NOT NULL DEFAULT '',
	windows_json TEXT NOT NULL,
	active_actions_json TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (service_id) REFERENCES service_definitions(id)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_service_id ON evaluations(service_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_state ON evaluations(state);
CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at DESC);

-- Latest state table (one row per service)
CREATE TABLE IF NOT EXISTS latest_state (
	service_id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	should_trigger BOOLEAN NOT NULL DEFAULT 0,
	warn BOOLEAN NOT NULL DEFAULT 0,
	severity TEXT NOT NULL DEFAULT '',
	windows_json TEXT NOT NULL,
	triggers INTEGER NOT NULL DEFAULT 0,
	recoveries INTEGER NOT NULL DEFAULT 0,
	early_warnings INTEGER NOT NULL DEFAULT 0,
	timestamp TIMESTAMP NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (service_id) REFERENCES service_definitions(id)
);
`
