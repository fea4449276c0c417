package sqlite

const schema = `
-- Supervisor audit events
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    check_id TEXT,
    workflow_id TEXT,
    agent_id TEXT,
    severity TEXT NOT NULL DEFAULT 'info',
    message TEXT NOT NULL,
    data TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_check ON events(check_id);
CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id);

-- Health check results
CREATE TABLE IF NOT EXISTS check_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    check_id TEXT NOT NULL,
    check_name TEXT NOT NULL DEFAULT '',
    component TEXT NOT NULL DEFAULT '',
    tier TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    output TEXT NOT NULL DEFAULT '',
    unreachable INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_check_results_check ON check_results(check_id);
CREATE INDEX IF NOT EXISTS idx_check_results_timestamp ON check_results(timestamp);
CREATE INDEX IF NOT EXISTS idx_check_results_status ON check_results(status);

-- Repair workflow executions
CREATE TABLE IF NOT EXISTS repair_records (
    id TEXT PRIMARY KEY,
    workflow_id TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    overall TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_repair_records_workflow ON repair_records(workflow_id);
CREATE INDEX IF NOT EXISTS idx_repair_records_timestamp ON repair_records(timestamp);

-- Per-step outcomes of a repair execution
CREATE TABLE IF NOT EXISTS repair_step_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id TEXT NOT NULL,
    step_order INTEGER NOT NULL,
    name TEXT NOT NULL,
    outcome TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    attempts INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (record_id) REFERENCES repair_records(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_repair_step_outcomes_record ON repair_step_outcomes(record_id);
`
