package database

import "github.com/jmoiron/sqlx"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sqlx.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "feasibility reports",
		Up: func(tx *sqlx.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS feasibility_reports (
    id TEXT PRIMARY KEY,
    idea TEXT NOT NULL,
    created_at TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    inputs TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mode_results (
    report_id TEXT NOT NULL REFERENCES feasibility_reports(id) ON DELETE CASCADE,
    mode TEXT NOT NULL,
    score INTEGER NOT NULL,
    verdict TEXT NOT NULL,
    pv_factor REAL NOT NULL,
    combined_rate REAL NOT NULL,
    risk_penalty REAL NOT NULL,
    timeline_penalty REAL NOT NULL,
    rate_penalty REAL NOT NULL,
    feasible_threshold INTEGER NOT NULL,
    borderline_threshold INTEGER NOT NULL,
    narrative TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (report_id, mode)
);

CREATE INDEX IF NOT EXISTS idx_reports_created ON feasibility_reports(created_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "chat history",
		Up: func(tx *sqlx.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS chat_messages (
    id TEXT PRIMARY KEY,
    conversation TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation ON chat_messages(conversation, created_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
