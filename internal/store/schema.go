package store

import (
	"database/sql"
	"fmt"
)

// Every event table carries the global sequence and a millisecond unix
// timestamp.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS practice_sessions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence        INTEGER NOT NULL UNIQUE,
		timestamp       INTEGER NOT NULL,
		session_id      TEXT NOT NULL,
		action          TEXT NOT NULL,
		dialogue_id     TEXT NOT NULL,
		dialogue_title  TEXT NOT NULL DEFAULT '',
		mode            TEXT NOT NULL DEFAULT '',
		segments_total  INTEGER NOT NULL DEFAULT 0,
		segments_scored INTEGER NOT NULL DEFAULT 0,
		total_score     REAL,
		feedback        TEXT NOT NULL DEFAULT '',
		degraded        INTEGER NOT NULL DEFAULT 0,
		duration_secs   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS practice_sessions_session_id ON practice_sessions (session_id)`,
	`CREATE TABLE IF NOT EXISTS segment_attempts (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence        INTEGER NOT NULL UNIQUE,
		timestamp       INTEGER NOT NULL,
		session_id      TEXT NOT NULL,
		dialogue_id     TEXT NOT NULL,
		segment_id      TEXT NOT NULL,
		segment_index   INTEGER NOT NULL,
		repeat_count    INTEGER NOT NULL DEFAULT 0,
		answer_id       TEXT NOT NULL DEFAULT '',
		total_score     REAL NOT NULL DEFAULT 0,
		scores          TEXT NOT NULL DEFAULT '{}',
		feedback        TEXT NOT NULL DEFAULT '',
		success         INTEGER NOT NULL,
		error_message   TEXT NOT NULL DEFAULT '',
		recording_bytes INTEGER NOT NULL DEFAULT 0,
		recording_ms    INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS segment_attempts_session_id ON segment_attempts (session_id)`,
	`CREATE TABLE IF NOT EXISTS llm_requests (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence      INTEGER NOT NULL UNIQUE,
		timestamp     INTEGER NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		purpose       TEXT NOT NULL,
		subject       TEXT NOT NULL DEFAULT '',
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		success       INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		attachment_bytes INTEGER NOT NULL DEFAULT 0,
		request_body  TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS llm_requests_subject ON llm_requests (subject)`,
}

// migrate creates any missing tables and indexes.
func migrate(db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
