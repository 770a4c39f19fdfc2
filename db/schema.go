// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL runs unchanged on PostgreSQL and SQLite.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

var schema = []string{
	// Sessions
	`CREATE TABLE IF NOT EXISTS swipe_session (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    host_name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'waiting' CHECK (status IN ('waiting', 'active', 'converged', 'expired')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expires_at TIMESTAMP NOT NULL,
    converged_at TIMESTAMP
)`,
	`CREATE INDEX IF NOT EXISTS idx_swipe_session_status ON swipe_session(status)`,

	// Candidate catalog
	`CREATE TABLE IF NOT EXISTS candidate (
    session_id TEXT NOT NULL REFERENCES swipe_session(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (session_id, id)
)`,

	// Voter enrollment
	`CREATE TABLE IF NOT EXISTS member (
    session_id TEXT NOT NULL REFERENCES swipe_session(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    voter_token TEXT NOT NULL UNIQUE,
    joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, voter_id),
    UNIQUE (session_id, display_name)
)`,

	// Votes
	`CREATE TABLE IF NOT EXISTS vote (
    session_id TEXT NOT NULL REFERENCES swipe_session(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    candidate_id TEXT NOT NULL,
    liked BOOLEAN NOT NULL,
    strongly_liked BOOLEAN NOT NULL DEFAULT FALSE,
    cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, voter_id, candidate_id),
    CHECK (liked OR NOT strongly_liked)
)`,
	`CREATE INDEX IF NOT EXISTS idx_vote_session_id ON vote(session_id)`,

	// Computed matches
	`CREATE TABLE IF NOT EXISTS session_match (
    session_id TEXT NOT NULL REFERENCES swipe_session(id) ON DELETE CASCADE,
    candidate_id TEXT NOT NULL,
    rank INTEGER NOT NULL,
    strong_count INTEGER NOT NULL,
    like_count INTEGER NOT NULL,
    unanimous BOOLEAN NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}',
    schema_version INTEGER NOT NULL,
    computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, candidate_id)
)`,
}
