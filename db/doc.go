// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same DDL is used for PostgreSQL and SQLite.

# Tables

The schema includes:

  - swipe_session: Session code, lifetime and status
  - candidate: Ordered candidate catalog per session
  - member: Enrolled voters and their tokens
  - vote: One row per (session, voter, candidate)
  - session_match: Write-once convergence results

# Relationships

	swipe_session 1──* candidate
	swipe_session 1──* member
	swipe_session 1──* vote
	swipe_session 1──* session_match

All foreign keys use ON DELETE CASCADE.

# Keys

Upserts rely on the composite primary keys:

  - vote.(session_id, voter_id, candidate_id)
  - session_match.(session_id, candidate_id)
*/
package db
