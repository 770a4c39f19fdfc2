// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the SQL-backed shared session store.

SQLStore implements convergence.Store on top of database/sql and adds the
writes the HTTP layer needs: creating sessions, enrolling members and
recording votes. Every query uses $N placeholders and portable DDL so the
same code runs against PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).

Writes that depend on the session still being open (votes, members and the
convergence commit) first run a guarded UPDATE on the session row inside
their transaction. That update is the serialization point against status
changes: once a session is converged or expired, no later write lands.

Uniqueness violations from either driver are classified by error code
rather than by message text; see isUniqueViolation.
*/
package store
