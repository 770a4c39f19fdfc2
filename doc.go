// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the pick-together API server.

pick-together runs group swipe sessions: a host shares a catalog of
candidates, everyone swipes like / pass (optionally "love it"), and once
every member has swiped every card the session converges on the
candidates everyone liked, ranked by how strongly they were liked.

# Starting the Server

	HOST_KEY_SALT=dev DATABASE_URL=pick.db go run .

Or against PostgreSQL with NATS push notifications:

	go run . -t postgres -d "postgres://..." -nats nats://localhost:4222

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - HOST_KEY_SALT (-host-salt): Secret for host key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - NATS_URL (-nats): enables cross-instance vote notifications
  - SESSION_TTL, POLL_INTERVAL, DEBOUNCE, WAIT_TIMEOUT, SWEEP_INTERVAL
  - LOG_LEVEL (-log-level): debug, info, warn, error

A .env file in the working directory is read as well.

# Architecture

  - convergence: completion tracking, match detection, the commit gate,
    the status machine, the debounced watcher and the expiry sweeper
  - store: SQL implementation of the shared session store
  - notify: NATS publisher and change source
  - metrics: Prometheus collector
  - handlers, router, middleware: HTTP surface
  - models, auth, db, cliparse: shared types, tokens, schema, config
*/
package main
