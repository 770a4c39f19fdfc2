// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL or SQLite connection string (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - HostKeySalt: Secret for host key HMAC (required)
  - NATSURL: NATS server for vote notifications (optional)
  - LogLevel: debug, info, warn or error (default: info)
  - SessionTTL: Session lifetime (default: 2h)
  - PollInterval: Fallback completion poll (default: 3s)
  - Debounce: Notification coalescing window (default: 250ms)
  - WaitTimeout: Longest match long-poll (default: 30s)
  - SweepInterval: Expiry sweep period (default: 1m)

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	NATS_URL       → --nats
	LOG_LEVEL      → --log-level
	HOST_KEY_SALT  → --host-salt
	SESSION_TTL    → --session-ttl
	POLL_INTERVAL  → --poll-interval
	DEBOUNCE       → --debounce
	WAIT_TIMEOUT   → --wait-timeout
	SWEEP_INTERVAL → --sweep-interval

CLI flags take precedence over environment variables. A .env file in the
working directory is loaded before either is read.

# Validation

ParseFlags returns an error if required values are missing or malformed:

  - DATABASE_URL must be provided
  - HOST_KEY_SALT must be provided
  - DATABASE_TYPE must be sqlite or postgres
  - durations must parse and be positive
*/
package cliparse
