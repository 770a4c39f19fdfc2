package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	HostKeySalt  string
	NATSURL      string
	LogLevel     string

	SessionTTL    time.Duration
	PollInterval  time.Duration
	Debounce      time.Duration
	WaitTimeout   time.Duration
	SweepInterval time.Duration
}

const (
	DefaultPort          = 3318
	DefaultSessionTTL    = 2 * time.Hour
	DefaultPollInterval  = 3 * time.Second
	DefaultDebounce      = 250 * time.Millisecond
	DefaultWaitTimeout   = 30 * time.Second
	DefaultSweepInterval = time.Minute
)

// ParseFlags validates flags and fills the rest from the environment.
// A .env file in the working directory is loaded first if present; it never
// overrides variables that are already set.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	fs := flag.NewFlagSet("pick-together", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.NATSURL, "nats", "", "NATS URL for vote notifications (optional)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.HostKeySalt, "host-salt", "", "Host key salt (prefer env)")

	// Timing
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Session lifetime")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 0, "Fallback poll interval for completion checks")
	fs.DurationVar(&cfg.Debounce, "debounce", 0, "Window for coalescing vote notifications")
	fs.DurationVar(&cfg.WaitTimeout, "wait-timeout", 0, "Upper bound for match long-polls")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 0, "Interval of the session expiry sweep")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.NATSURL == "" {
		cfg.NATSURL = os.Getenv("NATS_URL")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
		if cfg.LogLevel == "" {
			cfg.LogLevel = "info"
		}
	}

	durations := []struct {
		dst *time.Duration
		env string
		def time.Duration
	}{
		{&cfg.SessionTTL, "SESSION_TTL", DefaultSessionTTL},
		{&cfg.PollInterval, "POLL_INTERVAL", DefaultPollInterval},
		{&cfg.Debounce, "DEBOUNCE", DefaultDebounce},
		{&cfg.WaitTimeout, "WAIT_TIMEOUT", DefaultWaitTimeout},
		{&cfg.SweepInterval, "SWEEP_INTERVAL", DefaultSweepInterval},
	}
	for _, d := range durations {
		if *d.dst == 0 {
			if s := os.Getenv(d.env); s != "" {
				v, err := time.ParseDuration(s)
				if err != nil {
					return Config{}, fmt.Errorf("invalid %s env variable: %w", d.env, err)
				}
				*d.dst = v
			} else {
				*d.dst = d.def
			}
		}
		if *d.dst <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", d.env)
		}
	}

	// Secrets - MUST be provided
	if cfg.HostKeySalt == "" {
		cfg.HostKeySalt = os.Getenv("HOST_KEY_SALT")
	}
	if cfg.HostKeySalt == "" {
		return Config{}, errors.New("HOST_KEY_SALT required")
	}

	return cfg, nil
}
