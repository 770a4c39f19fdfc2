package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/pick-together/cliparse"
	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/db"
	"github.com/danielhkuo/pick-together/metrics"
	"github.com/danielhkuo/pick-together/middleware"
	"github.com/danielhkuo/pick-together/notify"
	"github.com/danielhkuo/pick-together/router"
	"github.com/danielhkuo/pick-together/store"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	// Connect to the database
	driver := "sqlite"
	if cfg.DatabaseType == "postgres" {
		driver = "postgres"
	}
	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if driver == "sqlite" {
		// SQLite allows a single writer
		dbConn.SetMaxOpenConns(1)
	}

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg, "")

	st := store.New(dbConn)
	engine := convergence.NewEngine(st,
		convergence.WithLogger(logger),
		convergence.WithMetrics(collector),
	)

	deps := router.Deps{
		Store:     st,
		Engine:    engine,
		Publisher: notify.Nop{},
		Metrics:   collector,
		Gatherer:  reg,
	}

	// Optional push notifications
	if cfg.NATSURL != "" {
		nc, err := notify.Connect(cfg.NATSURL, logger)
		if err != nil {
			slog.Error("nats connection failed", "error", err)
			os.Exit(1)
		}
		defer nc.Close()

		deps.Publisher = notify.NewPublisher(nc)
		deps.Sources = []convergence.ChangeSource{notify.NewSource(nc)}
		slog.Info("NATS notifications enabled", "url", nc.ConnectedUrl())
	} else {
		slog.Info("NATS_URL not set, watchers poll only", "poll_interval", cfg.PollInterval)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Expire sessions past their deadline
	go engine.RunSweeper(ctx, cfg.SweepInterval)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(router.NewRouter(deps, cfg)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
