// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/pick-together/cliparse"
	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/handlers"
	"github.com/danielhkuo/pick-together/metrics"
	"github.com/danielhkuo/pick-together/middleware"
	"github.com/danielhkuo/pick-together/notify"
	"github.com/danielhkuo/pick-together/store"
)

// Deps are the shared services the handlers are built from.
type Deps struct {
	Store  *store.SQLStore
	Engine *convergence.Engine

	// Optional
	Publisher notify.Publisher
	Sources   []convergence.ChangeSource
	Metrics   *metrics.Collector
	Gatherer  prometheus.Gatherer
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(deps.Store, deps.Engine, cfg)
	voteHandler := handlers.NewVoteHandler(deps.Store, deps.Engine, deps.Publisher, deps.Metrics, cfg)
	matchHandler := handlers.NewMatchHandler(deps.Store, deps.Engine, cfg, deps.Sources...)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithLogging(middleware.WithMetrics(deps.Metrics, pattern, h)))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Session lifecycle
	handle("POST /sessions", sessionHandler.CreateSession)
	handle("GET /sessions/{code}", sessionHandler.GetSession)
	handle("POST /sessions/{code}/join", sessionHandler.JoinSession)
	handle("POST /sessions/{code}/start", sessionHandler.StartSession)
	handle("GET /sessions/{code}/progress", sessionHandler.GetProgress)

	// Swiping (requires X-Voter-Token)
	handle("PUT /sessions/{code}/votes", voteHandler.CastVote)

	// Matches (sealed until converged)
	handle("POST /sessions/{code}/converge", matchHandler.Converge)
	handle("GET /sessions/{code}/matches", matchHandler.GetMatches)
	handle("GET /sessions/{code}/matches/wait", matchHandler.WaitMatches)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pick-together API v1"))
	})

	return mux
}
