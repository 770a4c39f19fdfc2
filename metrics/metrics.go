// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics provides Prometheus metrics for the session engine and API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/pick-together/convergence"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "picktogether"

// Collector implements convergence.Metrics and records HTTP traffic.
type Collector struct {
	completionChecks *prometheus.CounterVec
	convergences     *prometheus.CounterVec
	matchesPerRun    prometheus.Histogram
	triggers         *prometheus.CounterVec
	sessionsExpired  prometheus.Counter
	votesCast        prometheus.Counter

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// Compile-time assertion that Collector implements convergence.Metrics.
var _ convergence.Metrics = (*Collector)(nil)

// New creates a collector and registers it with reg
// (prometheus.DefaultRegisterer if nil). An empty namespace uses DefaultNamespace.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		completionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "completion_checks_total",
			Help:      "Completion checks by result (complete, incomplete).",
		}, []string{"result"}),
		convergences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "convergence_attempts_total",
			Help:      "Convergence attempts by outcome (computed, existing, incomplete, expired, error).",
		}, []string{"outcome"}),
		matchesPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "matches_per_session",
			Help:      "Number of matches committed when a session converges.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "change_signals_total",
			Help:      "Change signals received by the watcher, by source.",
		}, []string{"source"}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "sessions_expired_total",
			Help:      "Sessions moved to expired by the sweeper.",
		}),
		votesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "votes_cast_total",
			Help:      "Votes written, including overwrites.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.completionChecks,
		c.convergences,
		c.matchesPerRun,
		c.triggers,
		c.sessionsExpired,
		c.votesCast,
		c.requests,
		c.requestDuration,
	)

	return c
}

func (c *Collector) CompletionChecked(complete bool) {
	result := "incomplete"
	if complete {
		result = "complete"
	}
	c.completionChecks.WithLabelValues(result).Inc()
}

func (c *Collector) Converged(outcome string, matches int) {
	c.convergences.WithLabelValues(outcome).Inc()
	if outcome == convergence.OutcomeComputed {
		c.matchesPerRun.Observe(float64(matches))
	}
}

func (c *Collector) TriggerFired(source string) {
	c.triggers.WithLabelValues(source).Inc()
}

func (c *Collector) SessionsExpired(n int) {
	c.sessionsExpired.Add(float64(n))
}

// VoteCast counts one stored vote.
func (c *Collector) VoteCast() {
	c.votesCast.Inc()
}

// ObserveRequest records one finished HTTP request.
func (c *Collector) ObserveRequest(route string, code int, d time.Duration) {
	c.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}
