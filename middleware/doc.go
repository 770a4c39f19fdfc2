// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging and Metrics

	mux.HandleFunc("PUT /sessions/{code}/votes",
		middleware.WithLogging(middleware.WithMetrics(collector, route, h.CastVote)))

WithLogging logs method, path, status, client IP and duration once the
handler returns. WithMetrics feeds the same status into the Prometheus
request counter and latency histogram.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows headers Content-Type, Authorization, X-Host-Key and X-Voter-Token.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusConflict, "Display name already taken")
*/
package middleware
