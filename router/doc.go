// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the pick-together API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{Store: st, Engine: engine}, cfg)

Publisher, Sources, Metrics and Gatherer are optional. Without a Gatherer
there is no /metrics route.

# Endpoints

	GET  /health
	GET  /metrics

	POST /sessions                      - Create session (returns host_key)
	GET  /sessions/{code}               - Session and catalog
	POST /sessions/{code}/join          - Enroll voter (returns voter_token)
	POST /sessions/{code}/start         - Host start (X-Host-Key)
	GET  /sessions/{code}/progress      - Who is still swiping
	PUT  /sessions/{code}/votes         - Swipe (X-Voter-Token)
	POST /sessions/{code}/converge      - Run the match gate
	GET  /sessions/{code}/matches       - Committed matches
	GET  /sessions/{code}/matches/wait  - Long-poll until converged

Every session route is wrapped with request logging and, when a collector
is supplied, request metrics labelled by route pattern.
*/
package router
