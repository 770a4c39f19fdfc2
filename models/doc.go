// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateSessionRequest: title, host_name, candidates
  - JoinSessionRequest: display_name
  - CastVoteRequest: candidate_id, liked, strongly_liked

# Response Types

Types for JSON responses:

  - CreateSessionResponse: session_id, code, host_key, expires_at
  - JoinSessionResponse: voter_id, voter_token
  - CastVoteResponse: complete, converged, status
  - MatchesResponse: session_id, status, matches
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Session: shareable code, lifetime, and status
  - Candidate: one catalog entry with an opaque payload
  - Member: one enrolled voter
  - Vote: like / strong like on one candidate
  - Match: a candidate every enrolled voter liked, with rank and payload snapshot
  - Progress: per-voter vote counts toward completion

# Constants

Status values:

	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusConverged = "converged"
	StatusExpired   = "expired"

Match records carry MatchSchemaVersion so readers never guess at their shape.
*/
package models
