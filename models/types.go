// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"errors"
	"time"
)

// Session status constants
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusConverged = "converged"
	StatusExpired   = "expired"
)

// MatchSchemaVersion is the shape version written with every match record.
const MatchSchemaVersion = 1

var ErrContradictoryVote = errors.New("strongly_liked requires liked")

// Request types

type CandidateInput struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CreateSessionRequest struct {
	Title      string           `json:"title"`
	HostName   string           `json:"host_name"`
	Candidates []CandidateInput `json:"candidates"`
}

type JoinSessionRequest struct {
	DisplayName string `json:"display_name"`
}

type CastVoteRequest struct {
	CandidateID   string `json:"candidate_id"`
	Liked         bool   `json:"liked"`
	StronglyLiked bool   `json:"strongly_liked"`
}

// Response types

type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Code      string    `json:"code"`
	HostKey   string    `json:"host_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type JoinSessionResponse struct {
	VoterID    string `json:"voter_id"`
	VoterToken string `json:"voter_token"`
}

type CastVoteResponse struct {
	Complete  bool   `json:"complete"`
	Converged bool   `json:"converged"`
	Status    string `json:"status"`
}

type MatchesResponse struct {
	SessionID string  `json:"session_id"`
	Status    string  `json:"status"`
	Matches   []Match `json:"matches"`
}

// Domain types

type Session struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	HostName    string     `json:"host_name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ConvergedAt *time.Time `json:"converged_at,omitempty"`
}

type Candidate struct {
	ID       string          `json:"id"`
	Position int             `json:"position"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type SessionWithCandidates struct {
	Session    Session     `json:"session"`
	Candidates []Candidate `json:"candidates"`
}

type Member struct {
	VoterID     string    `json:"voter_id"`
	DisplayName string    `json:"display_name"`
	VoterToken  string    `json:"-"` // Never expose in JSON
	JoinedAt    time.Time `json:"joined_at"`
}

type Vote struct {
	VoterID       string    `json:"voter_id"`
	CandidateID   string    `json:"candidate_id"`
	Liked         bool      `json:"liked"`
	StronglyLiked bool      `json:"strongly_liked"`
	CastAt        time.Time `json:"cast_at"`
}

// Validate rejects a strong preference on a candidate the voter did not like.
func (v Vote) Validate() error {
	if v.StronglyLiked && !v.Liked {
		return ErrContradictoryVote
	}
	return nil
}

type Match struct {
	CandidateID   string          `json:"candidate_id"`
	Rank          int             `json:"rank"` // 1-indexed ranking
	StrongCount   int             `json:"strong_count"`
	LikeCount     int             `json:"like_count"`
	Unanimous     bool            `json:"unanimous"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	SchemaVersion int             `json:"schema_version"`
	ComputedAt    time.Time       `json:"computed_at"`
}

// Progress reports how far a session is from completion.
type Progress struct {
	Voters     int            `json:"voters"`
	Candidates int            `json:"candidates"`
	VotesBy    map[string]int `json:"votes_by"`
	VotersDone int            `json:"voters_done"`
	Complete   bool           `json:"complete"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
