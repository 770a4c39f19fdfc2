// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/models"
)

var (
	ErrNameTaken      = errors.New("display name already taken")
	ErrCodeTaken      = errors.New("session code already in use")
	ErrMemberNotFound = errors.New("member not found")

	// ErrSessionConverged is returned for writes to a session whose matches
	// are already committed.
	ErrSessionConverged = errors.New("session already converged")
)

// SQLStore is the shared session store over a *sql.DB.
type SQLStore struct {
	db *sql.DB
}

var _ convergence.Store = (*SQLStore)(nil)

func New(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

const sessionColumns = `id, code, title, host_name, status, created_at, expires_at, converged_at`

// CreateSession inserts a session and its whole catalog in one transaction.
// Candidate positions follow slice order.
func (s *SQLStore) CreateSession(ctx context.Context, session models.Session, candidates []models.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO swipe_session (id, code, title, host_name, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, session.ID, session.Code, session.Title, session.HostName, session.Status,
		session.CreatedAt.UTC(), session.ExpiresAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for i, c := range candidates {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO candidate (session_id, id, position, name, payload)
			VALUES ($1, $2, $3, $4, $5)
		`, session.ID, c.ID, i, c.Name, payloadText(c.Payload))
		if err != nil {
			return fmt.Errorf("failed to insert candidate %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM swipe_session WHERE id = $1`, sessionID)
	return scanSession(row)
}

// GetSessionByCode looks a session up by its share code.
func (s *SQLStore) GetSessionByCode(ctx context.Context, code string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM swipe_session WHERE code = $1`, code)
	return scanSession(row)
}

// ListOpenSessions returns sessions still waiting or active, oldest first.
func (s *SQLStore) ListOpenSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM swipe_session
		WHERE status IN ('waiting', 'active')
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLStore) ListCandidates(ctx context.Context, sessionID string) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position, name, payload
		FROM candidate
		WHERE session_id = $1
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		var payload string
		if err := rows.Scan(&c.ID, &c.Position, &c.Name, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		c.Payload = json.RawMessage(payload)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// AddMember enrolls a voter in a waiting or active session. A display name
// already used in the session returns ErrNameTaken.
func (s *SQLStore) AddMember(ctx context.Context, sessionID string, m models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOpenSession(ctx, tx, sessionID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO member (session_id, voter_id, display_name, voter_token, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sessionID, m.VoterID, m.DisplayName, m.VoterToken, m.JoinedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member: %w", err)
	}
	return nil
}

func (s *SQLStore) ListMembers(ctx context.Context, sessionID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT voter_id, display_name, voter_token, joined_at
		FROM member
		WHERE session_id = $1
		ORDER BY joined_at, voter_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.VoterID, &m.DisplayName, &m.VoterToken, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// MemberByToken resolves a voter token within a session.
func (s *SQLStore) MemberByToken(ctx context.Context, sessionID, token string) (models.Member, error) {
	var m models.Member
	err := s.db.QueryRowContext(ctx, `
		SELECT voter_id, display_name, voter_token, joined_at
		FROM member
		WHERE session_id = $1 AND voter_token = $2
	`, sessionID, token).Scan(&m.VoterID, &m.DisplayName, &m.VoterToken, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, ErrMemberNotFound
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("failed to query member: %w", err)
	}
	return m, nil
}

// UpsertVote records a vote, replacing the voter's earlier vote on the
// same candidate. Only waiting and active sessions accept votes.
func (s *SQLStore) UpsertVote(ctx context.Context, sessionID string, v models.Vote) error {
	if err := v.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOpenSession(ctx, tx, sessionID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (session_id, voter_id, candidate_id, liked, strongly_liked, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, voter_id, candidate_id)
		DO UPDATE SET liked = excluded.liked, strongly_liked = excluded.strongly_liked, cast_at = excluded.cast_at
	`, sessionID, v.VoterID, v.CandidateID, v.Liked, v.StronglyLiked, v.CastAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vote: %w", err)
	}
	return nil
}

func (s *SQLStore) ListVotes(ctx context.Context, sessionID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT voter_id, candidate_id, liked, strongly_liked, cast_at
		FROM vote
		WHERE session_id = $1
		ORDER BY cast_at, voter_id, candidate_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.VoterID, &v.CandidateID, &v.Liked, &v.StronglyLiked, &v.CastAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (s *SQLStore) ListMatches(ctx context.Context, sessionID string) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_id, rank, strong_count, like_count, unanimous, payload, schema_version, computed_at
		FROM session_match
		WHERE session_id = $1
		ORDER BY rank, candidate_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := []models.Match{}
	for rows.Next() {
		var m models.Match
		var payload string
		err := rows.Scan(&m.CandidateID, &m.Rank, &m.StrongCount, &m.LikeCount,
			&m.Unanimous, &payload, &m.SchemaVersion, &m.ComputedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Payload = json.RawMessage(payload)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// CommitConvergence flips the session to converged and writes every match
// in a single transaction. The status update runs first and holds the
// session row, so only the first commit writes matches; later commits to
// a converged session return nil and leave the stored set untouched.
func (s *SQLStore) CommitConvergence(ctx context.Context, sessionID string, matches []models.Match, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE swipe_session
		SET status = $2, converged_at = $3
		WHERE id = $1 AND status IN ('waiting', 'active')
	`, sessionID, models.StatusConverged, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark session converged: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		status, err := sessionStatus(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if status == models.StatusConverged {
			// First commit wins
			return nil
		}
		return convergence.ErrSessionExpired
	}

	for _, m := range matches {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_match (session_id, candidate_id, rank, strong_count, like_count, unanimous, payload, schema_version, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (session_id, candidate_id)
			DO UPDATE SET rank = excluded.rank, strong_count = excluded.strong_count,
				like_count = excluded.like_count, unanimous = excluded.unanimous,
				payload = excluded.payload, schema_version = excluded.schema_version
		`, sessionID, m.CandidateID, m.Rank, m.StrongCount, m.LikeCount, m.Unanimous,
			payloadText(m.Payload), m.SchemaVersion, m.ComputedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to upsert match %s: %w", m.CandidateID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit convergence: %w", err)
	}
	return nil
}

func (s *SQLStore) TransitionStatus(ctx context.Context, sessionID, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE swipe_session SET status = $3 WHERE id = $1 AND status = $2
	`, sessionID, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.Session, error) {
	var s models.Session
	var convergedAt sql.NullTime
	err := row.Scan(&s.ID, &s.Code, &s.Title, &s.HostName, &s.Status,
		&s.CreatedAt, &s.ExpiresAt, &convergedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, convergence.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to scan session: %w", err)
	}
	if convergedAt.Valid {
		t := convergedAt.Time
		s.ConvergedAt = &t
	}
	return s, nil
}

// lockOpenSession touches the session row so the rest of tx orders against
// convergence and expiry. It fails with ErrSessionConverged or
// convergence.ErrSessionExpired once the session is terminal.
func lockOpenSession(ctx context.Context, tx *sql.Tx, sessionID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE swipe_session SET status = status
		WHERE id = $1 AND status IN ('waiting', 'active')
	`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to lock session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	status, err := sessionStatus(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if status == models.StatusConverged {
		return ErrSessionConverged
	}
	return convergence.ErrSessionExpired
}

func sessionStatus(ctx context.Context, tx *sql.Tx, sessionID string) (string, error) {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM swipe_session WHERE id = $1`, sessionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", convergence.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session status: %w", err)
	}
	return status, nil
}

func payloadText(p json.RawMessage) string {
	if len(p) == 0 {
		return "{}"
	}
	return string(p)
}

// isUniqueViolation recognizes unique and primary key conflicts from both
// supported drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
