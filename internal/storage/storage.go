package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

// Request statuses as recorded in connection_requests
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Store is the sqlite-backed outreach ledger
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Candidate is a discovered profile
type Candidate struct {
	ProfileURL   string
	Name         string
	Headline     string
	Location     string
	DiscoveredAt time.Time
}

// ConnectionRequest is one dispatch attempt
type ConnectionRequest struct {
	RunID      string
	ProfileURL string
	Status     string
	Reason     string
	Note       string
	SentAt     time.Time
}

// Stats summarises the ledger
type Stats struct {
	TotalRuns       int
	TotalCandidates int
	TotalSent       int
	TotalFailed     int
	SentToday       int
	LastSentAt      time.Time
}

// Open opens (creating if needed) the database at path and ensures the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; the run is sequential anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		profiles_found INTEGER DEFAULT 0,
		attempted INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS candidates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_url TEXT UNIQUE NOT NULL,
		name TEXT,
		headline TEXT,
		location TEXT,
		discovered_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS connection_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		profile_url TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		note TEXT,
		sent_at INTEGER NOT NULL,
		sent_day TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_connection_requests_profile ON connection_requests(profile_url);
	CREATE INDEX IF NOT EXISTS idx_connection_requests_day ON connection_requests(sent_day, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun records the start of a run and returns its id
func (s *Store) StartRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, s.now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final tally of a run
func (s *Store) FinishRun(ctx context.Context, id string, profilesFound, attempted, succeeded int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, profiles_found = ?, attempted = ?, succeeded = ?
		WHERE id = ?
	`, s.now().Unix(), profilesFound, attempted, succeeded, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no run found with id: %s", id)
	}
	return nil
}

// SaveCandidate upserts a discovered profile
func (s *Store) SaveCandidate(ctx context.Context, c Candidate) error {
	if c.DiscoveredAt.IsZero() {
		c.DiscoveredAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (profile_url, name, headline, location, discovered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(profile_url) DO UPDATE SET
			name = excluded.name,
			headline = excluded.headline,
			location = excluded.location
	`, c.ProfileURL, c.Name, c.Headline, c.Location, c.DiscoveredAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}
	return nil
}

// HasContacted reports whether a connection request was ever sent to profileURL
func (s *Store) HasContacted(ctx context.Context, profileURL string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connection_requests WHERE profile_url = ? AND status = ?`,
		profileURL, StatusSent,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check request history: %w", err)
	}
	return count > 0, nil
}

// RecordRequest records one dispatch attempt
func (s *Store) RecordRequest(ctx context.Context, req ConnectionRequest) error {
	if req.SentAt.IsZero() {
		req.SentAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connection_requests (run_id, profile_url, status, reason, note, sent_at, sent_day)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, req.RunID, req.ProfileURL, req.Status, req.Reason, req.Note,
		req.SentAt.Unix(), req.SentAt.Format(dayLayout))
	if err != nil {
		return fmt.Errorf("failed to record connection request: %w", err)
	}
	return nil
}

// RequestsSentToday returns the number of requests sent since local midnight
func (s *Store) RequestsSentToday(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connection_requests WHERE sent_day = ? AND status = ?`,
		s.now().Format(dayLayout), StatusSent,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get today's request count: %w", err)
	}
	return count, nil
}

// GetStats returns statistics about the ledger
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats

	queries := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&st.TotalRuns, `SELECT COUNT(*) FROM runs`, nil},
		{&st.TotalCandidates, `SELECT COUNT(*) FROM candidates`, nil},
		{&st.TotalSent, `SELECT COUNT(*) FROM connection_requests WHERE status = ?`, []any{StatusSent}},
		{&st.TotalFailed, `SELECT COUNT(*) FROM connection_requests WHERE status = ?`, []any{StatusFailed}},
		{&st.SentToday, `SELECT COUNT(*) FROM connection_requests WHERE status = ? AND sent_day = ?`,
			[]any{StatusSent, s.now().Format(dayLayout)}},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("failed to get stats: %w", err)
		}
	}

	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(sent_at) FROM connection_requests WHERE status = ?`, StatusSent,
	).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	if last.Valid {
		st.LastSentAt = time.Unix(last.Int64, 0)
	}

	return st, nil
}
