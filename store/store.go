// Package store provides the SQLite archive of exported trends snapshots.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robertmeta/trends-cli/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// ListOptions specifies how to list snapshots.
type ListOptions struct {
	Limit     int
	Offset    int
	Geo       string
	SinceTime *int64 // Unix timestamp
}

// New creates a new Store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}

	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createSchema creates the database tables and indexes.
func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		filename TEXT NOT NULL,
		geo TEXT,
		hl TEXT,
		query TEXT,
		fetched_at INTEGER NOT NULL,
		total_trends INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at DESC);
	CREATE INDEX IF NOT EXISTS idx_snapshots_geo ON snapshots(geo);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot archives a snapshot and assigns its ID if it has none.
// The stored payload is the snapshot's exported JSON.
func (s *Store) SaveSnapshot(snap *model.Snapshot) error {
	if snap.Result == nil {
		return errors.New("snapshot has no result")
	}

	payload := snap.Data
	if len(payload) == 0 {
		var err error
		payload, err = json.MarshalIndent(snap.Result, "", "  ")
		if err != nil {
			return &model.SerializationError{Err: err}
		}
		snap.Data = payload
	}

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}

	_, err := s.db.Exec(
		`INSERT INTO snapshots (id, name, filename, geo, hl, query, fetched_at, total_trends, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.Filename, snap.Geo, snap.Language, snap.Query,
		snap.FetchedAt.Unix(), snap.Result.TotalCount, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot, including its result, by ID.
func (s *Store) GetSnapshot(id string) (*model.Snapshot, error) {
	snap := &model.Snapshot{}
	var fetchedUnix int64
	var payload string

	err := s.db.QueryRow(
		"SELECT id, name, filename, geo, hl, query, fetched_at, payload FROM snapshots WHERE id = ?",
		id,
	).Scan(&snap.ID, &snap.Name, &snap.Filename, &snap.Geo, &snap.Language, &snap.Query, &fetchedUnix, &payload)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var result model.TrendsResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}

	snap.FetchedAt = unixToTime(fetchedUnix)
	snap.Result = &result
	snap.Data = []byte(payload)
	return snap, nil
}

// SnapshotSummary is a listing row without the payload.
type SnapshotSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Filename    string    `json:"filename"`
	Geo         string    `json:"geo,omitempty"`
	Language    string    `json:"hl,omitempty"`
	Query       string    `json:"query"`
	FetchedAt   time.Time `json:"fetched_at"`
	TotalTrends int       `json:"total_trends"`
}

// ListSnapshots lists archived snapshots, newest first.
func (s *Store) ListSnapshots(opts ListOptions) ([]*SnapshotSummary, error) {
	query := "SELECT id, name, filename, geo, hl, query, fetched_at, total_trends FROM snapshots WHERE 1=1"
	args := []interface{}{}

	if opts.Geo != "" {
		query += " AND geo = ?"
		args = append(args, opts.Geo)
	}

	if opts.SinceTime != nil {
		query += " AND fetched_at >= ?"
		args = append(args, *opts.SinceTime)
	}

	query += " ORDER BY fetched_at DESC, rowid DESC"

	// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded.
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*SnapshotSummary
	for rows.Next() {
		sum := &SnapshotSummary{}
		var fetchedUnix int64

		err := rows.Scan(&sum.ID, &sum.Name, &sum.Filename, &sum.Geo, &sum.Language, &sum.Query, &fetchedUnix, &sum.TotalTrends)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		sum.FetchedAt = unixToTime(fetchedUnix)
		snapshots = append(snapshots, sum)
	}

	return snapshots, rows.Err()
}

// DeleteSnapshot deletes a snapshot by ID.
func (s *Store) DeleteSnapshot(id string) error {
	res, err := s.db.Exec("DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Helper to convert Unix timestamp to time.Time
func unixToTime(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}
