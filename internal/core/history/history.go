// Package history records transform runs in the SQL store.
//
// A run captures who asked (origin), what was asked (digests of the rules and
// source documents), and how it went (status, error text, entry count,
// output size, duration). Documents themselves are never stored.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/thomson/internal/core/db"
	"github.com/solatis/thomson/internal/types"
)

// Origin names the surface that executed a run.
type Origin string

const (
	OriginCLI  Origin = "cli"
	OriginGRPC Origin = "grpc"
	OriginHTTP Origin = "http"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

// Run is one recorded transform.
type Run struct {
	ID           types.RunID `db:"run_id" json:"run_id"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	Origin       Origin      `db:"origin" json:"origin"`
	Status       Status      `db:"status" json:"status"`
	Error        string      `db:"error" json:"error,omitempty"`
	RulesDigest  string      `db:"rules_digest" json:"rules_digest"`
	SourceDigest string      `db:"source_digest" json:"source_digest"`
	Entries      int64       `db:"entries" json:"entries"`
	OutputBytes  int64       `db:"output_bytes" json:"output_bytes"`
	DurationMs   int64       `db:"duration_ms" json:"duration_ms"`
}

// ListOptions filters List. Zero value lists the latest DefaultListLimit runs.
type ListOptions struct {
	Limit  int
	Status Status
}

// Store persists runs through the named queries in internal/core/db.
type Store struct {
	queries *db.Queries
}

// NewStore loads the named queries against an already migrated database.
func NewStore(conn *sqlx.DB) (*Store, error) {
	q, err := db.LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	return &Store{queries: q}, nil
}

// Record inserts run, assigning an ID and creation time when unset.
// Returns the stored run.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = types.NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()
	if run.Status == "" {
		run.Status = StatusOK
	}

	_, err := s.queries.Exec(ctx, "insert-run",
		string(run.ID), run.CreatedAt, string(run.Origin), string(run.Status), run.Error,
		run.RulesDigest, run.SourceDigest, run.Entries, run.OutputBytes, run.DurationMs,
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return run, nil
}

// Get returns the run with the given ID, or types.ErrRunNotFound.
func (s *Store) Get(ctx context.Context, id types.RunID) (*Run, error) {
	var run Run
	if err := s.queries.Get(ctx, "get-run", &run, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", types.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var runs []Run
	var err error
	if opts.Status != "" {
		err = s.queries.Select(ctx, "list-runs-by-status", &runs, string(opts.Status), limit)
	} else {
		err = s.queries.Select(ctx, "list-runs", &runs, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs created before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.queries.Exec(ctx, "delete-runs-before", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Digest fingerprints a document for the run record.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
