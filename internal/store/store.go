// Package store persists run history in Postgres. The full run payload is
// stored as JSONB next to a few indexed columns for listing.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/internal/pipeline"
	"github.com/mohammad-safakhou/newsgrade/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// RunSummary is the listing row: the run without its article payload.
type RunSummary struct {
	ID            string             `json:"id"`
	Status        pipeline.RunStatus `json:"status"`
	Configuration string             `json:"configuration"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
	Stats         pipeline.RunStats  `json:"stats"`
}

// Store wraps the Postgres connection pool.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// New opens and pings the database.
func New(ctx context.Context, cfg config.PostgresConfig, logger *log.Logger) (*Store, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[STORE] ", log.LstdFlags)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing handle; tests use this with sqlmock.
func NewWithDB(db *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "[STORE] ", log.LstdFlags)
	}
	return &Store{db: db, logger: logger}
}

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun upserts one completed run.
func (s *Store) SaveRun(ctx context.Context, run *pipeline.Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("runs").
		Columns("id", "status", "configuration", "started_at", "finished_at", "stats", "payload").
		Values(run.ID, string(run.Status), run.Configuration, run.StartedAt, run.FinishedAt, stats, payload).
		Suffix("ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, finished_at = EXCLUDED.finished_at, stats = EXCLUDED.stats, payload = EXCLUDED.payload").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads one run with its full payload.
func (s *Store) GetRun(ctx context.Context, id string) (*pipeline.Run, error) {
	query, args, err := psql.Select("payload").From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRunNotFound
		}
		return nil, fmt.Errorf("store: get run %s: %w", id, err)
	}
	var run pipeline.Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("store: decode run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := psql.Select("id", "status", "configuration", "started_at", "finished_at", "stats").
		From("runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var summary RunSummary
		var stats []byte
		if err := rows.Scan(&summary.ID, &summary.Status, &summary.Configuration,
			&summary.StartedAt, &summary.FinishedAt, &stats); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stats, &summary.Stats); err != nil {
			return nil, fmt.Errorf("store: decode stats for %s: %w", summary.ID, err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// DeleteRunsBefore removes runs older than the cutoff, mirroring the archive
// retention policy on the database side.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete("runs").Where(sq.Lt{"started_at": cutoff}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: delete runs: %w", err)
	}
	return res.RowsAffected()
}
