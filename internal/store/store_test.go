package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/newsgrade/internal/pipeline"
	"github.com/mohammad-safakhou/newsgrade/models"
)

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db, log.New(io.Discard, "", 0)), mock
}

func sampleRun() *pipeline.Run {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &pipeline.Run{
		ID:            "7b0f2a9e-1111-4222-8333-944455566677",
		Status:        pipeline.RunCompleted,
		Configuration: "news_optimized",
		StartedAt:     started,
		FinishedAt:    started.Add(5 * time.Minute),
		Stats:         pipeline.RunStats{Total: 3, Scored: 2, Duplicates: 1},
	}
}

func TestSaveRun(t *testing.T) {
	s, mock := mockStore(t)
	run := sampleRun()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
		WithArgs(run.ID, string(run.Status), run.Configuration, run.StartedAt, run.FinishedAt,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetRun(t *testing.T) {
	s, mock := mockStore(t)
	run := sampleRun()
	payload, err := json.Marshal(run)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM runs WHERE id = $1")).
		WithArgs(run.ID).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.ID != run.ID || got.Stats.Scored != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s, mock := mockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM runs")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, models.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s, mock := mockStore(t)
	run := sampleRun()
	stats, _ := json.Marshal(run.Stats)

	rows := sqlmock.NewRows([]string{"id", "status", "configuration", "started_at", "finished_at", "stats"}).
		AddRow(run.ID, string(run.Status), run.Configuration, run.StartedAt, run.FinishedAt, stats)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, configuration, started_at, finished_at, stats FROM runs ORDER BY started_at DESC LIMIT 10")).
		WillReturnRows(rows)

	got, err := s.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(got) != 1 || got[0].ID != run.ID || got[0].Stats.Total != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestDeleteRunsBefore(t *testing.T) {
	s, mock := mockStore(t)
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM runs WHERE started_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.DeleteRunsBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 4 {
		t.Fatalf("deleted %d, want 4", n)
	}
}
