package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/internal/archive"
	"github.com/mohammad-safakhou/newsgrade/internal/index"
	"github.com/mohammad-safakhou/newsgrade/internal/pipeline"
	"github.com/mohammad-safakhou/newsgrade/internal/scoring"
	"github.com/mohammad-safakhou/newsgrade/internal/store"
	"github.com/mohammad-safakhou/newsgrade/models"
)

type fakeHistory struct {
	runs map[string]*pipeline.Run
}

func (f *fakeHistory) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	var out []store.RunSummary
	for _, run := range f.runs {
		out = append(out, store.RunSummary{ID: run.ID, Status: run.Status, Stats: run.Stats})
	}
	return out, nil
}

func (f *fakeHistory) GetRun(ctx context.Context, id string) (*pipeline.Run, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, models.ErrRunNotFound
	}
	return run, nil
}

type fakeSearcher struct {
	hits []index.Hit
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]index.Hit, error) {
	return f.hits, nil
}

func testServer(t *testing.T, history RunHistory, searcher Searcher) *Server {
	t.Helper()
	matrix, err := scoring.NewMatrix(2.0)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	cfg := &config.Config{}
	cfg.Server.Addr = ":0"
	arch := archive.New(t.TempDir(), config.ArchiveConfig{HistoricalDir: t.TempDir()}, log.New(io.Discard, "", 0))
	return New(cfg, history, arch, searcher, matrix, log.New(io.Discard, "", 0))
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := doRequest(t, s, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetRun(t *testing.T) {
	run := &pipeline.Run{
		ID:        "run-1",
		Status:    pipeline.RunCompleted,
		StartedAt: time.Now().UTC(),
		Stats:     pipeline.RunStats{Total: 2, Scored: 2},
	}
	s := testServer(t, &fakeHistory{runs: map[string]*pipeline.Run{"run-1": run}}, nil)

	rec := doRequest(t, s, "/api/runs/run-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var got pipeline.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "run-1" || got.Stats.Scored != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := testServer(t, &fakeHistory{runs: map[string]*pipeline.Run{}}, nil)
	rec := doRequest(t, s, "/api/runs/missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	run := &pipeline.Run{ID: "run-1", Status: pipeline.RunCompleted}
	s := testServer(t, &fakeHistory{runs: map[string]*pipeline.Run{"run-1": run}}, nil)

	rec := doRequest(t, s, "/api/runs?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Runs []store.RunSummary `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != 1 || body.Runs[0].ID != "run-1" {
		t.Fatalf("got %+v", body.Runs)
	}
}

func TestRunsUnavailableWithoutStore(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := doRequest(t, s, "/api/runs")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rec.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := testServer(t, nil, &fakeSearcher{})
	rec := doRequest(t, s, "/api/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	searcher := &fakeSearcher{hits: []index.Hit{{ID: "run-1/a1", Score: 1.2}}}
	s := testServer(t, nil, searcher)

	rec := doRequest(t, s, "/api/search?q=bitcoin")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Hits []index.Hit `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Hits) != 1 || body.Hits[0].ID != "run-1/a1" {
		t.Fatalf("got %+v", body.Hits)
	}
}

func TestListConfigurations(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := doRequest(t, s, "/api/configurations")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Configurations []scoring.Configuration `json:"configurations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Configurations) != 6 {
		t.Fatalf("got %d configurations, want 6", len(body.Configurations))
	}
}
