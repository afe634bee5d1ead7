package index

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newsgrade/internal/pipeline"
	"github.com/mohammad-safakhou/newsgrade/internal/scoring"
	"github.com/mohammad-safakhou/newsgrade/models"
)

func memIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenMemOnly(log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("mem index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestOpenCreatesAndReopensOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.bleve")

	idx, err := Open(path, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	docs := []Document{{RunID: "run-1", ArticleID: "a1", Title: "story one", Status: "scored"}}
	if err := idx.IndexDocuments(context.Background(), docs); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = Open(path, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	count, err := idx.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("got %d documents after reopen, want 1", count)
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx := memIndex(t)
	docs := []Document{
		{
			RunID: "run-1", ArticleID: "a1",
			Title: "Bitcoin ETF approved by regulators", Source: "coindesk",
			Category: "crypto", Status: "scored", FinalScore: 8.2, Quality: "high_quality",
			ProcessedAt: time.Now().UTC(),
		},
		{
			RunID: "run-1", ArticleID: "a2",
			Title: "Fed holds interest rates steady", Source: "reuters",
			Category: "macro", Status: "scored", FinalScore: 6.1, Quality: "standard",
			ProcessedAt: time.Now().UTC(),
		},
	}
	if err := idx.IndexDocuments(context.Background(), docs); err != nil {
		t.Fatalf("index: %v", err)
	}

	count, err := idx.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("got %d documents, want 2", count)
	}

	hits, err := idx.Search(context.Background(), "bitcoin", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits for bitcoin, want 1", len(hits))
	}
	if hits[0].ID != "run-1/a1" {
		t.Fatalf("got hit %s, want run-1/a1", hits[0].ID)
	}
	if hits[0].Fields["source"] != "coindesk" {
		t.Fatalf("hit fields %v missing source", hits[0].Fields)
	}
}

func TestSearchByKeywordField(t *testing.T) {
	idx := memIndex(t)
	docs := []Document{
		{RunID: "run-1", ArticleID: "a1", Title: "story one", Status: "scored", Quality: "high_quality"},
		{RunID: "run-1", ArticleID: "a2", Title: "story two", Status: "duplicate"},
	}
	if err := idx.IndexDocuments(context.Background(), docs); err != nil {
		t.Fatalf("index: %v", err)
	}

	hits, err := idx.Search(context.Background(), "status:duplicate", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "run-1/a2" {
		t.Fatalf("got %v, want only the duplicate record", hits)
	}
}

func TestIndexRunProjection(t *testing.T) {
	idx := memIndex(t)
	run := &pipeline.Run{
		ID: "run-9",
		Records: []pipeline.ArticleRecord{
			{
				Article: models.Article{ID: "a1", Title: "Ethereum upgrade ships", Source: "theblock", Category: models.CategoryCrypto},
				Status:  pipeline.RecordScored,
				Consolidation: &scoring.Consolidation{
					FinalScore: 7.4,
					Category:   scoring.QualityHigh,
				},
				ProcessedAt: time.Now().UTC(),
			},
			{
				Article: models.Article{ID: "a2", Title: "Ethereum upgrade ships", Source: "mirror-site", Category: models.CategoryCrypto},
				Status:  pipeline.RecordDuplicate,
			},
		},
	}
	if err := idx.IndexRun(context.Background(), run); err != nil {
		t.Fatalf("index run: %v", err)
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("got %d documents, want both records indexed", count)
	}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	idx := memIndex(t)
	if err := idx.IndexDocuments(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}
