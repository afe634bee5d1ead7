// Package index maintains a bleve full-text index over scored articles so
// operators can search past runs by title, source or verdict.
package index

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"
)

// Document is the indexed projection of one article record.
type Document struct {
	RunID       string    `json:"run_id"`
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	FinalScore  float64   `json:"final_score"`
	Quality     string    `json:"quality"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Hit is one search result.
type Hit struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Fields map[string]interface{} `json:"fields"`
}

// Index wraps the bleve index handle.
type Index struct {
	idx    bleve.Index
	logger *log.Logger
}

func indexMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("source", text)

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("run_id", exact)
	doc.AddFieldMappingsAt("article_id", exact)
	doc.AddFieldMappingsAt("category", exact)
	doc.AddFieldMappingsAt("status", exact)
	doc.AddFieldMappingsAt("quality", exact)

	doc.AddFieldMappingsAt("final_score", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("processed_at", bleve.NewDateTimeFieldMapping())

	m.DefaultMapping = doc
	return m
}

// Open opens the index at path, creating it on first use.
func Open(path string, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	}
	idx, err := bleve.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("index: open %s: %w", path, err)
		}
		idx, err = bleve.New(path, indexMapping())
		if err != nil {
			return nil, fmt.Errorf("index: create %s: %w", path, err)
		}
	}
	return &Index{idx: idx, logger: logger}, nil
}

// OpenMemOnly builds an in-memory index; tests use this.
func OpenMemOnly(logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	}
	idx, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{idx: idx, logger: logger}, nil
}

// Close releases the index.
func (i *Index) Close() error { return i.idx.Close() }

// IndexDocuments adds documents in one batch, keyed run_id/article_id.
func (i *Index) IndexDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := i.idx.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(doc.RunID+"/"+doc.ArticleID, doc); err != nil {
			return fmt.Errorf("index: batch %s: %w", doc.ArticleID, err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("index: commit batch: %w", err)
	}
	i.logger.Printf("indexed %d documents", len(docs))
	return nil
}

// Search runs a query-string query and returns stored fields for each hit.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 25
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	req.Fields = []string{"*"}
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index: search %q: %w", query, err)
	}
	out := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, Hit{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}
