package index

import (
	"context"

	"github.com/mohammad-safakhou/newsgrade/internal/pipeline"
)

// IndexRun projects a finished run's records into the index. Duplicate and
// failed records are included too: "what happened to article X" is a search,
// not a database query.
func (i *Index) IndexRun(ctx context.Context, run *pipeline.Run) error {
	docs := make([]Document, 0, len(run.Records))
	for _, rec := range run.Records {
		doc := Document{
			RunID:       run.ID,
			ArticleID:   rec.Article.ID,
			Title:       rec.Article.Title,
			Source:      rec.Article.Source,
			Category:    string(rec.Article.Category),
			Status:      string(rec.Status),
			ProcessedAt: rec.ProcessedAt,
		}
		if rec.Consolidation != nil {
			doc.FinalScore = rec.Consolidation.FinalScore
			doc.Quality = string(rec.Consolidation.Category)
		}
		docs = append(docs, doc)
	}
	return i.IndexDocuments(ctx, docs)
}
