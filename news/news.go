// Package news defines where articles come from. Sources feed the pipeline;
// the pipeline never cares whether an article came from the web, a file or a
// test fixture.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mohammad-safakhou/newsgrade/models"
)

// Source produces candidate articles for one run.
type Source interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]models.Article, error)
}

// FileSource loads articles from a JSON file: an array of objects with url,
// title, body, source, category and published_at fields. Used for replays
// and manual runs.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

type fileArticle struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	PublishedAt string `json:"published_at"`
}

// Fetch reads and validates the file. Articles without a body are skipped:
// there is nothing to score.
func (s FileSource) Fetch(ctx context.Context, limit int) ([]models.Article, error) {
	payload, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("news: read %s: %w", s.Path, err)
	}
	var raw []fileArticle
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("news: decode %s: %w", s.Path, err)
	}

	out := make([]models.Article, 0, len(raw))
	for _, fa := range raw {
		if fa.Body == "" {
			continue
		}
		category := models.Category(fa.Category)
		if category != models.CategoryCrypto && category != models.CategoryMacro {
			category = models.CategoryCrypto
		}
		art := models.NewArticle(fa.URL, fa.Title, fa.Body, fa.Source, parseTime(fa.PublishedAt), category)
		out = append(out, art)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// Collect drains sources in order until the target count is reached. A
// failing source is logged by the caller and does not abort collection.
func Collect(ctx context.Context, target int, sources ...Source) ([]models.Article, []error) {
	var out []models.Article
	var errs []error
	for _, src := range sources {
		if target > 0 && len(out) >= target {
			break
		}
		remaining := 0
		if target > 0 {
			remaining = target - len(out)
		}
		articles, err := src.Fetch(ctx, remaining)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		out = append(out, articles...)
	}
	if target > 0 && len(out) > target {
		out = out[:target]
	}
	return out, errs
}
