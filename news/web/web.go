// Package web fetches articles from configured URLs, extracting readable
// text with readability and falling back to goquery for metadata.
package web

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/newsgrade/models"
)

const fetchTimeout = 20 * time.Second

// Source fetches each configured URL once per run.
type Source struct {
	URLs     []string
	Category models.Category
	Client   *http.Client
	Logger   *log.Logger
}

// New builds a web source over the given URLs.
func New(urls []string, category models.Category, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.New(log.Writer(), "[NEWS] ", log.LstdFlags)
	}
	return &Source{
		URLs:     urls,
		Category: category,
		Client:   &http.Client{Timeout: fetchTimeout},
		Logger:   logger,
	}
}

func (s *Source) Name() string { return fmt.Sprintf("web:%d urls", len(s.URLs)) }

// Fetch downloads and extracts each URL. Individual failures are logged and
// skipped; one dead link must not starve the run.
func (s *Source) Fetch(ctx context.Context, limit int) ([]models.Article, error) {
	var out []models.Article
	for _, rawURL := range s.URLs {
		if limit > 0 && len(out) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		art, err := s.fetchOne(ctx, rawURL)
		if err != nil {
			s.Logger.Printf("skipping %s: %v", rawURL, err)
			continue
		}
		out = append(out, art)
	}
	return out, nil
}

func (s *Source) fetchOne(ctx context.Context, rawURL string) (models.Article, error) {
	parsed, err := nurl.Parse(rawURL)
	if err != nil {
		return models.Article{}, fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.Article{}, err
	}
	req.Header.Set("User-Agent", "newsgrade/1.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return models.Article{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Article{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	html, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.Article{}, err
	}

	return Extract(string(html), parsed, s.Category)
}

// Extract turns raw HTML into an article. Readability pulls the main text;
// goquery supplies the title and published time when readability leaves
// them blank.
func Extract(html string, u *nurl.URL, category models.Category) (models.Article, error) {
	art, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return models.Article{}, fmt.Errorf("extract: %w", err)
	}

	title := strings.TrimSpace(art.Title)
	body := strings.TrimSpace(art.TextContent)
	publishedAt := time.Now().UTC()
	if art.PublishedTime != nil {
		publishedAt = art.PublishedTime.UTC()
	}

	if doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html)); derr == nil {
		if title == "" {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		if art.PublishedTime == nil {
			if meta, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
				if t, perr := time.Parse(time.RFC3339, meta); perr == nil {
					publishedAt = t.UTC()
				}
			}
		}
	}

	if body == "" {
		return models.Article{}, fmt.Errorf("extract: no readable text in %s", u)
	}
	source := u.Hostname()
	return models.NewArticle(u.String(), title, body, source, publishedAt, category), nil
}
