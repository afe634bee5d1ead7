package web

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	nurl "net/url"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/newsgrade/models"
)

const sampleHTML = `<!doctype html>
<html>
<head>
  <title>Bitcoin ETF approved | Example News</title>
  <meta property="article:published_time" content="2026-03-01T10:00:00Z">
</head>
<body>
  <nav>Home | Markets | About</nav>
  <article>
    <h1>Bitcoin ETF approved</h1>
    <p>The SEC approved a spot bitcoin exchange traded fund today, ending a
    decade of rejected applications from asset managers across the industry.</p>
    <p>Analysts said the decision opens the door to institutional inflows and
    marks a turning point for regulated crypto products in the United States.</p>
    <p>The first funds are expected to begin trading within days, according to
    filings reviewed this week by multiple outlets covering the decision.</p>
  </article>
  <footer>Copyright Example News</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	u, _ := nurl.Parse("https://news.example.com/etf-approved")
	art, err := Extract(sampleHTML, u, models.CategoryCrypto)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(art.Title, "Bitcoin ETF approved") {
		t.Fatalf("title %q", art.Title)
	}
	if !strings.Contains(art.Body, "spot bitcoin exchange traded fund") {
		t.Fatalf("body missing article text: %q", art.Body)
	}
	if strings.Contains(art.Body, "Copyright Example News") {
		t.Fatalf("body kept boilerplate: %q", art.Body)
	}
	if art.Source != "news.example.com" {
		t.Fatalf("source %q", art.Source)
	}
	if art.Category != models.CategoryCrypto || art.Status != models.ArticleStatusPending {
		t.Fatalf("article %+v", art)
	}
	if art.ID != models.ContentHash(art.Body) {
		t.Fatal("article ID must be the content hash")
	}
}

func TestExtractRejectsEmptyPage(t *testing.T) {
	u, _ := nurl.Parse("https://news.example.com/empty")
	if _, err := Extract("<html><body></body></html>", u, models.CategoryCrypto); err == nil {
		t.Fatal("want error for page without readable text")
	}
}

func TestFetchSkipsDeadLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			io.WriteString(w, sampleHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := New([]string{srv.URL + "/missing", srv.URL + "/ok"}, models.CategoryCrypto, log.New(io.Discard, "", 0))
	articles, err := src.Fetch(context.Background(), 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1 (dead link skipped)", len(articles))
	}
}

func TestFetchHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleHTML)
	}))
	defer srv.Close()

	src := New([]string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}, models.CategoryMacro, log.New(io.Discard, "", 0))
	articles, err := src.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
}
