package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrRunNotFound is returned when a pipeline run is not found
var ErrRunNotFound = errors.New("run not found")

// Article is one ingested content item. It is owned by a single pipeline run
// while in flight and becomes immutable once a final record is produced.
type Article struct {
	ID          string        `json:"id"`
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	Source      string        `json:"source"`
	PublishedAt time.Time     `json:"published_at"`
	Category    Category      `json:"category"`
	Status      ArticleStatus `json:"status"`
}

type Category string

const (
	CategoryCrypto Category = "crypto"
	CategoryMacro  Category = "macro"
)

type ArticleStatus string

const (
	ArticleStatusPending  ArticleStatus = "pending"
	ArticleStatusScored   ArticleStatus = "scored"
	ArticleStatusRejected ArticleStatus = "rejected"
	ArticleStatusArchived ArticleStatus = "archived"
)

var (
	spaceRE = regexp.MustCompile(`\s+`)
	punctRE = regexp.MustCompile(`[^\w\s]`)
)

// NormalizeText lowercases, strips punctuation and collapses whitespace so
// that trivially reformatted copies of the same text hash identically.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctRE.ReplaceAllString(s, "")
	return spaceRE.ReplaceAllString(s, " ")
}

// ContentHash returns the SHA-256 hex digest of the normalized body text.
// It doubles as the article ID.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(NormalizeText(body)))
	return hex.EncodeToString(sum[:])
}

// LeadParagraph returns the first non-empty paragraph of the body, capped at
// 200 runes, for near-duplicate comparison.
func LeadParagraph(body string) string {
	for _, p := range strings.Split(body, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		runes := []rune(p)
		if len(runes) > 200 {
			return string(runes[:200])
		}
		return p
	}
	return ""
}

// NewArticle builds a pending article with its content-hash ID assigned.
func NewArticle(url, title, body, source string, publishedAt time.Time, category Category) Article {
	return Article{
		ID:          ContentHash(body),
		URL:         url,
		Title:       title,
		Body:        body,
		Source:      source,
		PublishedAt: publishedAt,
		Category:    category,
		Status:      ArticleStatusPending,
	}
}
