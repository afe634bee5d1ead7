// Package dedup rejects articles already processed within the dedup window,
// by exact content hash or by title/lead similarity.
package dedup

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/models"
)

// Match classifies the gate's verdict for one article.
type Match string

const (
	MatchNone    Match = "none"    // unseen, admitted and recorded
	MatchExact   Match = "exact"   // identical content hash inside the window
	MatchSimilar Match = "similar" // near-duplicate by title/lead similarity
)

// Title similarity dominates: two rewrites of the same story share a headline
// far more reliably than a lead paragraph.
const (
	titleWeight = 0.6
	leadWeight  = 0.4
)

// Entry is one remembered article inside the dedup window.
type Entry struct {
	Hash   string    `json:"hash"`
	Title  string    `json:"title"`
	Lead   string    `json:"lead"`
	SeenAt time.Time `json:"seen_at"`
}

// Store persists dedup entries for the window duration. AddIfAbsent must be
// atomic: concurrent calls for the same hash admit exactly one.
type Store interface {
	AddIfAbsent(ctx context.Context, e Entry) (bool, error)
	Candidates(ctx context.Context) ([]Entry, error)
}

// Verdict is the gate's full answer for one article.
type Verdict struct {
	Match       Match   `json:"match"`
	MatchedHash string  `json:"matched_hash,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
}

// Gate is the duplicate filter in front of the pipeline.
type Gate struct {
	store     Store
	threshold float64
	logger    *log.Logger
}

// New builds a gate over the given store.
func New(cfg config.DedupConfig, store Store, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.New(log.Writer(), "[DEDUP] ", log.LstdFlags)
	}
	threshold := cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = 0.85
	}
	return &Gate{store: store, threshold: threshold, logger: logger}
}

// Check reports how the article would be classified without recording it.
func (g *Gate) Check(ctx context.Context, art *models.Article) (Verdict, error) {
	candidates, err := g.store.Candidates(ctx)
	if err != nil {
		return Verdict{}, err
	}
	for _, cand := range candidates {
		if cand.Hash == art.ID {
			return Verdict{Match: MatchExact, MatchedHash: cand.Hash, Similarity: 1.0}, nil
		}
		sim := similarity(art.Title, models.LeadParagraph(art.Body), cand.Title, cand.Lead)
		if sim >= g.threshold {
			return Verdict{Match: MatchSimilar, MatchedHash: cand.Hash, Similarity: sim}, nil
		}
	}
	return Verdict{Match: MatchNone}, nil
}

// CheckAndAdd admits an unseen article and records it in one step. Calling it
// twice with the same article returns MatchNone then MatchExact. Similar
// matches are not recorded: the already-stored original keeps representing
// the story.
func (g *Gate) CheckAndAdd(ctx context.Context, art *models.Article) (Verdict, error) {
	candidates, err := g.store.Candidates(ctx)
	if err != nil {
		return Verdict{}, err
	}
	for _, cand := range candidates {
		if cand.Hash == art.ID {
			continue // exact match is decided atomically below
		}
		sim := similarity(art.Title, models.LeadParagraph(art.Body), cand.Title, cand.Lead)
		if sim >= g.threshold {
			g.logger.Printf("similar match %.2f against %s", sim, cand.Hash)
			return Verdict{Match: MatchSimilar, MatchedHash: cand.Hash, Similarity: sim}, nil
		}
	}

	added, err := g.store.AddIfAbsent(ctx, Entry{
		Hash:   art.ID,
		Title:  art.Title,
		Lead:   models.LeadParagraph(art.Body),
		SeenAt: time.Now().UTC(),
	})
	if err != nil {
		return Verdict{}, err
	}
	if !added {
		return Verdict{Match: MatchExact, MatchedHash: art.ID, Similarity: 1.0}, nil
	}
	return Verdict{Match: MatchNone}, nil
}

// similarity is the weighted Jaccard overlap of normalized title and lead
// token sets.
func similarity(titleA, leadA, titleB, leadB string) float64 {
	return titleWeight*jaccard(tokens(titleA), tokens(titleB)) +
		leadWeight*jaccard(tokens(leadA), tokens(leadB))
}

func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(models.NormalizeText(s)) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var inter int
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
