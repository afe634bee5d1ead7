package pipeline

import (
	"time"

	"github.com/mohammad-safakhou/newsgrade/internal/agents"
	"github.com/mohammad-safakhou/newsgrade/internal/dedup"
	"github.com/mohammad-safakhou/newsgrade/internal/scoring"
	"github.com/mohammad-safakhou/newsgrade/models"
)

// RecordStatus is the terminal disposition of one article in a run.
type RecordStatus string

const (
	RecordScored    RecordStatus = "scored"
	RecordDuplicate RecordStatus = "duplicate"
	RecordRejected  RecordStatus = "rejected"
	RecordFailed    RecordStatus = "failed"
)

// ArticleRecord is the complete, immutable result for one article: its gate
// verdict, every agent result, and the weighted consolidation when scoring
// completed.
type ArticleRecord struct {
	Article       models.Article                `json:"article"`
	Status        RecordStatus                  `json:"status"`
	Verdict       dedup.Verdict                 `json:"dedup_verdict"`
	ChainState    agents.State                  `json:"chain_state,omitempty"`
	Results       map[agents.Name]agents.Result `json:"agent_results,omitempty"`
	RejectReason  string                        `json:"reject_reason,omitempty"`
	Consolidation *scoring.Consolidation        `json:"consolidation,omitempty"`
	Error         string                        `json:"error,omitempty"`
	Elapsed       time.Duration                 `json:"elapsed_ns"`
	ProcessedAt   time.Time                     `json:"processed_at"`
}

// RunStats aggregates one run for the summary report and the run store.
type RunStats struct {
	Total      int     `json:"total"`
	Scored     int     `json:"scored"`
	Duplicates int     `json:"duplicates"`
	Rejected   int     `json:"rejected"`
	Failed     int     `json:"failed"`
	Fallbacks  int     `json:"fallbacks"`
	MeanFinal  float64 `json:"mean_final_score"`
	MaxFinal   float64 `json:"max_final_score"`
	MinFinal   float64 `json:"min_final_score"`
}

// RunStatus is the run's overall outcome. A run with zero admitted articles
// is still a completed run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one full pipeline execution. Records preserve input order
// regardless of completion order.
type Run struct {
	ID            string          `json:"id"`
	Status        RunStatus       `json:"status"`
	Configuration string          `json:"configuration"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Records       []ArticleRecord `json:"records"`
	Stats         RunStats        `json:"stats"`
}
