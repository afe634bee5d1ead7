package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/internal/agents"
	"github.com/mohammad-safakhou/newsgrade/internal/archive"
	"github.com/mohammad-safakhou/newsgrade/internal/dedup"
	"github.com/mohammad-safakhou/newsgrade/internal/scoring"
	"github.com/mohammad-safakhou/newsgrade/internal/telemetry"
	"github.com/mohammad-safakhou/newsgrade/models"
)

// chainRunner lets tests substitute a scripted chain.
type chainRunner interface {
	Run(ctx context.Context, content string) agents.Outcome
}

// duplicateGate lets tests substitute a scripted gate.
type duplicateGate interface {
	CheckAndAdd(ctx context.Context, art *models.Article) (dedup.Verdict, error)
}

// RunSink persists completed runs; wired to the Postgres store in production.
type RunSink interface {
	SaveRun(ctx context.Context, run *Run) error
}

// RunIndexer makes completed runs searchable; wired to the bleve index.
type RunIndexer interface {
	IndexRun(ctx context.Context, run *Run) error
}

// Orchestrator drives one full pipeline run: archive hand-off, duplicate
// gate, bounded agent fan-out, weighted consolidation and export.
type Orchestrator struct {
	cfg      *config.Config
	gate     duplicateGate
	chain    chainRunner
	matrix   *scoring.Matrix
	archiver *archive.Archiver
	metrics  *telemetry.Metrics
	sink     RunSink
	indexer  RunIndexer
	logger   *log.Logger
}

// New assembles an orchestrator. sink and indexer may be nil; the run is
// then exported to disk only.
func New(cfg *config.Config, gate duplicateGate, chain chainRunner, matrix *scoring.Matrix,
	archiver *archive.Archiver, metrics *telemetry.Metrics, sink RunSink, indexer RunIndexer,
	logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = telemetry.NewLogger("PIPELINE")
	}
	return &Orchestrator{
		cfg:      cfg,
		gate:     gate,
		chain:    chain,
		matrix:   matrix,
		archiver: archiver,
		metrics:  metrics,
		sink:     sink,
		indexer:  indexer,
		logger:   logger,
	}
}

// Execute runs the full pipeline over the given articles. Records come back
// in input order regardless of which goroutine finished first. A run over
// zero articles is valid and still produces exports and archives.
func (o *Orchestrator) Execute(ctx context.Context, articles []models.Article) (*Run, error) {
	run := &Run{
		ID:            uuid.NewString(),
		Status:        RunCompleted,
		Configuration: o.selectConfiguration().Name,
		StartedAt:     time.Now().UTC(),
		Records:       make([]ArticleRecord, len(articles)),
	}
	o.logger.Printf("run %s starting over %d articles", run.ID, len(articles))

	if err := o.archiver.Begin(run.ID); err != nil {
		return nil, fmt.Errorf("pre-archive: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent())
	for i := range articles {
		i := i
		g.Go(func() error {
			run.Records[i] = o.processArticle(gctx, articles[i])
			// Per-article failures stay in the record; only a dying
			// context fails the run as a whole.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		run.Status = RunFailed
		o.logger.Printf("run %s aborted: %v", run.ID, err)
	}

	run.FinishedAt = time.Now().UTC()
	run.Stats = aggregate(run.Records)
	if o.metrics != nil {
		o.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
		o.metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}

	if err := o.export(run); err != nil {
		return run, fmt.Errorf("export: %w", err)
	}
	if err := o.archiver.Finish(run.ID); err != nil {
		return run, fmt.Errorf("post-archive: %w", err)
	}

	if o.sink != nil {
		if err := o.sink.SaveRun(ctx, run); err != nil {
			o.logger.Printf("run %s: persisting failed: %v", run.ID, err)
		}
	}
	if o.indexer != nil {
		if err := o.indexer.IndexRun(ctx, run); err != nil {
			o.logger.Printf("run %s: indexing failed: %v", run.ID, err)
		}
	}

	o.logger.Printf("run %s finished: %d scored, %d duplicates, %d rejected, %d failed",
		run.ID, run.Stats.Scored, run.Stats.Duplicates, run.Stats.Rejected, run.Stats.Failed)
	return run, nil
}

func (o *Orchestrator) maxConcurrent() int {
	if o.cfg.Pipeline.MaxConcurrent > 0 {
		return o.cfg.Pipeline.MaxConcurrent
	}
	return 4
}

// processArticle takes one article through gate, chain and consolidation.
func (o *Orchestrator) processArticle(ctx context.Context, art models.Article) ArticleRecord {
	start := time.Now()
	rec := ArticleRecord{Article: art, ProcessedAt: start.UTC()}

	verdict, err := o.gate.CheckAndAdd(ctx, &art)
	if err != nil {
		rec.Status = RecordFailed
		rec.Error = err.Error()
		rec.Elapsed = time.Since(start)
		return rec
	}
	rec.Verdict = verdict
	if verdict.Match != dedup.MatchNone {
		rec.Status = RecordDuplicate
		rec.Article.Status = models.ArticleStatusRejected
		rec.Elapsed = time.Since(start)
		o.countDuplicate(verdict)
		return rec
	}

	outcome := o.chain.Run(ctx, art.Title+"\n\n"+art.Body)
	rec.ChainState = outcome.State
	rec.Results = outcome.Results
	rec.RejectReason = outcome.RejectReason
	o.countAgentResults(outcome)

	switch outcome.State {
	case agents.StateCompleted:
		cons, err := o.consolidate(outcome)
		if err != nil {
			rec.Status = RecordFailed
			rec.Error = err.Error()
			break
		}
		rec.Consolidation = &cons
		if cons.Category == scoring.QualityReject {
			rec.Status = RecordRejected
			rec.Article.Status = models.ArticleStatusRejected
		} else {
			rec.Status = RecordScored
			rec.Article.Status = models.ArticleStatusScored
		}
	case agents.StatePhase1Rejected:
		rec.Status = RecordRejected
		rec.Article.Status = models.ArticleStatusRejected
	default:
		rec.Status = RecordFailed
		if outcome.Err != nil {
			rec.Error = outcome.Err.Error()
		}
	}

	rec.Elapsed = time.Since(start)
	if o.metrics != nil {
		o.metrics.ArticlesTotal.WithLabelValues(string(rec.Status)).Inc()
	}
	return rec
}

// consolidate maps the chain outcome onto the weighted participant scores
// and computes the final verdict under the selected configuration.
func (o *Orchestrator) consolidate(outcome agents.Outcome) (scoring.Consolidation, error) {
	cfg := o.selectConfiguration()
	scores := make(map[string]float64, len(scoring.Participants))
	for _, participant := range scoring.Participants {
		score, ok := outcome.ScoreFor(agents.Name(participant))
		if !ok {
			return scoring.Consolidation{}, fmt.Errorf("completed chain missing %s score", participant)
		}
		scores[participant] = score
	}
	return o.matrix.Consolidate(cfg, scores)
}

func (o *Orchestrator) selectConfiguration() scoring.Configuration {
	if name := o.cfg.Scoring.Configuration; name != "" {
		if cfg, ok := o.matrix.Get(name); ok {
			return cfg
		}
		o.logger.Printf("unknown weight configuration %q, selecting automatically", name)
	}
	return o.matrix.Select("news_article", "")
}

func (o *Orchestrator) countDuplicate(v dedup.Verdict) {
	if o.metrics != nil {
		o.metrics.DuplicatesTotal.WithLabelValues(string(v.Match)).Inc()
		o.metrics.ArticlesTotal.WithLabelValues(string(RecordDuplicate)).Inc()
	}
}

func (o *Orchestrator) countAgentResults(outcome agents.Outcome) {
	if o.metrics == nil {
		return
	}
	for name, res := range outcome.Results {
		result := "ok"
		if res.ErrorKind != agents.ErrorNone {
			result = string(res.ErrorKind)
		}
		o.metrics.AgentInvocations.WithLabelValues(string(name), result).Inc()
		if res.Succeeded {
			o.metrics.AgentLatency.WithLabelValues(string(name)).Observe(res.Elapsed.Seconds())
			o.metrics.ExtractionTiers.WithLabelValues(string(name), fmt.Sprintf("%d", res.Tier)).Inc()
			o.metrics.TokensTotal.WithLabelValues(string(name), "prompt").Add(float64(res.Usage.PromptTokens))
			o.metrics.TokensTotal.WithLabelValues(string(name), "completion").Add(float64(res.Usage.CompletionTokens))
		}
		if res.ErrorKind == agents.ErrorFallbackUsed {
			o.metrics.FallbacksTotal.WithLabelValues(string(name)).Inc()
		}
	}
}

// aggregate derives run statistics from the finished records.
func aggregate(records []ArticleRecord) RunStats {
	stats := RunStats{Total: len(records)}
	var sum float64
	for _, rec := range records {
		switch rec.Status {
		case RecordScored:
			stats.Scored++
		case RecordDuplicate:
			stats.Duplicates++
		case RecordRejected:
			stats.Rejected++
		case RecordFailed:
			stats.Failed++
		}
		for _, res := range rec.Results {
			if res.ErrorKind == agents.ErrorFallbackUsed {
				stats.Fallbacks++
			}
		}
		if rec.Status == RecordScored && rec.Consolidation != nil {
			final := rec.Consolidation.FinalScore
			sum += final
			if stats.Scored == 1 || final > stats.MaxFinal {
				stats.MaxFinal = final
			}
			if stats.Scored == 1 || final < stats.MinFinal {
				stats.MinFinal = final
			}
		}
	}
	if stats.Scored > 0 {
		stats.MeanFinal = sum / float64(stats.Scored)
	}
	return stats
}
