// Package telemetry centralizes the Prometheus instrumentation and the
// shared logger convention (one bracketed-prefix logger per subsystem).
package telemetry

import (
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NewLogger returns the standard subsystem logger, e.g. NewLogger("AGENT").
func NewLogger(subsystem string) *log.Logger {
	return log.New(os.Stdout, "["+subsystem+"] ", log.LstdFlags)
}

// Metrics is the pipeline's Prometheus instrument set, registered once on
// the default registry at startup.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	ArticlesTotal      *prometheus.CounterVec
	AgentInvocations   *prometheus.CounterVec
	AgentLatency       *prometheus.HistogramVec
	FallbacksTotal     *prometheus.CounterVec
	ExtractionTiers    *prometheus.CounterVec
	TokensTotal        *prometheus.CounterVec
	DuplicatesTotal    *prometheus.CounterVec
	ArchivesSweptTotal prometheus.Counter
}

// NewMetrics registers and returns the instrument set.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "newsgrade",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ArticlesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "articles_total",
			Help:      "Articles processed by outcome.",
		}, []string{"outcome"}),
		AgentInvocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "agent_invocations_total",
			Help:      "Agent invocations by agent and result.",
		}, []string{"agent", "result"}),
		AgentLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsgrade",
			Name:      "agent_latency_seconds",
			Help:      "Model call latency per agent.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"agent"}),
		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "agent_fallbacks_total",
			Help:      "Fallback scores substituted after exhausted retries.",
		}, []string{"agent"}),
		ExtractionTiers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "score_extraction_tier_total",
			Help:      "Which extraction tier produced each parsed score.",
		}, []string{"agent", "tier"}),
		TokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "llm_tokens_total",
			Help:      "Model tokens consumed per agent, by direction.",
		}, []string{"agent", "direction"}),
		DuplicatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "duplicates_total",
			Help:      "Articles rejected by the duplicate gate, by match kind.",
		}, []string{"match"}),
		ArchivesSweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "newsgrade",
			Name:      "archives_swept_total",
			Help:      "Archive folders created by pre/post sweeps.",
		}),
	}
}
