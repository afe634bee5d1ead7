package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/provider"
)

// ErrorKind classifies agent failures surfaced in results and run statistics.
type ErrorKind string

const (
	ErrorNone                ErrorKind = ""
	ErrorScoreUnparsable     ErrorKind = "score_unparsable"
	ErrorAgentTimeout        ErrorKind = "agent_timeout"
	ErrorTransientFailure    ErrorKind = "agent_transient_failure"
	ErrorFallbackUsed        ErrorKind = "fallback_used"
	ErrorCriticalAgentFailed ErrorKind = "critical_agent_failed"
)

// ErrCriticalAgentFailed signals that a critical agent (fact_checker or
// context_evaluator) exhausted its retries; substituting a default score here
// would corrupt the consolidation, so the article must be rejected instead.
var ErrCriticalAgentFailed = errors.New("critical agent failed")

// Result is the immutable output of one agent evaluating one article. A
// retry supersedes the previous Result, it never mutates it.
type Result struct {
	AgentName   Name           `json:"agent_name"`
	RawResponse string         `json:"raw_response"`
	Score       float64        `json:"score"`
	Tier        int            `json:"extraction_tier"`
	Succeeded   bool           `json:"succeeded"`
	ErrorKind   ErrorKind      `json:"error_kind,omitempty"`
	Model       string         `json:"model,omitempty"`
	Usage       provider.Usage `json:"usage"`
	Elapsed     time.Duration  `json:"elapsed_ns"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Invoker wraps a single model call with timeout, bounded retry and the
// fallback/critical failure policy.
type Invoker struct {
	llm     provider.LLMProvider
	timeout time.Duration
	retries int
	backoff time.Duration
	logger  *log.Logger
}

// NewInvoker creates an invoker from agent configuration.
func NewInvoker(cfg config.AgentsConfig, llm provider.LLMProvider, logger *log.Logger) *Invoker {
	if logger == nil {
		logger = log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	}
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}
	return &Invoker{
		llm:     llm,
		timeout: timeout,
		retries: cfg.MaxRetries,
		backoff: backoff,
		logger:  logger,
	}
}

// Invoke runs one agent over the content. On exhausted retries a
// non-critical agent yields a fallback Result with its configured neutral
// score; a critical agent yields ErrCriticalAgentFailed and the caller must
// reject the article.
func (iv *Invoker) Invoke(ctx context.Context, spec Spec, content string) (Result, error) {
	var lastKind ErrorKind
	var lastErr error

	attempts := iv.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(iv.backoff * time.Duration(1<<(attempt-1))):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}

		res, kind, err := iv.attempt(ctx, spec, content)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		lastKind, lastErr = kind, err

		// Permanent provider errors (bad request, auth) will not heal
		// with another attempt; parse failures might, the model is not
		// deterministic.
		if kind == ErrorTransientFailure && !provider.IsTransient(err) {
			break
		}
		iv.logger.Printf("%s attempt %d/%d failed (%s): %v", spec.Name, attempt+1, attempts, kind, err)
	}

	if spec.Critical {
		iv.logger.Printf("%s: retries exhausted, rejecting article (last error: %v)", spec.Name, lastErr)
		return Result{
			AgentName: spec.Name,
			Succeeded: false,
			ErrorKind: ErrorCriticalAgentFailed,
			CreatedAt: time.Now(),
		}, fmt.Errorf("%w: %s: %v", ErrCriticalAgentFailed, spec.Name, lastErr)
	}

	iv.logger.Printf("%s: retries exhausted (%s), using fallback score %.1f", spec.Name, lastKind, spec.Fallback)
	return Result{
		AgentName: spec.Name,
		Score:     spec.Fallback,
		Succeeded: false,
		ErrorKind: ErrorFallbackUsed,
		CreatedAt: time.Now(),
	}, nil
}

// attempt performs one model call plus score extraction. An extraction
// failure counts the same as an invocation failure for retry purposes.
func (iv *Invoker) attempt(ctx context.Context, spec Spec, content string) (Result, ErrorKind, error) {
	callCtx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	start := time.Now()
	raw, usage, err := iv.llm.Complete(callCtx, spec.Prompt, content)
	elapsed := time.Since(start)
	if err != nil {
		kind := ErrorTransientFailure
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			kind = ErrorAgentTimeout
		}
		return Result{}, kind, err
	}

	ext, err := ExtractScore(spec, raw)
	if err != nil {
		return Result{}, ErrorScoreUnparsable, err
	}

	return Result{
		AgentName:   spec.Name,
		RawResponse: raw,
		Score:       ext.Score,
		Tier:        ext.Tier,
		Succeeded:   true,
		Model:       iv.llm.Model(),
		Usage:       usage,
		Elapsed:     elapsed,
		CreatedAt:   time.Now(),
	}, ErrorNone, nil
}
