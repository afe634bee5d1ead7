package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/newsgrade/config"
)

// State tracks one article's progress through the chain. Transitions are
// strictly forward: Pending → Phase1Running → (Phase1Rejected | Phase2Running)
// → (Completed | Phase2Failed). A cancelled run context aborts from either
// phase into Failed, which is not a verdict on the article.
type State string

const (
	StatePending        State = "pending"
	StatePhase1Running  State = "phase1_running"
	StatePhase1Rejected State = "phase1_rejected"
	StatePhase2Running  State = "phase2_running"
	StateCompleted      State = "completed"
	StatePhase2Failed   State = "phase2_failed"
	StateFailed         State = "failed"
)

// Outcome is the full result of running the chain over one article. On any
// early stop, Results holds whatever completed before it; late Phase 1
// responses arriving after the cancel are discarded.
type Outcome struct {
	State        State           `json:"state"`
	Results      map[Name]Result `json:"results"`
	RejectReason string          `json:"reject_reason,omitempty"`
	SpamSignals  []string        `json:"spam_signals,omitempty"`
	Err          error           `json:"-"`
}

// ScoreFor returns the score of a named agent, if present and usable.
func (o Outcome) ScoreFor(name Name) (float64, bool) {
	r, ok := o.Results[name]
	if !ok || r.ErrorKind == ErrorCriticalAgentFailed {
		return 0, false
	}
	return r.Score, true
}

type invoker interface {
	Invoke(ctx context.Context, spec Spec, content string) (Result, error)
}

// Chain runs the thirteen agents over one article: eight Phase 1 analyses
// concurrently, gated on the context evaluator, then five Phase 2
// consolidation steps in order.
type Chain struct {
	inv              invoker
	contextFloor     float64
	credibilityFloor float64
	logger           *log.Logger
}

// NewChain builds a chain from agent configuration.
func NewChain(cfg config.AgentsConfig, inv invoker, logger *log.Logger) *Chain {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHAIN] ", log.LstdFlags)
	}
	floor := cfg.ContextFloor
	if floor == 0 {
		floor = 3.0
	}
	credFloor := cfg.CredibilityFloor
	if credFloor == 0 {
		credFloor = 4.0
	}
	return &Chain{inv: inv, contextFloor: floor, credibilityFloor: credFloor, logger: logger}
}

// Run evaluates one article's content through both phases. The returned
// Outcome is always populated; Err is set only on Phase2Failed or Failed to
// carry the underlying cause alongside the partial results.
func (c *Chain) Run(ctx context.Context, content string) Outcome {
	out := Outcome{State: StatePhase1Running, Results: make(map[Name]Result)}

	ok, err := c.runPhase1(ctx, content, &out)
	if err != nil {
		out.State = StateFailed
		out.Err = err
		return out
	}
	if !ok {
		out.State = StatePhase1Rejected
		return out
	}

	out.State = StatePhase2Running
	if err := c.runPhase2(ctx, content, &out); err != nil {
		out.State = StatePhase2Failed
		out.Err = err
		return out
	}

	out.State = StateCompleted
	return out
}

type phase1Msg struct {
	res Result
	err error
}

// runPhase1 fans out the eight Phase 1 agents and collects their results.
// It returns false when the article is rejected: context score under the
// floor, a critical agent exhausting its retries, or the spam rule firing.
// A non-nil error means the run's own context died, which is an abort rather
// than a rejection. On either stop the shared context is cancelled so
// in-flight calls end early; their late results are dropped.
func (c *Chain) runPhase1(ctx context.Context, content string, out *Outcome) (bool, error) {
	p1ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	specs := Phase1Agents()
	msgs := make(chan phase1Msg, len(specs))

	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec Spec) {
			defer wg.Done()
			res, err := c.inv.Invoke(p1ctx, spec, content)
			msgs <- phase1Msg{res: res, err: err}
		}(spec)
	}
	go func() {
		wg.Wait()
		close(msgs)
	}()

	rejected := false
	var abortErr error
	for msg := range msgs {
		if rejected || abortErr != nil {
			continue // drain, discard late results after the cancel
		}
		if msg.err != nil {
			// A cancelled run context is an abort, not a verdict on the
			// article. Only a critical agent exhausting its retries
			// rejects.
			if !errors.Is(msg.err, ErrCriticalAgentFailed) {
				c.logger.Printf("phase 1 aborting: %v", msg.err)
				abortErr = msg.err
				cancel()
				continue
			}
			if msg.res.AgentName != "" {
				out.Results[msg.res.AgentName] = msg.res
			}
			out.RejectReason = fmt.Sprintf("critical agent failure: %v", msg.err)
			c.logger.Printf("phase 1 rejecting article: %v", msg.err)
			rejected = true
			cancel()
			continue
		}
		out.Results[msg.res.AgentName] = msg.res

		if msg.res.AgentName == ContextEvaluator && msg.res.Score < c.contextFloor {
			out.RejectReason = fmt.Sprintf("context score %.1f below floor %.1f", msg.res.Score, c.contextFloor)
			c.logger.Printf("phase 1 rejecting article: %s", out.RejectReason)
			rejected = true
			cancel()
		}
	}
	if abortErr != nil {
		return false, abortErr
	}
	if rejected {
		return false, nil
	}

	if reason, signals := c.spamVerdict(out); reason != "" {
		out.RejectReason = reason
		out.SpamSignals = signals
		c.logger.Printf("phase 1 rejecting article: %s", reason)
		return false, nil
	}
	return true, nil
}

// preprocessorVerdict is the slice of the preprocessor response the spam
// rule cares about.
type preprocessorVerdict struct {
	IsSpam         bool     `json:"is_spam"`
	SpamIndicators []string `json:"spam_indicators"`
}

// spamVerdict applies the corroboration rule: the preprocessor flagging spam
// is never enough on its own. Rejection needs at least two distinct spam
// indicators AND a credibility score under the floor.
func (c *Chain) spamVerdict(out *Outcome) (string, []string) {
	pre, ok := out.Results[InputPreprocessor]
	if !ok || pre.RawResponse == "" {
		return "", nil
	}
	var verdict preprocessorVerdict
	if err := json.Unmarshal([]byte(salvageJSON(pre.RawResponse)), &verdict); err != nil {
		return "", nil
	}
	if !verdict.IsSpam || len(verdict.SpamIndicators) < 2 {
		return "", nil
	}
	cred, ok := out.ScoreFor(FactChecker)
	if !ok || cred >= c.credibilityFloor {
		return "", nil
	}
	reason := fmt.Sprintf("spam: %d indicators, credibility %.1f below floor %.1f",
		len(verdict.SpamIndicators), cred, c.credibilityFloor)
	return reason, verdict.SpamIndicators
}

// runPhase2 executes the five consolidation agents strictly in order, each
// seeing the original content plus the accumulated score summary. Phase 2
// agents are non-critical so the invoker substitutes fallbacks on failure;
// an error here means the context died or the provider broke permanently.
func (c *Chain) runPhase2(ctx context.Context, content string, out *Outcome) error {
	for _, spec := range Phase2Agents() {
		res, err := c.inv.Invoke(ctx, spec, content+"\n\n"+c.scoreSummary(out))
		if err != nil {
			return fmt.Errorf("phase 2 %s: %w", spec.Name, err)
		}
		out.Results[spec.Name] = res
	}
	return nil
}

// scoreSummary renders the scores gathered so far as a JSON block for the
// consolidation prompts, in sorted agent order so prompts are reproducible.
func (c *Chain) scoreSummary(out *Outcome) string {
	names := make([]string, 0, len(out.Results))
	for name := range out.Results {
		names = append(names, string(name))
	}
	sort.Strings(names)

	summary := make(map[string]float64, len(names))
	for _, name := range names {
		summary[name] = out.Results[Name(name)].Score
	}
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return ""
	}
	return "Prior analysis scores:\n" + string(b)
}

// salvageJSON trims fences and surrounding prose off a model response so it
// can be unmarshalled directly.
func salvageJSON(raw string) string {
	if m := fenceRE.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			return raw[start : end+1]
		}
	}
	return raw
}
