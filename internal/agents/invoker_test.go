package agents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/provider"
)

// scriptedLLM returns one canned response (or error) per call, in order,
// repeating the last entry once exhausted.
type scriptedLLM struct {
	responses []string
	errs      []error
	usage     provider.Usage
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, system, content string) (string, provider.Usage, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	if s.errs != nil && s.errs[i] != nil {
		return "", provider.Usage{}, s.errs[i]
	}
	return s.responses[i], s.usage, nil
}

func (s *scriptedLLM) Model() string { return "test-model" }

func testInvoker(llm provider.LLMProvider) *Invoker {
	cfg := config.AgentsConfig{
		CallTimeout:  time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
	return NewInvoker(cfg, llm, log.New(io.Discard, "", 0))
}

func TestInvokeSuccessFirstAttempt(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{`{"depth_score": 7.0}`},
		usage:     provider.Usage{PromptTokens: 420, CompletionTokens: 31},
	}
	spec := specFor(t, DepthAnalyzer)

	res, err := testInvoker(llm).Invoke(context.Background(), spec, "content")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !res.Succeeded || res.Score != 7.0 {
		t.Fatalf("got succeeded=%v score=%v, want success 7.0", res.Succeeded, res.Score)
	}
	if res.Model != "test-model" {
		t.Fatalf("got model %q", res.Model)
	}
	if res.Usage.PromptTokens != 420 || res.Usage.CompletionTokens != 31 {
		t.Fatalf("got usage %+v, want the provider's token counts", res.Usage)
	}
	if llm.calls != 1 {
		t.Fatalf("got %d calls, want 1", llm.calls)
	}
}

func TestInvokeRetriesThenSucceeds(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{"", `{"depth_score": 6.0}`},
		errs:      []error{fmt.Errorf("%w: 503", provider.ErrTransient), nil},
	}
	spec := specFor(t, DepthAnalyzer)

	res, err := testInvoker(llm).Invoke(context.Background(), spec, "content")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !res.Succeeded || res.Score != 6.0 {
		t.Fatalf("got succeeded=%v score=%v, want success 6.0", res.Succeeded, res.Score)
	}
	if llm.calls != 2 {
		t.Fatalf("got %d calls, want 2", llm.calls)
	}
}

func TestInvokeUnparsableRetriesThenFallback(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"no numbers here at all"}}
	spec := specFor(t, DepthAnalyzer)

	res, err := testInvoker(llm).Invoke(context.Background(), spec, "content")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if llm.calls != 3 {
		t.Fatalf("got %d calls, want 3 (initial + 2 retries)", llm.calls)
	}
	if res.Succeeded {
		t.Fatal("fallback result must not be marked succeeded")
	}
	if res.ErrorKind != ErrorFallbackUsed {
		t.Fatalf("got error kind %q, want %q", res.ErrorKind, ErrorFallbackUsed)
	}
	if res.Score != spec.Fallback {
		t.Fatalf("got score %v, want fallback %v", res.Score, spec.Fallback)
	}
}

func TestInvokeCriticalAgentNeverFallsBack(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{""},
		errs:      []error{fmt.Errorf("%w: 503", provider.ErrTransient)},
	}
	spec := specFor(t, FactChecker)

	res, err := testInvoker(llm).Invoke(context.Background(), spec, "content")
	if !errors.Is(err, ErrCriticalAgentFailed) {
		t.Fatalf("want ErrCriticalAgentFailed, got %v", err)
	}
	if res.ErrorKind != ErrorCriticalAgentFailed {
		t.Fatalf("got error kind %q, want %q", res.ErrorKind, ErrorCriticalAgentFailed)
	}
	if res.Score != 0 {
		t.Fatalf("critical failure must not carry a score, got %v", res.Score)
	}
}

func TestInvokePermanentErrorSkipsRetries(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{""},
		errs:      []error{errors.New("status 401: invalid api key")},
	}
	spec := specFor(t, DepthAnalyzer)

	res, err := testInvoker(llm).Invoke(context.Background(), spec, "content")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("got %d calls, want 1 (no retry on permanent error)", llm.calls)
	}
	if res.ErrorKind != ErrorFallbackUsed {
		t.Fatalf("got error kind %q, want fallback", res.ErrorKind)
	}
}

func TestInvokeContextCancelled(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{""},
		errs:      []error{fmt.Errorf("%w: 503", provider.ErrTransient)},
	}
	spec := specFor(t, DepthAnalyzer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testInvoker(llm).Invoke(ctx, spec, "content")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
