package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/newsgrade/config"
)

// ErrTransient marks failures worth retrying: timeouts, rate limits and
// 5xx-equivalent provider errors. Permanent failures (bad request, auth)
// are returned as-is.
var ErrTransient = errors.New("transient provider failure")

// IsTransient reports whether err should be retried by the caller.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// LLMProvider is the single external model-call collaborator: send a prompt
// plus content, get back mostly-JSON text. Callers own retry policy.
type LLMProvider interface {
	// Complete sends a system prompt and user content and returns the raw
	// model response text with its token accounting.
	Complete(ctx context.Context, systemPrompt, content string) (string, Usage, error)

	// Model returns the model name used for completions, for audit records.
	Model() string
}

// Usage captures token accounting for one completion.
type Usage struct {
	PromptTokens     int64         `json:"prompt_tokens"`
	CompletionTokens int64         `json:"completion_tokens"`
	Latency          time.Duration `json:"latency_ns"`
}

// New creates an LLM provider from configuration.
func New(cfg config.LLMConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Provider)
	}
}
