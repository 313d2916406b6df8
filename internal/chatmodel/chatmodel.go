// Package chatmodel is the shared chat-completion contract used by
// both internal/llmextract (structured field extraction) and
// internal/rag (the RAG orchestrator's answer generation step),
// mirroring antfly's AnswerAgentRequest-style single-call shape
// (antfly/requests.go) reduced to a plain prompt in, completion out,
// plus the token counts cost accounting needs.
package chatmodel

import (
	"context"
	"fmt"

	"github.com/casatico/stayfly/internal/config"
)

// ChatModel is the minimal interface any chat completion backend must
// satisfy.
type ChatModel interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (CompletionResult, error)
}

// CompletionOptions configures one model call.
type CompletionOptions struct {
	Temperature     float64
	MaxOutputTokens int
	SystemPrompt    string
}

// CompletionResult is one model call's output and usage.
type CompletionResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// New constructs the ChatModel for a configured provider slot (cheap
// or strong), per config.ChatModelProvider.
func New(cfg config.ChatModelConfig) (ChatModel, error) {
	switch cfg.Provider {
	case config.ChatModelProviderOpenAI:
		return NewOpenAI(cfg), nil
	case config.ChatModelProviderAnthropic:
		return NewAnthropic(cfg), nil
	case config.ChatModelProviderOllama:
		return NewOllama(cfg), nil
	default:
		return nil, fmt.Errorf("chatmodel: unsupported provider %q", cfg.Provider)
	}
}

// CostUSD computes the cost of a completion using the model slot's
// configured per-token pricing (spec.md §4.12).
func CostUSD(cfg config.ChatModelConfig, result CompletionResult) float64 {
	return float64(result.InputTokens)*cfg.CostPerInputToken + float64(result.OutputTokens)*cfg.CostPerOutputToken
}
