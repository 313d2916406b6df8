package chatmodel

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/casatico/stayfly/internal/config"
	"github.com/casatico/stayfly/internal/jsonx"
)

// Ollama calls a local/self-hosted Ollama server's `/api/chat`
// endpoint, mirroring internal/embedding.OllamaEmbedder's defaults.
type Ollama struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func NewOllama(cfg config.ChatModelConfig) *Ollama {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		BaseURL:    baseURL,
		Model:      cfg.Model,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message         ollamaChatMessage `json:"message"`
	PromptEvalCount int               `json:"prompt_eval_count"`
	EvalCount       int               `json:"eval_count"`
}

func (m *Ollama) Complete(ctx context.Context, prompt string, opts CompletionOptions) (CompletionResult, error) {
	messages := []ollamaChatMessage{}
	if opts.SystemPrompt != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: prompt})

	body, err := jsonx.Marshal(ollamaChatRequest{Model: m.Model, Messages: messages, Stream: false})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CompletionResult{}, fmt.Errorf("chat API returned HTTP %d", resp.StatusCode)
	}

	var parsed ollamaChatResponse
	if err := jsonx.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return CompletionResult{}, fmt.Errorf("decoding chat response: %w", err)
	}

	return CompletionResult{
		Text:         parsed.Message.Content,
		InputTokens:  parsed.PromptEvalCount,
		OutputTokens: parsed.EvalCount,
	}, nil
}

var _ ChatModel = (*Ollama)(nil)
