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

// Anthropic calls the Messages API, following the same plain-HTTP
// shape as OpenAI above but with Anthropic's distinct request/response
// envelope (top-level "system" field, separate input/output token
// counts under "usage").
type Anthropic struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

func NewAnthropic(cfg config.ChatModelConfig) *Anthropic {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &Anthropic{
		BaseURL:    baseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (m *Anthropic) Complete(ctx context.Context, prompt string, opts CompletionOptions) (CompletionResult, error) {
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body, err := jsonx.Marshal(anthropicRequest{
		Model:     m.Model,
		System:    opts.SystemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CompletionResult{}, fmt.Errorf("chat API returned HTTP %d", resp.StatusCode)
	}

	var parsed anthropicResponse
	if err := jsonx.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return CompletionResult{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return CompletionResult{}, fmt.Errorf("chat API returned no content blocks")
	}

	return CompletionResult{
		Text:         parsed.Content[0].Text,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}

var _ ChatModel = (*Anthropic)(nil)
