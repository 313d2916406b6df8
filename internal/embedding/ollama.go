package embedding

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/casatico/stayfly/internal/jsonx"
)

// OllamaEmbedder calls a local Ollama server's `/api/embed` endpoint.
// Grounded on antfly/config.go's OllamaEmbedderConfig (base URL, model
// name, no API key).
type OllamaEmbedder struct {
	BaseURL    string
	Model      string
	Dimension  int
	HTTPClient *http.Client
}

func NewOllamaEmbedder(baseURL, modelName string, dimension int) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaEmbedder{
		BaseURL:    baseURL,
		Model:      modelName,
		Dimension:  dimension,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *OllamaEmbedder) Capabilities() Capabilities {
	return Capabilities{Dimension: e.Dimension, MaxBatchSize: 64, ModelID: e.Model}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, purpose)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embedding response contained no vectors")
	}
	return vectors[0], nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := jsonx.Marshal(ollamaEmbedRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshalling ollama embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building ollama embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed API returned HTTP %d", resp.StatusCode)
	}

	var parsed ollamaEmbedResponse
	if err := jsonx.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding ollama embed response: %w", err)
	}
	return parsed.Embeddings, nil
}
