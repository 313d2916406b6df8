package embedding

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/casatico/stayfly/internal/jsonx"
)

// OpenAIEmbedder calls the OpenAI-compatible `/embeddings` endpoint.
// Grounded on antfly/config.go's OpenAIEmbedderConfig (base URL, API
// key, model name) stripped to what a plain HTTP caller needs, since
// antfly's own provider SDK client isn't in the pack.
type OpenAIEmbedder struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	HTTPClient *http.Client
}

// NewOpenAIEmbedder constructs an embedder against the OpenAI
// embeddings API (or any OpenAI-compatible endpoint).
func NewOpenAIEmbedder(baseURL, apiKey, modelName string, dimension int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIEmbedder{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      modelName,
		Dimension:  dimension,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OpenAIEmbedder) Capabilities() Capabilities {
	return Capabilities{Dimension: e.Dimension, MaxBatchSize: 2048, ModelID: e.Model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, purpose)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}
	return vectors[0], nil
}

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := jsonx.Marshal(openAIEmbeddingRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshalling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned HTTP %d", resp.StatusCode)
	}

	var parsed openAIEmbeddingResponse
	if err := jsonx.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return vectors, nil
}
