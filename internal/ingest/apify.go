package ingest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/jsonx"
)

// ApifyItem is one row of a pre-scraped dataset, the external KV store
// spec.md §6's POST /ingest/apify/sync/ reads from.
type ApifyItem struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// ApifyClient fetches a dataset's items. ApifyHTTPClient is the
// production implementation against Apify's public dataset REST API.
type ApifyClient interface {
	FetchDatasetItems(ctx context.Context, datasetID string) ([]ApifyItem, error)
}

// ApifyHTTPClient talks to https://api.apify.com/v2, the dataset-items
// endpoint documented by Apify's public REST API, following the same
// plain-HTTP-caller shape as internal/websearch.DuckDuckGoSearcher.
type ApifyHTTPClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewApifyHTTPClient(token string) *ApifyHTTPClient {
	return &ApifyHTTPClient{BaseURL: "https://api.apify.com/v2", Token: token, HTTP: http.DefaultClient}
}

func (c *ApifyHTTPClient) FetchDatasetItems(ctx context.Context, datasetID string) ([]ApifyItem, error) {
	url := fmt.Sprintf("%s/datasets/%s/items?token=%s", c.BaseURL, datasetID, c.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building apify request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, err, "fetching apify dataset")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.KindTransient, "apify dataset fetch: status %d", resp.StatusCode)
	}

	var items []ApifyItem
	if err := jsonx.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding apify dataset: %w", err)
	}
	return items, nil
}

// ApifySync fetches a pre-scraped dataset, extracts, and persists each
// item, per spec.md §6 POST /ingest/apify/sync/. actorRunID is accepted
// for API-shape compatibility but unused: Apify's dataset-items
// endpoint is addressed by dataset id alone.
func (p *Pipeline) ApifySync(ctx context.Context, apify ApifyClient, tenantID uuid.UUID, datasetID string) ([]BatchResult, error) {
	items, err := apify.FetchDatasetItems(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		preview, err := p.extractFromHTML(ctx, item.HTML, item.URL, "", "")
		if err != nil {
			results = append(results, BatchResult{URL: item.URL, Error: err.Error()})
			continue
		}
		if _, _, err := p.Save(ctx, tenantID, preview.Property); err != nil {
			results = append(results, BatchResult{URL: item.URL, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{URL: item.URL})
	}
	return results, nil
}
