package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ManagedAPIFetcher delegates fingerprinting, residential proxying, and
// JS rendering to an external anti-bot provider. Paid: every successful
// fetch consumes APICostCredits, metered in the returned Result so the
// caller can log and bill it.
type ManagedAPIFetcher struct {
	Client       *http.Client
	Endpoint     string // e.g. https://api.scraperapi.com
	APIKey       string
	CostPerCall  float64
}

func (f *ManagedAPIFetcher) Fetch(ctx context.Context, target string, hints Hints) (Result, error) {
	if f.APIKey == "" {
		return Result{}, fmt.Errorf("managed API key not configured")
	}

	q := url.Values{}
	q.Set("api_key", f.APIKey)
	q.Set("url", target)
	q.Set("render", "true")
	if hints.ProxyCountry != "" {
		q.Set("country_code", hints.ProxyCountry)
	}

	reqURL := f.Endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling managed API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading managed API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("managed API error: %d %s", resp.StatusCode, string(body))
	}

	cost := f.CostPerCall
	if cost == 0 {
		cost = 1.0
	}

	return Result{
		HTML:           string(body),
		APICostCredits: cost,
		FinalURL:       target,
		Status:         resp.StatusCode,
	}, nil
}
