package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// SimpleHTTPFetcher fetches a URL with a single plain HTTP GET and a
// browser-like User-Agent. Grounded on the teacher's
// downloadHTTPWithMime (libaf/scraping/scraping.go): validate, fetch,
// size-limit the body, read fully.
type SimpleHTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	Security  *ContentSecurityConfig
}

func (f *SimpleHTTPFetcher) Fetch(ctx context.Context, target string, hints Hints) (Result, error) {
	if err := validateURLSecurity(target, f.Security); err != nil {
		return Result{}, fmt.Errorf("security validation failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetching content: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if f.Security != nil && f.Security.MaxDownloadSizeBytes > 0 {
		reader = io.LimitReader(resp.Body, f.Security.MaxDownloadSizeBytes)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return Result{}, fmt.Errorf("reading content: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		return Result{}, fmt.Errorf("cloudflare or anti-bot challenge: HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return Result{
		HTML:     string(body),
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
	}, nil
}
