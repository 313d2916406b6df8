package scraper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/scraper"
)

type stubFetcher struct {
	result scraper.Result
	err    error
	calls  int
}

func (s *stubFetcher) Fetch(ctx context.Context, target string, hints scraper.Hints) (scraper.Result, error) {
	s.calls++
	return s.result, s.err
}

func TestScrapeUsesSimpleHTTPByDefault(t *testing.T) {
	simple := &stubFetcher{result: scraper.Result{HTML: "<html>ok</html>", Status: 200}}
	client := scraper.NewClient(zap.NewNop(), nil, nil, simple, nil, 0)

	result, err := client.Scrape(context.Background(), "https://costarica.org/tours/", scraper.Hints{})
	require.NoError(t, err)
	assert.Equal(t, scraper.MethodSimpleHTTP, result.Method)
	assert.Equal(t, 1, simple.calls)
}

func TestScrapeForcesManagedAPIForCloudflareDomain(t *testing.T) {
	managed := &stubFetcher{result: scraper.Result{HTML: "<html>protected</html>", APICostCredits: 1}}
	simple := &stubFetcher{result: scraper.Result{HTML: "<html>fallback</html>"}}
	client := scraper.NewClient(zap.NewNop(), managed, nil, simple,
		[]string{"www.coldwellbankercostarica.com"}, 0)

	result, err := client.Scrape(context.Background(), "https://www.coldwellbankercostarica.com/property/land-for-sale-in-curridabat/2785", scraper.Hints{})
	require.NoError(t, err)
	assert.Equal(t, scraper.MethodManagedAPI, result.Method)
	assert.Equal(t, 1.0, result.APICostCredits)
	assert.Equal(t, 0, simple.calls)
}

// Scenario 6 (spec.md §8): Cloudflare-protected domain with no managed
// API key configured fails with ErrKindNoMethodAvailable; no fetch is
// attempted against the unsupported method.
func TestScrapeNoMethodAvailableWhenManagedAPIKeyUnset(t *testing.T) {
	simple := &stubFetcher{result: scraper.Result{HTML: "<html>should not be used</html>"}}
	client := scraper.NewClient(zap.NewNop(), nil, nil, simple,
		[]string{"www.coldwellbankercostarica.com"}, 0)

	_, err := client.Scrape(context.Background(), "https://www.coldwellbankercostarica.com/property/land-for-sale-in-curridabat/2785", scraper.Hints{})
	require.Error(t, err)

	var scrapeErr *scraper.Error
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, scraper.ErrKindNoMethodAvailable, scrapeErr.Kind)
	assert.Equal(t, 0, simple.calls)
}

func TestScrapeInvalidURL(t *testing.T) {
	client := scraper.NewClient(zap.NewNop(), nil, nil, &stubFetcher{}, nil, 0)

	_, err := client.Scrape(context.Background(), "not a url", scraper.Hints{})
	require.Error(t, err)

	var scrapeErr *scraper.Error
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, scraper.ErrKindInvalidURL, scrapeErr.Kind)
}

func TestScrapeHintsForceMethod(t *testing.T) {
	headless := &stubFetcher{result: scraper.Result{HTML: "<html>rendered</html>"}}
	simple := &stubFetcher{result: scraper.Result{HTML: "<html>plain</html>"}}
	client := scraper.NewClient(zap.NewNop(), nil, headless, simple, nil, 0)

	result, err := client.Scrape(context.Background(), "https://example.com", scraper.Hints{ForceMethod: scraper.MethodHeadlessBrowser})
	require.NoError(t, err)
	assert.Equal(t, scraper.MethodHeadlessBrowser, result.Method)
	assert.Equal(t, 0, simple.calls)
}
