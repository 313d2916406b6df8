// Package scraper fetches raw HTML for a URL, choosing among a managed
// anti-bot API, a headless browser, and a plain HTTP client depending on
// the target domain, with per-domain rate limiting and bounded retries.
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Method identifies which fetch strategy produced a Result.
type Method string

const (
	MethodManagedAPI     Method = "managed_api"
	MethodHeadlessBrowser Method = "headless_browser"
	MethodSimpleHTTP     Method = "simple_http"
)

// Result is the output of a successful scrape.
type Result struct {
	HTML            string
	Method          Method
	APICostCredits  float64
	FinalURL        string
	Status          int
}

// ErrorKind classifies a scrape failure.
type ErrorKind string

const (
	// ErrKindInvalidURL is a syntactically invalid input URL.
	ErrKindInvalidURL ErrorKind = "invalid_url"
	// ErrKindNoMethodAvailable is raised when the domain requires the
	// managed API (Cloudflare-protected) but no API key is configured,
	// or every applicable method has been exhausted.
	ErrKindNoMethodAvailable ErrorKind = "no_method_available"
	// ErrKindFetchFailed is every applicable method failing after retries.
	ErrKindFetchFailed ErrorKind = "fetch_failed"
)

// Error is the ScrapeError described in spec.md §4.1.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scrape %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("scrape %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Hints are optional scrape parameters supplied by the caller.
type Hints struct {
	ForceMethod   Method
	ProxyCountry  string
}

// Fetcher is one scrape method. Implementations return Result or an
// error; Client decides retry and fallback policy around them.
type Fetcher interface {
	Fetch(ctx context.Context, target string, hints Hints) (Result, error)
}

// jsHeavyPattern matches domains/paths known to require client-side
// rendering. A small heuristic set, extended as new sites are onboarded.
var jsHeavyPattern = regexp.MustCompile(`(?i)(react|vue|angular|#/|/app/|airbnb\.com)`)

// Client selects a Fetcher per request and applies per-domain rate
// limiting and retries, mirroring the teacher's FallbackReader pattern
// (reading.FallbackReader) generalized from "try readers in sequence"
// to "try the one method selection dictates, retrying with backoff".
type Client struct {
	logger *zap.Logger

	managedAPI     Fetcher
	headlessBrowser Fetcher
	simpleHTTP     Fetcher

	domainsMu                  sync.RWMutex
	cloudflareProtectedDomains []string
	maxRetries                 int

	limiterMu  sync.Mutex
	limiters   map[string]*rate.Limiter
	limiterRPS float64
}

// NewClient constructs a Client. A nil managedAPI is valid: domains that
// require it will fail with ErrKindNoMethodAvailable instead of panicking.
func NewClient(logger *zap.Logger, managedAPI, headlessBrowser, simpleHTTP Fetcher, cloudflareProtectedDomains []string, requestsPerSecond float64) *Client {
	return &Client{
		logger:                     logger,
		managedAPI:                 managedAPI,
		headlessBrowser:            headlessBrowser,
		simpleHTTP:                 simpleHTTP,
		cloudflareProtectedDomains: cloudflareProtectedDomains,
		maxRetries:                 3,
		limiters:                   make(map[string]*rate.Limiter),
		limiterRPS:                 requestsPerSecond,
	}
}

// SetCloudflareProtectedDomains replaces the forced-managed-API domain
// list. Safe to call concurrently with Scrape, so a config watcher can
// push updates without restarting the worker.
func (c *Client) SetCloudflareProtectedDomains(domains []string) {
	c.domainsMu.Lock()
	c.cloudflareProtectedDomains = domains
	c.domainsMu.Unlock()
}

// Scrape fetches target, selecting a method per spec.md §4.1: forced
// Cloudflare-protected domains always use the managed API; JS-heavy
// targets use the headless browser; everything else uses simple HTTP.
func (c *Client) Scrape(ctx context.Context, target string, hints Hints) (Result, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return Result{}, &Error{Kind: ErrKindInvalidURL, URL: target, Err: err}
	}

	if err := c.waitRateLimit(ctx, parsed.Hostname()); err != nil {
		return Result{}, &Error{Kind: ErrKindFetchFailed, URL: target, Err: err}
	}

	method, fetcher, err := c.selectMethod(parsed.Hostname(), target, hints)
	if err != nil {
		return Result{}, err
	}

	result, err := c.fetchWithRetry(ctx, fetcher, target, hints)
	if err != nil {
		if method == MethodSimpleHTTP && isCloudflareChallenge(err) && c.managedAPI != nil {
			c.logger.Info("cloudflare challenge detected, escalating to managed API", zap.String("url", target))
			result, err = c.fetchWithRetry(ctx, c.managedAPI, target, hints)
			method = MethodManagedAPI
		}
		if err != nil {
			return Result{}, &Error{Kind: ErrKindFetchFailed, URL: target, Err: err}
		}
	}

	result.Method = method
	c.logger.Info("scrape complete",
		zap.String("url", target),
		zap.String("method", string(method)),
		zap.Float64("api_cost_credits", result.APICostCredits),
	)
	return result, nil
}

func (c *Client) selectMethod(hostname, target string, hints Hints) (Method, Fetcher, error) {
	if hints.ForceMethod != "" {
		f, err := c.fetcherFor(hints.ForceMethod)
		return hints.ForceMethod, f, err
	}

	c.domainsMu.RLock()
	forced := slices.Contains(c.cloudflareProtectedDomains, hostname)
	c.domainsMu.RUnlock()
	if forced {
		if c.managedAPI == nil {
			return "", nil, &Error{Kind: ErrKindNoMethodAvailable, URL: target,
				Err: fmt.Errorf("domain %s requires managed API but no API key is configured", hostname)}
		}
		return MethodManagedAPI, c.managedAPI, nil
	}

	if jsHeavyPattern.MatchString(hostname) || jsHeavyPattern.MatchString(target) {
		if c.headlessBrowser != nil {
			return MethodHeadlessBrowser, c.headlessBrowser, nil
		}
	}

	if c.simpleHTTP == nil {
		return "", nil, &Error{Kind: ErrKindNoMethodAvailable, URL: target, Err: fmt.Errorf("no simple HTTP fetcher configured")}
	}
	return MethodSimpleHTTP, c.simpleHTTP, nil
}

func (c *Client) fetcherFor(m Method) (Fetcher, error) {
	switch m {
	case MethodManagedAPI:
		if c.managedAPI == nil {
			return nil, &Error{Kind: ErrKindNoMethodAvailable, Err: fmt.Errorf("managed API not configured")}
		}
		return c.managedAPI, nil
	case MethodHeadlessBrowser:
		if c.headlessBrowser == nil {
			return nil, &Error{Kind: ErrKindNoMethodAvailable, Err: fmt.Errorf("headless browser not configured")}
		}
		return c.headlessBrowser, nil
	case MethodSimpleHTTP:
		if c.simpleHTTP == nil {
			return nil, &Error{Kind: ErrKindNoMethodAvailable, Err: fmt.Errorf("simple HTTP not configured")}
		}
		return c.simpleHTTP, nil
	default:
		return nil, &Error{Kind: ErrKindNoMethodAvailable, Err: fmt.Errorf("unknown method %q", m)}
	}
}

func (c *Client) fetchWithRetry(ctx context.Context, f Fetcher, target string, hints Hints) (Result, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}
		result, err := f.Fetch(ctx, target, hints)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return Result{}, lastErr
}

func (c *Client) waitRateLimit(ctx context.Context, hostname string) error {
	if c.limiterRPS <= 0 {
		return nil
	}
	c.limiterMu.Lock()
	limiter, ok := c.limiters[hostname]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.limiterRPS), 1)
		c.limiters[hostname] = limiter
	}
	c.limiterMu.Unlock()
	return limiter.Wait(ctx)
}

func isCloudflareChallenge(err error) bool {
	if err == nil {
		return false
	}
	return regexp.MustCompile(`(?i)cloudflare|cf-ray|just a moment`).MatchString(err.Error())
}
