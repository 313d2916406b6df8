package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// userAgentPool is a small realistic pool; HeadlessBrowserFetcher picks
// one at random per page to avoid a single fixed fingerprint.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

var viewportPool = [][2]int{{1366, 768}, {1440, 900}, {1920, 1080}}

// HeadlessBrowserFetcher renders a page with a headless Chrome instance
// via go-rod, for JS-heavy targets that a plain HTTP fetch would return
// an empty shell for. Grounded on
// theRebelliousNerd-codenerd's rod-builder scraper_template.go
// (launcher.New -> rod.New().ControlURL -> browser.Page -> WaitLoad).
type HeadlessBrowserFetcher struct {
	SettleDelay time.Duration
	PageTimeout time.Duration
}

func (f *HeadlessBrowserFetcher) Fetch(ctx context.Context, target string, hints Hints) (Result, error) {
	settle := f.SettleDelay
	if settle == 0 {
		settle = 800 * time.Millisecond
	}
	timeout := f.PageTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return Result{}, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return Result{}, fmt.Errorf("connecting to browser: %w", err)
	}
	defer browser.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	browser = browser.Context(fetchCtx)

	ua := userAgentPool[rand.Intn(len(userAgentPool))]
	if err := browser.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		return Result{}, fmt.Errorf("setting user agent: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return Result{}, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	vp := viewportPool[rand.Intn(len(viewportPool))]
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  vp[0],
		Height: vp[1],
	}); err != nil {
		return Result{}, fmt.Errorf("setting viewport: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return Result{}, fmt.Errorf("waiting for page load: %w", err)
	}
	time.Sleep(settle)

	html, err := page.HTML()
	if err != nil {
		return Result{}, fmt.Errorf("extracting HTML: %w", err)
	}

	info, err := page.Info()
	finalURL := target
	if err == nil && info != nil {
		finalURL = info.URL
	}

	return Result{
		HTML:     html,
		FinalURL: finalURL,
		Status:   200,
	}, nil
}
