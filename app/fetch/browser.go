package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// BrowserFetcher renders pages in headless Chrome for sites behind a
// bot-mitigation layer: the challenge script has to execute before the
// DOM is readable, so a plain GET returns an interstitial instead of the
// listing. Same miss/budget semantics as HTTPFetcher.
type BrowserFetcher struct {
	remoteURL string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter

	mu        sync.Mutex
	budget    int
	requested int

	allocOnce   sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowserFetcher creates a browser-backed fetcher. When remoteURL is
// empty a local headless Chrome is launched on first use.
func NewBrowserFetcher(remoteURL string, delay, timeout time.Duration, budget int, userAgent string) *BrowserFetcher {
	return &BrowserFetcher{
		remoteURL: remoteURL,
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		budget:    budget,
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.spend(); err != nil {
		return "", err
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	f.allocOnce.Do(f.initAllocator)

	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, f.timeout)
	defer cancelRun()

	// Bail out promptly when the caller aborts, but let chromedp tear the
	// tab down itself rather than killing it mid-navigation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			cancelRun()
		case <-stop:
		}
	}()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(ensureScheme(url)),
		// Give the bot-mitigation challenge time to settle before reading.
		chromedp.Sleep(4*time.Second),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("Browser fetch failed", "url", url, "error", err)
		return "", nil
	}

	return html, nil
}

// Close releases the browser. Safe to call even if no fetch happened.
func (f *BrowserFetcher) Close() {
	if f.allocCancel != nil {
		f.allocCancel()
	}
}

func (f *BrowserFetcher) initAllocator() {
	if f.remoteURL != "" {
		f.allocCtx, f.allocCancel = chromedp.NewRemoteAllocator(context.Background(), f.remoteURL)
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(f.userAgent),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	f.allocCtx, f.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

func (f *BrowserFetcher) spend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.budget > 0 && f.requested >= f.budget {
		return ErrBudgetExhausted
	}
	f.requested++
	return nil
}
