package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned once a fetcher has spent its per-run
// request budget. Callers stop issuing fetches when they see it.
var ErrBudgetExhausted = errors.New("request budget exhausted")

// Fetcher retrieves one page of HTML. A ("", nil) return is a miss
// (timeout, non-2xx, bot block): the caller skips the item and moves on.
// Only infrastructure-level failures are reported as errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher is the plain-HTTP strategy for sites without aggressive bot
// detection. The inter-request delay is politeness, enforced per instance
// so concurrent source runs never share or skip it.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string

	mu        sync.Mutex
	budget    int
	requested int
}

// NewHTTPFetcher creates a fetcher with a fixed minimum delay between
// requests and a per-run request budget.
func NewHTTPFetcher(delay time.Duration, timeout time.Duration, budget int, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		userAgent: userAgent,
		budget:    budget,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.spend(); err != nil {
		return "", err
	}

	// The politeness delay is a correctness requirement, not an
	// optimization target. Waiting here also observes cancellation.
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ensureScheme(url), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("Fetch failed", "url", url, "error", err)
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Fetch returned non-2xx", "url", url, "status", resp.StatusCode)
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		slog.Warn("Fetch body read failed", "url", url, "error", err)
		return "", nil
	}

	return string(body), nil
}

func (f *HTTPFetcher) spend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.budget > 0 && f.requested >= f.budget {
		return ErrBudgetExhausted
	}
	f.requested++
	return nil
}

// Requested returns how many requests this fetcher has issued.
func (f *HTTPFetcher) Requested() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requested
}

func ensureScheme(url string) string {
	if len(url) >= 8 && (url[:7] == "http://" || url[:8] == "https://") {
		return url
	}
	return "https://" + url
}
