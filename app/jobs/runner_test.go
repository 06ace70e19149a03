package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/cfg"
	"github.com/weegienamja/Globescraper-sub003/app/database"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
	"github.com/weegienamja/Globescraper-sub003/app/sources"
)

type fakeAdapter struct {
	source   listing.Source
	urls     []listing.DiscoveredURL
	listings map[string]*listing.ScrapedListing

	discoverErr error
	scrapeErr   error
	scraped     []string
}

func (a *fakeAdapter) Source() listing.Source { return a.source }

func (a *fakeAdapter) Discover(ctx context.Context, onPage sources.PageVisit) ([]listing.DiscoveredURL, error) {
	if a.discoverErr != nil {
		return nil, a.discoverErr
	}
	if onPage != nil {
		onPage(1, 2)
		onPage(2, 2)
	}
	return a.urls, nil
}

func (a *fakeAdapter) ScrapeListing(ctx context.Context, url string) (*listing.ScrapedListing, error) {
	if a.scrapeErr != nil {
		return nil, a.scrapeErr
	}
	a.scraped = append(a.scraped, url)
	return a.listings[url], nil
}

type fakeRegistry struct {
	adapters map[listing.Source]*fakeAdapter
}

func (r *fakeRegistry) Enabled() []listing.Source {
	ordered := []listing.Source{listing.SourceKhmer24, listing.SourceRealEstateKH, listing.SourceIPSCambodia}
	var out []listing.Source
	for _, s := range ordered {
		if _, ok := r.adapters[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *fakeRegistry) Build(source listing.Source) (sources.Adapter, func(), error) {
	adapter, ok := r.adapters[source]
	if !ok {
		return nil, nil, fmt.Errorf("source not configured: %s", source)
	}
	return adapter, func() {}, nil
}

type fakeListingRepo struct {
	mu          sync.Mutex
	upserts     []listing.ScrapedListing
	snapshots   []string
	known       map[string]bool
	upsertErr   error
	deactivated int
}

func (r *fakeListingRepo) UpsertListing(scraped listing.ScrapedListing) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return "", false, r.upsertErr
	}
	if r.known == nil {
		r.known = make(map[string]bool)
	}
	key := string(scraped.Source) + "|" + scraped.CanonicalURL
	isNew := !r.known[key]
	r.known[key] = true
	r.upserts = append(r.upserts, scraped)
	return key, isNew, nil
}

func (r *fakeListingRepo) AddSnapshot(listingID string, scrapedAt time.Time, priceUSD *float64, priceOriginal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, listingID)
	return nil
}

func (r *fakeListingRepo) GetListings(q database.ListingQuery) ([]database.Listing, int, error) {
	return nil, 0, nil
}

func (r *fakeListingRepo) GetActiveListings() ([]database.Listing, error) {
	city := "Phnom Penh"
	price := 500.0
	return []database.Listing{{ID: "a", City: &city, PropertyType: listing.TypeCondo, PriceMonthlyUSD: &price}}, nil
}

func (r *fakeListingRepo) DeactivateStale(cutoff time.Time) (int, error) {
	return r.deactivated, nil
}

func (r *fakeListingRepo) CountBySource() (map[listing.Source]int, error) { return nil, nil }
func (r *fakeListingRepo) GetSnapshotCount() (int, error)                 { return 0, nil }

type fakeIndexRepo struct {
	mu       sync.Mutex
	replaced map[string][]database.IndexRow
}

func (r *fakeIndexRepo) ReplaceDay(date string, rows []database.IndexRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaced == nil {
		r.replaced = make(map[string][]database.IndexRow)
	}
	r.replaced[date] = rows
	return nil
}

func (r *fakeIndexRepo) GetRows(q database.IndexQuery) ([]database.IndexRow, error) { return nil, nil }
func (r *fakeIndexRepo) GetDateRange() (string, string, error)                      { return "", "", nil }

func testListing(source listing.Source, url string) *listing.ScrapedListing {
	price := 650.0
	return &listing.ScrapedListing{
		Source:          source,
		CanonicalURL:    url,
		Title:           "Condo for rent",
		City:            "Phnom Penh",
		PropertyType:    listing.TypeCondo,
		PriceMonthlyUSD: &price,
		PriceOriginal:   "$650",
		Currency:        "USD",
		ScrapedAt:       time.Now().UTC(),
	}
}

func setupCfg(t *testing.T) {
	t.Helper()
	cfg.SetForTesting(&cfg.Cfg{
		GraceDays: 7,
		Timezone:  "Asia/Phnom_Penh",
	})
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}
}

func terminal(events []Event) Event {
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

func TestRunDiscoverEmitsCountsAndCompletes(t *testing.T) {
	setupCfg(t)
	registry := &fakeRegistry{adapters: map[listing.Source]*fakeAdapter{
		listing.SourceKhmer24: {
			source: listing.SourceKhmer24,
			urls: []listing.DiscoveredURL{
				{URL: "khmer24.com/en/a-10001.html", SourceListingID: "10001"},
				{URL: "khmer24.com/en/b-10002.html", SourceListingID: "10002"},
			},
		},
	}}
	runner := NewRunner(registry, &fakeListingRepo{}, &fakeIndexRepo{})

	events := drain(t, runner.Run(context.Background(), JobDiscover, listing.SourceKhmer24))

	complete, ok := terminal(events).(CompleteEvent)
	if !ok {
		t.Fatalf("terminal event = %#v, want CompleteEvent", terminal(events))
	}
	if complete.Result["discovered"] != 2 {
		t.Errorf("discovered = %v, want 2", complete.Result["discovered"])
	}

	for i, e := range events[:len(events)-1] {
		switch e.(type) {
		case CompleteEvent, ErrorEvent:
			t.Errorf("event %d is terminal but not last: %#v", i, e)
		}
	}
}

func TestRunProcessQueueUpsertsAndSnapshots(t *testing.T) {
	setupCfg(t)
	urls := []listing.DiscoveredURL{
		{URL: "khmer24.com/en/a-10001.html"},
		{URL: "khmer24.com/en/b-10002.html"},
		{URL: "khmer24.com/en/c-10003.html"},
	}
	registry := &fakeRegistry{adapters: map[listing.Source]*fakeAdapter{
		listing.SourceKhmer24: {
			source: listing.SourceKhmer24,
			urls:   urls,
			listings: map[string]*listing.ScrapedListing{
				"khmer24.com/en/a-10001.html": testListing(listing.SourceKhmer24, "khmer24.com/en/a-10001.html"),
				"khmer24.com/en/b-10002.html": testListing(listing.SourceKhmer24, "khmer24.com/en/b-10002.html"),
				// c-10003 resolves to nil: out of scope.
			},
		},
	}}
	repo := &fakeListingRepo{}
	runner := NewRunner(registry, repo, &fakeIndexRepo{})

	events := drain(t, runner.Run(context.Background(), JobProcessQueue, listing.SourceKhmer24))

	complete, ok := terminal(events).(CompleteEvent)
	if !ok {
		t.Fatalf("terminal event = %#v, want CompleteEvent", terminal(events))
	}
	if complete.Result["created"] != 2 || complete.Result["skipped"] != 1 {
		t.Errorf("result = %v, want created=2 skipped=1", complete.Result)
	}
	if len(repo.upserts) != 2 {
		t.Errorf("len(upserts) = %d, want 2", len(repo.upserts))
	}
	if len(repo.snapshots) != 2 {
		t.Errorf("len(snapshots) = %d, want a snapshot per successful scrape", len(repo.snapshots))
	}
}

func TestRunAllRemapsProgress(t *testing.T) {
	setupCfg(t)
	registry := &fakeRegistry{adapters: map[listing.Source]*fakeAdapter{
		listing.SourceKhmer24: {
			source: listing.SourceKhmer24,
			urls:   []listing.DiscoveredURL{{URL: "khmer24.com/en/a-10001.html"}},
			listings: map[string]*listing.ScrapedListing{
				"khmer24.com/en/a-10001.html": testListing(listing.SourceKhmer24, "khmer24.com/en/a-10001.html"),
			},
		},
	}}
	runner := NewRunner(registry, &fakeListingRepo{}, &fakeIndexRepo{})

	events := drain(t, runner.Run(context.Background(), JobRunAll, ""))

	if _, ok := terminal(events).(CompleteEvent); !ok {
		t.Fatalf("terminal event = %#v, want CompleteEvent", terminal(events))
	}

	var progress []ProgressEvent
	for _, e := range events {
		if p, ok := e.(ProgressEvent); ok {
			progress = append(progress, p)
		}
	}
	if len(progress) == 0 {
		t.Fatal("no progress events emitted")
	}

	last := -1.0
	for _, p := range progress {
		if p.Percent < last {
			t.Errorf("progress went backwards: %v after %v", p.Percent, last)
		}
		last = p.Percent
		switch p.Phase {
		case "discover":
			if p.Percent > 15.0001 {
				t.Errorf("discover progress %v exceeds its 0-15 sub-range", p.Percent)
			}
		case "process-queue":
			if p.Percent < 15-0.0001 || p.Percent > 85.0001 {
				t.Errorf("process-queue progress %v outside its 15-85 sub-range", p.Percent)
			}
		case "build-index":
			if p.Percent < 85-0.0001 {
				t.Errorf("build-index progress %v below its 85-100 sub-range", p.Percent)
			}
		}
	}
	if last != 100 {
		t.Errorf("final progress = %v, want 100", last)
	}
}

func TestRunAbortedOnDiscoverError(t *testing.T) {
	setupCfg(t)
	registry := &fakeRegistry{adapters: map[listing.Source]*fakeAdapter{
		listing.SourceKhmer24: {
			source:      listing.SourceKhmer24,
			discoverErr: fmt.Errorf("connection refused"),
		},
	}}
	repo := &fakeListingRepo{}
	runner := NewRunner(registry, repo, &fakeIndexRepo{})

	events := drain(t, runner.Run(context.Background(), JobRunAll, listing.SourceKhmer24))

	errEvent, ok := terminal(events).(ErrorEvent)
	if !ok {
		t.Fatalf("terminal event = %#v, want ErrorEvent", terminal(events))
	}
	if errEvent.Error == "" {
		t.Error("ErrorEvent.Error is empty")
	}
	if len(repo.upserts) != 0 {
		t.Errorf("len(upserts) = %d, want 0 after discovery failure", len(repo.upserts))
	}
}

func TestRunRejectsConcurrentSameSource(t *testing.T) {
	setupCfg(t)
	registry := &fakeRegistry{adapters: map[listing.Source]*fakeAdapter{
		listing.SourceKhmer24: {source: listing.SourceKhmer24},
	}}
	runner := NewRunner(registry, &fakeListingRepo{}, &fakeIndexRepo{})

	release, ok := runner.acquire([]string{string(listing.SourceKhmer24)})
	if !ok {
		t.Fatal("first acquire failed")
	}
	defer release()

	events := drain(t, runner.Run(context.Background(), JobDiscover, listing.SourceKhmer24))
	if _, ok := terminal(events).(ErrorEvent); !ok {
		t.Fatalf("terminal event = %#v, want ErrorEvent while the source lock is held", terminal(events))
	}
}

func TestRunBuildIndexRebuildsTodayAndYesterday(t *testing.T) {
	setupCfg(t)
	registry := &fakeRegistry{adapters: map[listing.Source]*fakeAdapter{}}
	indexRepo := &fakeIndexRepo{}
	runner := NewRunner(registry, &fakeListingRepo{deactivated: 3}, indexRepo)

	events := drain(t, runner.Run(context.Background(), JobBuildIndex, ""))

	complete, ok := terminal(events).(CompleteEvent)
	if !ok {
		t.Fatalf("terminal event = %#v, want CompleteEvent", terminal(events))
	}
	if complete.Result["deactivated"] != 3 {
		t.Errorf("deactivated = %v, want 3", complete.Result["deactivated"])
	}
	if len(indexRepo.replaced) != 2 {
		t.Errorf("replaced %d dates, want today and yesterday", len(indexRepo.replaced))
	}
}

func TestRunCancelledContext(t *testing.T) {
	setupCfg(t)
	registry := &fakeRegistry{adapters: map[listing.Source]*fakeAdapter{
		listing.SourceKhmer24: {
			source: listing.SourceKhmer24,
			urls:   []listing.DiscoveredURL{{URL: "khmer24.com/en/a-10001.html"}},
		},
	}}
	runner := NewRunner(registry, &fakeListingRepo{}, &fakeIndexRepo{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := drain(t, runner.Run(ctx, JobDiscover, listing.SourceKhmer24))
	if _, ok := terminal(events).(ErrorEvent); !ok {
		t.Fatalf("terminal event = %#v, want ErrorEvent for a cancelled run", terminal(events))
	}
}

func TestParseJob(t *testing.T) {
	for _, valid := range []string{"discover", "process-queue", "build-index", "run-all"} {
		if _, err := ParseJob(valid); err != nil {
			t.Errorf("ParseJob(%q) returned error: %v", valid, err)
		}
	}
	if _, err := ParseJob("drop-tables"); err == nil {
		t.Error("ParseJob(drop-tables) did not fail")
	}
}
