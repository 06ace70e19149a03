package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/cfg"
	"github.com/weegienamja/Globescraper-sub003/app/database"
	"github.com/weegienamja/Globescraper-sub003/app/index"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
	"github.com/weegienamja/Globescraper-sub003/app/sources"
)

type Job string

const (
	JobDiscover     Job = "discover"
	JobProcessQueue Job = "process-queue"
	JobBuildIndex   Job = "build-index"
	JobRunAll       Job = "run-all"
)

// ParseJob maps a request path segment to a job, rejecting unknown names.
func ParseJob(s string) (Job, error) {
	switch Job(s) {
	case JobDiscover, JobProcessQueue, JobBuildIndex, JobRunAll:
		return Job(s), nil
	}
	return "", fmt.Errorf("unknown job: %s", s)
}

// run-all sub-ranges of the overall progress scale.
const (
	discoverRangeEnd = 15.0
	processRangeEnd  = 85.0
)

const eventBuffer = 256

// AdapterRegistry provides per-source adapters. Satisfied by
// sources.Registry.
type AdapterRegistry interface {
	Enabled() []listing.Source
	Build(source listing.Source) (sources.Adapter, func(), error)
}

// Runner executes job phases against the listing store. Concurrent runs
// of the same phase for the same source are rejected rather than
// queued; overlapping runs would interleave snapshot writes.
type Runner struct {
	registry    AdapterRegistry
	listingRepo database.ListingRepository
	indexRepo   database.IndexRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRunner(registry AdapterRegistry, listingRepo database.ListingRepository, indexRepo database.IndexRepository) *Runner {
	return &Runner{
		registry:    registry,
		listingRepo: listingRepo,
		indexRepo:   indexRepo,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Run starts a job in the background and returns its event stream. The
// channel receives log and progress events while the job runs, then
// exactly one CompleteEvent or ErrorEvent, and is closed. Cancelling
// ctx stops the job from issuing new fetches; in-flight requests
// finish or time out on their own.
func (r *Runner) Run(ctx context.Context, job Job, source listing.Source) <-chan Event {
	events := make(chan Event, eventBuffer)

	go func() {
		defer close(events)

		lockKeys := r.lockKeys(job, source)
		release, ok := r.acquire(lockKeys)
		if !ok {
			events <- ErrorEvent{Error: fmt.Sprintf("a %s run is already in progress", job)}
			return
		}
		defer release()

		result, err := r.execute(ctx, job, source, events)
		if err != nil {
			emitLog(events, slog.LevelError, string(job), "job failed", map[string]any{"error": err.Error()})
			events <- ErrorEvent{Error: err.Error()}
			return
		}
		events <- CompleteEvent{Result: result}
	}()

	return events
}

// lockKeys returns the lock identities a job must hold. Source-scoped
// jobs lock per source; build-index locks the index globally; run-all
// holds everything it will touch.
func (r *Runner) lockKeys(job Job, source listing.Source) []string {
	sourceKeys := func() []string {
		if source != "" {
			return []string{string(source)}
		}
		var keys []string
		for _, s := range r.registry.Enabled() {
			keys = append(keys, string(s))
		}
		return keys
	}

	switch job {
	case JobDiscover, JobProcessQueue:
		return sourceKeys()
	case JobBuildIndex:
		return []string{"index"}
	case JobRunAll:
		return append(sourceKeys(), "index")
	}
	return nil
}

func (r *Runner) acquire(keys []string) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var held []*sync.Mutex
	releaseAll := func() {
		for _, m := range held {
			m.Unlock()
		}
	}

	for _, key := range keys {
		m, ok := r.locks[key]
		if !ok {
			m = &sync.Mutex{}
			r.locks[key] = m
		}
		if !m.TryLock() {
			releaseAll()
			return nil, false
		}
		held = append(held, m)
	}
	return releaseAll, true
}

type progressFunc func(percent float64, label string)

func (r *Runner) execute(ctx context.Context, job Job, source listing.Source, events chan<- Event) (map[string]any, error) {
	progress := func(phase string) progressFunc {
		last := -1.0
		return func(percent float64, label string) {
			if percent < last {
				percent = last
			}
			last = percent
			events <- ProgressEvent{Phase: phase, Percent: percent, Label: label}
		}
	}

	switch job {
	case JobDiscover:
		discovered, err := r.runDiscover(ctx, source, events, progress("discover"))
		if err != nil {
			return nil, err
		}
		return discoverResult(discovered), nil

	case JobProcessQueue:
		discovered, err := r.runDiscover(ctx, source, events, muted)
		if err != nil {
			return nil, err
		}
		return r.runProcess(ctx, discovered, events, progress("process-queue"))

	case JobBuildIndex:
		return r.runBuildIndex(events, progress("build-index"))

	case JobRunAll:
		remap := func(phase string, from, to float64) progressFunc {
			inner := progress(phase)
			return func(percent float64, label string) {
				inner(from+(to-from)*percent/100, label)
			}
		}

		discovered, err := r.runDiscover(ctx, source, events, remap("discover", 0, discoverRangeEnd))
		if err != nil {
			return nil, err
		}
		processResult, err := r.runProcess(ctx, discovered, events, remap("process-queue", discoverRangeEnd, processRangeEnd))
		if err != nil {
			return nil, err
		}
		indexResult, err := r.runBuildIndex(events, remap("build-index", processRangeEnd, 100))
		if err != nil {
			return nil, err
		}

		result := discoverResult(discovered)
		for k, v := range processResult {
			result[k] = v
		}
		for k, v := range indexResult {
			result[k] = v
		}
		return result, nil
	}
	return nil, fmt.Errorf("unknown job: %s", job)
}

func muted(float64, string) {}

func discoverResult(discovered map[listing.Source][]listing.DiscoveredURL) map[string]any {
	total := 0
	perSource := make(map[string]int)
	for source, urls := range discovered {
		perSource[string(source)] = len(urls)
		total += len(urls)
	}
	return map[string]any{"discovered": total, "discoveredBySource": perSource}
}

// runDiscover enumerates listing URLs for the named source, or every
// enabled source when none is named. A failing source is surfaced as
// an error; run-all treats that as fatal for the composite.
func (r *Runner) runDiscover(ctx context.Context, source listing.Source, events chan<- Event, progress progressFunc) (map[listing.Source][]listing.DiscoveredURL, error) {
	targets, err := r.targets(source)
	if err != nil {
		return nil, err
	}

	discovered := make(map[listing.Source][]listing.DiscoveredURL)
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		adapter, cleanup, err := r.registry.Build(target)
		if err != nil {
			return nil, fmt.Errorf("failed to build adapter for %s: %w", target, err)
		}

		emitLog(events, slog.LevelInfo, "discover", "starting discovery", map[string]any{"source": string(target)})

		base := float64(i) / float64(len(targets)) * 100
		span := 100 / float64(len(targets))
		urls, err := adapter.Discover(ctx, func(visited, planned int) {
			if planned <= 0 {
				planned = 1
			}
			pct := base + span*float64(visited)/float64(planned)
			progress(pct, fmt.Sprintf("%s: page %d/%d", target, visited, planned))
		})
		cleanup()
		if err != nil {
			return nil, fmt.Errorf("discovery failed for %s: %w", target, err)
		}

		discovered[target] = urls
		emitLog(events, slog.LevelInfo, "discover", "discovery finished", map[string]any{"source": string(target), "urls": len(urls)})
		slog.Info("Discovery finished", "source", string(target), "urls", len(urls))
	}

	progress(100, "discovery complete")
	return discovered, nil
}

// runProcess scrapes each discovered URL and upserts the result. An
// out-of-scope or unfetchable page is skipped; only infrastructure
// failures abort the phase. A snapshot is appended on every successful
// scrape even when the price is unchanged.
func (r *Runner) runProcess(ctx context.Context, discovered map[listing.Source][]listing.DiscoveredURL, events chan<- Event, progress progressFunc) (map[string]any, error) {
	total := 0
	for _, urls := range discovered {
		total += len(urls)
	}

	processed, created, updated, skipped := 0, 0, 0, 0
	for source, urls := range discovered {
		if len(urls) == 0 {
			continue
		}

		adapter, cleanup, err := r.registry.Build(source)
		if err != nil {
			return nil, fmt.Errorf("failed to build adapter for %s: %w", source, err)
		}

		err = func() error {
			defer cleanup()
			for _, url := range urls {
				if err := ctx.Err(); err != nil {
					return err
				}

				scraped, err := adapter.ScrapeListing(ctx, url.URL)
				if err != nil {
					return fmt.Errorf("scrape failed for %s: %w", url.URL, err)
				}
				processed++
				progress(float64(processed)/float64(total)*100, fmt.Sprintf("%d/%d listings", processed, total))

				if scraped == nil {
					skipped++
					slog.Debug("Listing skipped", "source", string(source), "url", url.URL)
					continue
				}

				id, isNew, err := r.listingRepo.UpsertListing(*scraped)
				if err != nil {
					return fmt.Errorf("failed to upsert listing %s: %w", scraped.CanonicalURL, err)
				}
				if isNew {
					created++
				} else {
					updated++
				}

				if err := r.listingRepo.AddSnapshot(id, time.Now().UTC(), scraped.PriceMonthlyUSD, scraped.PriceOriginal); err != nil {
					return fmt.Errorf("failed to append snapshot for %s: %w", id, err)
				}
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}

		emitLog(events, slog.LevelInfo, "process-queue", "source processed", map[string]any{
			"source": string(source), "created": created, "updated": updated, "skipped": skipped,
		})
	}

	progress(100, "processing complete")
	slog.Info("Processing finished", "processed", processed, "created", created, "updated", updated, "skipped", skipped)
	return map[string]any{"processed": processed, "created": created, "updated": updated, "skipped": skipped}, nil
}

// runBuildIndex deactivates listings not seen within the grace window,
// then rebuilds the index rows for today and yesterday so fresh scrapes
// are visible immediately. Rebuilding a date replaces its rows, so
// repeating the phase is safe.
func (r *Runner) runBuildIndex(events chan<- Event, progress progressFunc) (map[string]any, error) {
	appCfg := cfg.Get()

	cutoff := time.Now().UTC().AddDate(0, 0, -appCfg.GraceDays)
	deactivated, err := r.listingRepo.DeactivateStale(cutoff)
	if err != nil {
		return nil, fmt.Errorf("deactivation sweep failed: %w", err)
	}
	if deactivated > 0 {
		emitLog(events, slog.LevelInfo, "build-index", "stale listings deactivated", map[string]any{"count": deactivated})
		slog.Info("Stale listings deactivated", "count", deactivated, "cutoff", cutoff.Format("2006-01-02"))
	}
	progress(25, "deactivation sweep done")

	location, err := time.LoadLocation(appCfg.Timezone)
	if err != nil {
		location = time.UTC
	}
	now := time.Now().In(location)
	dates := []string{
		now.Format("2006-01-02"),
		now.AddDate(0, 0, -1).Format("2006-01-02"),
	}

	rows, err := index.Build(r.listingRepo, r.indexRepo, dates)
	if err != nil {
		return nil, fmt.Errorf("index build failed: %w", err)
	}

	progress(100, "index rebuilt")
	emitLog(events, slog.LevelInfo, "build-index", "index rebuilt", map[string]any{"dates": dates, "rows": rows})
	slog.Info("Index rebuilt", "dates", dates, "rows", rows)
	return map[string]any{"indexedDates": dates, "indexRows": rows, "deactivated": deactivated}, nil
}

func (r *Runner) targets(source listing.Source) ([]listing.Source, error) {
	if source != "" {
		return []listing.Source{source}, nil
	}
	enabled := r.registry.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}
	return enabled, nil
}

func emitLog(events chan<- Event, level slog.Level, stage, message string, meta map[string]any) {
	events <- LogEvent{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Stage:     stage,
		Message:   message,
		Meta:      meta,
	}
}
