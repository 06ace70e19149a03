package sources

import (
	"context"

	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// PageVisit is invoked by Discover once per category page visited, so the
// job layer can report live progress. planned is the upper bound of pages
// for the current run.
type PageVisit func(visited, planned int)

// Adapter is the per-site capability: enumerate candidate listing URLs
// and extract one listing page into a structured record.
//
// ScrapeListing returns (nil, nil) when the page is not a residential
// rental or required fields are missing. That is an expected outcome, not
// a fault; only infrastructure failures are errors.
type Adapter interface {
	Source() listing.Source
	Discover(ctx context.Context, onPage PageVisit) ([]listing.DiscoveredURL, error)
	ScrapeListing(ctx context.Context, url string) (*listing.ScrapedListing, error)
}
