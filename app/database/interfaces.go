package database

import (
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// Page size bounds applied to ListingQuery.Limit. Shared with the API
// layer so the reported limit always matches the executed one.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// ClampPage normalizes a requested page and limit to the executed
// values.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// ListingQuery describes a paginated, filtered read of the listings table.
// PropertyTypes and Districts are already resolved (virtual filter values
// and district aliases expanded by the caller).
type ListingQuery struct {
	Source        string
	PropertyTypes []listing.PropertyType
	Districts     []string
	Search        string
	SortField     string
	SortOrder     string
	Page          int
	Limit         int
}

// IndexQuery describes a read of rental_index_daily rows. Rows come back
// ordered ascending by date, which downstream analytics rely on.
type IndexQuery struct {
	City         string
	District     string
	Bedrooms     *int
	PropertyType string
	SinceDate    string // YYYY-MM-DD inclusive; empty for all history
}

type ListingRepository interface {
	UpsertListing(scraped listing.ScrapedListing) (string, bool, error)
	AddSnapshot(listingID string, scrapedAt time.Time, priceUSD *float64, priceOriginal string) error
	GetListings(q ListingQuery) ([]Listing, int, error)
	GetActiveListings() ([]Listing, error)
	DeactivateStale(cutoff time.Time) (int, error)
	CountBySource() (map[listing.Source]int, error)
	GetSnapshotCount() (int, error)
}

type IndexRepository interface {
	ReplaceDay(date string, rows []IndexRow) error
	GetRows(q IndexQuery) ([]IndexRow, error)
	GetDateRange() (string, string, error)
}
