package database

import (
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// Listing represents a listing record in the database. One row exists per
// distinct property ad per source; rows are soft-deactivated, never deleted.
type Listing struct {
	ID              string
	Source          listing.Source
	CanonicalURL    string
	SourceListingID string
	Title           string
	Description     string
	City            *string
	District        *string
	PropertyType    listing.PropertyType
	Bedrooms        *int
	Bathrooms       *int
	SizeSqm         *float64
	PriceMonthlyUSD *float64
	PriceOriginal   string
	Currency        string
	ImageURLs       []string
	Amenities       []string
	PostedAt        *time.Time
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	IsActive        bool
}

// Snapshot is an immutable point-in-time price observation of a listing.
type Snapshot struct {
	ID              string
	ListingID       string
	ScrapedAt       time.Time
	PriceMonthlyUSD *float64
	PriceOriginal   string
}

// IndexRow is one rental_index_daily aggregate: the statistics of all
// active listings in one (date, city, district, bedrooms, propertyType)
// segment. District and Bedrooms are nil on rows aggregating segments
// where that dimension is unknown.
type IndexRow struct {
	Date           string // YYYY-MM-DD
	City           string
	District       *string
	Bedrooms       *int
	PropertyType   listing.PropertyType
	ListingCount   int
	MedianPriceUSD *float64
	MeanPriceUSD   *float64
	P25PriceUSD    *float64
	P75PriceUSD    *float64
}
