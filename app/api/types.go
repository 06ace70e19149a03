package api

import (
	"context"
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/analytics"
	"github.com/weegienamja/Globescraper-sub003/app/database"
	"github.com/weegienamja/Globescraper-sub003/app/jobs"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// JobRunner starts background jobs and exposes their event streams.
// Satisfied by jobs.Runner.
type JobRunner interface {
	Run(ctx context.Context, job jobs.Job, source listing.Source) <-chan jobs.Event
}

type Handler struct {
	listingRepo database.ListingRepository
	indexRepo   database.IndexRepository
	runner      JobRunner
}

// ListingItem is the wire shape of one listing.
type ListingItem struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	City            *string    `json:"city"`
	District        *string    `json:"district"`
	PropertyType    string     `json:"propertyType"`
	Bedrooms        *int       `json:"bedrooms"`
	Bathrooms       *int       `json:"bathrooms"`
	SizeSqm         *float64   `json:"sizeSqm"`
	PriceMonthlyUSD *float64   `json:"priceMonthlyUsd"`
	ImageURLs       []string   `json:"imageUrls"`
	Amenities       []string   `json:"amenities"`
	PostedAt        *time.Time `json:"postedAt"`
	FirstSeenAt     time.Time  `json:"firstSeenAt"`
	LastSeenAt      time.Time  `json:"lastSeenAt"`
	IsActive        bool       `json:"isActive"`
}

type ListingsResponse struct {
	Listings   []ListingItem `json:"listings"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

type AnalyticsMeta struct {
	RowCount  int       `json:"rowCount"`
	DateRange [2]string `json:"dateRange"`
}

type AnalyticsResponse struct {
	Summary          analytics.KPI                  `json:"summary"`
	Trend            []analytics.TrendPoint         `json:"trend"`
	Distribution     []analytics.DistributionBucket `json:"distribution"`
	Movers           []analytics.Mover              `json:"movers"`
	HeatmapDistricts []analytics.HeatmapDistrict    `json:"heatmapDistricts"`
	Signal           analytics.Signal               `json:"signal"`
	Meta             AnalyticsMeta                  `json:"meta"`
}

func toListingItem(l database.Listing) ListingItem {
	return ListingItem{
		ID:              l.ID,
		Source:          string(l.Source),
		URL:             "https://" + l.CanonicalURL,
		Title:           l.Title,
		City:            l.City,
		District:        l.District,
		PropertyType:    string(l.PropertyType),
		Bedrooms:        l.Bedrooms,
		Bathrooms:       l.Bathrooms,
		SizeSqm:         l.SizeSqm,
		PriceMonthlyUSD: l.PriceMonthlyUSD,
		ImageURLs:       l.ImageURLs,
		Amenities:       l.Amenities,
		PostedAt:        l.PostedAt,
		FirstSeenAt:     l.FirstSeenAt,
		LastSeenAt:      l.LastSeenAt,
		IsActive:        l.IsActive,
	}
}
