package listing

import (
	"fmt"
	"time"
)

// Source identifies a scraped site. One adapter exists per source.
type Source string

const (
	SourceKhmer24      Source = "khmer24"
	SourceRealEstateKH Source = "realestatekh"
	SourceIPSCambodia  Source = "ipscambodia"
)

// ParseSource validates a source identifier coming from config or API input.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceKhmer24, SourceRealEstateKH, SourceIPSCambodia:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source: %q", s)
}

// PropertyType classifies a residential listing.
type PropertyType string

const (
	TypeCondo             PropertyType = "CONDO"
	TypeApartment         PropertyType = "APARTMENT"
	TypeVilla             PropertyType = "VILLA"
	TypeTownhouse         PropertyType = "TOWNHOUSE"
	TypeServicedApartment PropertyType = "SERVICED_APARTMENT"
	TypePenthouse         PropertyType = "PENTHOUSE"
	TypeOther             PropertyType = "OTHER"
)

// LongTermTypes is the set of concrete types behind the virtual
// "long-term" property type filter exposed by the listings API.
var LongTermTypes = []PropertyType{
	TypeCondo,
	TypeApartment,
	TypeVilla,
	TypeTownhouse,
	TypeServicedApartment,
	TypePenthouse,
}

// ResolveTypeFilter maps an API property-type filter value to the set of
// concrete types it covers. Returns nil for an empty filter (no restriction).
func ResolveTypeFilter(value string) ([]PropertyType, error) {
	if value == "" {
		return nil, nil
	}
	if value == "long-term" {
		return LongTermTypes, nil
	}
	switch PropertyType(value) {
	case TypeCondo, TypeApartment, TypeVilla, TypeTownhouse,
		TypeServicedApartment, TypePenthouse, TypeOther:
		return []PropertyType{PropertyType(value)}, nil
	}
	return nil, fmt.Errorf("unknown property type: %q", value)
}

// DiscoveredURL is produced by a source adapter's discovery pass.
// Ephemeral: consumed by the processing phase within the same run.
type DiscoveredURL struct {
	URL             string
	SourceListingID string
}

// ScrapedListing is the result of extracting one listing page.
type ScrapedListing struct {
	Source          Source
	CanonicalURL    string
	SourceListingID string
	Title           string
	Description     string
	City            string
	District        string
	PropertyType    PropertyType
	Bedrooms        *int
	Bathrooms       *int
	SizeSqm         *float64
	PriceMonthlyUSD *float64
	PriceOriginal   string
	Currency        string
	ImageURLs       []string
	Amenities       []string
	PostedAt        *time.Time
	ScrapedAt       time.Time
}
