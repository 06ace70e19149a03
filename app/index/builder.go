package index

import (
	"fmt"
	"sort"

	"github.com/weegienamja/Globescraper-sub003/app/database"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// segmentKey identifies one aggregate row: district and bedrooms are
// empty/-1 when unknown, which maps back to NULL in the stored row.
type segmentKey struct {
	city         string
	district     string
	bedrooms     int
	propertyType listing.PropertyType
}

// ComputeRows aggregates active listings into the daily index rows for
// one date. Listings with no resolvable city are skipped (nothing to
// group them under); listings with no parsed price still count toward
// ListingCount but contribute nothing to the price statistics.
// Deterministic: the same listings always produce the same rows, in a
// stable order.
func ComputeRows(listings []database.Listing, date string) []database.IndexRow {
	type segment struct {
		count  int
		prices []float64
	}
	segments := make(map[segmentKey]*segment)

	for _, l := range listings {
		if l.City == nil || *l.City == "" {
			continue
		}

		key := segmentKey{city: *l.City, propertyType: l.PropertyType, bedrooms: -1}
		if l.District != nil {
			key.district = *l.District
		}
		if l.Bedrooms != nil {
			key.bedrooms = *l.Bedrooms
		}

		seg, ok := segments[key]
		if !ok {
			seg = &segment{}
			segments[key] = seg
		}
		seg.count++
		if l.PriceMonthlyUSD != nil {
			seg.prices = append(seg.prices, *l.PriceMonthlyUSD)
		}
	}

	keys := make([]segmentKey, 0, len(segments))
	for key := range segments {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.city != b.city {
			return a.city < b.city
		}
		if a.district != b.district {
			return a.district < b.district
		}
		if a.bedrooms != b.bedrooms {
			return a.bedrooms < b.bedrooms
		}
		return a.propertyType < b.propertyType
	})

	rows := make([]database.IndexRow, 0, len(keys))
	for _, key := range keys {
		seg := segments[key]

		row := database.IndexRow{
			Date:         date,
			City:         key.city,
			PropertyType: key.propertyType,
			ListingCount: seg.count,
		}
		if key.district != "" {
			district := key.district
			row.District = &district
		}
		if key.bedrooms >= 0 {
			bedrooms := key.bedrooms
			row.Bedrooms = &bedrooms
		}

		if len(seg.prices) > 0 {
			sort.Float64s(seg.prices)
			row.MedianPriceUSD = floatPtr(quantile(seg.prices, 0.5))
			row.MeanPriceUSD = floatPtr(mean(seg.prices))
			row.P25PriceUSD = floatPtr(quantile(seg.prices, 0.25))
			row.P75PriceUSD = floatPtr(quantile(seg.prices, 0.75))
		}

		rows = append(rows, row)
	}

	return rows
}

// Build aggregates the current active listings and idempotently replaces
// the index rows for each target date.
func Build(listingRepo database.ListingRepository, indexRepo database.IndexRepository, dates []string) (int, error) {
	active, err := listingRepo.GetActiveListings()
	if err != nil {
		return 0, fmt.Errorf("failed to load active listings: %w", err)
	}

	total := 0
	for _, date := range dates {
		rows := ComputeRows(active, date)
		if err := indexRepo.ReplaceDay(date, rows); err != nil {
			return total, fmt.Errorf("failed to store index rows for %s: %w", date, err)
		}
		total += len(rows)
	}

	return total, nil
}

// quantile returns the q-th quantile of sorted values using linear
// interpolation between the two nearest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(pos)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func floatPtr(f float64) *float64 { return &f }
