package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/database"
)

// weightedValue pairs a price with the number of listings behind it.
type weightedValue struct {
	value  float64
	weight int
}

// weightedMedian computes the median of the expansion where each value is
// repeated weight times. Larger segments therefore dominate, unlike a
// plain mean of segment medians.
func weightedMedian(values []weightedValue) *float64 {
	total := 0
	for _, v := range values {
		if v.weight > 0 {
			total += v.weight
		}
	}
	if total == 0 {
		return nil
	}

	sorted := make([]weightedValue, 0, len(values))
	for _, v := range values {
		if v.weight > 0 {
			sorted = append(sorted, v)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].value < sorted[j].value })

	at := func(index int) float64 {
		cumulative := 0
		for _, v := range sorted {
			cumulative += v.weight
			if cumulative > index {
				return v.value
			}
		}
		return sorted[len(sorted)-1].value
	}

	var median float64
	if total%2 == 1 {
		median = at(total / 2)
	} else {
		median = (at(total/2-1) + at(total/2)) / 2
	}
	return &median
}

// weightedMean computes the listing-weighted arithmetic mean.
func weightedMean(values []weightedValue) *float64 {
	total := 0
	sum := 0.0
	for _, v := range values {
		if v.weight > 0 {
			total += v.weight
			sum += v.value * float64(v.weight)
		}
	}
	if total == 0 {
		return nil
	}
	mean := sum / float64(total)
	return &mean
}

// sampleStdDev is the n-1 denominator standard deviation.
func sampleStdDev(series []float64) *float64 {
	if len(series) < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	sumSquares := 0.0
	for _, v := range series {
		d := v - mean
		sumSquares += d * d
	}
	stdDev := math.Sqrt(sumSquares / float64(len(series)-1))
	return &stdDev
}

// percentChange returns the relative change from past to current in
// percent, rounded to two decimals.
func percentChange(past, current float64) *float64 {
	if past == 0 {
		return nil
	}
	change := (current - past) / past * 100
	rounded := math.Round(change*100) / 100
	return &rounded
}

// VolatilityScore normalizes the coefficient of variation of a price
// series to 0-100, scaled so a CV of 0.30 maps to 100. Increasing the
// spread of a series around a fixed mean never decreases the score.
func VolatilityScore(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))
	if mean <= 0 {
		return 0
	}

	stdDev := sampleStdDev(series)
	if stdDev == nil {
		return 0
	}

	cv := *stdDev / mean
	score := cv / 0.30 * 100
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return math.Round(score*10) / 10
}

// day is the per-date aggregate every analytics function works from.
type day struct {
	date         string
	listingCount int
	median       *float64
	mean         *float64
	p25          *float64
	p75          *float64
}

// aggregateDays collapses index rows into one aggregate per date.
// Rows arrive ordered ascending by date; the output preserves that order.
// Rows with a nil median still count listings but add no price weight.
func aggregateDays(rows []database.IndexRow) []day {
	var days []day
	byDate := make(map[string]int)

	for _, row := range rows {
		i, ok := byDate[row.Date]
		if !ok {
			days = append(days, day{date: row.Date})
			i = len(days) - 1
			byDate[row.Date] = i
		}
		days[i].listingCount += row.ListingCount
	}

	medians := make(map[string][]weightedValue)
	means := make(map[string][]weightedValue)
	p25s := make(map[string][]weightedValue)
	p75s := make(map[string][]weightedValue)
	for _, row := range rows {
		if row.MedianPriceUSD != nil {
			medians[row.Date] = append(medians[row.Date], weightedValue{*row.MedianPriceUSD, row.ListingCount})
		}
		if row.MeanPriceUSD != nil {
			means[row.Date] = append(means[row.Date], weightedValue{*row.MeanPriceUSD, row.ListingCount})
		}
		if row.P25PriceUSD != nil {
			p25s[row.Date] = append(p25s[row.Date], weightedValue{*row.P25PriceUSD, row.ListingCount})
		}
		if row.P75PriceUSD != nil {
			p75s[row.Date] = append(p75s[row.Date], weightedValue{*row.P75PriceUSD, row.ListingCount})
		}
	}

	for i := range days {
		days[i].median = weightedMedian(medians[days[i].date])
		days[i].mean = weightedMean(means[days[i].date])
		days[i].p25 = weightedMedian(p25s[days[i].date])
		days[i].p75 = weightedMedian(p75s[days[i].date])
	}

	return days
}

// nearestDay returns the day whose date is closest to target, or nil
// when the series is empty. "N days ago" lookups tolerate gaps in the
// index this way instead of demanding an exact calendar hit.
func nearestDay(days []day, target time.Time) *day {
	var best *day
	bestDistance := math.MaxFloat64

	for i := range days {
		date, err := time.Parse("2006-01-02", days[i].date)
		if err != nil {
			continue
		}
		distance := math.Abs(date.Sub(target).Hours())
		if distance < bestDistance {
			bestDistance = distance
			best = &days[i]
		}
	}
	return best
}
