package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/database"
)

const (
	trendWindowDays   = 90
	trendMinPoints    = 7
	moversLimit       = 20
	signalMinDates    = 14
	signalRecentDays  = 14
	countShiftPercent = 10.0
	priceShiftPercent = 2.0
)

// ComputeKPI builds the headline summary from index rows ordered
// ascending by date. The 1br and 2br medians come from rows with the
// matching Bedrooms value on the latest day; the change figures compare
// the latest daily median against the nearest day 30 and 90 days back.
func ComputeKPI(rows []database.IndexRow) KPI {
	days := aggregateDays(rows)
	if len(days) == 0 {
		return KPI{}
	}
	latest := days[len(days)-1]

	kpi := KPI{
		MedianPriceUSD: latest.median,
		TotalListings:  latest.listingCount,
	}

	kpi.OneBedMedianUSD = bedroomMedian(rows, latest.date, 1)
	kpi.TwoBedMedianUSD = bedroomMedian(rows, latest.date, 2)

	latestDate, err := time.Parse("2006-01-02", latest.date)
	if err == nil && latest.median != nil {
		kpi.Change1m = changeAgainst(days, latestDate, 30, *latest.median)
		kpi.Change3m = changeAgainst(days, latestDate, 90, *latest.median)
	}

	// Volatility here is the stddev of the daily median series in USD,
	// not the normalized 0-100 score used for district rankings.
	var medianSeries []float64
	for _, d := range days {
		if d.median != nil {
			medianSeries = append(medianSeries, *d.median)
		}
	}
	if stdDev := sampleStdDev(medianSeries); stdDev != nil {
		rounded := math.Round(*stdDev*100) / 100
		kpi.Volatility = &rounded
	}

	return kpi
}

func bedroomMedian(rows []database.IndexRow, date string, bedrooms int) *float64 {
	var values []weightedValue
	for _, row := range rows {
		if row.Date != date || row.Bedrooms == nil || *row.Bedrooms != bedrooms {
			continue
		}
		if row.MedianPriceUSD != nil {
			values = append(values, weightedValue{*row.MedianPriceUSD, row.ListingCount})
		}
	}
	return weightedMedian(values)
}

// changeAgainst compares current against the daily median nearest to
// daysBack days before latest. It returns nil when the nearest day is
// the latest day itself, which happens with a very short history.
func changeAgainst(days []day, latest time.Time, daysBack int, current float64) *float64 {
	target := latest.AddDate(0, 0, -daysBack)
	past := nearestDay(days, target)
	if past == nil || past.median == nil {
		return nil
	}
	if past.date == days[len(days)-1].date {
		return nil
	}
	return percentChange(*past.median, current)
}

// ComputeTrend returns up to trendWindowDays daily points with a
// trailing moving average over up to trendWindowDays of history. The
// average stays nil until trendMinPoints days have accumulated, so
// early noise is not dressed up as a trend line.
func ComputeTrend(rows []database.IndexRow) []TrendPoint {
	days := aggregateDays(rows)
	if len(days) > trendWindowDays {
		days = days[len(days)-trendWindowDays:]
	}

	points := make([]TrendPoint, 0, len(days))
	var window []float64
	for _, d := range days {
		point := TrendPoint{
			Date:         d.date,
			MedianUSD:    d.median,
			MeanUSD:      d.mean,
			P25USD:       d.p25,
			P75USD:       d.p75,
			ListingCount: d.listingCount,
		}
		if d.median != nil {
			window = append(window, *d.median)
			if len(window) > trendWindowDays {
				window = window[1:]
			}
			if len(window) >= trendMinPoints {
				sum := 0.0
				for _, v := range window {
					sum += v
				}
				avg := math.Round(sum/float64(len(window))*100) / 100
				point.MovingAvgUSD = &avg
			}
		}
		points = append(points, point)
	}
	return points
}

// distributionBands are the fixed USD bands of the price distribution.
// A price falls in the band with min < price <= max, so a listing at
// exactly 300 lands in the $0-300 band.
var distributionBands = []struct {
	label string
	min   float64
	max   float64
}{
	{"$0-300", 0, 300},
	{"$300-500", 300, 500},
	{"$500-700", 500, 700},
	{"$700-1000", 700, 1000},
	{"$1000+", 1000, math.MaxFloat64},
}

// ComputeDistribution buckets the latest day's segment medians,
// weighted by listing count, into the fixed price bands.
func ComputeDistribution(rows []database.IndexRow) []DistributionBucket {
	latestDate := ""
	for _, row := range rows {
		if row.Date > latestDate {
			latestDate = row.Date
		}
	}

	counts := make([]int, len(distributionBands))
	total := 0
	for _, row := range rows {
		if row.Date != latestDate || row.MedianPriceUSD == nil || row.ListingCount <= 0 {
			continue
		}
		price := *row.MedianPriceUSD
		for i, band := range distributionBands {
			if price > band.min && price <= band.max {
				counts[i] += row.ListingCount
				total += row.ListingCount
				break
			}
		}
	}

	buckets := make([]DistributionBucket, len(distributionBands))
	for i, band := range distributionBands {
		buckets[i] = DistributionBucket{Label: band.label, Count: counts[i]}
		if total > 0 {
			buckets[i].Percent = math.Round(float64(counts[i])/float64(total)*1000) / 10
		}
	}
	return buckets
}

// ComputeMovers ranks districts by the magnitude of their 30 day price
// change, capped at moversLimit entries. Districts without enough
// history to compute a change sort last.
func ComputeMovers(rows []database.IndexRow) []Mover {
	byDistrict := make(map[string][]database.IndexRow)
	for _, row := range rows {
		if row.District == nil {
			continue
		}
		byDistrict[*row.District] = append(byDistrict[*row.District], row)
	}

	movers := make([]Mover, 0, len(byDistrict))
	for district, districtRows := range byDistrict {
		days := aggregateDays(districtRows)
		if len(days) == 0 {
			continue
		}
		latest := days[len(days)-1]

		mover := Mover{
			District:       district,
			MedianPriceUSD: latest.median,
			ListingCount:   latest.listingCount,
		}

		latestDate, err := time.Parse("2006-01-02", latest.date)
		if err == nil && latest.median != nil {
			mover.Change1m = changeAgainst(days, latestDate, 30, *latest.median)
			mover.Change3m = changeAgainst(days, latestDate, 90, *latest.median)
		}

		var series []float64
		for _, d := range days {
			if d.median != nil {
				series = append(series, *d.median)
			}
		}
		mover.Volatility = VolatilityScore(series)

		movers = append(movers, mover)
	}

	sort.Slice(movers, func(i, j int) bool {
		a, b := movers[i].Change1m, movers[j].Change1m
		switch {
		case a == nil && b == nil:
			return movers[i].District < movers[j].District
		case a == nil:
			return false
		case b == nil:
			return true
		}
		if math.Abs(*a) != math.Abs(*b) {
			return math.Abs(*a) > math.Abs(*b)
		}
		return movers[i].District < movers[j].District
	})

	if len(movers) > moversLimit {
		movers = movers[:moversLimit]
	}
	return movers
}

// ComputeDistrictHeatmap aggregates the latest day per district. Every
// district with data appears; the set is not capped.
func ComputeDistrictHeatmap(rows []database.IndexRow) []HeatmapDistrict {
	latestDate := ""
	for _, row := range rows {
		if row.Date > latestDate {
			latestDate = row.Date
		}
	}

	counts := make(map[string]int)
	medians := make(map[string][]weightedValue)
	for _, row := range rows {
		if row.Date != latestDate || row.District == nil {
			continue
		}
		counts[*row.District] += row.ListingCount
		if row.MedianPriceUSD != nil {
			medians[*row.District] = append(medians[*row.District], weightedValue{*row.MedianPriceUSD, row.ListingCount})
		}
	}

	districts := make([]HeatmapDistrict, 0, len(counts))
	for district, count := range counts {
		districts = append(districts, HeatmapDistrict{
			District:       district,
			ListingCount:   count,
			MedianPriceUSD: weightedMedian(medians[district]),
		})
	}
	sort.Slice(districts, func(i, j int) bool {
		if districts[i].ListingCount != districts[j].ListingCount {
			return districts[i].ListingCount > districts[j].ListingCount
		}
		return districts[i].District < districts[j].District
	})
	return districts
}

// SupplySignal compares the most recent signalRecentDays window against
// the window before it. A growing listing count paired with a falling
// median reads as oversupply; the inverse reads as a squeeze. With
// fewer than signalMinDates distinct dates the answer is always
// neutral, since short histories whipsaw.
func SupplySignal(rows []database.IndexRow) Signal {
	days := aggregateDays(rows)
	if len(days) < signalMinDates {
		return SignalNeutral
	}

	recent := days[len(days)-signalRecentDays:]
	prior := days[:len(days)-signalRecentDays]
	if len(prior) > signalRecentDays {
		prior = prior[len(prior)-signalRecentDays:]
	}

	recentCount, recentMedian := windowStats(recent)
	priorCount, priorMedian := windowStats(prior)
	if priorCount == 0 || recentMedian == nil || priorMedian == nil || *priorMedian == 0 {
		return SignalNeutral
	}

	countShift := (recentCount - priorCount) / priorCount * 100
	priceShift := (*recentMedian - *priorMedian) / *priorMedian * 100

	switch {
	case countShift > countShiftPercent && priceShift < -priceShiftPercent:
		return SignalOversupply
	case countShift < -countShiftPercent && priceShift > priceShiftPercent:
		return SignalSqueeze
	}
	return SignalNeutral
}

// windowStats returns the mean daily listing count and the median of
// daily medians across a window of days.
func windowStats(days []day) (float64, *float64) {
	count := 0
	var medians []float64
	for _, d := range days {
		count += d.listingCount
		if d.median != nil {
			medians = append(medians, *d.median)
		}
	}
	if len(days) == 0 {
		return 0, nil
	}
	meanCount := float64(count) / float64(len(days))

	if len(medians) == 0 {
		return meanCount, nil
	}
	sort.Float64s(medians)
	var median float64
	n := len(medians)
	if n%2 == 1 {
		median = medians[n/2]
	} else {
		median = (medians[n/2-1] + medians[n/2]) / 2
	}
	return meanCount, &median
}
