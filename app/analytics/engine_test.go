package analytics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/database"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

func row(date, district string, bedrooms int, median float64, count int) database.IndexRow {
	d := district
	b := bedrooms
	m := median
	return database.IndexRow{
		Date:           date,
		City:           "Phnom Penh",
		District:       &d,
		Bedrooms:       &b,
		PropertyType:   listing.TypeCondo,
		ListingCount:   count,
		MedianPriceUSD: &m,
		MeanPriceUSD:   &m,
		P25PriceUSD:    &m,
		P75PriceUSD:    &m,
	}
}

func dateOffset(base string, days int) string {
	t, _ := time.Parse("2006-01-02", base)
	return t.AddDate(0, 0, days).Format("2006-01-02")
}

func TestWeightedMedianFavorsHeavierSegments(t *testing.T) {
	values := []weightedValue{
		{value: 300, weight: 1},
		{value: 600, weight: 3},
	}
	got := weightedMedian(values)
	if got == nil {
		t.Fatal("weightedMedian() = nil, want 600")
	}
	if *got != 600 {
		t.Errorf("weightedMedian() = %v, want 600 (the heavier segment must dominate)", *got)
	}
}

func TestWeightedMedianEvenTotal(t *testing.T) {
	values := []weightedValue{
		{value: 300, weight: 2},
		{value: 500, weight: 2},
	}
	got := weightedMedian(values)
	if got == nil || *got != 400 {
		t.Errorf("weightedMedian() = %v, want 400", got)
	}
}

func TestWeightedMedianEmpty(t *testing.T) {
	if got := weightedMedian(nil); got != nil {
		t.Errorf("weightedMedian(nil) = %v, want nil", *got)
	}
	if got := weightedMedian([]weightedValue{{value: 100, weight: 0}}); got != nil {
		t.Errorf("weightedMedian(zero weights) = %v, want nil", *got)
	}
}

func TestVolatilityScoreMonotonic(t *testing.T) {
	narrow := []float64{490, 500, 510, 500, 495, 505}
	wide := []float64{400, 500, 600, 500, 450, 550}

	narrowScore := VolatilityScore(narrow)
	wideScore := VolatilityScore(wide)
	if wideScore <= narrowScore {
		t.Errorf("VolatilityScore(wide) = %v, VolatilityScore(narrow) = %v; wider spread must score higher", wideScore, narrowScore)
	}
}

func TestVolatilityScoreBounds(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   float64
	}{
		{"single point", []float64{500}, 0},
		{"constant series", []float64{500, 500, 500}, 0},
		{"zero mean", []float64{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VolatilityScore(tt.series); got != tt.want {
				t.Errorf("VolatilityScore(%v) = %v, want %v", tt.series, got, tt.want)
			}
		})
	}

	extreme := []float64{1, 1000, 1, 1000, 1, 1000}
	if got := VolatilityScore(extreme); got != 100 {
		t.Errorf("VolatilityScore(extreme) = %v, want capped at 100", got)
	}
}

func TestComputeKPIChange1m(t *testing.T) {
	rows := []database.IndexRow{
		row("2026-07-01", "BKK1", 2, 100, 5),
		row("2026-07-31", "BKK1", 2, 110, 5),
	}
	kpi := ComputeKPI(rows)
	if kpi.Change1m == nil {
		t.Fatal("Change1m = nil, want ~+10.00")
	}
	if math.Abs(*kpi.Change1m-10.00) > 0.01 {
		t.Errorf("Change1m = %v, want 10.00", *kpi.Change1m)
	}
	if kpi.MedianPriceUSD == nil || *kpi.MedianPriceUSD != 110 {
		t.Errorf("MedianPriceUSD = %v, want 110", kpi.MedianPriceUSD)
	}
	if kpi.TotalListings != 5 {
		t.Errorf("TotalListings = %d, want 5", kpi.TotalListings)
	}
}

func TestComputeKPIBedroomMedians(t *testing.T) {
	rows := []database.IndexRow{
		row("2026-08-01", "BKK1", 1, 450, 4),
		row("2026-08-01", "BKK1", 2, 800, 6),
		row("2026-08-01", "Toul Kork", 1, 350, 4),
	}
	kpi := ComputeKPI(rows)
	if kpi.OneBedMedianUSD == nil || *kpi.OneBedMedianUSD != 400 {
		t.Errorf("OneBedMedianUSD = %v, want 400", kpi.OneBedMedianUSD)
	}
	if kpi.TwoBedMedianUSD == nil || *kpi.TwoBedMedianUSD != 800 {
		t.Errorf("TwoBedMedianUSD = %v, want 800", kpi.TwoBedMedianUSD)
	}
}

func TestComputeKPIVolatilityIsStdDevInUSD(t *testing.T) {
	rows := []database.IndexRow{
		row("2026-07-01", "BKK1", 2, 100, 5),
		row("2026-07-31", "BKK1", 2, 110, 5),
	}
	kpi := ComputeKPI(rows)
	if kpi.Volatility == nil {
		t.Fatal("Volatility = nil, want the stddev of the daily medians")
	}
	// Sample stddev of [100, 110], not the normalized 0-100 score.
	if math.Abs(*kpi.Volatility-7.07) > 0.01 {
		t.Errorf("Volatility = %v, want 7.07 USD", *kpi.Volatility)
	}
}

func TestComputeKPISingleDayHasNoChange(t *testing.T) {
	rows := []database.IndexRow{row("2026-08-01", "BKK1", 2, 500, 3)}
	kpi := ComputeKPI(rows)
	if kpi.Change1m != nil {
		t.Errorf("Change1m = %v, want nil with a single day of history", *kpi.Change1m)
	}
	if kpi.Change3m != nil {
		t.Errorf("Change3m = %v, want nil with a single day of history", *kpi.Change3m)
	}
}

func TestComputeTrendMovingAverage(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 10; i++ {
		rows = append(rows, row(dateOffset("2026-08-01", i), "BKK1", 2, 500, 3))
	}
	points := ComputeTrend(rows)
	if len(points) != 10 {
		t.Fatalf("len(points) = %d, want 10", len(points))
	}
	for i := 0; i < 6; i++ {
		if points[i].MovingAvgUSD != nil {
			t.Errorf("points[%d].MovingAvgUSD = %v, want nil before 7 days accumulate", i, *points[i].MovingAvgUSD)
		}
	}
	for i := 6; i < 10; i++ {
		if points[i].MovingAvgUSD == nil || *points[i].MovingAvgUSD != 500 {
			t.Errorf("points[%d].MovingAvgUSD = %v, want 500", i, points[i].MovingAvgUSD)
		}
	}
}

func TestComputeTrendMovingAverageSpansFullHistory(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 83; i++ {
		rows = append(rows, row(dateOffset("2026-05-01", i), "BKK1", 2, 100, 3))
	}
	for i := 83; i < 90; i++ {
		rows = append(rows, row(dateOffset("2026-05-01", i), "BKK1", 2, 200, 3))
	}
	points := ComputeTrend(rows)
	if len(points) != 90 {
		t.Fatalf("len(points) = %d, want 90", len(points))
	}

	last := points[len(points)-1]
	if last.MovingAvgUSD == nil {
		t.Fatal("last MovingAvgUSD = nil")
	}
	// (83*100 + 7*200) / 90; a window capped at the last week would
	// report 200 and hide the 83 flat days.
	if math.Abs(*last.MovingAvgUSD-107.78) > 0.01 {
		t.Errorf("last MovingAvgUSD = %v, want 107.78 over the full trailing window", *last.MovingAvgUSD)
	}

	mid := points[9]
	if mid.MovingAvgUSD == nil || *mid.MovingAvgUSD != 100 {
		t.Errorf("points[9].MovingAvgUSD = %v, want 100 over the first ten days", mid.MovingAvgUSD)
	}
}

func TestComputeTrendWindowCap(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 120; i++ {
		rows = append(rows, row(dateOffset("2026-01-01", i), "BKK1", 2, 500, 1))
	}
	points := ComputeTrend(rows)
	if len(points) != 90 {
		t.Errorf("len(points) = %d, want 90", len(points))
	}
	if points[0].Date != dateOffset("2026-01-01", 30) {
		t.Errorf("points[0].Date = %s, want the window to keep the most recent 90 days", points[0].Date)
	}
}

func TestComputeDistributionBands(t *testing.T) {
	rows := []database.IndexRow{
		row("2026-08-01", "BKK1", 1, 300, 1),
		row("2026-08-01", "BKK1", 2, 400, 1),
		row("2026-08-01", "BKK1", 3, 500, 1),
	}
	buckets := ComputeDistribution(rows)
	if len(buckets) != 5 {
		t.Fatalf("len(buckets) = %d, want 5", len(buckets))
	}
	byLabel := make(map[string]DistributionBucket)
	for _, b := range buckets {
		byLabel[b.Label] = b
	}
	if byLabel["$0-300"].Count != 1 {
		t.Errorf("$0-300 count = %d, want 1 (a price of exactly 300 belongs to the lower band)", byLabel["$0-300"].Count)
	}
	if byLabel["$300-500"].Count != 2 {
		t.Errorf("$300-500 count = %d, want 2", byLabel["$300-500"].Count)
	}
	total := 0.0
	for _, b := range buckets {
		total += b.Percent
	}
	if math.Abs(total-100) > 0.5 {
		t.Errorf("bucket percents sum to %v, want ~100", total)
	}
}

func TestComputeDistributionUsesLatestDayOnly(t *testing.T) {
	rows := []database.IndexRow{
		row("2026-07-01", "BKK1", 2, 2000, 50),
		row("2026-08-01", "BKK1", 2, 400, 1),
	}
	buckets := ComputeDistribution(rows)
	for _, b := range buckets {
		if b.Label == "$1000+" && b.Count != 0 {
			t.Errorf("$1000+ count = %d, want 0; older days must not leak into the distribution", b.Count)
		}
		if b.Label == "$300-500" && b.Count != 1 {
			t.Errorf("$300-500 count = %d, want 1", b.Count)
		}
	}
}

func TestComputeMoversRanking(t *testing.T) {
	rows := []database.IndexRow{
		row("2026-07-01", "BKK1", 2, 100, 5),
		row("2026-07-31", "BKK1", 2, 120, 5),
		row("2026-07-01", "Toul Kork", 2, 100, 5),
		row("2026-07-31", "Toul Kork", 2, 95, 5),
		row("2026-07-31", "Chroy Changvar", 2, 400, 2),
	}
	movers := ComputeMovers(rows)
	if len(movers) != 3 {
		t.Fatalf("len(movers) = %d, want 3", len(movers))
	}
	if movers[0].District != "BKK1" {
		t.Errorf("movers[0] = %s, want BKK1 (largest absolute 30d change)", movers[0].District)
	}
	if movers[1].District != "Toul Kork" {
		t.Errorf("movers[1] = %s, want Toul Kork", movers[1].District)
	}
	if movers[2].District != "Chroy Changvar" {
		t.Errorf("movers[2] = %s, want Chroy Changvar (no history sorts last)", movers[2].District)
	}
	if movers[2].Change1m != nil {
		t.Errorf("Chroy Changvar Change1m = %v, want nil", *movers[2].Change1m)
	}
}

func TestComputeMoversCap(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 25; i++ {
		district := fmt.Sprintf("District %02d", i)
		rows = append(rows, row("2026-07-01", district, 2, 100, 1))
		rows = append(rows, row("2026-07-31", district, 2, 100+float64(i), 1))
	}
	movers := ComputeMovers(rows)
	if len(movers) != 20 {
		t.Errorf("len(movers) = %d, want capped at 20", len(movers))
	}
}

func TestComputeDistrictHeatmap(t *testing.T) {
	rows := []database.IndexRow{
		row("2026-08-01", "BKK1", 1, 300, 1),
		row("2026-08-01", "BKK1", 2, 400, 1),
		row("2026-08-01", "BKK1", 3, 500, 1),
		row("2026-08-01", "Toul Kork", 1, 250, 2),
	}
	heatmap := ComputeDistrictHeatmap(rows)
	if len(heatmap) != 2 {
		t.Fatalf("len(heatmap) = %d, want 2", len(heatmap))
	}
	if heatmap[0].District != "BKK1" || heatmap[0].ListingCount != 3 {
		t.Errorf("heatmap[0] = %+v, want BKK1 with 3 listings", heatmap[0])
	}
	if heatmap[0].MedianPriceUSD == nil || *heatmap[0].MedianPriceUSD != 400 {
		t.Errorf("BKK1 median = %v, want 400", heatmap[0].MedianPriceUSD)
	}
}

func TestSupplySignalNeedsHistory(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 13; i++ {
		rows = append(rows, row(dateOffset("2026-08-01", i), "BKK1", 2, 500, 10))
	}
	if got := SupplySignal(rows); got != SignalNeutral {
		t.Errorf("SupplySignal() = %s, want neutral with fewer than 14 dates", got)
	}
}

func TestSupplySignalOversupply(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 14; i++ {
		rows = append(rows, row(dateOffset("2026-07-01", i), "BKK1", 2, 500, 10))
	}
	for i := 0; i < 14; i++ {
		rows = append(rows, row(dateOffset("2026-07-15", i), "BKK1", 2, 470, 13))
	}
	if got := SupplySignal(rows); got != SignalOversupply {
		t.Errorf("SupplySignal() = %s, want oversupply when counts rise and prices fall", got)
	}
}

func TestSupplySignalSqueeze(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 14; i++ {
		rows = append(rows, row(dateOffset("2026-07-01", i), "BKK1", 2, 470, 13))
	}
	for i := 0; i < 14; i++ {
		rows = append(rows, row(dateOffset("2026-07-15", i), "BKK1", 2, 500, 10))
	}
	if got := SupplySignal(rows); got != SignalSqueeze {
		t.Errorf("SupplySignal() = %s, want squeeze when counts fall and prices rise", got)
	}
}

func TestSupplySignalStableIsNeutral(t *testing.T) {
	var rows []database.IndexRow
	for i := 0; i < 30; i++ {
		rows = append(rows, row(dateOffset("2026-07-01", i), "BKK1", 2, 500, 10))
	}
	if got := SupplySignal(rows); got != SignalNeutral {
		t.Errorf("SupplySignal() = %s, want neutral for a flat market", got)
	}
}
