package analytics

// KPI is the headline summary for a market segment.
type KPI struct {
	MedianPriceUSD  *float64 `json:"medianPriceUsd"`
	OneBedMedianUSD *float64 `json:"oneBedMedianUsd"`
	TwoBedMedianUSD *float64 `json:"twoBedMedianUsd"`
	TotalListings   int      `json:"totalListings"`
	Change1m        *float64 `json:"change1m"`
	Change3m        *float64 `json:"change3m"`
	Volatility      *float64 `json:"volatility"`
}

// TrendPoint is one day of the listing-weighted price trend.
type TrendPoint struct {
	Date         string   `json:"date"`
	MedianUSD    *float64 `json:"medianUsd"`
	MeanUSD      *float64 `json:"meanUsd"`
	P25USD       *float64 `json:"p25Usd"`
	P75USD       *float64 `json:"p75Usd"`
	MovingAvgUSD *float64 `json:"movingAvgUsd"`
	ListingCount int      `json:"listingCount"`
}

// DistributionBucket is one fixed USD price band of the latest day.
type DistributionBucket struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Mover is one district ranked by recent price movement.
type Mover struct {
	District       string   `json:"district"`
	MedianPriceUSD *float64 `json:"medianPriceUsd"`
	ListingCount   int      `json:"listingCount"`
	Change1m       *float64 `json:"change1m"`
	Change3m       *float64 `json:"change3m"`
	Volatility     float64  `json:"volatility"`
}

// HeatmapDistrict is one district cell of the geographic heatmap.
// Unlike Movers this set is uncapped: the full geographic picture.
type HeatmapDistrict struct {
	District       string   `json:"district"`
	ListingCount   int      `json:"listingCount"`
	MedianPriceUSD *float64 `json:"medianPriceUsd"`
}

// Signal classifies the supply/demand balance of a segment.
type Signal string

const (
	SignalOversupply Signal = "oversupply"
	SignalSqueeze    Signal = "squeeze"
	SignalNeutral    Signal = "neutral"
)
