package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// Monthly rents outside these bounds are treated as parse errors (per-night
// prices, deposits, or sale prices that leaked into the rent field).
const (
	minPlausibleMonthlyUSD = 30
	maxPlausibleMonthlyUSD = 50000
)

// Riel prices are normalized to USD at the long-stable street rate.
const rielPerUSD = 4100

var priceAmountRe = regexp.MustCompile(`([0-9][0-9,.\s]*[0-9]|[0-9])`)

// ParsePriceMonthlyUSD extracts a monthly USD price from free text such as
// "$450/month", "USD 1,200", or "1,800,000៛". It returns the price and the
// detected currency code, or (nil, "") when no plausible price is present.
func ParsePriceMonthlyUSD(text string) (*float64, string) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, ""
	}

	currency := "USD"
	low := strings.ToLower(s)
	switch {
	case strings.Contains(s, "៛") || strings.Contains(low, "khr") || strings.Contains(low, "riel"):
		currency = "KHR"
	case strings.Contains(s, "$") || strings.Contains(low, "usd"):
		currency = "USD"
	}

	m := priceAmountRe.FindString(s)
	if m == "" {
		return nil, ""
	}

	cleaned := strings.NewReplacer(",", "", " ", "").Replace(m)
	// A trailing ".00" style decimal is fine; "1.200" style thousands
	// separators are not used by the sites we scrape.
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, ""
	}

	if currency == "KHR" {
		value = value / rielPerUSD
	}

	if value < minPlausibleMonthlyUSD || value > maxPlausibleMonthlyUSD {
		return nil, ""
	}

	rounded := float64(int(value*100+0.5)) / 100
	return &rounded, currency
}
