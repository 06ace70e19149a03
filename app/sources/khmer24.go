package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/weegienamja/Globescraper-sub003/app/config"
	"github.com/weegienamja/Globescraper-sub003/app/fetch"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
	"github.com/weegienamja/Globescraper-sub003/app/parse"
)

// Listing pages look like /en/condo-for-rent-bkk1-12345678.html; category
// and search pages carry no trailing numeric ad ID.
var khmer24ListingRe = regexp.MustCompile(`/en/[a-z0-9-]*-(\d{5,})\.html(?:\?.*)?$`)

// Khmer24 scrapes khmer24.com, a classifieds site reachable over plain
// HTTP. Spec fields live in a key/value attribute table; anything missing
// there is recovered from the free-text description.
type Khmer24 struct {
	config  *config.SourceConfig
	fetcher fetch.Fetcher
}

func NewKhmer24(config *config.SourceConfig, fetcher fetch.Fetcher) *Khmer24 {
	return &Khmer24{config: config, fetcher: fetcher}
}

func (a *Khmer24) Source() listing.Source {
	return listing.SourceKhmer24
}

func (a *Khmer24) Discover(ctx context.Context, onPage PageVisit) ([]listing.DiscoveredURL, error) {
	spec := crawlSpec{
		categories: a.config.Categories,
		maxPages:   a.config.Settings.MaxPages,
		maxURLs:    a.config.Settings.MaxURLs,
		listingRe:  khmer24ListingRe,
		pageURL: func(category string, page int) string {
			url := absoluteURL(a.config.Source.BaseURL, category)
			if page > 1 {
				url = fmt.Sprintf("%s?page=%d", url, page)
			}
			return url
		},
	}
	return discoverPaginated(ctx, a.fetcher, spec, a.canonicalize, onPage)
}

func (a *Khmer24) ScrapeListing(ctx context.Context, url string) (*listing.ScrapedListing, error) {
	html, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if html == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}

	title := firstText(doc, "h1[itemprop=name]", "h1.title", "h1")
	if title == "" {
		return nil, nil
	}

	description := firstText(doc, "div[itemprop=description]", "div.description", "div.detail-content")

	propertyType, ok := parse.ClassifyPropertyType(title, description)
	if !ok {
		return nil, nil
	}

	priceText := firstText(doc, "span[itemprop=price]", "div.price", "span.price")
	price, currency := parse.ParsePriceMonthlyUSD(priceText)
	if price == nil {
		// Sellers sometimes bury the price in the description.
		price, currency = parse.ParsePriceMonthlyUSD(description)
	}

	// Structured attribute table first, free text fallback second.
	specText := attributeTableText(doc)
	specs := parse.ParseBedsBathsSize(specText)
	if specs.Bedrooms == nil && specs.Bathrooms == nil && specs.SizeSqm == nil {
		specs = parse.ParseBedsBathsSize(title + " " + description)
	}

	locationText := firstText(doc, "span[itemprop=address]", "div.location", "span.location")
	district := parse.ParseDistrict(locationText)
	city := parse.ParseCity(locationText)
	if district == "" {
		district = parse.ParseDistrict(title)
	}
	if city == "" {
		city = parse.ParseCity(title)
	}

	scrapedAt := time.Now().UTC()
	postedAt := parse.ParsePostedAt(firstText(doc, "span.posted-date", "time.date", "span.date"), scrapedAt)

	canonical := a.canonicalize(url)
	sourceID := ""
	if m := khmer24ListingRe.FindStringSubmatch(url); m != nil {
		sourceID = m[1]
	}

	return &listing.ScrapedListing{
		Source:          a.Source(),
		CanonicalURL:    canonical,
		SourceListingID: sourceID,
		Title:           title,
		Description:     description,
		City:            city,
		District:        district,
		PropertyType:    propertyType,
		Bedrooms:        specs.Bedrooms,
		Bathrooms:       specs.Bathrooms,
		SizeSqm:         specs.SizeSqm,
		PriceMonthlyUSD: price,
		PriceOriginal:   strings.TrimSpace(priceText),
		Currency:        currency,
		ImageURLs:       collectImages(doc, "div.gallery img", "div.images img", "img[itemprop=image]"),
		Amenities:       parse.ExtractAmenities(description + " " + specText),
		PostedAt:        postedAt,
		ScrapedAt:       scrapedAt,
	}, nil
}

func (a *Khmer24) canonicalize(href string) string {
	return parse.CanonicalizeURL(absoluteURL(a.config.Source.BaseURL, href))
}

// attributeTableText flattens the structured key/value attribute rows
// into one line of "Label Value" text that the spec parsers understand.
func attributeTableText(doc *goquery.Document) string {
	var parts []string
	doc.Find("ul.attribute-list li, table.attributes tr, div.specs li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, ", ")
}
