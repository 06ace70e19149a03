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

// Listing pages are /rent/<slug>/<numeric id>; category pages are
// /rent/<area> search result pages without the trailing ID segment.
var realestateKHListingRe = regexp.MustCompile(`/rent/[a-z0-9-]+/(\d+)/?(?:\?.*)?$`)

// Pattern of a location baked into the page title, e.g.
// "2 Bedroom Condo For Rent - BKK1, Phnom Penh".
var realestateKHTitleLocRe = regexp.MustCompile(`-\s*([^,]+),\s*([A-Za-z ]+)$`)

// RealEstateKH scrapes realestate.com.kh. The site sits behind a
// bot-mitigation layer, so it is always paired with the browser fetcher;
// the structured markup is richer than the classifieds sites.
type RealEstateKH struct {
	config  *config.SourceConfig
	fetcher fetch.Fetcher
}

func NewRealEstateKH(config *config.SourceConfig, fetcher fetch.Fetcher) *RealEstateKH {
	return &RealEstateKH{config: config, fetcher: fetcher}
}

func (a *RealEstateKH) Source() listing.Source {
	return listing.SourceRealEstateKH
}

func (a *RealEstateKH) Discover(ctx context.Context, onPage PageVisit) ([]listing.DiscoveredURL, error) {
	spec := crawlSpec{
		categories: a.config.Categories,
		maxPages:   a.config.Settings.MaxPages,
		maxURLs:    a.config.Settings.MaxURLs,
		listingRe:  realestateKHListingRe,
		pageURL: func(category string, page int) string {
			url := absoluteURL(a.config.Source.BaseURL, category)
			if page > 1 {
				separator := "?"
				if strings.Contains(url, "?") {
					separator = "&"
				}
				url = fmt.Sprintf("%s%spage=%d", url, separator, page)
			}
			return url
		},
	}
	return discoverPaginated(ctx, a.fetcher, spec, a.canonicalize, onPage)
}

func (a *RealEstateKH) ScrapeListing(ctx context.Context, url string) (*listing.ScrapedListing, error) {
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

	title := firstText(doc, "h1.property-title", "h1[data-testid=listing-title]", "h1")
	if title == "" {
		return nil, nil
	}

	description := firstText(doc, "div.property-description", "div[data-testid=description]", "div.description")

	propertyType, ok := parse.ClassifyPropertyType(title, description)
	if !ok {
		return nil, nil
	}

	priceText := firstText(doc, "div.property-price", "span[data-testid=listing-price]", "div.price")
	price, currency := parse.ParsePriceMonthlyUSD(priceText)

	specs := parse.ParseBedsBathsSize(firstText(doc, "div.property-features", "ul.key-features"))
	if specs.Bedrooms == nil && specs.Bathrooms == nil && specs.SizeSqm == nil {
		specs = parse.ParseBedsBathsSize(title + " " + description)
	}

	district, city := a.parseLocation(doc, title)

	scrapedAt := time.Now().UTC()
	postedAt := parse.ParsePostedAt(firstText(doc, "span.listed-date", "div.property-meta time"), scrapedAt)

	sourceID := ""
	if m := realestateKHListingRe.FindStringSubmatch(url); m != nil {
		sourceID = m[1]
	}

	return &listing.ScrapedListing{
		Source:          a.Source(),
		CanonicalURL:    a.canonicalize(url),
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
		ImageURLs:       collectImages(doc, "div.property-gallery img", "div.gallery img", "picture img"),
		Amenities:       parse.ExtractAmenities(description + " " + firstText(doc, "ul.amenities")),
		PostedAt:        postedAt,
		ScrapedAt:       scrapedAt,
	}, nil
}

// parseLocation tries the structured location element first, the page
// title pattern second, and a legacy address block last.
func (a *RealEstateKH) parseLocation(doc *goquery.Document, title string) (district, city string) {
	structured := firstText(doc, "div.property-location", "span[data-testid=address]")
	if structured != "" {
		district = parse.ParseDistrict(structured)
		city = parse.ParseCity(structured)
	}

	if district == "" || city == "" {
		if m := realestateKHTitleLocRe.FindStringSubmatch(title); m != nil {
			if district == "" {
				district = parse.ParseDistrict(m[1])
			}
			if city == "" {
				city = parse.ParseCity(m[2])
			}
		}
	}

	if district == "" || city == "" {
		legacy := firstText(doc, "div.address", "p.location-text")
		if district == "" {
			district = parse.ParseDistrict(legacy)
		}
		if city == "" {
			city = parse.ParseCity(legacy)
		}
	}

	return district, city
}

func (a *RealEstateKH) canonicalize(href string) string {
	return parse.CanonicalizeURL(absoluteURL(a.config.Source.BaseURL, href))
}
