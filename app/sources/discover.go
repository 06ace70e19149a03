package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/weegienamja/Globescraper-sub003/app/fetch"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// crawlSpec drives the shared paginated category crawl used by the HTML
// adapters. pageURL builds the URL of the n-th page (1-based) of a
// category; listingRe is the URL-shape predicate separating listing pages
// from search/category pages, with the source listing ID as its first
// capture group when present.
type crawlSpec struct {
	categories []string
	maxPages   int
	maxURLs    int
	pageURL    func(category string, page int) string
	listingRe  *regexp.Regexp
}

// discoverPaginated walks each category page by page, collecting listing
// links. A page contributing zero new URLs ends that category: pagination
// past the end repeats or empties out. URLs are deduplicated across the
// whole run via their canonical form.
func discoverPaginated(ctx context.Context, fetcher fetch.Fetcher, spec crawlSpec, canonicalize func(string) string, onPage PageVisit) ([]listing.DiscoveredURL, error) {
	seen := make(map[string]bool)
	var discovered []listing.DiscoveredURL

	planned := len(spec.categories) * spec.maxPages
	visited := 0

	for _, category := range spec.categories {
		for page := 1; page <= spec.maxPages; page++ {
			if err := ctx.Err(); err != nil {
				return discovered, err
			}
			if len(discovered) >= spec.maxURLs {
				return discovered, nil
			}

			pageURL := spec.pageURL(category, page)
			html, err := fetcher.Fetch(ctx, pageURL)
			if err != nil {
				if errors.Is(err, fetch.ErrBudgetExhausted) {
					slog.Warn("Discovery stopped early, request budget exhausted", "category", category)
					return discovered, nil
				}
				return discovered, err
			}

			visited++
			if onPage != nil {
				onPage(visited, planned)
			}

			if html == "" {
				slog.Warn("Category page fetch missed, skipping page", "url", pageURL)
				continue
			}

			newOnPage := 0
			for _, found := range extractListingLinks(html, spec.listingRe) {
				canonical := canonicalize(found.URL)
				if canonical == "" || seen[canonical] {
					continue
				}
				seen[canonical] = true
				found.URL = canonical
				discovered = append(discovered, found)
				newOnPage++
				if len(discovered) >= spec.maxURLs {
					break
				}
			}

			if newOnPage == 0 {
				slog.Debug("No new listings on page, category exhausted", "category", category, "page", page)
				break
			}
		}
	}

	return discovered, nil
}

// extractListingLinks pulls candidate listing links out of a category
// page. Links whose path does not match the listing shape are search,
// category, or pagination noise and are dropped.
func extractListingLinks(html string, listingRe *regexp.Regexp) []listing.DiscoveredURL {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []listing.DiscoveredURL
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}

		m := listingRe.FindStringSubmatch(href)
		if m == nil {
			return
		}

		id := ""
		if len(m) > 1 {
			id = m[1]
		}
		out = append(out, listing.DiscoveredURL{URL: href, SourceListingID: id})
	})
	return out
}

// absoluteURL resolves a possibly relative href against the site base URL.
func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), strings.TrimPrefix(href, "/"))
}
