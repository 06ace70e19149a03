package sources

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/weegienamja/Globescraper-sub003/app/parse"
)

// truncateText caps s at max bytes without splitting a multi-byte rune;
// the cut point backs up to the nearest rune boundary.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// firstText returns the trimmed text of the first selector that matches
// anything non-empty. Selectors are ordered most-specific first so layout
// changes degrade gracefully.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	return ""
}

// thumbnailMarkers identify resized gallery variants of the same image.
var thumbnailMarkers = []string{"-thumb", "_thumb", "thumbnail", "-small", "_sm.", "150x", "80x80"}

// collectImages gathers image URLs from the given selectors, skipping
// thumbnail variants and deduplicating by canonical URL.
func collectImages(doc *goquery.Document, selectors ...string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			src, ok := sel.Attr("src")
			if !ok || src == "" {
				src, _ = sel.Attr("data-src")
			}
			src = strings.TrimSpace(src)
			if src == "" || strings.HasPrefix(src, "data:") {
				return
			}

			low := strings.ToLower(src)
			for _, marker := range thumbnailMarkers {
				if strings.Contains(low, marker) {
					return
				}
			}

			canonical := parse.CanonicalizeURL(src)
			if canonical == "" || seen[canonical] {
				return
			}
			seen[canonical] = true
			out = append(out, canonical)
		})
	}
	return out
}
