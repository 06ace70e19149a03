package parse

import (
	"strings"

	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// Ad types that are never residential rentals. A hit in the title means
// the listing is out of scope and should be discarded.
var outOfScopeKeywords = []string{
	"land for",
	"land plot",
	"commercial space",
	"office space",
	"office for rent",
	"shop for rent",
	"shophouse for sale",
	"warehouse",
	"factory",
	"hotel for sale",
	"business for sale",
	"for sale", // rentals only
}

type typeRule struct {
	keywords []string
	result   listing.PropertyType
}

// Order matters: more specific types are matched before generic ones,
// e.g. "serviced apartment" before "apartment".
var typeRules = []typeRule{
	{[]string{"serviced apartment", "service apartment"}, listing.TypeServicedApartment},
	{[]string{"penthouse"}, listing.TypePenthouse},
	{[]string{"townhouse", "town house", "link house", "flat house"}, listing.TypeTownhouse},
	{[]string{"villa", "twin villa", "queen villa"}, listing.TypeVilla},
	{[]string{"condo", "condominium"}, listing.TypeCondo},
	{[]string{"apartment", "studio"}, listing.TypeApartment},
	{[]string{"house for rent", "house in"}, listing.TypeTownhouse},
	{[]string{"room for rent"}, listing.TypeApartment},
}

// ClassifyPropertyType returns the property type inferred from the ad's
// title and description, or false when the ad is out of scope (land,
// commercial, sales) and should not be ingested.
func ClassifyPropertyType(title, description string) (listing.PropertyType, bool) {
	lowTitle := strings.ToLower(title)

	for _, kw := range outOfScopeKeywords {
		if strings.Contains(lowTitle, kw) {
			return "", false
		}
	}

	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowTitle, kw) {
				return rule.result, true
			}
		}
	}

	// Title was inconclusive; check the description before giving up.
	lowDesc := strings.ToLower(description)
	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowDesc, kw) {
				return rule.result, true
			}
		}
	}

	if strings.Contains(lowTitle, "rent") || strings.Contains(lowDesc, "rent") {
		return listing.TypeOther, true
	}

	return "", false
}

// ShouldIngest reports whether an ad with the given title and description
// belongs in the pipeline at all.
func ShouldIngest(title, description string) bool {
	_, ok := ClassifyPropertyType(title, description)
	return ok
}
