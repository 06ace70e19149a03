package parse

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// districtAliases maps lowercase free-text variants to the canonical
// Phnom Penh district name used across the index.
var districtAliases = map[string]string{
	"bkk1":              "BKK1",
	"bkk 1":             "BKK1",
	"boeung keng kang 1": "BKK1",
	"boeng keng kang 1":  "BKK1",
	"bkk2":              "BKK2",
	"bkk 2":             "BKK2",
	"boeung keng kang 2": "BKK2",
	"bkk3":              "BKK3",
	"bkk 3":             "BKK3",
	"boeung keng kang 3": "BKK3",
	"boeung keng kang":   "BKK1",
	"toul kork":          "Toul Kork",
	"tuol kork":          "Toul Kork",
	"tk":                 "Toul Kork",
	"daun penh":          "Daun Penh",
	"doun penh":          "Daun Penh",
	"riverside":          "Daun Penh",
	"chamkarmon":         "Chamkarmon",
	"chamkar mon":        "Chamkarmon",
	"toul tom poung":     "Toul Tom Poung",
	"tuol tom poung":     "Toul Tom Poung",
	"russian market":     "Toul Tom Poung",
	"toul tompoung":      "Toul Tom Poung",
	"7 makara":           "7 Makara",
	"prampir makara":     "7 Makara",
	"sen sok":            "Sen Sok",
	"sensok":             "Sen Sok",
	"chroy changvar":     "Chroy Changvar",
	"chroy changva":      "Chroy Changvar",
	"tonle bassac":       "Tonle Bassac",
	"tonle basac":        "Tonle Bassac",
	"koh pich":           "Koh Pich",
	"diamond island":     "Koh Pich",
	"olympic":            "Olympic",
	"olympia":            "Olympic",
	"boeung trabek":      "Boeung Trabek",
	"beoung trabek":      "Boeung Trabek",
	"toul svay prey":     "Toul Svay Prey",
	"chbar ampov":        "Chbar Ampov",
	"meanchey":           "Meanchey",
	"mean chey":          "Meanchey",
	"russey keo":         "Russey Keo",
	"ruessei kaev":       "Russey Keo",
	"por senchey":        "Por Senchey",
	"dangkao":            "Dangkao",
	"kamboul":            "Kamboul",
	"wat phnom":          "Daun Penh",
	"phsar thmei":        "Daun Penh",
}

var cityAliases = map[string]string{
	"phnom penh":     "Phnom Penh",
	"phnompenh":      "Phnom Penh",
	"pp":             "Phnom Penh",
	"siem reap":      "Siem Reap",
	"siemreap":       "Siem Reap",
	"sihanoukville":  "Sihanoukville",
	"preah sihanouk": "Sihanoukville",
	"kampot":         "Kampot",
	"kep":            "Kep",
	"battambang":     "Battambang",
	"kandal":         "Kandal",
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldLocation lowercases and strips diacritics so "Tuol Kôrk" and
// "tuol kork" normalize identically.
func foldLocation(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// ParseDistrict normalizes a free-text location string to a canonical
// district name, or "" when no known district is mentioned.
func ParseDistrict(text string) string {
	folded := foldLocation(text)
	if folded == "" {
		return ""
	}

	if canonical, ok := districtAliases[folded]; ok {
		return canonical
	}

	// Substring scan for location strings like "Street 310, BKK1, Phnom Penh".
	// Longer aliases win so "boeung keng kang 1" beats "boeung keng kang".
	best := ""
	bestLen := 0
	for alias, canonical := range districtAliases {
		if len(alias) > bestLen && containsWord(folded, alias) {
			best = canonical
			bestLen = len(alias)
		}
	}
	return best
}

// ParseCity normalizes a free-text location string to a canonical city
// name, defaulting to "" when unknown.
func ParseCity(text string) string {
	folded := foldLocation(text)
	if folded == "" {
		return ""
	}

	if canonical, ok := cityAliases[folded]; ok {
		return canonical
	}

	for alias, canonical := range cityAliases {
		if len(alias) > 2 && strings.Contains(folded, alias) {
			return canonical
		}
	}
	return ""
}

// ReverseDistrictAliases returns every known alias (including the
// canonical spelling itself) for a canonical district name. Consumers use
// it to widen district filters over data stored before normalization.
func ReverseDistrictAliases(canonical string) []string {
	aliases := []string{canonical}
	seen := map[string]bool{strings.ToLower(canonical): true}
	for alias, c := range districtAliases {
		if c == canonical && !seen[alias] {
			aliases = append(aliases, alias)
			seen[alias] = true
		}
	}
	return aliases
}

// containsWord reports whether sub occurs in s on word boundaries.
// Plain Contains would match "tk" inside "patked".
func containsWord(s, sub string) bool {
	idx := strings.Index(s, sub)
	for idx >= 0 {
		beforeOK := idx == 0 || !isAlnum(rune(s[idx-1]))
		end := idx + len(sub)
		afterOK := end == len(s) || !isAlnum(rune(s[end]))
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(s[idx+1:], sub)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
