package parse

import (
	"regexp"
	"strconv"
)

var (
	bedroomsRe = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:-\s*)?(?:bed(?:room)?s?|br)\b`)
	bathsRe    = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:-\s*)?bath(?:room)?s?\b`)
	sizeRe     = regexp.MustCompile(`(?i)(\d{1,5}(?:\.\d+)?)\s*(?:m²|m2|sqm|sq\.?\s*m(?:eters?)?\b)`)
	studioRe   = regexp.MustCompile(`(?i)\bstudio\b`)

	// Label-first variants used by structured attribute tables
	// ("Bedrooms: 2" rather than "2 bedrooms").
	bedroomsLabelRe = regexp.MustCompile(`(?i)\bbed(?:room)?s?\s*[:\-]\s*(\d{1,2})\b`)
	bathsLabelRe    = regexp.MustCompile(`(?i)\bbath(?:room)?s?\s*[:\-]\s*(\d{1,2})\b`)
	sizeLabelRe     = regexp.MustCompile(`(?i)\b(?:size|area)\s*[:\-]\s*(\d{1,5}(?:\.\d+)?)\b`)
)

// RoomSpecs holds the structured fields extracted from free text.
type RoomSpecs struct {
	Bedrooms  *int
	Bathrooms *int
	SizeSqm   *float64
}

// ParseBedsBathsSize extracts bedroom, bathroom, and floor-size figures
// from free text, tolerating ordering and unit variants ("2 beds 65 sqm",
// "65m² 2BR 1 bath"). Fields remain nil when not present.
func ParseBedsBathsSize(text string) RoomSpecs {
	var specs RoomSpecs

	m := bedroomsRe.FindStringSubmatch(text)
	if m == nil {
		m = bedroomsLabelRe.FindStringSubmatch(text)
	}
	if m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= 20 {
			specs.Bedrooms = &n
		}
	} else if studioRe.MatchString(text) {
		// Studios are recorded as zero bedrooms.
		zero := 0
		specs.Bedrooms = &zero
	}

	m = bathsRe.FindStringSubmatch(text)
	if m == nil {
		m = bathsLabelRe.FindStringSubmatch(text)
	}
	if m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= 20 {
			specs.Bathrooms = &n
		}
	}

	m = sizeRe.FindStringSubmatch(text)
	if m == nil {
		m = sizeLabelRe.FindStringSubmatch(text)
	}
	if m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 8 && v <= 10000 {
			specs.SizeSqm = &v
		}
	}

	return specs
}
