package parse

import "strings"

// amenityKeywords maps search terms to the canonical amenity label.
// Multiple terms can point at the same label.
var amenityKeywords = map[string]string{
	"pool":            "Swimming Pool",
	"swimming":        "Swimming Pool",
	"gym":             "Gym",
	"fitness":         "Gym",
	"parking":         "Parking",
	"car park":        "Parking",
	"elevator":        "Elevator",
	"lift":            "Elevator",
	"air con":         "Air Conditioning",
	"aircon":          "Air Conditioning",
	"air-con":         "Air Conditioning",
	"a/c":             "Air Conditioning",
	"balcony":         "Balcony",
	"rooftop":         "Rooftop",
	"security":        "Security",
	"guard":           "Security",
	"furnished":       "Furnished",
	"fully furnish":   "Furnished",
	"washing machine": "Washing Machine",
	"wifi":            "WiFi",
	"internet":        "WiFi",
	"garden":          "Garden",
	"pet":             "Pet Friendly",
	"backup generator": "Backup Power",
	"generator":       "Backup Power",
}

// ExtractAmenities scans free text for known amenity keywords and returns
// the canonical labels found, deduplicated, in stable keyword-scan order.
func ExtractAmenities(text string) []string {
	low := strings.ToLower(text)

	seen := make(map[string]bool)
	var out []string
	// Iterate a fixed order so output is deterministic.
	for _, term := range amenityScanOrder {
		label := amenityKeywords[term]
		if !seen[label] && strings.Contains(low, term) {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}

var amenityScanOrder = []string{
	"swimming", "pool", "gym", "fitness", "parking", "car park",
	"elevator", "lift", "air con", "aircon", "air-con", "a/c",
	"balcony", "rooftop", "security", "guard", "fully furnish",
	"furnished", "washing machine", "wifi", "internet", "garden",
	"pet", "backup generator", "generator",
}
