package parse

import (
	"net/url"
	"strings"
)

// Tracking parameters stripped during canonicalization. Everything else
// in the query string is considered meaningful and preserved.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"gclsrc":  true,
	"msclkid": true,
}

// CanonicalizeURL normalizes a listing URL into the identity key used for
// deduplication: no scheme, no "www." prefix, no trailing slash, and no
// tracking query parameters. The function is idempotent: canonicalizing
// an already-canonical URL returns it unchanged.
func CanonicalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// A canonical URL has no scheme; re-add one so net/url fills in Host.
	withScheme := s
	if !strings.Contains(s, "://") {
		withScheme = "https://" + s
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(s, "/")
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(u.Path, "/")

	query := ""
	if u.RawQuery != "" {
		values := u.Query()
		for param := range values {
			if trackingParams[param] || strings.HasPrefix(strings.ToLower(param), "utm_") {
				values.Del(param)
			}
		}
		// Encode sorts keys, which keeps the output stable regardless of
		// the order parameters appeared in.
		query = values.Encode()
	}

	out := host + path
	if query != "" {
		out += "?" + query
	}
	return out
}
