package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var relativeRe = regexp.MustCompile(`(?i)(\d+)\s*(minute|min|hour|hr|h|day|d|week|w|month|mo)s?\s+ago`)

var absoluteLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2",
	"January 2",
	"02/01/2006",
	"2006-01-02",
}

// ParsePostedAt interprets the posted-date text found on listing pages.
// Relative forms ("3d ago", "2 weeks ago") are resolved against now;
// absolute month/day forms are tried next, and anything else falls
// through to a permissive native parser. Returns nil when the text
// cannot be interpreted as a date.
func ParsePostedAt(text string, now time.Time) *time.Time {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	low := strings.ToLower(s)
	switch {
	case strings.Contains(low, "today") || strings.Contains(low, "just now"):
		t := now
		return &t
	case strings.Contains(low, "yesterday"):
		t := now.AddDate(0, 0, -1)
		return &t
	}

	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			var t time.Time
			switch strings.ToLower(m[2]) {
			case "minute", "min":
				t = now.Add(-time.Duration(n) * time.Minute)
			case "hour", "hr", "h":
				t = now.Add(-time.Duration(n) * time.Hour)
			case "day", "d":
				t = now.AddDate(0, 0, -n)
			case "week", "w":
				t = now.AddDate(0, 0, -7*n)
			case "month", "mo":
				t = now.AddDate(0, -n, 0)
			}
			if !t.IsZero() {
				return &t
			}
		}
	}

	// Compact relative forms without "ago": "3d", "12h", "2w".
	if m := regexp.MustCompile(`(?i)^(\d+)([dhw])$`).FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		var t time.Time
		switch strings.ToLower(m[2]) {
		case "h":
			t = now.Add(-time.Duration(n) * time.Hour)
		case "d":
			t = now.AddDate(0, 0, -n)
		case "w":
			t = now.AddDate(0, 0, -7*n)
		}
		return &t
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() == 0 {
				// Month/day only: assume the current year unless that puts
				// the date in the future.
				t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
				if t.After(now) {
					t = t.AddDate(-1, 0, 0)
				}
			}
			return &t
		}
	}

	if t, err := dateparse.ParseAny(s); err == nil && !t.After(now.AddDate(0, 0, 1)) {
		return &t
	}

	return nil
}
