package csvsource

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. Four-digit year layouts only, so no
// century guessing is needed; ISO first because every FRED extract uses it.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006.01.02",
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
	"Jan 2, 2006", "2 Jan 2006", "January 2006", "Jan 2006",
	"20060102",
	"2006-01",
	"2006",
}

// ParseDate parses an observation date in any of the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
