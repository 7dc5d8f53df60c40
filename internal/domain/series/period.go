// Package series defines the time-series data model shared by every pipeline
// stage: granularities, end-anchored periods, tagged values and tidy tables.
package series

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of a period end date.
const DateLayout = "2006-01-02"

// Granularity is the sampling frequency of a table.
type Granularity int

// Supported granularities, ordered from finest to coarsest.
const (
	Monthly Granularity = iota + 1
	Quarterly
	Annual
)

func (g Granularity) String() string {
	switch g {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Annual:
		return "annual"
	default:
		return "unknown"
	}
}

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool {
	return g >= Monthly && g <= Annual
}

// CoarserThan reports whether g aggregates periods of other.
func (g Granularity) CoarserThan(other Granularity) bool {
	return g > other
}

// ParseGranularity accepts monthly|quarterly|annual and the single letter
// forms m|q|a, case-insensitive.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month", "m":
		return Monthly, nil
	case "quarterly", "quarter", "q":
		return Quarterly, nil
	case "annual", "yearly", "year", "a", "y":
		return Annual, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// Period is a calendar period of a given granularity. It is always anchored
// at the last day of the period, so two observations of the same month,
// quarter or year compare equal regardless of the day they were reported on.
type Period struct {
	Grain Granularity
	End   time.Time
}

// At returns the period of grain g that contains t.
func At(t time.Time, g Granularity) Period {
	y, m, _ := t.Date()
	var end time.Time
	switch g {
	case Monthly:
		end = time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		last := time.Month(((int(m)-1)/3 + 1) * 3)
		end = time.Date(y, last+1, 0, 0, 0, 0, 0, time.UTC)
	default:
		end = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return Period{Grain: g, End: end}
}

// Year returns the annual period for calendar year y.
func Year(y int) Period {
	return Period{Grain: Annual, End: time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)}
}

// ParseYear parses a 4-digit year label such as "1999".
func ParseYear(s string) (Period, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return Period{}, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Period{}, false
		}
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return Period{}, false
	}
	return Year(y), true
}

// To re-anchors p at grain g. Converting to a finer grain yields the last
// sub-period of p.
func (p Period) To(g Granularity) Period {
	return At(p.End, g)
}

// Next returns the period immediately following p.
func (p Period) Next() Period {
	return At(p.End.AddDate(0, 0, 1), p.Grain)
}

// Start returns the first day of p.
func (p Period) Start() time.Time {
	y, m, _ := p.End.Date()
	switch p.Grain {
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		return time.Date(y, m-2, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Year returns the calendar year of p.
func (p Period) Year() int { return p.End.Year() }

// IsZero reports whether p is unset.
func (p Period) IsZero() bool { return p.End.IsZero() }

// Before orders periods by end date.
func (p Period) Before(q Period) bool { return p.End.Before(q.End) }

// Equal reports whether p and q denote the same period.
func (p Period) Equal(q Period) bool { return p.Grain == q.Grain && p.End.Equal(q.End) }

// String renders annual periods as the year and everything else as the
// ISO end date.
func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	if p.Grain == Annual {
		return strconv.Itoa(p.Year())
	}
	return p.End.Format(DateLayout)
}
