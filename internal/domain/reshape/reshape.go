// Package reshape converts wide country/year panels into tidy tables.
package reshape

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/macrochart/internal/domain/series"
)

// Sentinel errors for reshaping.
var (
	ErrMissingEntityColumn = errors.New("entity column not found")
)

// PeriodColumn is a header position holding a period.
type PeriodColumn struct {
	Index  int
	Name   string
	Period series.Period
}

// PeriodColumns returns the header positions whose names are 4-digit years.
// Every other column is metadata and never reaches the melted output.
func PeriodColumns(header []string) []PeriodColumn {
	var out []PeriodColumn
	for i, h := range header {
		if p, ok := series.ParseYear(h); ok {
			out = append(out, PeriodColumn{Index: i, Name: strings.TrimSpace(h), Period: p})
		}
	}
	return out
}

// MeltOptions configures Melt.
type MeltOptions struct {
	// EntityColumn is the header of the entity label column.
	EntityColumn string
	// ValueName names the single value column of the output.
	ValueName string
	// Coerce parses a cell. Defaults to ParseNumber.
	Coerce func(string) (float64, bool)
}

// Melt emits one row per (entity, period column) of w. Cells that do not
// coerce to a number become missing values.
func Melt(w *series.Wide, opts MeltOptions) (*series.TidyTable, error) {
	if opts.Coerce == nil {
		opts.Coerce = ParseNumber
	}
	b := series.NewBuilder(series.Annual, opts.ValueName)
	if w == nil || len(w.Header) == 0 {
		return b.Table()
	}
	entityIdx := -1
	for i, h := range w.Header {
		if strings.EqualFold(strings.TrimSpace(h), opts.EntityColumn) {
			entityIdx = i
			break
		}
	}
	if entityIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingEntityColumn, opts.EntityColumn)
	}
	periods := PeriodColumns(w.Header)
	for _, rec := range w.Records {
		entity := cell(rec, entityIdx)
		if entity == "" {
			continue
		}
		for _, pc := range periods {
			v := series.NA()
			if f, ok := opts.Coerce(cell(rec, pc.Index)); ok {
				v = series.Of(f)
			}
			if err := b.Add(series.Key{Entity: entity, Period: pc.Period}, v); err != nil {
				return nil, err
			}
		}
	}
	return b.Table()
}

// ParseNumber parses a numeric cell. Currency symbols and thousands
// separators are stripped and accounting negatives "(12.5)" are accepted.
// Empty cells, FRED's "." placeholder and NaN/Inf spellings are not numbers.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = numberNoise.Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

var numberNoise = strings.NewReplacer("$", "", "\u20ac", "", "\u00a3", "", ",", "", "%", "", " ", "")

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
