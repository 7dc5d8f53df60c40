package align

import (
	"time"

	"github.com/okian/macrochart/internal/domain/series"
)

// Predicate selects rows by key. Predicates never look at values, so
// filtering commutes with joining.
type Predicate func(series.Key) bool

// Entity keeps rows of the named entity.
func Entity(name string) Predicate {
	return func(k series.Key) bool { return k.Entity == name }
}

// Between keeps periods overlapping the closed date range [from, to].
func Between(from, to time.Time) Predicate {
	return func(k series.Key) bool {
		return !k.Period.End.Before(from) && !k.Period.Start().After(to)
	}
}

// FromYear keeps periods in year y or later.
func FromYear(y int) Predicate {
	return func(k series.Key) bool { return k.Period.Year() >= y }
}

// Filter returns the rows of t matching every predicate.
func Filter(t *series.TidyTable, preds ...Predicate) (*series.TidyTable, error) {
	b := series.NewBuilder(t.Grain(), t.Columns()...)
next:
	for _, r := range t.Rows() {
		for _, p := range preds {
			if !p(r.Key) {
				continue next
			}
		}
		if err := b.Add(r.Key, r.Values...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}
