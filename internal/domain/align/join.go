package align

import (
	"fmt"

	"github.com/okian/macrochart/internal/domain/series"
)

// JoinOn selects the join key.
type JoinOn int

// Join key kinds.
const (
	// ByEntityPeriod matches rows on the full (entity, period) key.
	ByEntityPeriod JoinOn = iota
	// ByPeriod matches rows on period alone. Every input must have at
	// most one row per period; output rows keep the first input's entity.
	ByPeriod
)

func (j JoinOn) String() string {
	if j == ByPeriod {
		return "period"
	}
	return "entity+period"
}

// InnerJoin keeps the keys present in every input and concatenates their
// columns in input order. Inputs must share a grain and have disjoint
// column names.
func InnerJoin(on JoinOn, tables ...*series.TidyTable) (*series.TidyTable, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	grain := tables[0].Grain()
	var columns []string
	seen := make(map[string]struct{})
	for i, t := range tables {
		if t.Grain() != grain {
			return nil, fmt.Errorf("%w: input %d is %s, input 0 is %s", series.ErrGrainMismatch, i, t.Grain(), grain)
		}
		for _, c := range t.Columns() {
			if _, dup := seen[c]; dup {
				return nil, fmt.Errorf("%w: %q", ErrColumnClash, c)
			}
			seen[c] = struct{}{}
			columns = append(columns, c)
		}
	}

	var lookups []func(series.Key) (series.Row, bool)
	for _, t := range tables[1:] {
		switch on {
		case ByPeriod:
			idx, err := periodIndex(t)
			if err != nil {
				return nil, err
			}
			lookups = append(lookups, func(k series.Key) (series.Row, bool) {
				r, ok := idx[k.Period]
				return r, ok
			})
		default:
			lookups = append(lookups, t.Lookup)
		}
	}
	if on == ByPeriod {
		if _, err := periodIndex(tables[0]); err != nil {
			return nil, err
		}
	}

	b := series.NewBuilder(grain, columns...)
rows:
	for _, r := range tables[0].Rows() {
		vals := append([]series.Value(nil), r.Values...)
		for _, lookup := range lookups {
			other, ok := lookup(r.Key)
			if !ok {
				continue rows
			}
			vals = append(vals, other.Values...)
		}
		if err := b.Add(r.Key, vals...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}

func periodIndex(t *series.TidyTable) (map[series.Period]series.Row, error) {
	idx := make(map[series.Period]series.Row, t.Len())
	for _, r := range t.Rows() {
		if prev, dup := idx[r.Key.Period]; dup {
			return nil, fmt.Errorf("%w: %s for %q and %q", ErrAmbiguousPeriod, r.Key.Period, prev.Key.Entity, r.Key.Entity)
		}
		idx[r.Key.Period] = r
	}
	return idx, nil
}

// DropMissing removes rows where any of the named columns is not present.
// With no names every column is required.
func DropMissing(t *series.TidyTable, names ...string) (*series.TidyTable, error) {
	return dropWhere(t, func(v series.Value) bool { return !v.IsPresent() }, names)
}

// DropAbsent removes rows where any of the named columns is Missing.
// Undefined values are kept so callers can still count and report them.
func DropAbsent(t *series.TidyTable, names ...string) (*series.TidyTable, error) {
	return dropWhere(t, series.Value.IsMissing, names)
}

func dropWhere(t *series.TidyTable, drop func(series.Value) bool, names []string) (*series.TidyTable, error) {
	if len(names) == 0 {
		names = t.Columns()
	}
	cols, err := t.Refs(names...)
	if err != nil {
		return nil, err
	}
	b := series.NewBuilder(t.Grain(), t.Columns()...)
next:
	for _, r := range t.Rows() {
		for _, c := range cols {
			if drop(r.Get(c)) {
				continue next
			}
		}
		if err := b.Add(r.Key, r.Values...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}

// Select projects t onto the named columns in the given order.
func Select(t *series.TidyTable, names ...string) (*series.TidyTable, error) {
	cols, err := t.Refs(names...)
	if err != nil {
		return nil, err
	}
	b := series.NewBuilder(t.Grain(), names...)
	for _, r := range t.Rows() {
		vals := make([]series.Value, len(cols))
		for i, c := range cols {
			vals[i] = r.Get(c)
		}
		if err := b.Add(r.Key, vals...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}

// Rename returns t with column from renamed to to.
func Rename(t *series.TidyTable, from, to string) (*series.TidyTable, error) {
	c, err := t.Ref(from)
	if err != nil {
		return nil, err
	}
	names := t.Columns()
	names[c.Index()] = to
	b := series.NewBuilder(t.Grain(), names...)
	for _, r := range t.Rows() {
		if err := b.Add(r.Key, r.Values...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}
