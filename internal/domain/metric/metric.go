// Package metric derives ratio, growth and rebased columns from tidy tables.
//
// Every function is pure: it appends one column to a copy of the input and
// returns the new table. Arithmetic without a value (zero denominators,
// logarithms of non-positive numbers) yields series.Undef, never NaN or Inf.
package metric

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/macrochart/internal/domain/series"
)

// Sentinel errors for metric derivation.
var (
	ErrBaseYearMissing = errors.New("base year has no index observation")
)

// derive appends column out computed row by row by fn.
func derive(t *series.TidyTable, out string, fn func(i int, r series.Row) series.Value) (*series.TidyTable, error) {
	b := series.NewBuilder(t.Grain(), append(t.Columns(), out)...)
	for i, r := range t.Rows() {
		if err := b.Add(r.Key, append(r.Values, fn(i, r))...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}

// Ratio returns num/den*scale. A zero denominator is Undefined; a missing
// operand is Missing.
func Ratio(num, den series.Value, scale float64) series.Value {
	if num.IsUndefined() || den.IsUndefined() {
		return series.Undef()
	}
	n, okN := num.Float()
	d, okD := den.Float()
	if !okN || !okD {
		return series.NA()
	}
	if d == 0 {
		return series.Undef()
	}
	return series.Of(n / d * scale)
}

// PercentOf appends out = num / den * 100.
func PercentOf(t *series.TidyTable, out, num, den string) (*series.TidyTable, error) {
	n, err := t.Ref(num)
	if err != nil {
		return nil, err
	}
	d, err := t.Ref(den)
	if err != nil {
		return nil, err
	}
	return derive(t, out, func(_ int, r series.Row) series.Value {
		return Ratio(r.Get(n), r.Get(d), 100)
	})
}

// LogDiff returns (ln cur - ln prev) * 100.
func LogDiff(prev, cur series.Value) series.Value {
	if prev.IsUndefined() || cur.IsUndefined() {
		return series.Undef()
	}
	p, okP := prev.Float()
	c, okC := cur.Float()
	if !okP || !okC {
		return series.NA()
	}
	if p <= 0 || c <= 0 {
		return series.Undef()
	}
	return series.Of((math.Log(c) - math.Log(p)) * 100)
}

// LogGrowth appends the period-over-period log-difference growth of col,
// per entity. The first period of an entity, and any period whose
// predecessor is not the immediately preceding period, is Missing.
func LogGrowth(t *series.TidyTable, out, col string) (*series.TidyTable, error) {
	c, err := t.Ref(col)
	if err != nil {
		return nil, err
	}
	rows := t.Rows()
	return derive(t, out, func(i int, r series.Row) series.Value {
		if i == 0 {
			return series.NA()
		}
		prev := rows[i-1]
		if prev.Key.Entity != r.Key.Entity || !prev.Key.Period.Next().Equal(r.Key.Period) {
			return series.NA()
		}
		return LogDiff(prev.Get(c), r.Get(c))
	})
}

// Rebase appends out = nominal / index * index[base], where base is the
// first period of baseYear with a present index value. Each entity is
// rebased on its own base period.
func Rebase(t *series.TidyTable, out, nominal, index string, baseYear int) (*series.TidyTable, error) {
	n, err := t.Ref(nominal)
	if err != nil {
		return nil, err
	}
	x, err := t.Ref(index)
	if err != nil {
		return nil, err
	}
	base := make(map[string]float64)
	for _, r := range t.Rows() {
		if r.Key.Period.Year() != baseYear {
			continue
		}
		if _, done := base[r.Key.Entity]; done {
			continue
		}
		if f, ok := r.Get(x).Float(); ok {
			base[r.Key.Entity] = f
		}
	}
	for _, e := range t.Entities() {
		if _, ok := base[e]; !ok {
			return nil, fmt.Errorf("%w: %s in %d", ErrBaseYearMissing, index, baseYear)
		}
	}
	return derive(t, out, func(_ int, r series.Row) series.Value {
		return Ratio(r.Get(n), r.Get(x), base[r.Key.Entity])
	})
}

// CountUndefined reports how many values of col are Undefined.
func CountUndefined(t *series.TidyTable, col string) (int, error) {
	c, err := t.Ref(col)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range t.Rows() {
		if r.Get(c).IsUndefined() {
			n++
		}
	}
	return n, nil
}
