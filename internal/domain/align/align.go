// Package align harmonises granularity and anchor conventions of tidy
// tables and joins them on period or (entity, period) keys.
package align

import (
	"errors"
	"fmt"

	"github.com/okian/macrochart/internal/domain/series"
)

// Sentinel errors for alignment.
var (
	ErrGrainOrder      = errors.New("target granularity must be coarser than source")
	ErrColumnClash     = errors.New("column present in more than one input")
	ErrAmbiguousPeriod = errors.New("period appears for more than one entity")
	ErrNoTables        = errors.New("no tables to join")
)

// mean accumulates one column of a group.
type mean struct {
	sum       float64
	n         int
	undefined bool
}

func (m *mean) add(v series.Value) {
	switch f, ok := v.Float(); {
	case ok:
		m.sum += f
		m.n++
	case v.IsUndefined():
		m.undefined = true
	}
}

// value is the mean of present values. A group with no present values is
// Undefined if any member was Undefined and Missing otherwise.
func (m *mean) value() series.Value {
	switch {
	case m.n > 0:
		return series.Of(m.sum / float64(m.n))
	case m.undefined:
		return series.Undef()
	default:
		return series.NA()
	}
}

// Mean averages the present values of vs with the same rules as
// Downsample.
func Mean(vs ...series.Value) series.Value {
	var m mean
	for _, v := range vs {
		m.add(v)
	}
	return m.value()
}

type group struct {
	key   series.Key
	means []mean
}

// collapse groups rows of t by keyOf, preserving first-seen order, and
// averages each column within a group.
func collapse(t *series.TidyTable, grain series.Granularity, keyOf func(series.Key) series.Key) (*series.TidyTable, error) {
	width := len(t.Columns())
	var groups []*group
	byKey := make(map[series.Key]*group)
	for _, r := range t.Rows() {
		k := keyOf(r.Key)
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k, means: make([]mean, width)}
			byKey[k] = g
			groups = append(groups, g)
		}
		for i, v := range r.Values {
			g.means[i].add(v)
		}
	}
	b := series.NewBuilder(grain, t.Columns()...)
	for _, g := range groups {
		vals := make([]series.Value, width)
		for i := range g.means {
			vals[i] = g.means[i].value()
		}
		if err := b.Add(g.key, vals...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}

// Downsample converts t to a coarser grain by averaging the present values
// of each (entity, destination period) group. Missing values are excluded
// from the average rather than counted as zero.
func Downsample(t *series.TidyTable, to series.Granularity) (*series.TidyTable, error) {
	if !to.CoarserThan(t.Grain()) {
		return nil, fmt.Errorf("%w: %s to %s", ErrGrainOrder, t.Grain(), to)
	}
	return collapse(t, to, func(k series.Key) series.Key {
		return series.Key{Entity: k.Entity, Period: k.Period.To(to)}
	})
}

// Normalize re-anchors every key of t at the end of its containing period
// of grain g without aggregating. Use it when a source reports a coarse
// series at monthly dates, e.g. quarter-start stamps; two keys collapsing
// onto one period is an error, Downsample is the aggregating variant.
func Normalize(t *series.TidyTable, g series.Granularity) (*series.TidyTable, error) {
	b := series.NewBuilder(g, t.Columns()...)
	for _, r := range t.Rows() {
		k := series.Key{Entity: r.Key.Entity, Period: r.Key.Period.To(g)}
		if err := b.Add(k, r.Values...); err != nil {
			return nil, err
		}
	}
	return b.Table()
}

// MeanByEntity collapses each entity to the mean of its present values.
// The resulting row is keyed by the entity's latest period.
func MeanByEntity(t *series.TidyTable) (*series.TidyTable, error) {
	last := make(map[string]series.Period)
	for _, r := range t.Rows() {
		last[r.Key.Entity] = r.Key.Period
	}
	return collapse(t, t.Grain(), func(k series.Key) series.Key {
		return series.Key{Entity: k.Entity, Period: last[k.Entity]}
	})
}
