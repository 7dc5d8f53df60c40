package series

import (
	"fmt"
	"sort"
)

// Point is a single observation of a Series.
type Point struct {
	Period Period
	Value  Value
}

// Series is a named sequence of observations of one grain with unique
// periods, ordered by period.
type Series struct {
	Name   string
	Grain  Granularity
	Points []Point
}

// NewSeries validates and orders points.
func NewSeries(name string, grain Granularity, points []Point) (*Series, error) {
	ps := append([]Point(nil), points...)
	seen := make(map[Period]struct{}, len(ps))
	for _, p := range ps {
		if p.Period.Grain != grain {
			return nil, fmt.Errorf("%w: %s point %s in %s series %q", ErrGrainMismatch, p.Period.Grain, p.Period, grain, name)
		}
		if _, dup := seen[p.Period]; dup {
			return nil, fmt.Errorf("%w: %s in %q", ErrDuplicatePeriod, p.Period, name)
		}
		seen[p.Period] = struct{}{}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Period.Before(ps[j].Period) })
	return &Series{Name: name, Grain: grain, Points: ps}, nil
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.Points) }

// Table converts s into a single-column tidy table keyed by entity.
func (s *Series) Table(entity string) (*TidyTable, error) {
	b := NewBuilder(s.Grain, s.Name)
	for _, p := range s.Points {
		if err := b.Add(Key{Entity: entity, Period: p.Period}, p.Value); err != nil {
			return nil, err
		}
	}
	return b.Table()
}

// Extract returns column name of t as a Series, keeping only rows of entity.
func Extract(t *TidyTable, name, entity string) (*Series, error) {
	c, err := t.Ref(name)
	if err != nil {
		return nil, err
	}
	var pts []Point
	for _, r := range t.rows {
		if r.Key.Entity == entity {
			pts = append(pts, Point{Period: r.Key.Period, Value: r.Values[c.index]})
		}
	}
	return NewSeries(name, t.grain, pts)
}

// Wide is a raw wide-format table: a header and one string record per
// entity, before any reshaping or coercion.
type Wide struct {
	Header  []string
	Records [][]string
}

// Len returns the record count.
func (w *Wide) Len() int { return len(w.Records) }
