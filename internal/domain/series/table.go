package series

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies one row of a TidyTable. Single-entity series use an empty
// Entity.
type Key struct {
	Entity string
	Period Period
}

func (k Key) less(o Key) bool {
	if k.Entity != o.Entity {
		return k.Entity < o.Entity
	}
	return k.Period.Before(o.Period)
}

func (k Key) String() string {
	if k.Entity == "" {
		return k.Period.String()
	}
	return k.Entity + "@" + k.Period.String()
}

// Row is one observation key with a value per table column.
type Row struct {
	Key    Key
	Values []Value
}

// Get returns the value of column c.
func (r Row) Get(c Column) Value {
	return r.Values[c.index]
}

// Column is a validated reference to a table column. Obtain one with
// TidyTable.Ref and use it with Row.Get instead of looking columns up by
// name on every row.
type Column struct {
	name  string
	index int
}

// Name returns the column name.
func (c Column) Name() string { return c.name }

// Index returns the column position.
func (c Column) Index() int { return c.index }

// TidyTable holds one row per key and one value column per metric. The
// column set is fixed when the table is built and keys are unique. Tables
// are immutable; every pipeline stage returns a new one.
type TidyTable struct {
	grain   Granularity
	columns []string
	rows    []Row
	index   map[Key]int
}

// Grain returns the granularity shared by every row.
func (t *TidyTable) Grain() Granularity { return t.grain }

// Columns returns a copy of the column names.
func (t *TidyTable) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the row count.
func (t *TidyTable) Len() int { return len(t.rows) }

// Empty reports whether the table has no rows.
func (t *TidyTable) Empty() bool { return len(t.rows) == 0 }

// Row returns row i in key order.
func (t *TidyTable) Row(i int) Row {
	r := t.rows[i]
	return Row{Key: r.Key, Values: append([]Value(nil), r.Values...)}
}

// Rows returns every row in key order. The returned rows are copies.
func (t *TidyTable) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Ref resolves a column by name.
func (t *TidyTable) Ref(name string) (Column, error) {
	for i, c := range t.columns {
		if c == name {
			return Column{name: c, index: i}, nil
		}
	}
	return Column{}, fmt.Errorf("%w: %q (have %s)", ErrUnknownColumn, name, strings.Join(t.columns, ", "))
}

// Refs resolves several columns at once.
func (t *TidyTable) Refs(names ...string) ([]Column, error) {
	out := make([]Column, len(names))
	for i, n := range names {
		c, err := t.Ref(n)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Lookup returns the row stored under k.
func (t *TidyTable) Lookup(k Key) (Row, bool) {
	i, ok := t.index[k]
	if !ok {
		return Row{}, false
	}
	return t.Row(i), true
}

// Entities returns the distinct entity labels in sorted order.
func (t *TidyTable) Entities() []string {
	var out []string
	for i, r := range t.rows {
		if i == 0 || r.Key.Entity != t.rows[i-1].Key.Entity {
			out = append(out, r.Key.Entity)
		}
	}
	return out
}

// Builder accumulates rows for a new TidyTable.
type Builder struct {
	grain   Granularity
	columns []string
	rows    []Row
	index   map[Key]int
	err     error
}

// NewBuilder starts a table of the given grain and columns. Invalid column
// sets are reported by the first Add or by Table.
func NewBuilder(grain Granularity, columns ...string) *Builder {
	b := &Builder{
		grain:   grain,
		columns: append([]string(nil), columns...),
		index:   make(map[Key]int),
	}
	if !grain.Valid() {
		b.err = fmt.Errorf("%w: %d", ErrUnknownGranularity, int(grain))
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			b.err = fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
			break
		}
		seen[c] = struct{}{}
	}
	return b
}

// Add appends a row. The key period must match the builder grain and the
// key must not already be present.
func (b *Builder) Add(k Key, values ...Value) error {
	if b.err != nil {
		return b.err
	}
	if len(values) != len(b.columns) {
		return fmt.Errorf("%w: got %d, want %d", ErrArity, len(values), len(b.columns))
	}
	if k.Period.Grain != b.grain {
		return fmt.Errorf("%w: row %s is %s, table is %s", ErrGrainMismatch, k, k.Period.Grain, b.grain)
	}
	if _, dup := b.index[k]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, k)
	}
	b.index[k] = len(b.rows)
	b.rows = append(b.rows, Row{Key: k, Values: append([]Value(nil), values...)})
	return nil
}

// Table sorts the accumulated rows by (entity, period) and returns the
// finished table.
func (b *Builder) Table() (*TidyTable, error) {
	if b.err != nil {
		return nil, b.err
	}
	rows := b.rows
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key.less(rows[j].Key) })
	index := make(map[Key]int, len(rows))
	for i, r := range rows {
		index[r.Key] = i
	}
	t := &TidyTable{grain: b.grain, columns: b.columns, rows: rows, index: index}
	b.rows, b.index = nil, make(map[Key]int)
	return t, nil
}
