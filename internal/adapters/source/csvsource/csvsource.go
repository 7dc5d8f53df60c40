// Package csvsource loads local statistical extracts: World Bank style wide
// panels and FRED style date/value series, from CSV or XLSX files.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/macrochart/internal/domain/reshape"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/metrics"
	"github.com/xuri/excelize/v2"
)

// contextCheckInterval is how often, in records, a load checks for
// cancellation.
const contextCheckInterval = 1000

// DefaultDateColumn is the date header of FRED downloads.
const DefaultDateColumn = "observation_date"

// WideOptions configures LoadWide.
type WideOptions struct {
	// SkipRows metadata rows precede the header.
	SkipRows int
	// EntityColumn is the only metadata column kept.
	EntityColumn string
	// Sheet selects the XLSX sheet; the first sheet when empty.
	Sheet string
}

// LoadWide reads a wide panel. The returned table has the entity column
// followed by the 4-digit year columns; every other column is dropped.
func LoadWide(ctx context.Context, path string, opts WideOptions) (*series.Wide, error) {
	records, err := readRecords(ctx, path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if opts.SkipRows >= len(records) {
		return &series.Wide{}, nil
	}
	records = records[opts.SkipRows:]
	header := records[0]

	entityIdx := indexOf(header, opts.EntityColumn)
	if entityIdx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, opts.EntityColumn, filepath.Base(path))
	}
	periods := reshape.PeriodColumns(header)
	keep := make([]int, 0, len(periods)+1)
	keep = append(keep, entityIdx)
	for _, pc := range periods {
		keep = append(keep, pc.Index)
	}

	w := &series.Wide{Header: project(header, keep)}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		w.Records = append(w.Records, project(rec, keep))
	}
	metrics.RecordRowsLoaded("wide", w.Len())
	return w, nil
}

// SeriesOptions configures LoadSeries.
type SeriesOptions struct {
	// DateColumn defaults to DefaultDateColumn, then to the first column.
	DateColumn string
	// ValueColumns to load; every non-date column when empty.
	ValueColumns []string
	// Rename maps source headers to output column names.
	Rename map[string]string
	// Grain anchors each date at the end of its period. Defaults to Monthly.
	Grain series.Granularity
	// Entity labels every row; empty for single-entity series.
	Entity string
	// Sheet selects the XLSX sheet; the first sheet when empty.
	Sheet string
}

// LoadSeries reads a date/value extract into a tidy table. A row whose date
// does not parse is skipped; a value that does not parse is Missing.
func LoadSeries(ctx context.Context, path string, opts SeriesOptions) (*series.TidyTable, error) {
	if opts.Grain == 0 {
		opts.Grain = series.Monthly
	}
	records, err := readRecords(ctx, path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return series.NewBuilder(opts.Grain, renamed(opts.ValueColumns, opts.Rename)...).Table()
	}
	header := records[0]

	dateIdx := 0
	switch {
	case opts.DateColumn != "":
		dateIdx = indexOf(header, opts.DateColumn)
	case indexOf(header, DefaultDateColumn) >= 0:
		dateIdx = indexOf(header, DefaultDateColumn)
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("%w: date column %q in %s", ErrMissingColumn, opts.DateColumn, filepath.Base(path))
	}

	valueCols := opts.ValueColumns
	if len(valueCols) == 0 {
		for i, h := range header {
			if i != dateIdx && strings.TrimSpace(h) != "" {
				valueCols = append(valueCols, strings.TrimSpace(h))
			}
		}
	}
	idx := make([]int, len(valueCols))
	for i, c := range valueCols {
		if idx[i] = indexOf(header, c); idx[i] < 0 {
			return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, c, filepath.Base(path))
		}
	}

	b := series.NewBuilder(opts.Grain, renamed(valueCols, opts.Rename)...)
	skipped := 0
	for n, rec := range records[1:] {
		if n%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blank(rec) {
			continue
		}
		d, ok := ParseDate(cell(rec, dateIdx))
		if !ok {
			skipped++
			continue
		}
		vals := make([]series.Value, len(idx))
		for i, j := range idx {
			if f, ok := reshape.ParseNumber(cell(rec, j)); ok {
				vals[i] = series.Of(f)
			}
		}
		if err := b.Add(series.Key{Entity: opts.Entity, Period: series.At(d, opts.Grain)}, vals...); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), n+2, err)
		}
	}
	t, err := b.Table()
	if err != nil {
		return nil, err
	}
	metrics.RecordRowsLoaded("series", t.Len())
	metrics.RecordRowsDropped("load", skipped)
	return t, nil
}

// readRecords returns every record of a CSV file or of one XLSX sheet.
func readRecords(ctx context.Context, path, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readSheet(path, sheet)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, filepath.Base(path), err)
		}
		// encoding/csv skips blank lines; pad them back so that records[i]
		// is line i+1 and SkipRows counts physical lines.
		line, _ := r.FieldPos(0)
		for len(records) < line-1 {
			records = append(records, nil)
		}
		records = append(records, rec)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrRead, sheet, err)
	}
	return rows, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func project(rec []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = cell(rec, j)
	}
	return out
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func renamed(cols []string, rename map[string]string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c
		if to, ok := rename[c]; ok {
			out[i] = to
		}
	}
	return out
}
