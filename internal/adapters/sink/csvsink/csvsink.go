// Package csvsink writes processed tables as CSV, one file per chart.
package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/macrochart/internal/adapters/sink"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/metrics"
)

// Sink writes <Dir>/<chart>.csv.
type Sink struct {
	Dir string
}

// New creates a sink rooted at dir.
func New(dir string) *Sink { return &Sink{Dir: dir} }

// Name implements sink.Sink.
func (s *Sink) Name() string { return "csv" }

// Path returns the file written for chart.
func (s *Sink) Path(chart string) string {
	return filepath.Join(s.Dir, chart+".csv")
}

// Write replaces the chart's CSV with t.
func (s *Sink) Write(ctx context.Context, run sink.Run, t *series.TidyTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.Dir, err)
	}
	path := s.Path(run.Chart)
	tmp, err := os.CreateTemp(s.Dir, "."+run.Chart+"-*.csv")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	metrics.RecordArtifact("csv")
	return nil
}

// Encode writes t as CSV: a period index column, an entity column when t
// has named entities, then one column per table column. Missing values are
// empty cells and undefined values are the text "undefined".
func Encode(w io.Writer, t *series.TidyTable) error {
	withEntity := false
	for _, e := range t.Entities() {
		if e != "" {
			withEntity = true
			break
		}
	}
	cw := csv.NewWriter(w)
	header := []string{"period"}
	if withEntity {
		header = append(header, "entity")
	}
	if err := cw.Write(append(header, t.Columns()...)); err != nil {
		return err
	}
	for _, r := range t.Rows() {
		rec := make([]string, 0, len(header)+len(r.Values))
		rec = append(rec, r.Key.Period.String())
		if withEntity {
			rec = append(rec, r.Key.Entity)
		}
		for _, v := range r.Values {
			rec = append(rec, v.String())
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
