// Package presenter renders pipeline results. Every render receives its own
// RenderContext, so charts never share figure state.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/okian/macrochart/internal/domain/series"
)

// Sentinel errors for rendering.
var (
	ErrUnknownKind   = errors.New("unknown figure kind")
	ErrNoScatterAxes = errors.New("scatter figure needs x and y columns")
)

// Kind is the figure layout.
type Kind int

// Figure kinds.
const (
	Line Kind = iota
	Scatter
)

func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case Scatter:
		return "scatter"
	default:
		return "unknown"
	}
}

// Trace declares one plotted column of a line figure.
type Trace struct {
	Column string
	Label  string
	// Color is a hex RGB string such as "#1f77b4"; empty picks a default.
	Color     string
	Dashed    bool
	Secondary bool
}

// Range fixes an axis range.
type Range struct {
	Min, Max float64
}

// Figure declares what to draw. It holds no rendering state.
type Figure struct {
	Kind    Kind
	Title   string
	XLabel  string
	YLabel  string
	Y2Label string
	// Traces of a line figure.
	Traces []Trace
	// X and Y columns of a scatter figure; rows are labelled by entity.
	X, Y string
	// YRange and Y2Range are optional fixed axis ranges.
	YRange, Y2Range *Range
	// YearTicks formats the time axis by year.
	YearTicks bool
}

// Validate checks that the figure references columns of t.
func (f Figure) Validate(t *series.TidyTable) error {
	switch f.Kind {
	case Line:
		for _, tr := range f.Traces {
			if _, err := t.Ref(tr.Column); err != nil {
				return err
			}
		}
	case Scatter:
		if f.X == "" || f.Y == "" {
			return ErrNoScatterAxes
		}
		if _, err := t.Refs(f.X, f.Y); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, f.Kind)
	}
	return nil
}

// RenderContext is the explicit target of one render.
type RenderContext struct {
	Dir      string
	Basename string
	Width    int
	Height   int
}

// Path returns the artifact path for a file extension.
func (rc RenderContext) Path(ext string) string {
	return filepath.Join(rc.Dir, rc.Basename+"."+ext)
}

// Artifact describes a render result. Skipped artifacts have no file.
type Artifact struct {
	Format  string `json:"format"`
	Path    string `json:"path,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Renderer draws a figure of a tidy table.
type Renderer interface {
	Format() string
	Render(ctx context.Context, rc RenderContext, fig Figure, t *series.TidyTable) (Artifact, error)
}

// xy is one plotted trace with only present values kept.
type xy struct {
	times  []time.Time
	xs     []float64
	ys     []float64
	labels []string
}

func (p xy) len() int { return len(p.ys) }

// lineXY collects the present values of column over period ends.
func lineXY(t *series.TidyTable, column string) (xy, error) {
	c, err := t.Ref(column)
	if err != nil {
		return xy{}, err
	}
	var out xy
	for _, r := range t.Rows() {
		if f, ok := r.Get(c).Float(); ok {
			out.times = append(out.times, r.Key.Period.End)
			out.ys = append(out.ys, f)
		}
	}
	return out, nil
}

// scatterXY collects rows where both x and y are present.
func scatterXY(t *series.TidyTable, x, y string) (xy, error) {
	cols, err := t.Refs(x, y)
	if err != nil {
		return xy{}, err
	}
	var out xy
	for _, r := range t.Rows() {
		fx, okX := r.Get(cols[0]).Float()
		fy, okY := r.Get(cols[1]).Float()
		if okX && okY {
			out.xs = append(out.xs, fx)
			out.ys = append(out.ys, fy)
			out.labels = append(out.labels, r.Key.Entity)
		}
	}
	return out, nil
}

// hasPoints reports whether any trace of fig would draw something.
func hasPoints(fig Figure, t *series.TidyTable) (bool, error) {
	if t == nil || t.Empty() {
		return false, nil
	}
	if fig.Kind == Scatter {
		p, err := scatterXY(t, fig.X, fig.Y)
		return p.len() > 0, err
	}
	for _, tr := range fig.Traces {
		p, err := lineXY(t, tr.Column)
		if err != nil {
			return false, err
		}
		if p.len() > 0 {
			return true, nil
		}
	}
	return false, nil
}

func label(tr Trace) string {
	if tr.Label != "" {
		return tr.Label
	}
	return tr.Column
}
