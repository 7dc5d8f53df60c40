package presenter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/metrics"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultWidth  = 1200
	defaultHeight = 700
)

var palette = []drawing.Color{
	chart.ColorRed, chart.ColorBlue, chart.ColorGreen, chart.ColorOrange, chart.ColorAlternateGray,
}

// PNGRenderer rasterises figures with go-chart.
type PNGRenderer struct{}

// Format implements Renderer.
func (PNGRenderer) Format() string { return "png" }

// Render writes <dir>/<basename>.png. A table with nothing to plot is
// skipped without error.
func (r PNGRenderer) Render(ctx context.Context, rc RenderContext, fig Figure, t *series.TidyTable) (Artifact, error) {
	a := Artifact{Format: r.Format()}
	if err := ctx.Err(); err != nil {
		return a, err
	}
	ok, err := hasPoints(fig, t)
	if err != nil {
		return a, err
	}
	if !ok {
		a.Skipped = true
		return a, nil
	}
	var buf bytes.Buffer
	if err := r.Encode(&buf, rc, fig, t); err != nil {
		return a, err
	}
	a.Path = rc.Path("png")
	if err := os.WriteFile(a.Path, buf.Bytes(), 0o644); err != nil {
		return a, fmt.Errorf("write %s: %w", a.Path, err)
	}
	metrics.RecordArtifact(a.Format)
	return a, nil
}

// Encode renders fig as PNG into w.
func (PNGRenderer) Encode(w io.Writer, rc RenderContext, fig Figure, t *series.TidyTable) error {
	if err := fig.Validate(t); err != nil {
		return err
	}
	ch := chart.Chart{
		Title:      fig.Title,
		Width:      orDefault(rc.Width, defaultWidth),
		Height:     orDefault(rc.Height, defaultHeight),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: fig.XLabel},
		YAxis:      chart.YAxis{Name: fig.YLabel, Range: continuous(fig.YRange)},
	}

	var err error
	switch fig.Kind {
	case Scatter:
		ch.Series, err = scatterSeries(fig, t)
	default:
		ch.Series, err = lineSeries(fig, t)
		if fig.YearTicks {
			ch.XAxis.ValueFormatter = chart.TimeValueFormatterWithFormat("2006")
		}
		for _, tr := range fig.Traces {
			if tr.Secondary {
				ch.YAxisSecondary = chart.YAxis{Name: fig.Y2Label, Range: continuous(fig.Y2Range)}
				break
			}
		}
	}
	if err != nil {
		return err
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %q: %w", fig.Title, err)
	}
	return nil
}

func lineSeries(fig Figure, t *series.TidyTable) ([]chart.Series, error) {
	var out []chart.Series
	for i, tr := range fig.Traces {
		p, err := lineXY(t, tr.Column)
		if err != nil {
			return nil, err
		}
		if p.len() == 0 {
			continue
		}
		// go-chart rejects a zero-width x range; widen a single point.
		if p.len() == 1 {
			p.times = append(p.times, p.times[0].Add(24*time.Hour))
			p.ys = append(p.ys, p.ys[0])
		}
		style := chart.Style{StrokeColor: color(tr.Color, i), StrokeWidth: 2}
		if tr.Dashed {
			style.StrokeDashArray = []float64{6, 4}
		}
		ts := chart.TimeSeries{Name: label(tr), XValues: p.times, YValues: p.ys, Style: style}
		if tr.Secondary {
			ts.YAxis = chart.YAxisSecondary
		}
		out = append(out, ts)
	}
	return out, nil
}

func scatterSeries(fig Figure, t *series.TidyTable) ([]chart.Series, error) {
	p, err := scatterXY(t, fig.X, fig.Y)
	if err != nil {
		return nil, err
	}
	if p.len() == 1 {
		p.xs = append(p.xs, p.xs[0]+1e-9)
		p.ys = append(p.ys, p.ys[0])
		p.labels = append(p.labels, "")
	}
	points := chart.ContinuousSeries{
		Name:    fig.YLabel,
		XValues: p.xs,
		YValues: p.ys,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    4,
			DotColor:    drawing.ColorFromHex("87ceeb"),
		},
	}
	notes := chart.AnnotationSeries{Style: chart.Style{FontSize: 6}}
	for i, l := range p.labels {
		if l == "" {
			continue
		}
		notes.Annotations = append(notes.Annotations, chart.Value2{XValue: p.xs[i], YValue: p.ys[i], Label: l})
	}
	return []chart.Series{points, notes}, nil
}

func continuous(r *Range) chart.Range {
	if r == nil {
		return nil
	}
	return &chart.ContinuousRange{Min: r.Min, Max: r.Max}
}

func color(hex string, i int) drawing.Color {
	if hex != "" {
		return drawing.ColorFromHex(trimHash(hex))
	}
	return palette[i%len(palette)]
}

func trimHash(s string) string {
	if len(s) > 0 && s[0] == '#' {
		return s[1:]
	}
	return s
}

func orDefault(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}
