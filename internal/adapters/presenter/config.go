package presenter

import (
	"github.com/okian/macrochart/internal/domain/series"
)

// ChartConfig is a renderer-neutral JSON view of a figure, for clients that
// draw charts themselves.
type ChartConfig struct {
	Kind    string        `json:"kind"`
	Title   string        `json:"title"`
	XLabel  string        `json:"x_label,omitempty"`
	YLabel  string        `json:"y_label,omitempty"`
	Y2Label string        `json:"y2_label,omitempty"`
	Series  []SeriesView  `json:"series"`
	Points  []ScatterView `json:"points,omitempty"`
}

// SeriesView is one line trace. Non-present values are omitted.
type SeriesView struct {
	Label     string      `json:"label"`
	Column    string      `json:"column"`
	Color     string      `json:"color,omitempty"`
	Dashed    bool        `json:"dashed,omitempty"`
	Secondary bool        `json:"secondary,omitempty"`
	Points    []PointView `json:"points"`
}

// PointView is a period end date and its value.
type PointView struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ScatterView is one labelled scatter point.
type ScatterView struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Config builds the ChartConfig of fig over t.
func Config(fig Figure, t *series.TidyTable) (ChartConfig, error) {
	cfg := ChartConfig{
		Kind:    fig.Kind.String(),
		Title:   fig.Title,
		XLabel:  fig.XLabel,
		YLabel:  fig.YLabel,
		Y2Label: fig.Y2Label,
		Series:  []SeriesView{},
	}
	if err := fig.Validate(t); err != nil {
		return cfg, err
	}
	if fig.Kind == Scatter {
		p, err := scatterXY(t, fig.X, fig.Y)
		if err != nil {
			return cfg, err
		}
		for i := range p.ys {
			cfg.Points = append(cfg.Points, ScatterView{Label: p.labels[i], X: p.xs[i], Y: p.ys[i]})
		}
		return cfg, nil
	}
	for _, tr := range fig.Traces {
		p, err := lineXY(t, tr.Column)
		if err != nil {
			return cfg, err
		}
		sv := SeriesView{
			Label:     label(tr),
			Column:    tr.Column,
			Color:     tr.Color,
			Dashed:    tr.Dashed,
			Secondary: tr.Secondary,
			Points:    make([]PointView, len(p.ys)),
		}
		for i := range p.ys {
			sv.Points[i] = PointView{Date: p.times[i].Format(series.DateLayout), Value: p.ys[i]}
		}
		cfg.Series = append(cfg.Series, sv)
	}
	return cfg, nil
}
