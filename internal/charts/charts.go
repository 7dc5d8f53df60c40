// Package charts holds the chart catalog: for each chart, the pipeline that
// loads, reshapes, aligns and derives its table, and the figure drawn from
// it.
package charts

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/macrochart/internal/adapters/presenter"
	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/domain/series"
)

// ErrUnknownChart is returned for a name not in the catalog.
var ErrUnknownChart = errors.New("unknown chart")

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageLoad    Stage = "load"
	StageReshape Stage = "reshape"
	StageAlign   Stage = "align"
	StageMetric  Stage = "metric"
)

// Stages runs one step of a pipeline. Implementations time the step and
// attribute a failure to it.
type Stages interface {
	Run(stage Stage, fn func() error) error
}

// Sources loads the raw inputs of a pipeline.
type Sources interface {
	// Wide loads a wide country/year panel by source key.
	Wide(ctx context.Context, key string) (*series.Wide, error)
	// Series loads a date/value extract by source key.
	Series(ctx context.Context, key string, opts csvsource.SeriesOptions) (*series.TidyTable, error)
	// Fetch resolves a remote series identifier.
	Fetch(ctx context.Context, id string) (*series.Series, error)
}

// Params are the run-time knobs of the catalog.
type Params struct {
	// BaseYear is the reference year of rebased values.
	BaseYear int
	// FocusEntity is the country of single-country panel charts.
	FocusEntity string
}

// Env is everything a pipeline may use.
type Env struct {
	Sources Sources
	Stages  Stages
	Params  Params
}

// Chart is one catalog entry.
type Chart struct {
	Name        string
	Description string
	Figure      presenter.Figure
	// Derived lists computed columns whose undefined values are reported.
	Derived []string
	Build   func(ctx context.Context, env Env) (*series.TidyTable, error)
}

// Catalog is an immutable set of charts.
type Catalog struct {
	charts []Chart
	byName map[string]int
}

// NewCatalog indexes charts by name. Names must be unique.
func NewCatalog(charts ...Chart) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(charts))}
	for _, ch := range charts {
		if _, dup := c.byName[ch.Name]; dup {
			return nil, fmt.Errorf("duplicate chart %q", ch.Name)
		}
		c.byName[ch.Name] = len(c.charts)
		c.charts = append(c.charts, ch)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(
		moneyInflationQuarterly(),
		internationalScatter(),
		usInflationMoney(),
		cpiHourlyEarnings(),
		savingInvestmentTrade(),
		netExportsBudgetDeficit(),
		netExportsRealExchange(),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the chart called name.
func (c *Catalog) Lookup(name string) (Chart, error) {
	i, ok := c.byName[name]
	if !ok {
		return Chart{}, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	return c.charts[i], nil
}

// All returns the charts in catalog order.
func (c *Catalog) All() []Chart {
	return append([]Chart(nil), c.charts...)
}

// Names returns the chart names sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.charts))
	for _, ch := range c.charts {
		out = append(out, ch.Name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of charts.
func (c *Catalog) Len() int { return len(c.charts) }

// Direct runs every stage inline without instrumentation.
type Direct struct{}

// Run implements Stages.
func (Direct) Run(_ Stage, fn func() error) error { return fn() }
