// Package service runs catalog charts end to end: pipeline, sinks and
// renderers, one isolated run per chart.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/macrochart/internal/adapters/presenter"
	"github.com/okian/macrochart/internal/adapters/sink"
	"github.com/okian/macrochart/internal/adapters/worker"
	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/internal/domain/metric"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/logger"
	"github.com/okian/macrochart/pkg/metrics"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Outcome reports one chart run.
type Outcome struct {
	Chart     string               `json:"chart"`
	RunID     string               `json:"run_id"`
	Rows      int                  `json:"rows"`
	Undefined int                  `json:"undefined"`
	Artifacts []presenter.Artifact `json:"artifacts,omitempty"`
	Duration  time.Duration        `json:"duration"`
	Err       error                `json:"-"`
}

// Status is "failed" when the run errored, "skipped" when its table was
// empty and "ok" otherwise.
func (o Outcome) Status() string {
	switch {
	case o.Err != nil:
		return StatusFailed
	case o.Rows == 0:
		return StatusSkipped
	default:
		return StatusOK
	}
}

// Service runs the charts of a catalog.
type Service struct {
	catalog   *charts.Catalog
	sources   charts.Sources
	params    charts.Params
	renderers []presenter.Renderer
	sinks     []sink.Sink

	outputDir     string
	width, height int
	workerCount   int

	runs   atomic.Int64
	failed atomic.Int64

	logger logger.Logger
}

// New constructs a Service over the default catalog. Sources must be
// supplied with WithSources before charts can run.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:     charts.Default(),
		params:      charts.Params{BaseYear: 2006, FocusEntity: "United States"},
		outputDir:   "out",
		width:       1200,
		height:      700,
		workerCount: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	metrics.UpdateChartsRegistered(s.catalog.Len())
	return s
}

// Charts returns the catalog in order.
func (s *Service) Charts() []charts.Chart {
	return s.catalog.All()
}

// Build runs the pipeline of the named chart and returns its table.
func (s *Service) Build(ctx context.Context, name string) (charts.Chart, *series.TidyTable, error) {
	ch, err := s.catalog.Lookup(name)
	if err != nil {
		return charts.Chart{}, nil, err
	}
	if s.sources == nil {
		return ch, nil, &StageError{Chart: name, Stage: string(charts.StageLoad), Err: errors.New("no sources configured")}
	}
	env := charts.Env{
		Sources: s.sources,
		Stages:  stageRunner{chart: name},
		Params:  s.params,
	}
	t, err := ch.Build(ctx, env)
	if err != nil {
		return ch, nil, err
	}
	return ch, t, nil
}

// Run executes one chart: pipeline, sinks, then renderers. A failure at
// any point ends the run and is reported in the Outcome.
func (s *Service) Run(ctx context.Context, name string) Outcome {
	start := time.Now()
	out := Outcome{Chart: name, RunID: uuid.NewString()}
	log := s.logger.With(logger.String("run_id", out.RunID), logger.String("chart", name))

	out.Err = s.run(ctx, log, &out)
	out.Duration = time.Since(start)

	s.runs.Add(1)
	metrics.RecordChartRun(name, out.Status())
	if out.Err != nil {
		s.failed.Add(1)
		metrics.RecordErrorByComponent("service", errorType(out.Err))
		metrics.RecordErrorLatency("service", errorType(out.Err), float64(out.Duration.Milliseconds()))
		log.Error(ctx, "chart failed", logger.Error(out.Err), logger.Duration("duration", out.Duration))
		return out
	}
	log.Info(ctx, "chart done",
		logger.String("status", out.Status()),
		logger.Int("rows", out.Rows),
		logger.Int("undefined", out.Undefined),
		logger.Duration("duration", out.Duration),
	)
	return out
}

func (s *Service) run(ctx context.Context, log logger.Logger, out *Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Chart: out.Chart, Stage: StagePanic, Err: fmt.Errorf("%v", r)}
		}
	}()
	ch, t, err := s.Build(ctx, out.Chart)
	if err != nil {
		return err
	}
	out.Rows = t.Len()
	for _, col := range ch.Derived {
		n, err := metric.CountUndefined(t, col)
		if err != nil {
			return &StageError{Chart: ch.Name, Stage: string(charts.StageMetric), Err: err}
		}
		out.Undefined += n
	}
	if out.Undefined > 0 {
		metrics.RecordUndefinedValues(ch.Name, out.Undefined)
		log.Warn(ctx, "undefined values in derived columns", logger.Int("count", out.Undefined))
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return &StageError{Chart: ch.Name, Stage: StageSink, Err: err}
	}
	run := sink.Run{ID: out.RunID, Chart: ch.Name}
	for _, sk := range s.sinks {
		err := timed(StageSink, func() error { return sk.Write(ctx, run, t) })
		if err != nil {
			return &StageError{Chart: ch.Name, Stage: StageSink, Err: fmt.Errorf("%s: %w", sk.Name(), err)}
		}
		a := presenter.Artifact{Format: sk.Name()}
		if p, ok := sk.(interface{ Path(chart string) string }); ok {
			a.Path = p.Path(ch.Name)
		}
		out.Artifacts = append(out.Artifacts, a)
	}

	rc := presenter.RenderContext{Dir: s.outputDir, Basename: ch.Name, Width: s.width, Height: s.height}
	for _, r := range s.renderers {
		var a presenter.Artifact
		err := timed(StageRender, func() error {
			var err error
			a, err = r.Render(ctx, rc, ch.Figure, t)
			return err
		})
		if err != nil {
			return &StageError{Chart: ch.Name, Stage: StageRender, Err: fmt.Errorf("%s: %w", r.Format(), err)}
		}
		if a.Skipped {
			log.Info(ctx, "nothing to plot", logger.String("format", a.Format))
		}
		out.Artifacts = append(out.Artifacts, a)
	}
	return nil
}

// RunAll runs the named charts, or the whole catalog when names is empty,
// on the worker pool. One Outcome is returned per chart in input order; a
// failing chart does not affect the others.
func (s *Service) RunAll(ctx context.Context, names ...string) []Outcome {
	if len(names) == 0 {
		for _, ch := range s.catalog.All() {
			names = append(names, ch.Name)
		}
	}
	out := make([]Outcome, len(names))
	pool := worker.NewPool(s.workerCount, worker.WithName("charts"), worker.WithLogger(s.logger.Named("pool")))
	pool.Run(ctx, len(names), func(ctx context.Context, i int) {
		out[i] = s.Run(ctx, names[i])
	})
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"charts":      s.catalog.Len(),
		"workerCount": s.workerCount,
		"outputDir":   s.outputDir,
		"baseYear":    s.params.BaseYear,
		"focusEntity": s.params.FocusEntity,
		"runs":        s.runs.Load(),
		"failedRuns":  s.failed.Load(),
	}
}

// stageRunner times pipeline stages and attributes failures to them.
type stageRunner struct {
	chart string
}

func (r stageRunner) Run(stage charts.Stage, fn func() error) error {
	if err := timed(string(stage), fn); err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return err
		}
		return &StageError{Chart: r.chart, Stage: string(stage), Err: err}
	}
	return nil
}

func timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStageLatency(stage, float64(time.Since(start).Milliseconds()))
	return err
}

func errorType(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	if errors.Is(err, charts.ErrUnknownChart) {
		return StageLookup
	}
	return "unknown"
}
