package charts

import (
	"context"

	"github.com/okian/macrochart/internal/domain/align"
	"github.com/okian/macrochart/internal/domain/metric"
	"github.com/okian/macrochart/internal/domain/reshape"
	"github.com/okian/macrochart/internal/domain/series"
)

// step is one table transformation.
type step func(*series.TidyTable) (*series.TidyTable, error)

func chain(t *series.TidyTable, steps ...step) (*series.TidyTable, error) {
	var err error
	for _, s := range steps {
		if t, err = s(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// pipe applies steps to in as one stage.
func (e Env) pipe(stage Stage, in *series.TidyTable, steps ...step) (*series.TidyTable, error) {
	var out *series.TidyTable
	err := e.Stages.Run(stage, func() error {
		var err error
		out, err = chain(in, steps...)
		return err
	})
	return out, err
}

func joinWith(on align.JoinOn, others ...*series.TidyTable) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) {
		return align.InnerJoin(on, append([]*series.TidyTable{t}, others...)...)
	}
}

func dropMissing(cols ...string) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) { return align.DropMissing(t, cols...) }
}

func dropAbsent(cols ...string) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) { return align.DropAbsent(t, cols...) }
}

func downsample(g series.Granularity) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) { return align.Downsample(t, g) }
}

func filter(preds ...align.Predicate) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) { return align.Filter(t, preds...) }
}

func project(cols ...string) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) { return align.Select(t, cols...) }
}

func meanByEntity() step {
	return align.MeanByEntity
}

func logGrowth(out, col string) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) { return metric.LogGrowth(t, out, col) }
}

func percentOf(out, num, den string) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) { return metric.PercentOf(t, out, num, den) }
}

func rebase(out, nominal, index string, baseYear int) step {
	return func(t *series.TidyTable) (*series.TidyTable, error) {
		return metric.Rebase(t, out, nominal, index, baseYear)
	}
}

// fetch loads a remote series as a one-column table named column.
func fetch(ctx context.Context, src Sources, id, column string) (*series.TidyTable, error) {
	s, err := src.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.Table("")
	if err != nil {
		return nil, err
	}
	return align.Rename(t, id, column)
}

// melt reshapes a World Bank panel into (country, year) rows.
func melt(w *series.Wide, value string) (*series.TidyTable, error) {
	return reshape.Melt(w, reshape.MeltOptions{EntityColumn: WorldBankEntityColumn, ValueName: value})
}
