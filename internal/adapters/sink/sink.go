// Package sink declares where processed chart tables are persisted.
package sink

import (
	"context"

	"github.com/okian/macrochart/internal/domain/series"
)

// Sink persists the processed table of one chart run.
type Sink interface {
	Name() string
	Write(ctx context.Context, run Run, t *series.TidyTable) error
}

// Run identifies the chart run a table belongs to.
type Run struct {
	ID    string
	Chart string
}
