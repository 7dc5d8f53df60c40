package charts

import (
	"context"

	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/adapters/source/fred"
	"github.com/okian/macrochart/internal/domain/series"
)

// WorldBankEntityColumn is the country label column of World Bank panels.
const WorldBankEntityColumn = "Country Name"

// Local serves source keys from files and remote ids from a fred.Remote.
type Local struct {
	// Path resolves a source key to a file.
	Path func(key string) string
	// SkipRows is the metadata row count above wide panel headers.
	SkipRows int
	Remote   fred.Remote
}

// Wide implements Sources.
func (l Local) Wide(ctx context.Context, key string) (*series.Wide, error) {
	return csvsource.LoadWide(ctx, l.Path(key), csvsource.WideOptions{
		SkipRows:     l.SkipRows,
		EntityColumn: WorldBankEntityColumn,
	})
}

// Series implements Sources.
func (l Local) Series(ctx context.Context, key string, opts csvsource.SeriesOptions) (*series.TidyTable, error) {
	return csvsource.LoadSeries(ctx, l.Path(key), opts)
}

// Fetch implements Sources.
func (l Local) Fetch(ctx context.Context, id string) (*series.Series, error) {
	return l.Remote.Series(ctx, id)
}
