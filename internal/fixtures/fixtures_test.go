package fixtures_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/config"
	"github.com/okian/macrochart/internal/domain/reshape"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/internal/fixtures"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWrite(t *testing.T) {
	Convey("Given the default source names", t, func() {
		dir := t.TempDir()
		cfg := config.New()
		paths, err := fixtures.Write(dir, cfg.Sources, fixtures.Options{LastYear: 2020})
		So(err, ShouldBeNil)
		So(paths, ShouldHaveLength, len(cfg.Sources)+2)

		Convey("Then the panels load with the World Bank skip count", func() {
			w, err := csvsource.LoadWide(context.Background(), filepath.Join(dir, cfg.Sources[config.SourceInflationPanel]),
				csvsource.WideOptions{SkipRows: cfg.PanelSkipRows, EntityColumn: "Country Name"})
			So(err, ShouldBeNil)
			So(w.Len(), ShouldEqual, len(fixtures.DefaultCountries))

			tbl, err := reshape.Melt(w, reshape.MeltOptions{EntityColumn: "Country Name", ValueName: "Inflation"})
			So(err, ShouldBeNil)
			So(tbl.Len(), ShouldEqual, len(fixtures.DefaultCountries)*(2020-1960+1))
		})

		Convey("And the FRED extracts load at their grain", func() {
			tbl, err := csvsource.LoadSeries(context.Background(), filepath.Join(dir, cfg.Sources[config.SourceGDP]),
				csvsource.SeriesOptions{Grain: series.Quarterly})
			So(err, ShouldBeNil)
			So(tbl.Len(), ShouldEqual, (2020-1947+1)*4)
		})

		Convey("And the mirrored CPI carries one gap", func() {
			tbl, err := csvsource.LoadSeries(context.Background(), filepath.Join(dir, fixtures.CPISeries+".csv"), csvsource.SeriesOptions{})
			So(err, ShouldBeNil)
			c, _ := tbl.Ref(fixtures.CPISeries)
			missing := 0
			for _, r := range tbl.Rows() {
				if r.Get(c).IsMissing() {
					missing++
				}
			}
			So(missing, ShouldEqual, 1)
		})
	})
}
