package csvsource_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/domain/reshape"
	"github.com/okian/macrochart/internal/domain/series"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

const worldBank = "\ufeff\"Data Source\",\"World Development Indicators\",\n" +
	"\n" +
	"\"Last Updated Date\",\"2024-06-28\",\n" +
	"\n" +
	"\"Country Name\",\"Country Code\",\"Indicator Name\",\"Indicator Code\",\"1960\",\"1961\",\"1962\",\n" +
	"\"Aruba\",\"ABW\",\"Inflation, consumer prices (annual %)\",\"FP.CPI.TOTL.ZG\",\"\",\"1.5\",\"2\",\n" +
	"\"Chile\",\"CHL\",\"Inflation, consumer prices (annual %)\",\"FP.CPI.TOTL.ZG\",\"5\",\"6\",\"7\",\n"

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWide(t *testing.T) {
	Convey("Given a World Bank panel with four metadata rows", t, func() {
		ctx := context.Background()
		path := write(t, "API_FP.csv", worldBank)

		Convey("When loaded", func() {
			w, err := csvsource.LoadWide(ctx, path, csvsource.WideOptions{SkipRows: 4, EntityColumn: "Country Name"})
			So(err, ShouldBeNil)

			Convey("Then only the entity and year columns remain", func() {
				So(w.Header, ShouldResemble, []string{"Country Name", "1960", "1961", "1962"})
				So(w.Len(), ShouldEqual, 2)
				So(w.Records[1], ShouldResemble, []string{"Chile", "5", "6", "7"})
			})

			Convey("And it melts into entities times years rows", func() {
				tbl, err := reshape.Melt(w, reshape.MeltOptions{EntityColumn: "Country Name", ValueName: "Inflation"})
				So(err, ShouldBeNil)
				So(tbl.Len(), ShouldEqual, 6)
			})
		})

		Convey("When the entity column is wrong", func() {
			_, err := csvsource.LoadWide(ctx, path, csvsource.WideOptions{SkipRows: 4, EntityColumn: "Region"})
			So(errors.Is(err, csvsource.ErrMissingColumn), ShouldBeTrue)
		})

		Convey("When more rows are skipped than exist", func() {
			w, err := csvsource.LoadWide(ctx, path, csvsource.WideOptions{SkipRows: 50, EntityColumn: "Country Name"})
			So(err, ShouldBeNil)
			So(w.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := csvsource.LoadWide(context.Background(), "/no/such/panel.csv", csvsource.WideOptions{EntityColumn: "Country Name"})
		So(errors.Is(err, csvsource.ErrSourceNotFound), ShouldBeTrue)
	})
}

func TestLoadSeries(t *testing.T) {
	Convey("Given a FRED download", t, func() {
		ctx := context.Background()
		path := write(t, "NETEXP.csv", "observation_date,NETEXP\n"+
			"2020-01-01,-500.5\n"+
			"2020-04-01,.\n"+
			"not a date,1\n"+
			"\n"+
			"2020-07-01,\"-1,200\"\n")

		Convey("When loaded at quarterly grain with a rename", func() {
			tbl, err := csvsource.LoadSeries(ctx, path, csvsource.SeriesOptions{
				Grain:  series.Quarterly,
				Rename: map[string]string{"NETEXP": "Net_Exports"},
			})
			So(err, ShouldBeNil)

			Convey("Then dates anchor at quarter end and bad dates are skipped", func() {
				So(tbl.Columns(), ShouldResemble, []string{"Net_Exports"})
				So(tbl.Len(), ShouldEqual, 3)
				So(tbl.Row(0).Key.Period.End, ShouldEqual, time.Date(2020, time.March, 31, 0, 0, 0, 0, time.UTC))
			})

			Convey("And unparseable values are missing, not zero", func() {
				So(tbl.Row(1).Values[0].IsMissing(), ShouldBeTrue)
				f, ok := tbl.Row(2).Values[0].Float()
				So(ok, ShouldBeTrue)
				So(f, ShouldEqual, -1200)
			})
		})

		Convey("When a requested column is absent", func() {
			_, err := csvsource.LoadSeries(ctx, path, csvsource.SeriesOptions{ValueColumns: []string{"GDP"}})
			So(errors.Is(err, csvsource.ErrMissingColumn), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := csvsource.LoadSeries(cctx, path, csvsource.SeriesOptions{})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given a multi-column graph download", t, func() {
		path := write(t, "fredgraph.csv", "observation_date,GSAVE,GPDI\n2000-01-01,10,20\n2000-04-01,11,21\n")
		tbl, err := csvsource.LoadSeries(context.Background(), path, csvsource.SeriesOptions{Grain: series.Quarterly})
		So(err, ShouldBeNil)
		So(tbl.Columns(), ShouldResemble, []string{"GSAVE", "GPDI"})
		So(tbl.Len(), ShouldEqual, 2)
	})

	Convey("Given a header-only file", t, func() {
		path := write(t, "empty.csv", "observation_date,GDP\n")
		tbl, err := csvsource.LoadSeries(context.Background(), path, csvsource.SeriesOptions{})
		So(err, ShouldBeNil)
		So(tbl.Empty(), ShouldBeTrue)
	})

	Convey("Given two observations in one month at monthly grain", t, func() {
		path := write(t, "weekly.csv", "observation_date,X\n2020-01-03,1\n2020-01-10,2\n")
		_, err := csvsource.LoadSeries(context.Background(), path, csvsource.SeriesOptions{})
		So(errors.Is(err, series.ErrDuplicateKey), ShouldBeTrue)
	})
}

func TestLoadXLSX(t *testing.T) {
	Convey("Given a series workbook", t, func() {
		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)
		So(f.SetSheetRow(sheet, "A1", &[]any{"observation_date", "GDP"}), ShouldBeNil)
		So(f.SetSheetRow(sheet, "A2", &[]any{"2021-01-01", 100.5}), ShouldBeNil)
		So(f.SetSheetRow(sheet, "A3", &[]any{"2021-04-01", 101}), ShouldBeNil)
		path := filepath.Join(t.TempDir(), "GDP.xlsx")
		So(f.SaveAs(path), ShouldBeNil)

		Convey("When loaded", func() {
			tbl, err := csvsource.LoadSeries(context.Background(), path, csvsource.SeriesOptions{Grain: series.Quarterly})
			So(err, ShouldBeNil)
			So(tbl.Len(), ShouldEqual, 2)
			v, _ := tbl.Row(0).Values[0].Float()
			So(v, ShouldEqual, 100.5)
		})
	})
}

func TestParseDate(t *testing.T) {
	Convey("Given observation dates in several layouts", t, func() {
		want := time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)
		for _, s := range []string{"2020-01-15", "1/15/2020", "01/15/2020", "Jan 15, 2020", "15 Jan 2020", "20200115", "2020/01/15"} {
			got, ok := csvsource.ParseDate(s)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, want)
		}

		y, ok := csvsource.ParseDate("1999")
		So(ok, ShouldBeTrue)
		So(y.Year(), ShouldEqual, 1999)

		for _, bad := range []string{"", "yesterday", "2020-13-01"} {
			_, ok := csvsource.ParseDate(bad)
			So(ok, ShouldBeFalse)
		}
	})
}
