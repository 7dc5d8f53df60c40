package metric_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/macrochart/internal/domain/metric"
	"github.com/okian/macrochart/internal/domain/series"
	. "github.com/smartystreets/goconvey/convey"
)

func quarter(y int, m time.Month) series.Period {
	return series.At(time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), series.Quarterly)
}

func table(grain series.Granularity, cols []string, keys []series.Key, rows ...[]series.Value) *series.TidyTable {
	b := series.NewBuilder(grain, cols...)
	for i, k := range keys {
		if err := b.Add(k, rows[i]...); err != nil {
			panic(err)
		}
	}
	t, err := b.Table()
	if err != nil {
		panic(err)
	}
	return t
}

func column(t *series.TidyTable, name string) []series.Value {
	c, err := t.Ref(name)
	if err != nil {
		panic(err)
	}
	out := make([]series.Value, 0, t.Len())
	for _, r := range t.Rows() {
		out = append(out, r.Get(c))
	}
	return out
}

func TestPercentOf(t *testing.T) {
	Convey("Given numerators and denominators", t, func() {
		keys := []series.Key{{Period: series.Year(2000)}, {Period: series.Year(2001)}, {Period: series.Year(2002)}}
		tbl := table(series.Annual, []string{"NETEXP", "GDP"}, keys,
			[]series.Value{series.Of(50), series.Of(200)},
			[]series.Value{series.Of(50), series.Of(0)},
			[]series.Value{series.NA(), series.Of(10)},
		)

		Convey("When the percentage is derived", func() {
			out, err := metric.PercentOf(tbl, "pct", "NETEXP", "GDP")
			So(err, ShouldBeNil)
			vals := column(out, "pct")

			Convey("Then 50 of 200 is 25 percent", func() {
				f, ok := vals[0].Float()
				So(ok, ShouldBeTrue)
				So(f, ShouldEqual, 25.0)
			})

			Convey("And a zero denominator is undefined rather than infinite", func() {
				So(vals[1].IsUndefined(), ShouldBeTrue)
			})

			Convey("And a missing operand stays missing", func() {
				So(vals[2].IsMissing(), ShouldBeTrue)
			})

			Convey("And the input table is unchanged", func() {
				So(tbl.Columns(), ShouldResemble, []string{"NETEXP", "GDP"})
				So(out.Columns(), ShouldResemble, []string{"NETEXP", "GDP", "pct"})
			})
		})

		Convey("When a column is unknown", func() {
			_, err := metric.PercentOf(tbl, "pct", "GSAVE", "GDP")
			So(errors.Is(err, series.ErrUnknownColumn), ShouldBeTrue)
		})
	})
}

func TestLogGrowth(t *testing.T) {
	Convey("Given consecutive quarterly values", t, func() {
		keys := []series.Key{
			{Period: quarter(2020, time.January)},
			{Period: quarter(2020, time.April)},
			{Period: quarter(2020, time.July)},
			{Period: quarter(2021, time.January)},
		}
		tbl := table(series.Quarterly, []string{"CPI"}, keys,
			[]series.Value{series.Of(100)},
			[]series.Value{series.Of(110)},
			[]series.Value{series.Of(-5)},
			[]series.Value{series.Of(120)},
		)

		out, err := metric.LogGrowth(tbl, "growth", "CPI")
		So(err, ShouldBeNil)
		vals := column(out, "growth")

		Convey("Then the first period has no predecessor", func() {
			So(vals[0].IsMissing(), ShouldBeTrue)
		})

		Convey("And 100 to 110 grows by ln(1.1)*100", func() {
			f, ok := vals[1].Float()
			So(ok, ShouldBeTrue)
			So(f, ShouldAlmostEqual, math.Log(1.1)*100, 1e-9)
			So(f, ShouldAlmostEqual, 9.531, 0.001)
		})

		Convey("And a non-positive value is undefined, not NaN", func() {
			So(vals[2].IsUndefined(), ShouldBeTrue)
		})

		Convey("And a gap in the period sequence breaks the difference", func() {
			So(vals[3].IsMissing(), ShouldBeTrue)
		})
	})

	Convey("Given two entities", t, func() {
		keys := []series.Key{
			{Entity: "A", Period: series.Year(2000)},
			{Entity: "A", Period: series.Year(2001)},
			{Entity: "B", Period: series.Year(2002)},
		}
		tbl := table(series.Annual, []string{"x"}, keys,
			[]series.Value{series.Of(1)}, []series.Value{series.Of(2)}, []series.Value{series.Of(4)})
		out, err := metric.LogGrowth(tbl, "g", "x")
		So(err, ShouldBeNil)
		vals := column(out, "g")

		Convey("Differences never cross entities", func() {
			So(vals[1].IsPresent(), ShouldBeTrue)
			So(vals[2].IsMissing(), ShouldBeTrue)
		})
	})
}

func TestRebase(t *testing.T) {
	Convey("Given nominal earnings and a price index", t, func() {
		keys := []series.Key{
			{Period: quarter(2005, time.October)},
			{Period: quarter(2006, time.January)},
			{Period: quarter(2006, time.April)},
			{Period: quarter(2007, time.January)},
		}
		tbl := table(series.Quarterly, []string{"nominal", "cpi"}, keys,
			[]series.Value{series.Of(19), series.Of(195)},
			[]series.Value{series.Of(20), series.Of(200)},
			[]series.Value{series.Of(21), series.Of(205)},
			[]series.Value{series.Of(22), series.Of(0)},
		)

		Convey("When rebased on 2006", func() {
			out, err := metric.Rebase(tbl, "real", "nominal", "cpi", 2006)
			So(err, ShouldBeNil)
			vals := column(out, "real")

			Convey("Then the first 2006 quarter is the base", func() {
				f, _ := vals[1].Float()
				So(f, ShouldAlmostEqual, 20.0, 1e-9)
				f, _ = vals[0].Float()
				So(f, ShouldAlmostEqual, 19.0/195*200, 1e-9)
			})

			Convey("And a zero index is undefined", func() {
				So(vals[3].IsUndefined(), ShouldBeTrue)
				n, err := metric.CountUndefined(out, "real")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the base year has no data", func() {
			_, err := metric.Rebase(tbl, "real", "nominal", "cpi", 1990)
			So(errors.Is(err, metric.ErrBaseYearMissing), ShouldBeTrue)
		})
	})
}
