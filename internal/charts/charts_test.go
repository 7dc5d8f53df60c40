package charts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/adapters/source/fred"
	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/internal/config"
	"github.com/okian/macrochart/internal/domain/metric"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/internal/fixtures"
	. "github.com/smartystreets/goconvey/convey"
)

const lastYear = 2020

// recorder remembers the order stages ran in.
type recorder struct {
	stages []charts.Stage
}

func (r *recorder) Run(s charts.Stage, fn func() error) error {
	r.stages = append(r.stages, s)
	return fn()
}

func env(t *testing.T) charts.Env {
	t.Helper()
	cfg := config.New()
	cfg.DataDir = t.TempDir()
	if _, err := fixtures.Write(cfg.DataDir, cfg.Sources, fixtures.Options{LastYear: lastYear}); err != nil {
		t.Fatal(err)
	}
	return charts.Env{
		Sources: charts.Local{Path: cfg.SourcePath, SkipRows: cfg.PanelSkipRows, Remote: fred.Mirror{Dir: cfg.DataDir}},
		Stages:  charts.Direct{},
		Params:  charts.Params{BaseYear: cfg.BaseYear, FocusEntity: cfg.FocusEntity},
	}
}

func build(t *testing.T, e charts.Env, name string) (*series.TidyTable, error) {
	t.Helper()
	ch, err := charts.Default().Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return ch.Build(context.Background(), e)
}

func TestCatalog(t *testing.T) {
	Convey("Given the default catalog", t, func() {
		c := charts.Default()

		Convey("Then it holds the seven charts", func() {
			So(c.Len(), ShouldEqual, 7)
			So(c.Names()[0], ShouldEqual, charts.CPIHourlyEarnings)
		})

		Convey("And every figure references columns of its table", func() {
			e := env(t)
			for _, ch := range c.All() {
				tbl, err := ch.Build(context.Background(), e)
				So(err, ShouldBeNil)
				So(tbl.Empty(), ShouldBeFalse)
				So(ch.Figure.Validate(tbl), ShouldBeNil)
				for _, d := range ch.Derived {
					_, err := tbl.Ref(d)
					So(err, ShouldBeNil)
				}
			}
		})

		Convey("And unknown names are rejected", func() {
			_, err := c.Lookup("gdp-per-capita")
			So(errors.Is(err, charts.ErrUnknownChart), ShouldBeTrue)
		})
	})

	Convey("Given duplicate chart names", t, func() {
		_, err := charts.NewCatalog(charts.Chart{Name: "a"}, charts.Chart{Name: "a"})
		So(err, ShouldNotBeNil)
	})
}

func TestMoneyInflationQuarterly(t *testing.T) {
	Convey("Given mirrored CPI and M2 series", t, func() {
		e := env(t)
		rec := &recorder{}
		e.Stages = rec
		tbl, err := build(t, e, charts.MoneyInflationQuarterly)
		So(err, ShouldBeNil)

		Convey("Then stages run load, align, metric", func() {
			So(rec.stages, ShouldResemble, []charts.Stage{charts.StageLoad, charts.StageAlign, charts.StageMetric})
		})

		Convey("And growth is quarterly with the first quarter dropped", func() {
			So(tbl.Grain(), ShouldEqual, series.Quarterly)
			So(tbl.Columns(), ShouldResemble, []string{"CPI", "M2", "CPI_Growth", "M2_Growth"})
			So(tbl.Row(0).Key.Period.String(), ShouldEqual, "1959-06-30")
			c, _ := tbl.Ref("CPI_Growth")
			So(tbl.Row(0).Get(c).IsPresent(), ShouldBeTrue)
		})
	})
}

func TestPanelCharts(t *testing.T) {
	Convey("Given World Bank shaped panels", t, func() {
		e := env(t)

		Convey("The scatter has one averaged row per country", func() {
			tbl, err := build(t, e, charts.InternationalScatter)
			So(err, ShouldBeNil)
			So(tbl.Entities(), ShouldResemble, fixtures.DefaultCountries)
			So(tbl.Len(), ShouldEqual, len(fixtures.DefaultCountries))
		})

		Convey("The focus country chart keeps the years it reports", func() {
			tbl, err := build(t, e, charts.USInflationMoney)
			So(err, ShouldBeNil)
			So(tbl.Entities(), ShouldResemble, []string{"United States"})
			So(tbl.Len(), ShouldEqual, lastYear-1975+1)
		})

		Convey("An absent focus country yields an empty table, not an error", func() {
			e.Params.FocusEntity = "Atlantis"
			tbl, err := build(t, e, charts.USInflationMoney)
			So(err, ShouldBeNil)
			So(tbl.Empty(), ShouldBeTrue)
		})
	})
}

func TestCPIHourlyEarnings(t *testing.T) {
	Convey("Given earnings from March 2006 and a CPI extract", t, func() {
		e := env(t)

		Convey("When rebased on 2006", func() {
			tbl, err := build(t, e, charts.CPIHourlyEarnings)
			So(err, ShouldBeNil)

			Convey("Then the base quarter keeps its nominal value", func() {
				first := tbl.Row(0)
				So(first.Key.Period.String(), ShouldEqual, "2006-03-31")
				cols, _ := tbl.Refs("Nominal_Hourly_Earnings", "Real_Hourly_Earnings")
				nominal, _ := first.Get(cols[0]).Float()
				rebased, _ := first.Get(cols[1]).Float()
				So(rebased, ShouldAlmostEqual, nominal, 1e-9)
			})
		})

		Convey("When the base year has no data", func() {
			e.Params.BaseYear = 1990
			_, err := build(t, e, charts.CPIHourlyEarnings)
			So(errors.Is(err, metric.ErrBaseYearMissing), ShouldBeTrue)
		})
	})
}

func TestTradeCharts(t *testing.T) {
	Convey("Given quarterly national accounts", t, func() {
		e := env(t)

		Convey("Saving and investment start in 1990", func() {
			tbl, err := build(t, e, charts.SavingInvestmentTrade)
			So(err, ShouldBeNil)
			So(tbl.Row(0).Key.Period.Year(), ShouldEqual, 1990)
			So(tbl.Len(), ShouldEqual, (lastYear-1990+1)*4)
		})

		Convey("Net exports meet the annual budget balance once a year", func() {
			tbl, err := build(t, e, charts.NetExportsBudgetDeficit)
			So(err, ShouldBeNil)
			So(tbl.Grain(), ShouldEqual, series.Annual)
			So(tbl.Len(), ShouldEqual, lastYear-1947+1)
		})

		Convey("Quarter-start net exports match every quarter-end exchange rate", func() {
			tbl, err := build(t, e, charts.NetExportsRealExchange)
			So(err, ShouldBeNil)
			So(tbl.Len(), ShouldEqual, (lastYear-1994+1)*4)
			So(tbl.Row(0).Key.Period.String(), ShouldEqual, "1994-03-31")
		})
	})

	Convey("Given a data directory without extracts", t, func() {
		e := env(t)
		e.Sources = charts.Local{Path: func(k string) string { return "/nonexistent/" + k + ".csv" }}
		_, err := build(t, e, charts.NetExportsRealExchange)
		So(errors.Is(err, csvsource.ErrSourceNotFound), ShouldBeTrue)
	})
}
