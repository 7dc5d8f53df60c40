package charts

import (
	"context"
	"time"

	"github.com/okian/macrochart/internal/adapters/presenter"
	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/config"
	"github.com/okian/macrochart/internal/domain/align"
	"github.com/okian/macrochart/internal/domain/series"
)

// Remote FRED series of the quarterly money chart.
const (
	CPISeriesID = "CPIAUCSL"
	M2SeriesID  = "M2SL"
)

const (
	red   = "#ff0000"
	blue  = "#0000ff"
	green = "#008000"
)

// Names of the built-in charts.
const (
	MoneyInflationQuarterly = "money-inflation-quarterly"
	InternationalScatter    = "international-scatter"
	USInflationMoney        = "us-inflation-money"
	CPIHourlyEarnings       = "cpi-hourly-earnings"
	SavingInvestmentTrade   = "saving-investment-trade"
	NetExportsBudgetDeficit = "netexports-budget-deficit"
	NetExportsRealExchange  = "netexports-real-exchange"
)

func moneyInflationQuarterly() Chart {
	return Chart{
		Name:        MoneyInflationQuarterly,
		Description: "U.S. CPI inflation and M2 money growth, quarterly log differences",
		Derived:     []string{"CPI_Growth", "M2_Growth"},
		Figure: presenter.Figure{
			Kind:   presenter.Line,
			Title:  "U.S. Inflation and Money Growth Rates (Quarterly)",
			XLabel: "Date",
			YLabel: "Growth Rate (%)",
			Traces: []presenter.Trace{
				{Column: "CPI_Growth", Label: "Inflation Rate (CPI)", Color: red},
				{Column: "M2_Growth", Label: "Money Growth Rate (M2)", Color: blue},
			},
		},
		Build: func(ctx context.Context, env Env) (*series.TidyTable, error) {
			var cpi, m2 *series.TidyTable
			err := env.Stages.Run(StageLoad, func() error {
				var err error
				if cpi, err = fetch(ctx, env.Sources, CPISeriesID, "CPI"); err != nil {
					return err
				}
				m2, err = fetch(ctx, env.Sources, M2SeriesID, "M2")
				return err
			})
			if err != nil {
				return nil, err
			}
			q, err := env.pipe(StageAlign, cpi, joinWith(align.ByPeriod, m2), dropMissing(), downsample(series.Quarterly))
			if err != nil {
				return nil, err
			}
			// The first quarter has no predecessor and is dropped.
			return env.pipe(StageMetric, q,
				logGrowth("CPI_Growth", "CPI"),
				logGrowth("M2_Growth", "M2"),
				dropAbsent("CPI_Growth", "M2_Growth"),
			)
		},
	}
}

// panels loads and melts the World Bank inflation and money growth panels.
func panels(ctx context.Context, env Env) (*series.TidyTable, *series.TidyTable, error) {
	var infl, money *series.Wide
	err := env.Stages.Run(StageLoad, func() error {
		var err error
		if infl, err = env.Sources.Wide(ctx, config.SourceInflationPanel); err != nil {
			return err
		}
		money, err = env.Sources.Wide(ctx, config.SourceMoneyPanel)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	var inflT, moneyT *series.TidyTable
	err = env.Stages.Run(StageReshape, func() error {
		var err error
		if inflT, err = melt(infl, "Inflation"); err != nil {
			return err
		}
		moneyT, err = melt(money, "Money Growth")
		return err
	})
	return inflT, moneyT, err
}

func internationalScatter() Chart {
	return Chart{
		Name:        InternationalScatter,
		Description: "Average inflation against average broad money growth per country",
		Figure: presenter.Figure{
			Kind:   presenter.Scatter,
			Title:  "International data on inflation and money growth",
			XLabel: "Average Money Supply Growth Rate (%)",
			YLabel: "Average Inflation Rate (%)",
			X:      "Money Growth",
			Y:      "Inflation",
		},
		Build: func(ctx context.Context, env Env) (*series.TidyTable, error) {
			infl, money, err := panels(ctx, env)
			if err != nil {
				return nil, err
			}
			return env.pipe(StageAlign, infl,
				joinWith(align.ByEntityPeriod, money),
				dropMissing("Inflation", "Money Growth"),
				meanByEntity(),
			)
		},
	}
}

func usInflationMoney() Chart {
	return Chart{
		Name:        USInflationMoney,
		Description: "Inflation and broad money growth of the focus country by year",
		Figure: presenter.Figure{
			Kind:      presenter.Line,
			Title:     "Inflation and Money Growth Rate",
			XLabel:    "Year",
			YLabel:    "% Change from a year earlier",
			YearTicks: true,
			Traces: []presenter.Trace{
				{Column: "Inflation", Label: "Inflation (%)", Color: red},
				{Column: "Money Growth", Label: "Money Growth Rate (%)", Color: blue},
			},
		},
		Build: func(ctx context.Context, env Env) (*series.TidyTable, error) {
			infl, money, err := panels(ctx, env)
			if err != nil {
				return nil, err
			}
			focus := align.Entity(env.Params.FocusEntity)
			m, err := env.pipe(StageAlign, money, filter(focus))
			if err != nil {
				return nil, err
			}
			return env.pipe(StageAlign, infl, filter(focus), joinWith(align.ByPeriod, m), dropMissing())
		},
	}
}

var (
	earningsFrom = time.Date(2006, time.January, 1, 0, 0, 0, 0, time.UTC)
	earningsTo   = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
)

func cpiHourlyEarnings() Chart {
	return Chart{
		Name:        CPIHourlyEarnings,
		Description: "CPI with nominal and rebased real average hourly earnings, quarterly",
		Derived:     []string{"Real_Hourly_Earnings"},
		Figure: presenter.Figure{
			Kind:      presenter.Line,
			Title:     "The CPI and average hourly earnings",
			XLabel:    "Year",
			YLabel:    "CPI (Index)",
			Y2Label:   "Hourly Earnings ($)",
			YearTicks: true,
			Traces: []presenter.Trace{
				{Column: "CPI", Label: "CPI", Color: red},
				{Column: "Nominal_Hourly_Earnings", Label: "Nominal Hourly Earnings", Color: blue, Secondary: true},
				{Column: "Real_Hourly_Earnings", Label: "Real Hourly Earnings", Color: green, Dashed: true, Secondary: true},
			},
		},
		Build: func(ctx context.Context, env Env) (*series.TidyTable, error) {
			var nominal, cpi *series.TidyTable
			err := env.Stages.Run(StageLoad, func() error {
				var err error
				nominal, err = env.Sources.Series(ctx, config.SourceHourlyEarnings, csvsource.SeriesOptions{
					ValueColumns: []string{"CES0500000003"},
					Rename:       map[string]string{"CES0500000003": "Nominal_Hourly_Earnings"},
				})
				if err != nil {
					return err
				}
				cpi, err = env.Sources.Series(ctx, config.SourceCPIExtract, csvsource.SeriesOptions{
					ValueColumns: []string{"CPIAUCSL_NBD19470101"},
					Rename:       map[string]string{"CPIAUCSL_NBD19470101": "CPI"},
				})
				return err
			})
			if err != nil {
				return nil, err
			}
			window := align.Between(earningsFrom, earningsTo)
			q, err := env.pipe(StageAlign, nominal,
				filter(window),
				joinWith(align.ByPeriod, cpi),
				downsample(series.Quarterly),
			)
			if err != nil {
				return nil, err
			}
			return env.pipe(StageMetric, q,
				rebase("Real_Hourly_Earnings", "Nominal_Hourly_Earnings", "CPI", env.Params.BaseYear))
		},
	}
}

// tradeTables loads GDP and net exports, renamed, at quarterly grain.
func tradeTables(ctx context.Context, env Env, gdpCol, nxCol string) (gdp, nx *series.TidyTable, err error) {
	err = env.Stages.Run(StageLoad, func() error {
		var err error
		gdp, err = env.Sources.Series(ctx, config.SourceGDP, csvsource.SeriesOptions{
			ValueColumns: []string{"GDP"},
			Rename:       map[string]string{"GDP": gdpCol},
			Grain:        series.Quarterly,
		})
		if err != nil {
			return err
		}
		nx, err = env.Sources.Series(ctx, config.SourceNetExports, csvsource.SeriesOptions{
			ValueColumns: []string{"NETEXP"},
			Rename:       map[string]string{"NETEXP": nxCol},
			Grain:        series.Quarterly,
		})
		return err
	})
	return gdp, nx, err
}

func savingInvestmentTrade() Chart {
	return Chart{
		Name:        SavingInvestmentTrade,
		Description: "Gross saving, private investment and net exports as a share of GDP since 1990",
		Derived:     []string{"Saving_PctGDP", "Investment_PctGDP", "NetExports_PctGDP"},
		Figure: presenter.Figure{
			Kind:    presenter.Line,
			Title:   "Saving, Investment, and Trade Balance (% of GDP)",
			XLabel:  "Year",
			YLabel:  "Saving / Investment (% of GDP)",
			Y2Label: "Trade Balance (% of GDP)",
			YRange:  &presenter.Range{Min: 0, Max: 25},
			Y2Range: &presenter.Range{Min: -10, Max: 20},
			Traces: []presenter.Trace{
				{Column: "Saving_PctGDP", Label: "Saving (% of GDP)", Color: blue},
				{Column: "Investment_PctGDP", Label: "Investment (% of GDP)", Color: green},
				{Column: "NetExports_PctGDP", Label: "Net Exports (% of GDP)", Color: red, Secondary: true},
			},
		},
		Build: func(ctx context.Context, env Env) (*series.TidyTable, error) {
			gdp, nx, err := tradeTables(ctx, env, "GDP_Billions", "NetExports_Billions")
			if err != nil {
				return nil, err
			}
			var si *series.TidyTable
			err = env.Stages.Run(StageLoad, func() error {
				var err error
				si, err = env.Sources.Series(ctx, config.SourceSavingInvestment, csvsource.SeriesOptions{
					ValueColumns: []string{"GSAVE", "GPDI"},
					Grain:        series.Quarterly,
				})
				return err
			})
			if err != nil {
				return nil, err
			}
			j, err := env.pipe(StageAlign, si, joinWith(align.ByPeriod, gdp, nx), filter(align.FromYear(1990)))
			if err != nil {
				return nil, err
			}
			return env.pipe(StageMetric, j,
				percentOf("Saving_PctGDP", "GSAVE", "GDP_Billions"),
				percentOf("Investment_PctGDP", "GPDI", "GDP_Billions"),
				percentOf("NetExports_PctGDP", "NetExports_Billions", "GDP_Billions"),
			)
		},
	}
}

func netExportsBudgetDeficit() Chart {
	return Chart{
		Name:        NetExportsBudgetDeficit,
		Description: "Federal budget balance and annual mean net exports as a share of GDP",
		Derived:     []string{"Net_Exports_PctGDP"},
		Figure: presenter.Figure{
			Kind:      presenter.Line,
			Title:     "NX and the federal budget deficit (% of GDP)",
			XLabel:    "Year",
			YLabel:    "Percentage of GDP (%)",
			YearTicks: true,
			Traces: []presenter.Trace{
				{Column: "Budget_Deficit_PctGDP", Label: "Budget Deficit (% of GDP)"},
				{Column: "Net_Exports_PctGDP", Label: "Net Exports (% of GDP)"},
			},
		},
		Build: func(ctx context.Context, env Env) (*series.TidyTable, error) {
			gdp, nx, err := tradeTables(ctx, env, "GDP", "Net_Exports")
			if err != nil {
				return nil, err
			}
			var budget *series.TidyTable
			err = env.Stages.Run(StageLoad, func() error {
				var err error
				budget, err = env.Sources.Series(ctx, config.SourceBudgetDeficit, csvsource.SeriesOptions{
					ValueColumns: []string{"FYFSGDA188S"},
					Rename:       map[string]string{"FYFSGDA188S": "Budget_Deficit_PctGDP"},
					Grain:        series.Annual,
				})
				return err
			})
			if err != nil {
				return nil, err
			}
			j, err := env.pipe(StageAlign, nx, joinWith(align.ByPeriod, gdp))
			if err != nil {
				return nil, err
			}
			pct, err := env.pipe(StageMetric, j, percentOf("Net_Exports_PctGDP", "Net_Exports", "GDP"))
			if err != nil {
				return nil, err
			}
			annual, err := env.pipe(StageAlign, pct, project("Net_Exports_PctGDP"), downsample(series.Annual))
			if err != nil {
				return nil, err
			}
			return env.pipe(StageAlign, budget, joinWith(align.ByPeriod, annual))
		},
	}
}

func netExportsRealExchange() Chart {
	return Chart{
		Name:        NetExportsRealExchange,
		Description: "Net exports over GDP against the quarterly mean real exchange rate",
		Derived:     []string{"Net_Exports_to_GDP"},
		Figure: presenter.Figure{
			Kind:      presenter.Line,
			Title:     "U.S. net exports and the real exchange rate",
			XLabel:    "Year",
			YLabel:    "Net Exports / GDP",
			Y2Label:   "Real Exchange Rate (Index)",
			YearTicks: true,
			Traces: []presenter.Trace{
				{Column: "Net_Exports_to_GDP", Label: "Net Exports / GDP", Color: blue},
				{Column: "Real_Exchange_Rate", Label: "Real Exchange Rate", Color: red, Secondary: true},
			},
		},
		Build: func(ctx context.Context, env Env) (*series.TidyTable, error) {
			gdp, nx, err := tradeTables(ctx, env, "GDP", "Net_Exports")
			if err != nil {
				return nil, err
			}
			var reer *series.TidyTable
			err = env.Stages.Run(StageLoad, func() error {
				var err error
				reer, err = env.Sources.Series(ctx, config.SourceRealExchangeRate, csvsource.SeriesOptions{
					ValueColumns: []string{"RBUSBIS"},
					Rename:       map[string]string{"RBUSBIS": "Real_Exchange_Rate"},
				})
				return err
			})
			if err != nil {
				return nil, err
			}
			j, err := env.pipe(StageAlign, nx, joinWith(align.ByPeriod, gdp))
			if err != nil {
				return nil, err
			}
			ratio, err := env.pipe(StageMetric, j, percentOf("Net_Exports_to_GDP", "Net_Exports", "GDP"), project("Net_Exports_to_GDP"))
			if err != nil {
				return nil, err
			}
			quarterly, err := env.pipe(StageAlign, reer, downsample(series.Quarterly))
			if err != nil {
				return nil, err
			}
			return env.pipe(StageAlign, ratio, joinWith(align.ByPeriod, quarterly))
		},
	}
}
