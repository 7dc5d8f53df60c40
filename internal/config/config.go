// Package config defines process configuration and its loading hooks.
//
// Values are layered defaults -> YAML file -> environment, see Load.
package config

import (
	"path/filepath"
	"time"
)

// Source keys of the local extracts used by the chart catalog.
const (
	SourceInflationPanel   = "inflation_panel"
	SourceMoneyPanel       = "money_panel"
	SourceHourlyEarnings   = "hourly_earnings"
	SourceCPIExtract       = "cpi_extract"
	SourceSavingInvestment = "saving_investment"
	SourceGDP              = "gdp"
	SourceNetExports       = "net_exports"
	SourceBudgetDeficit    = "budget_deficit"
	SourceRealExchangeRate = "real_exchange_rate"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// DataDir holds the CSV/XLSX extracts named in Sources.
	DataDir string `koanf:"data_dir"`
	// OutputDir receives processed CSVs and rendered charts.
	OutputDir string `koanf:"output_dir"`
	// Workers bounds how many charts run at once; 1 runs them sequentially.
	Workers int `koanf:"workers"`
	// Formats lists the artifact formats to render: png, xlsx.
	Formats []string `koanf:"formats"`
	// Width and Height size rendered charts in pixels.
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
	// BaseYear is the reference year for rebased real values.
	BaseYear int `koanf:"base_year"`
	// FocusEntity selects the country of single-country panel charts.
	FocusEntity string `koanf:"focus_entity"`
	// PanelSkipRows is the number of metadata rows above a wide panel header.
	PanelSkipRows int `koanf:"panel_skip_rows"`
	// FRED configures the remote statistics API.
	FRED FRED `koanf:"fred"`
	// DatabaseURL enables the Postgres result sink when set.
	DatabaseURL string `koanf:"database_url"`
	// Sources maps source keys to file names relative to DataDir.
	Sources map[string]string `koanf:"sources"`
}

// FRED configures the remote statistics API client.
type FRED struct {
	// APIKey is the opaque credential. Without it remote series are read
	// from <data_dir>/<series id>.csv.
	APIKey string `koanf:"api_key"`
	// BaseURL of the observations API.
	BaseURL string `koanf:"base_url"`
	// TimeoutMS bounds a single request.
	TimeoutMS int `koanf:"timeout_ms"`
}

// Timeout returns TimeoutMS as a duration.
func (f FRED) Timeout() time.Duration {
	return time.Duration(f.TimeoutMS) * time.Millisecond
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		DataDir:       "Data",
		OutputDir:     "out",
		Workers:       1,
		Formats:       []string{"png"},
		Width:         1200,
		Height:        700,
		BaseYear:      2006,
		FocusEntity:   "United States",
		PanelSkipRows: 4,
		FRED: FRED{
			BaseURL:   "https://api.stlouisfed.org/fred",
			TimeoutMS: 15_000,
		},
		Sources: map[string]string{
			SourceInflationPanel:   "API_FP.CPI.TOTL.ZG_DS2_en_csv_v2.csv",
			SourceMoneyPanel:       "API_FM.LBL.BMNY.ZG_DS2_en_csv_v2.csv",
			SourceHourlyEarnings:   "CES0500000003.csv",
			SourceCPIExtract:       "CPIAUCSL_NBD19470101.csv",
			SourceSavingInvestment: "fredgraph.csv",
			SourceGDP:              "GDP.csv",
			SourceNetExports:       "NETEXP.csv",
			SourceBudgetDeficit:    "FYFSGDA188S.csv",
			SourceRealExchangeRate: "RBUSBIS.csv",
		},
	}
}

// SourcePath resolves a source key against DataDir. Unknown keys resolve
// to "<key>.csv".
func (c *Config) SourcePath(key string) string {
	name, ok := c.Sources[key]
	if !ok || name == "" {
		name = key + ".csv"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
