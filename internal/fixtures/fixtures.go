// Package fixtures writes synthetic extracts shaped like the World Bank
// and FRED downloads the chart catalog reads, for demos and tests.
package fixtures

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/macrochart/internal/config"
)

// Options bounds the generated data.
type Options struct {
	// LastYear is the final calendar year written. Defaults to 2024.
	LastYear int
	// Countries of the wide panels. Defaults to DefaultCountries.
	Countries []string
}

// DefaultCountries of the generated panels.
var DefaultCountries = []string{"Argentina", "Chile", "Germany", "Japan", "Turkiye", "United States"}

// Mirrored FRED series written as <id>.csv for offline remote fetches.
const (
	CPISeries = "CPIAUCSL"
	M2Series  = "M2SL"
)

const panelFirstYear = 1960

// Write generates every source of sources into dir and returns the paths
// written. Keys without a generator are ignored.
func Write(dir string, sources map[string]string, opts Options) ([]string, error) {
	if opts.LastYear == 0 {
		opts.LastYear = 2024
	}
	if len(opts.Countries) == 0 {
		opts.Countries = DefaultCountries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	g := generator{last: opts.LastYear, countries: opts.Countries}
	files := map[string][][]string{
		config.SourceInflationPanel:   g.panel("Inflation, consumer prices (annual %)", "FP.CPI.TOTL.ZG", 3, 2.5),
		config.SourceMoneyPanel:       g.panel("Broad money growth (annual %)", "FM.LBL.BMNY.ZG", 6, 3),
		config.SourceHourlyEarnings:   g.monthly("CES0500000003", 2006, 3, func(i int) string { return num(20.6 * math.Exp(0.0028*float64(i))) }),
		config.SourceCPIExtract:       g.monthly("CPIAUCSL_NBD19470101", 1947, 1, func(i int) string { return num(100 * math.Exp(0.0029*float64(i))) }),
		config.SourceSavingInvestment: g.quarterlyPair("GSAVE", "GPDI", 1947),
		config.SourceGDP:              g.quarterly("GDP", 1947, func(i int) string { return num(243 * math.Exp(0.0155*float64(i))) }),
		config.SourceNetExports:       g.quarterly("NETEXP", 1947, g.netExports),
		config.SourceBudgetDeficit:    g.annual("FYFSGDA188S", 1929, func(i int) string { return num(-2 - 2*math.Sin(float64(i)/6)) }),
		config.SourceRealExchangeRate: g.monthly("RBUSBIS", 1994, 1, func(i int) string { return num(100 + 12*math.Sin(float64(i)/40)) }),
	}
	var written []string
	for key, recs := range files {
		name, ok := sources[key]
		if !ok {
			continue
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		if err := writeCSV(path, recs); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	mirrors := map[string][][]string{
		CPISeries: g.monthly(CPISeries, 1947, 1, g.cpi),
		M2Series:  g.monthly(M2Series, 1959, 1, func(i int) string { return num(286.6 * math.Exp(0.0055*float64(i))) }),
	}
	for id, recs := range mirrors {
		path := filepath.Join(dir, id+".csv")
		if err := writeCSV(path, recs); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

type generator struct {
	last      int
	countries []string
}

// panel is a World Bank wide download: four metadata lines, a header with
// metadata and year columns, a trailing empty column, one row per country.
func (g generator) panel(indicator, code string, level, swing float64) [][]string {
	recs := [][]string{
		{"Data Source", "World Development Indicators", ""},
		nil,
		{"Last Updated Date", time.Date(g.last+1, time.June, 28, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), ""},
		nil,
	}
	header := []string{"Country Name", "Country Code", "Indicator Name", "Indicator Code"}
	for y := panelFirstYear; y <= g.last; y++ {
		header = append(header, strconv.Itoa(y))
	}
	recs = append(recs, append(header, ""))
	for ci, c := range g.countries {
		rec := []string{c, code3(c), indicator, code}
		for y := panelFirstYear; y <= g.last; y++ {
			i := y - panelFirstYear
			// Each country reports from a different first year.
			if i < ci*3 {
				rec = append(rec, "")
				continue
			}
			v := level*float64(ci+1)/2 + swing*math.Sin(float64(i)/3+float64(ci))
			rec = append(rec, num(v))
		}
		recs = append(recs, append(rec, ""))
	}
	return recs
}

func (g generator) monthly(name string, firstYear int, firstMonth time.Month, value func(i int) string) [][]string {
	recs := [][]string{{"observation_date", name}}
	i := 0
	for d := time.Date(firstYear, firstMonth, 1, 0, 0, 0, 0, time.UTC); d.Year() <= g.last; d = d.AddDate(0, 1, 0) {
		recs = append(recs, []string{d.Format("2006-01-02"), value(i)})
		i++
	}
	return recs
}

func (g generator) quarterly(name string, firstYear int, value func(i int) string) [][]string {
	recs := [][]string{{"observation_date", name}}
	i := 0
	for d := time.Date(firstYear, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() <= g.last; d = d.AddDate(0, 3, 0) {
		recs = append(recs, []string{d.Format("2006-01-02"), value(i)})
		i++
	}
	return recs
}

func (g generator) quarterlyPair(a, b string, firstYear int) [][]string {
	recs := [][]string{{"observation_date", a, b}}
	i := 0
	for d := time.Date(firstYear, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() <= g.last; d = d.AddDate(0, 3, 0) {
		gdp := 243 * math.Exp(0.0155*float64(i))
		saving := gdp * (0.18 + 0.03*math.Sin(float64(i)/15))
		invest := gdp * (0.17 + 0.02*math.Cos(float64(i)/11))
		recs = append(recs, []string{d.Format("2006-01-02"), num(saving), num(invest)})
		i++
	}
	return recs
}

func (g generator) annual(name string, firstYear int, value func(i int) string) [][]string {
	recs := [][]string{{"observation_date", name}}
	for y := firstYear; y <= g.last; y++ {
		recs = append(recs, []string{time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), value(y - firstYear)})
	}
	return recs
}

func (g generator) netExports(i int) string {
	gdp := 243 * math.Exp(0.0155*float64(i))
	return num(gdp * (0.01 - 0.035*math.Sin(float64(i)/60)))
}

// cpi has one FRED style "." gap so loaders see a missing observation.
func (g generator) cpi(i int) string {
	if i == 100 {
		return "."
	}
	return num(21.48 * math.Exp(0.0029*float64(i)))
}

func code3(country string) string {
	out := make([]byte, 0, 3)
	for i := 0; i < len(country) && len(out) < 3; i++ {
		c := country[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c >= 'A' && c <= 'Z' {
			out = append(out, c)
		}
	}
	return string(out)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func writeCSV(path string, recs [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	for _, rec := range recs {
		if rec == nil {
			// csv.Writer has no way to emit a truly empty line.
			if _, err := f.WriteString("\n"); err != nil {
				f.Close()
				return err
			}
			continue
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
		w.Flush()
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
