package presenter

import (
	"context"
	"fmt"

	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/metrics"
	"github.com/xuri/excelize/v2"
)

const (
	dataSheet = "Data"
	// chartGap is the number of empty columns between data and chart.
	chartGap = 2
)

// XLSXRenderer writes a workbook with the table on a data sheet and a
// native chart drawn from it.
type XLSXRenderer struct{}

// Format implements Renderer.
func (XLSXRenderer) Format() string { return "xlsx" }

// Render writes <dir>/<basename>.xlsx.
func (r XLSXRenderer) Render(ctx context.Context, rc RenderContext, fig Figure, t *series.TidyTable) (Artifact, error) {
	a := Artifact{Format: r.Format()}
	if err := ctx.Err(); err != nil {
		return a, err
	}
	ok, err := hasPoints(fig, t)
	if err != nil {
		return a, err
	}
	if !ok {
		a.Skipped = true
		return a, nil
	}
	f, err := Workbook(rc, fig, t)
	if err != nil {
		return a, err
	}
	defer f.Close()

	a.Path = rc.Path("xlsx")
	if err := f.SaveAs(a.Path); err != nil {
		return a, fmt.Errorf("write %s: %w", a.Path, err)
	}
	metrics.RecordArtifact(a.Format)
	return a, nil
}

// Workbook builds the workbook in memory. Column A holds the entity,
// column B the period, then one column per table column. Missing cells
// stay empty and undefined cells hold the text "undefined".
func Workbook(rc RenderContext, fig Figure, t *series.TidyTable) (*excelize.File, error) {
	if err := fig.Validate(t); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), dataSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := []any{"entity", "period"}
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	for i, r := range t.Rows() {
		row := []any{r.Key.Entity, r.Key.Period.String()}
		for _, v := range r.Values {
			row = append(row, cellValue(v))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	ch, err := workbookChart(fig, t)
	if err != nil {
		f.Close()
		return nil, err
	}
	ch.Dimension = excelize.ChartDimension{
		Width:  uint(orDefault(rc.Width, defaultWidth)),
		Height: uint(orDefault(rc.Height, defaultHeight)),
	}
	anchor, err := excelize.CoordinatesToCellName(len(header)+chartGap, 2)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.AddChart(dataSheet, anchor, ch); err != nil {
		f.Close()
		return nil, fmt.Errorf("add chart: %w", err)
	}
	return f, nil
}

func workbookChart(fig Figure, t *series.TidyTable) (*excelize.Chart, error) {
	last := t.Len() + 1
	ch := &excelize.Chart{
		Title:  []excelize.RichTextRun{{Text: fig.Title}},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: fig.XLabel}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: fig.YLabel}}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	}
	if fig.Kind == Scatter {
		x, err := columnRange(t, fig.X, last)
		if err != nil {
			return nil, err
		}
		y, err := columnRange(t, fig.Y, last)
		if err != nil {
			return nil, err
		}
		ch.Type = excelize.Scatter
		ch.Series = []excelize.ChartSeries{{
			Name:       fig.YLabel,
			Categories: x,
			Values:     y,
			Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
		}}
		return ch, nil
	}

	ch.Type = excelize.Line
	categories := fmt.Sprintf("%s!$B$2:$B$%d", dataSheet, last)
	for _, tr := range fig.Traces {
		v, err := columnRange(t, tr.Column, last)
		if err != nil {
			return nil, err
		}
		ch.Series = append(ch.Series, excelize.ChartSeries{Name: label(tr), Categories: categories, Values: v})
	}
	return ch, nil
}

// columnRange returns the absolute reference of a table column on the
// data sheet, offset by the entity and period columns.
func columnRange(t *series.TidyTable, column string, last int) (string, error) {
	c, err := t.Ref(column)
	if err != nil {
		return "", err
	}
	name, err := excelize.ColumnNumberToName(c.Index() + 3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!$%s$2:$%s$%d", dataSheet, name, name, last), nil
}

func cellValue(v series.Value) any {
	if f, ok := v.Float(); ok {
		return f
	}
	if v.IsUndefined() {
		return v.String()
	}
	return nil
}
