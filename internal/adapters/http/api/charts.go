package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/macrochart/internal/adapters/presenter"
	"github.com/okian/macrochart/internal/adapters/sink/csvsink"
	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/adapters/source/fred"
	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/internal/domain/series"
)

// maxCanvas bounds the PNG size a request may ask for.
const maxCanvas = 4000

// ChartsHandler serves the catalog and runs chart pipelines on demand.
type ChartsHandler struct {
	deps   Dependencies
	canvas Canvas
	png    presenter.PNGRenderer
}

// NewChartsHandler creates a new charts handler.
func NewChartsHandler(deps Dependencies, canvas Canvas) *ChartsHandler {
	return &ChartsHandler{deps: deps, canvas: canvas}
}

type chartSummary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

type rowView struct {
	Entity string         `json:"entity,omitempty"`
	Period string         `json:"period"`
	Values map[string]any `json:"values"`
}

type chartResponse struct {
	Name    string                `json:"name"`
	Grain   string                `json:"grain"`
	Columns []string              `json:"columns"`
	Rows    []rowView             `json:"rows"`
	Config  presenter.ChartConfig `json:"config"`
}

// HandleList handles GET /charts.
func (h *ChartsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	all := h.deps.Charts()
	out := make([]chartSummary, 0, len(all))
	for _, ch := range all {
		out = append(out, chartSummary{
			Name:        ch.Name,
			Title:       ch.Figure.Title,
			Description: ch.Description,
			Kind:        ch.Figure.Kind.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleChart handles GET /charts/{name}: the processed table and its
// chart config. Missing values are null, undefined values the string
// "undefined".
func (h *ChartsHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	ch, t, ok := h.build(w, r)
	if !ok {
		return
	}
	cfg, err := presenter.Config(ch.Figure, t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "render_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{
		Name:    ch.Name,
		Grain:   t.Grain().String(),
		Columns: t.Columns(),
		Rows:    rows(t),
		Config:  cfg,
	})
}

// HandlePNG handles GET /charts/{name}/png. Optional width and height
// query parameters override the default canvas.
func (h *ChartsHandler) HandlePNG(w http.ResponseWriter, r *http.Request) {
	rc := presenter.RenderContext{Width: h.canvas.Width, Height: h.canvas.Height}
	var err error
	if rc.Width, err = dimension(r, "width", rc.Width); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if rc.Height, err = dimension(r, "height", rc.Height); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	ch, t, ok := h.build(w, r)
	if !ok {
		return
	}
	if t.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var buf bytes.Buffer
	if err := h.png.Encode(&buf, rc, ch.Figure, t); err != nil {
		writeError(w, http.StatusInternalServerError, "render_failed", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleCSV handles GET /charts/{name}/csv, the processed table in the
// same layout as the CSV sink.
func (h *ChartsHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	ch, t, ok := h.build(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := csvsink.Encode(&buf, t); err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ch.Name+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// build runs the named pipeline and writes the error response on failure.
func (h *ChartsHandler) build(w http.ResponseWriter, r *http.Request) (charts.Chart, *series.TidyTable, bool) {
	ch, t, err := h.deps.Build(r.Context(), chi.URLParam(r, "name"))
	switch {
	case err == nil:
		return ch, t, true
	case errors.Is(err, charts.ErrUnknownChart):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, csvsource.ErrSourceNotFound),
		errors.Is(err, fred.ErrRequest),
		errors.Is(err, fred.ErrSeriesNotFound),
		errors.Is(err, fred.ErrNoCredential):
		writeError(w, http.StatusServiceUnavailable, "source_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "pipeline_failed", err)
	}
	return ch, nil, false
}

func rows(t *series.TidyTable) []rowView {
	cols := t.Columns()
	out := make([]rowView, 0, t.Len())
	for _, r := range t.Rows() {
		v := rowView{Entity: r.Key.Entity, Period: r.Key.Period.End.Format(series.DateLayout), Values: make(map[string]any, len(cols))}
		for i, c := range cols {
			v.Values[c] = jsonValue(r.Values[i])
		}
		out = append(out, v)
	}
	return out
}

func jsonValue(v series.Value) any {
	if f, ok := v.Float(); ok {
		return f
	}
	if v.IsUndefined() {
		return series.Undefined.String()
	}
	return nil
}

func dimension(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxCanvas {
		return 0, errors.New("invalid " + name + ": must be 1.." + strconv.Itoa(maxCanvas))
	}
	return n, nil
}
