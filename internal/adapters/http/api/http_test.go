package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/macrochart/internal/adapters/http/api"
	"github.com/okian/macrochart/internal/adapters/presenter"
	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/adapters/source/fred"
	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const growth = "growth"

// mockDeps serves one fixed chart; "broken", "unlisted" and "keyless"
// fail the way unreadable sources do.
type mockDeps struct {
	table *series.TidyTable
	built []string
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"charts": 1, "runs": int64(3)}
}

func (m *mockDeps) Charts() []charts.Chart {
	return []charts.Chart{chart()}
}

func (m *mockDeps) Build(_ context.Context, name string) (charts.Chart, *series.TidyTable, error) {
	m.built = append(m.built, name)
	switch name {
	case growth:
		return chart(), m.table, nil
	case "broken":
		return charts.Chart{}, nil, fmt.Errorf("load: %w: data/x.csv", csvsource.ErrSourceNotFound)
	case "unlisted":
		return charts.Chart{}, nil, fmt.Errorf("load: %w: WM2NS: Bad Request", fred.ErrSeriesNotFound)
	case "keyless":
		return charts.Chart{}, nil, fmt.Errorf("load: %w", fred.ErrNoCredential)
	default:
		return charts.Chart{}, nil, fmt.Errorf("%w: %q", charts.ErrUnknownChart, name)
	}
}

func chart() charts.Chart {
	return charts.Chart{
		Name:        growth,
		Description: "quarterly growth",
		Figure: presenter.Figure{
			Kind:   presenter.Line,
			Title:  "Growth",
			Traces: []presenter.Trace{{Column: "g", Label: "Growth"}},
		},
	}
}

func table() *series.TidyTable {
	b := series.NewBuilder(series.Quarterly, "g")
	vals := []series.Value{series.Of(1.5), series.NA(), series.Undef(), series.Of(2)}
	for i, v := range vals {
		p := series.At(time.Date(2020, time.Month(1+3*i), 1, 0, 0, 0, 0, time.UTC), series.Quarterly)
		if err := b.Add(series.Key{Period: p}, v); err != nil {
			panic(err)
		}
	}
	t, err := b.Table()
	if err != nil {
		panic(err)
	}
	return t
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{table: table()}
		h := api.NewServer(deps, api.Canvas{Width: 640, Height: 480}).Router()

		Convey("When the catalog is listed", func() {
			w := serve(h, "/charts")
			var out []map[string]string
			So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)

			Convey("Then every chart is summarised", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(out, ShouldHaveLength, 1)
				So(out[0]["name"], ShouldEqual, growth)
				So(out[0]["kind"], ShouldEqual, "line")
				So(out[0]["title"], ShouldEqual, "Growth")
			})
		})

		Convey("When a chart table is requested", func() {
			w := serve(h, "/charts/growth")
			var out struct {
				Name  string `json:"name"`
				Grain string `json:"grain"`
				Rows  []struct {
					Period string         `json:"period"`
					Values map[string]any `json:"values"`
				} `json:"rows"`
				Config presenter.ChartConfig `json:"config"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)

			Convey("Then values keep their state", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(out.Grain, ShouldEqual, "quarterly")
				So(out.Rows, ShouldHaveLength, 4)
				So(out.Rows[0].Period, ShouldEqual, "2020-03-31")
				So(out.Rows[0].Values["g"], ShouldEqual, 1.5)
				So(out.Rows[1].Values["g"], ShouldBeNil)
				So(out.Rows[2].Values["g"], ShouldEqual, "undefined")
			})

			Convey("And the chart config plots only present values", func() {
				So(out.Config.Series, ShouldHaveLength, 1)
				So(out.Config.Series[0].Points, ShouldHaveLength, 2)
			})
		})

		Convey("When the PNG is requested", func() {
			w := serve(h, "/charts/growth/png?width=320&height=200")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
			So(w.Body.Bytes()[:4], ShouldResemble, []byte("\x89PNG"))
		})

		Convey("When the PNG size is out of range", func() {
			w := serve(h, "/charts/growth/png?width=0")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.built, ShouldBeEmpty)
		})

		Convey("When the CSV is requested", func() {
			w := serve(h, "/charts/growth/csv")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
			lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
			So(lines, ShouldHaveLength, 5)
			So(lines[0], ShouldEqual, "period,g")
			So(lines[3], ShouldEqual, "2020-09-30,undefined")
		})

		Convey("When the chart is unknown", func() {
			w := serve(h, "/charts/gdp/png")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})

		Convey("When a source is missing", func() {
			w := serve(h, "/charts/broken")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "source_unavailable")
		})

		Convey("When FRED does not know the series or has no key", func() {
			for _, name := range []string{"unlisted", "keyless"} {
				w := serve(h, "/charts/"+name)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "source_unavailable")
			}
		})

		Convey("When stats are requested", func() {
			w := serve(h, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"runs":3`)
		})

		Convey("When metrics are scraped after requests", func() {
			serve(h, "/charts")
			w := serve(h, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "macrochart_pipeline_http_requests_total")
		})

		Convey("When a request id is sent", func() {
			req := httptest.NewRequest(http.MethodGet, "/charts", http.NoBody)
			req.Header.Set("X-Request-Id", "abc")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}
