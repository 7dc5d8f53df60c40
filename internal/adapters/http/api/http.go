// Package api exposes the chart catalog over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	// Charts lists the catalog.
	Charts() []charts.Chart
	// Build runs the pipeline of one chart.
	Build(ctx context.Context, name string) (charts.Chart, *series.TidyTable, error)
}

// Canvas is the default PNG size; requests may override it.
type Canvas struct {
	Width  int
	Height int
}

// Server wires HTTP routes for the chart API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	chartsHandler *ChartsHandler
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, canvas Canvas) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
		chartsHandler: NewChartsHandler(deps, canvas),
		logger:        logger.Get().Named("http"),
	}
}

// Router returns a chi router with every route registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Route("/charts", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.chartsHandler.HandleList, "charts"))
		r.Get("/{name}", MetricsMiddleware(s.chartsHandler.HandleChart, "chart"))
		r.Get("/{name}/png", MetricsMiddleware(s.chartsHandler.HandlePNG, "chart_png"))
		r.Get("/{name}/csv", MetricsMiddleware(s.chartsHandler.HandleCSV, "chart_csv"))
	})
}

// requestLog logs one line per request with chi's request id.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
		)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
