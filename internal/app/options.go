package service

import (
	"github.com/okian/macrochart/internal/adapters/presenter"
	"github.com/okian/macrochart/internal/adapters/sink"
	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCatalog replaces the built-in chart catalog.
func WithCatalog(c *charts.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithSources sets where pipelines load their inputs.
func WithSources(src charts.Sources) Option {
	return func(s *Service) {
		if src != nil {
			s.sources = src
		}
	}
}

// WithParams sets the catalog parameters.
func WithParams(p charts.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

// WithWorkerCount bounds how many charts RunAll runs at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithOutputDir sets where artifacts are written.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithCanvas sets the rendered chart size in pixels.
func WithCanvas(width, height int) Option {
	return func(s *Service) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithRenderers sets the artifact renderers.
func WithRenderers(r ...presenter.Renderer) Option {
	return func(s *Service) {
		s.renderers = r
	}
}

// WithSinks sets where processed tables are persisted.
func WithSinks(sinks ...sink.Sink) Option {
	return func(s *Service) {
		s.sinks = sinks
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
