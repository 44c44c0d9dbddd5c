package service

import (
	"github.com/okian/pairrank/internal/adapters/mq/worker"
	"github.com/okian/pairrank/internal/adapters/repository"
	"github.com/okian/pairrank/internal/config"
	"github.com/okian/pairrank/internal/domain/catalog"
	"github.com/okian/pairrank/internal/domain/session"
	"github.com/okian/pairrank/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
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

// WithCatalog uses cat instead of loading catalog_path.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(s *Service) {
		if cat != nil {
			s.catalog = cat
		}
	}
}

// WithBackend uses b instead of opening the configured store backend.
// The service takes ownership and closes it on Stop.
func WithBackend(b repository.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithSinks registers notification sinks before Start.
func WithSinks(sinks ...worker.Sink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithTracer sets the tracer handed to the session controller.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock sets the clock handed to the session controller.
func WithClock(clk session.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clock = clk
		}
	}
}
