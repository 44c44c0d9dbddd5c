package session

import (
	"time"

	"github.com/okian/pairrank/internal/domain/matchmaker"
	"github.com/okian/pairrank/internal/domain/rating"
	"github.com/okian/pairrank/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Defaults for the controller thresholds.
const (
	DefaultAutoResolveDelay    = time.Second
	DefaultConfidentThreshold  = 3 * time.Second
	DefaultHardChoiceThreshold = 10 * time.Second
	DefaultProgressTarget      = 60
	DefaultBoostAmount         = 15.0
	DefaultSharePercent        = 80
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithPersister sets where snapshots are saved after every mutation.
func WithPersister(p Persister) Option {
	return func(c *Controller) { c.persister = p }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithTracer sets the tracer used for resolve, boost and reset spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithRatingModel replaces the default rating model.
func WithRatingModel(m *rating.Model) Option {
	return func(c *Controller) {
		if m != nil {
			c.rating = m
		}
	}
}

// WithMatchmaker replaces the default matchmaker.
func WithMatchmaker(m *matchmaker.Matchmaker) Option {
	return func(c *Controller) {
		if m != nil {
			c.matchmaker = m
		}
	}
}

// WithAutoResolveDelay sets how long an inferred pair stays on screen.
func WithAutoResolveDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.autoResolveDelay = d
		}
	}
}

// WithConfidentThreshold sets the latency below which a decision counts as
// confident.
func WithConfidentThreshold(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.confidentThreshold = d
		}
	}
}

// WithHardChoiceThreshold sets the latency above which a conflict is logged.
func WithHardChoiceThreshold(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.hardChoiceThreshold = d
		}
	}
}

// WithProgressTarget sets the judgment count treated as 100% progress.
func WithProgressTarget(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.progressTarget = n
		}
	}
}

// WithBoostAmount sets the rating added by Boost.
func WithBoostAmount(v float64) Option {
	return func(c *Controller) { c.boostAmount = v }
}

// WithIDGenerator replaces uuid generation for judgments and presentations.
func WithIDGenerator(f func() string) Option {
	return func(c *Controller) {
		if f != nil {
			c.newID = f
		}
	}
}
