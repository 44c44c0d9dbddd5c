package worker

import (
	"github.com/okian/pairrank/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithName sets the dispatcher name for identification and logging.
func WithName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSinks registers sinks at construction time.
func WithSinks(sinks ...Sink) Option {
	return func(d *Dispatcher) {
		d.sinks = append(d.sinks, sinks...)
	}
}
