package repository

import "github.com/okian/pairrank/pkg/logger"

// Default keys, kept compatible with the browser build of the picker.
const (
	DefaultStateKey   = "it_principles_app_state"
	DefaultWelcomeKey = "it_principles_welcome_seen"
)

// Option applies a configuration option to the Store.
type Option func(*kvStore)

// WithStateKey sets the key the session snapshot is written under.
func WithStateKey(key string) Option {
	return func(s *kvStore) {
		if key != "" {
			s.stateKey = key
		}
	}
}

// WithWelcomeKey sets the key of the welcome-seen flag.
func WithWelcomeKey(key string) Option {
	return func(s *kvStore) {
		if key != "" {
			s.welcomeKey = key
		}
	}
}

// WithMinUncertainty sets the uncertainty floor saved items are raised to
// on load. It should match the rating model's floor.
func WithMinUncertainty(floor float64) Option {
	return func(s *kvStore) {
		if floor >= 0 {
			s.minUncert = floor
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *kvStore) {
		if l != nil {
			s.log = l
		}
	}
}
