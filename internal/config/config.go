// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case so that env vars map one to one.
// - New() returns the defaults; Load layers a YAML file and env vars on top.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects persistence: file, sqlite, redis or memory.
	StoreBackend string `koanf:"store_backend"`
	StorePath    string `koanf:"store_path"`
	SQLitePath   string `koanf:"sqlite_path"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisDB      int    `koanf:"redis_db"`
	StateKey     string `koanf:"state_key"`
	WelcomeKey   string `koanf:"welcome_key"`

	// CatalogPath points at an alternate YAML catalog. Empty uses the
	// embedded IT principles.
	CatalogPath string `koanf:"catalog_path"`

	AutoResolveDelayMS    int `koanf:"auto_resolve_delay_ms"`
	ConfidentThresholdMS  int `koanf:"confident_threshold_ms"`
	HardChoiceThresholdMS int `koanf:"hard_choice_threshold_ms"`
	DiscoveryRounds       int `koanf:"discovery_rounds"`
	ProgressTarget        int `koanf:"progress_target"`

	BoostAmount float64 `koanf:"boost_amount"`

	RatingKBase               float64 `koanf:"rating_k_base"`
	RatingConfidentMultiplier float64 `koanf:"rating_confident_multiplier"`
	RatingInferredMultiplier  float64 `koanf:"rating_inferred_multiplier"`
	RatingMinUncertainty      float64 `koanf:"rating_min_uncertainty"`
	RatingUncertaintyDecay    float64 `koanf:"rating_uncertainty_decay"`

	// NotifyQueueSize bounds the in-memory notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// DedupeSize sets how many presentation ids are remembered for
	// duplicate choice submissions.
	DedupeSize int `koanf:"dedupe_size"`

	// AllowedOrigins lists extra browser origins that may open the
	// WebSocket stream. Pages served by the engine itself always may.
	AllowedOrigins []string `koanf:"allowed_origins"`

	MetricsEnabled           bool              `koanf:"metrics_enabled"`
	MetricsNamespace         string            `koanf:"metrics_namespace"`
	MetricsRefreshIntervalMS int               `koanf:"metrics_refresh_interval_ms"`
	MetricsLabels            map[string]string `koanf:"metrics_labels"`

	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		Addr:         ":9080",
		StoreBackend: "file",
		StorePath:    ".pairrank",
		SQLitePath:   ".pairrank/pairrank.db",
		RedisAddr:    "localhost:6379",
		StateKey:     "it_principles_app_state",
		WelcomeKey:   "it_principles_welcome_seen",

		AutoResolveDelayMS:    1000,
		ConfidentThresholdMS:  3000,
		HardChoiceThresholdMS: 10000,
		DiscoveryRounds:       10,
		ProgressTarget:        60,
		BoostAmount:           15,

		RatingKBase:               40,
		RatingConfidentMultiplier: 1.5,
		RatingInferredMultiplier:  0.5,
		RatingMinUncertainty:      50,
		RatingUncertaintyDecay:    0.95,

		NotifyQueueSize: 1024,
		DedupeSize:      1024,

		MetricsEnabled:           true,
		MetricsNamespace:         "pairrank",
		MetricsRefreshIntervalMS: 10000,

		TracingSamplingRate: 1,
	}
}

// AutoResolveDelay returns AutoResolveDelayMS as a duration.
func (c *Config) AutoResolveDelay() time.Duration {
	return time.Duration(c.AutoResolveDelayMS) * time.Millisecond
}

// ConfidentThreshold returns ConfidentThresholdMS as a duration.
func (c *Config) ConfidentThreshold() time.Duration {
	return time.Duration(c.ConfidentThresholdMS) * time.Millisecond
}

// MetricsRefreshInterval returns MetricsRefreshIntervalMS as a duration.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalMS) * time.Millisecond
}

// HardChoiceThreshold returns HardChoiceThresholdMS as a duration.
func (c *Config) HardChoiceThreshold() time.Duration {
	return time.Duration(c.HardChoiceThresholdMS) * time.Millisecond
}
