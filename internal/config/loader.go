package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable Load reads.
const EnvPrefix = "PAIRRANK_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path, or at PAIRRANK_CONFIG when path is empty
//  3. env (prefix PAIRRANK_)
func Load(_ context.Context, path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// PAIRRANK_STORE_BACKEND -> store_backend (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot coerce into something usable.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}

	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	switch c.StoreBackend {
	case "file":
		if c.StorePath == "" {
			return invalid("store_path is required for the file backend")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return invalid("sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if c.RedisAddr == "" {
			return invalid("redis_addr is required for the redis backend")
		}
	case "memory":
	default:
		return invalid("unknown store_backend %q", c.StoreBackend)
	}
	if c.StateKey == "" || c.WelcomeKey == "" {
		return invalid("state_key and welcome_key must not be empty")
	}
	if c.StateKey == c.WelcomeKey {
		return invalid("state_key and welcome_key must differ")
	}
	if c.AutoResolveDelayMS < 0 {
		return invalid("auto_resolve_delay_ms must not be negative")
	}
	if c.ConfidentThresholdMS <= 0 || c.HardChoiceThresholdMS <= 0 {
		return invalid("decision thresholds must be positive")
	}
	if c.DiscoveryRounds < 0 {
		return invalid("discovery_rounds must not be negative")
	}
	if c.ProgressTarget <= 0 {
		return invalid("progress_target must be positive")
	}
	if c.RatingKBase <= 0 || c.RatingConfidentMultiplier <= 0 || c.RatingInferredMultiplier <= 0 {
		return invalid("rating factors must be positive")
	}
	if c.RatingMinUncertainty < 0 {
		return invalid("rating_min_uncertainty must not be negative")
	}
	if c.RatingUncertaintyDecay <= 0 || c.RatingUncertaintyDecay > 1 {
		return invalid("rating_uncertainty_decay must be in (0, 1]")
	}
	if c.NotifyQueueSize <= 0 {
		return invalid("notify_queue_size must be positive")
	}
	if c.MetricsNamespace == "" || c.MetricsRefreshIntervalMS <= 0 {
		return invalid("metrics_namespace and metrics_refresh_interval_ms are required")
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		return invalid("tracing_sampling_rate must be between 0 and 1")
	}
	return nil
}
