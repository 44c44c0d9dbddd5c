package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/pairrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the documented defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, "file")
			convey.So(cfg.StateKey, convey.ShouldEqual, "it_principles_app_state")
			convey.So(cfg.WelcomeKey, convey.ShouldEqual, "it_principles_welcome_seen")
			convey.So(cfg.AutoResolveDelay(), convey.ShouldEqual, time.Second)
			convey.So(cfg.ConfidentThreshold(), convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.HardChoiceThreshold(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.ProgressTarget, convey.ShouldEqual, 60)
			convey.So(cfg.BoostAmount, convey.ShouldEqual, 15)
			convey.So(cfg.RatingKBase, convey.ShouldEqual, 40)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DiscoveryRounds, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PAIRRANK_ADDR", ":8080")
			_ = os.Setenv("PAIRRANK_STORE_BACKEND", "sqlite")
			_ = os.Setenv("PAIRRANK_AUTO_RESOLVE_DELAY_MS", "250")
			_ = os.Setenv("PAIRRANK_RATING_K_BASE", "32")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.AutoResolveDelay(), convey.ShouldEqual, 250*time.Millisecond)
				convey.So(cfg.RatingKBase, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
store_backend: redis
redis_addr: "cache:6379"
redis_db: 2
progress_target: 45
catalog_path: /etc/pairrank/catalog.yaml
allowed_origins:
  - http://localhost:3000
metrics_namespace: team
metrics_labels:
  deployment: office
`)

			convey.Convey("And the path comes from PAIRRANK_CONFIG", func() {
				_ = os.Setenv("PAIRRANK_CONFIG", path)
				cfg, err := config.Load(ctx, "")

				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.ProgressTarget, convey.ShouldEqual, 45)
				convey.So(cfg.CatalogPath, convey.ShouldEqual, "/etc/pairrank/catalog.yaml")
				convey.So(cfg.AllowedOrigins, convey.ShouldResemble, []string{"http://localhost:3000"})
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "team")
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"deployment": "office"})
				convey.So(cfg.MetricsRefreshInterval(), convey.ShouldEqual, 10*time.Second)
			})

			convey.Convey("And env vars take precedence over the file", func() {
				_ = os.Setenv("PAIRRANK_PROGRESS_TARGET", "30")
				cfg, err := config.Load(ctx, path)

				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ProgressTarget, convey.ShouldEqual, 30)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value is invalid", func() {
			_ = os.Setenv("PAIRRANK_STORE_BACKEND", "etcd")
			_, err := config.Load(ctx, "")
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = "" },
			"same keys":         func(c *config.Config) { c.WelcomeKey = c.StateKey },
			"negative delay":    func(c *config.Config) { c.AutoResolveDelayMS = -1 },
			"zero target":       func(c *config.Config) { c.ProgressTarget = 0 },
			"decay above one":   func(c *config.Config) { c.RatingUncertaintyDecay = 1.5 },
			"sampling too high": func(c *config.Config) { c.TracingSamplingRate = 2 },
			"no sqlite path":    func(c *config.Config) { c.StoreBackend = "sqlite"; c.SQLitePath = "" },
			"zero queue":        func(c *config.Config) { c.NotifyQueueSize = 0 },
			"no namespace":      func(c *config.Config) { c.MetricsNamespace = "" },
			"zero refresh":      func(c *config.Config) { c.MetricsRefreshIntervalMS = 0 },
		}
		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				cfg := config.New()
				mutate(cfg)

				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairrank.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix) {
			_ = os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
}
