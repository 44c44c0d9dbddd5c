package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pairrank/internal/adapters/http/api"
	"github.com/okian/pairrank/internal/adapters/http/site"
	"github.com/okian/pairrank/internal/adapters/http/stream"
	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/tracing"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, the WebSocket stream and the browser client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	log := logger.Named("cli")

	cfg, err := opts.loadConfig(ctx)
	if err != nil {
		return err
	}

	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval()),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)

	provider, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName:  "pairrank",
		Version:      version,
		Enabled:      cfg.TracingEnabled,
		Endpoint:     cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		Insecure:     cfg.TracingInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			log.Warn(sctx, "tracer shutdown failed", logger.Error(err))
		}
	}()

	svc := service.New(
		service.WithConfig(cfg),
		service.WithLogger(logger.Named("service")),
		service.WithTracer(provider.Tracer("pairrank/session")),
	)
	broadcaster := stream.NewBroadcaster(
		stream.WithLogger(logger.Named("stream")),
		stream.WithGreeting(svc.Greeting),
		stream.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	svc.AddSink(broadcaster)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	api.NewServer(svc, svc, broadcaster).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		updateSystemMetrics(gctx)
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// updateSystemMetrics refreshes process gauges until ctx is done.
func updateSystemMetrics(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
