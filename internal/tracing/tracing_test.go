package tracing

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/okian/pairrank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "pairrank"})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got %v", err)
	}
	if provider.IsEnabled() {
		t.Error("expected tracing to be disabled")
	}
	if provider.Tracer("x") == nil {
		t.Error("disabled provider should still hand out a tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider: %v", err)
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing service name", Config{Enabled: true, SamplingRate: 0.5}},
		{"negative rate", Config{Enabled: true, ServiceName: "pairrank", SamplingRate: -0.1}},
		{"rate above one", Config{Enabled: true, ServiceName: "pairrank", SamplingRate: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewProvider_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider, err := NewProvider(context.Background(),
		Config{Enabled: true, ServiceName: "pairrank", Version: "test", SamplingRate: 1},
		sdktrace.WithSpanProcessor(recorder),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Shutdown(context.Background()) //nolint:errcheck

	_, span := provider.Tracer("pairrank/test").Start(context.Background(), "session.resolve")
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "session.resolve" {
		t.Fatalf("expected one session.resolve span, got %d", len(ended))
	}
}

func TestNewProvider_HTTPExporter(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "pairrank",
		Endpoint:     "localhost:4318",
		Insecure:     true,
		SamplingRate: 0.1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !provider.IsEnabled() {
		t.Error("expected tracing to be enabled")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = provider.Shutdown(ctx)
}
