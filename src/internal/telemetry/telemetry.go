// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"

	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Endpoint is the OTLP/gRPC collector address. Spans are recorded but
	// not exported when it is empty.
	Endpoint    string
	SampleRatio float64
}

type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
}

func (c Config) resource() *sdkresource.Resource {
	return sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(c.ServiceVersion),
		semconv.DeploymentEnvironment(c.Environment),
		semconv.TelemetrySDKLanguageGo,
	)
}

// Init builds the tracer provider and sets it, with W3C trace context and
// baggage propagation, as the global default. Extra options are appended
// after the exporter, so tests can attach their own span processors.
func Init(ctx context.Context, cfg Config, extra ...sdktrace.TracerProviderOption) (*Telemetry, error) {
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(cfg.resource()),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}

	t := &Telemetry{}
	if cfg.Endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("can't initialize tracer exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	} else {
		logger.Warn("otel exporter endpoint not configured, spans are not exported", nil)
	}

	t.TracerProvider = sdktrace.NewTracerProvider(append(opts, extra...)...)
	otel.SetTracerProvider(t.TracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("telemetry initialized", logger.Fields{
		"serviceName": cfg.ServiceName,
		"endpoint":    cfg.Endpoint,
		"sampleRatio": ratio,
	})
	return t, nil
}

// Shutdown flushes pending spans. The batcher stops the exporter with it.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("can't shutdown tracer provider: %w", err)
	}
	return nil
}
