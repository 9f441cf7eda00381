package tracer

import (
	"context"

	"docubot-be/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const module = "Tracer"

type Config struct {
	Enabled     bool
	ServiceName string
	Environment string
	Endpoint    string  // host:port of the OTLP HTTP collector
	SampleRatio float64 // outside (0,1] means sample everything
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// InitTracer installs the OTLP tracer provider and returns its shutdown.
// Disabled or failed setup leaves the global no-op provider in place.
func InitTracer(cfg Config, log logger.ILogger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		log.Info(module, "Tracing disabled", nil)
		return noop
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn(module, "OTLP exporter unavailable, tracing disabled", map[string]interface{}{"error": err.Error()})
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		)),
	)
	otel.SetTracerProvider(tp)
	log.Info(module, "Tracer initialized", map[string]interface{}{
		"endpoint":     endpoint,
		"service":      cfg.ServiceName,
		"sample_ratio": cfg.SampleRatio,
	})

	return tp.Shutdown
}
