package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// envOTLPEndpoint is the standard OTel env var naming the OTLP gRPC
// collector address (e.g. "localhost:4317"). Empty disables OTLP export;
// spans and metrics then flow only through the in-process/Prometheus
// providers below.
const envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

// envOTLPInsecure disables TLS for the OTLP gRPC connection when "true".
const envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"

// TracerName is the instrumentation name every pipeline stage span is
// recorded under.
const TracerName = "reposcan"

// Providers bundles the initialized observability backends for a run, so
// the pipeline controller can shut them down cleanly on exit.
type Providers struct {
	MeterProvider *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	Metrics       *StageMetrics
	Tracer        trace.Tracer

	// MetricsHandler serves the Prometheus exposition of every instrument
	// registered through the meter provider. Mounted on /metrics when the
	// operator configures a metrics listen address.
	MetricsHandler http.Handler

	// otlpShutdowns flushes the OTLP span batcher and metric reader, when
	// envOTLPEndpoint wired them in. Empty when OTLP export is disabled.
	otlpShutdowns []func(context.Context) error
}

// Init wires a Prometheus-backed OTel MeterProvider plus a TracerProvider,
// and builds the StageMetrics instruments from the meter. Metrics are
// always exposed for scraping wherever the caller mounts the Prometheus
// registry's HTTP handler. When envOTLPEndpoint is set, an OTLP gRPC span
// exporter and an additional OTLP metric reader are attached so spans and
// metrics also flow to a collector; when it is unset (the default),
// spans are recorded in-process only and metrics flow through Prometheus
// alone, exactly as before.
func Init(serviceName string) (*Providers, error) {
	registry := prometheus.NewRegistry()

	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	meterOpts := []sdkmetric.Option{sdkmetric.WithReader(promExporter)}
	tracerOpts := []sdktrace.TracerProviderOption{}

	endpoint := os.Getenv(envOTLPEndpoint)

	var otlpShutdowns []func(context.Context) error

	if endpoint != "" {
		ctx := context.Background()
		insecure := strings.EqualFold(os.Getenv(envOTLPInsecure), "true")

		traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if insecure {
			traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		}

		traceExporter, traceErr := otlptracegrpc.New(ctx, traceOpts...)
		if traceErr != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", traceErr)
		}

		batcher := sdktrace.NewBatchSpanProcessor(traceExporter)
		tracerOpts = append(tracerOpts, sdktrace.WithSpanProcessor(batcher))
		otlpShutdowns = append(otlpShutdowns, batcher.Shutdown)

		metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
		if insecure {
			metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		}

		metricExporter, metricErr := otlpmetricgrpc.New(ctx, metricOpts...)
		if metricErr != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", metricErr)
		}

		reader := sdkmetric.NewPeriodicReader(metricExporter)
		meterOpts = append(meterOpts, sdkmetric.WithReader(reader))
		otlpShutdowns = append(otlpShutdowns, reader.Shutdown)
	}

	meterProvider := sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(serviceName)

	stageMetrics, metricsErr := NewStageMetrics(meter)
	if metricsErr != nil {
		return nil, metricsErr
	}

	tracerProvider := sdktrace.NewTracerProvider(tracerOpts...)
	otel.SetTracerProvider(tracerProvider)

	return &Providers{
		MeterProvider:  meterProvider,
		TracerProvider: tracerProvider,
		Metrics:        stageMetrics,
		Tracer:         tracerProvider.Tracer(TracerName),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		otlpShutdowns:  otlpShutdowns,
	}, nil
}

// StartMetricsServer mounts the Prometheus handler on /metrics at addr and
// serves it in the background, returning the server so the caller can shut
// it down at exit. An addr that cannot be bound surfaces on the returned
// server's first Shutdown call, not here.
func (p *Providers) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.MetricsHandler)

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// The pipeline keeps running without scrapeable metrics; the
			// operator sees the bind failure on stderr.
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()

	return srv
}

// Shutdown flushes and closes the meter and tracer providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}

	for _, shutdown := range p.otlpShutdowns {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown otlp exporter: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Meter is a convenience accessor used by components that only need to
// create their own instruments against the global provider (e.g. tests).
func Meter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}
