// Package observability поднимает OpenTelemetry SDK (трейсы и логи по OTLP/HTTP) и zap-логгер.
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "cocostock"
	ServiceVersion = "0.1.0"

	tracesPath    = "/otlp/v1/traces"
	logsPath      = "/otlp/v1/logs"
	exportTimeout = 10 * time.Second
	maxQueueSize  = 2048
)

// Settings: куда экспортировать телеметрию. Пустой Endpoint выключает экспорт.
type Settings struct {
	Endpoint   string
	AuthHeader string
}

func (s Settings) Enabled() bool { return s.Endpoint != "" }

func (s Settings) headers() map[string]string {
	if s.AuthHeader == "" {
		return nil
	}
	return map[string]string{"Authorization": s.AuthHeader}
}

func newResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
}

func noopShutdown(context.Context) error { return nil }

// SetupTracingSDK регистрирует глобальный TracerProvider. При выключенном экспорте
// возвращает noop-провайдер, спаны в коде продолжают работать.
func SetupTracingSDK(ctx context.Context, s Settings) (trace.TracerProvider, func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !s.Enabled() {
		return noop.NewTracerProvider(), noopShutdown, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(s.Endpoint),
		otlptracehttp.WithURLPath(tracesPath),
		otlptracehttp.WithHeaders(s.headers()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp,
			sdktrace.WithExportTimeout(exportTimeout),
			sdktrace.WithMaxQueueSize(maxQueueSize),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp, tp.Shutdown, nil
}

// SetupLoggingSDK регистрирует глобальный LoggerProvider для моста otelzap.
func SetupLoggingSDK(ctx context.Context, s Settings) (func(context.Context) error, error) {
	if !s.Enabled() {
		return noopShutdown, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exp, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(s.Endpoint),
		otlploghttp.WithURLPath(logsPath),
		otlploghttp.WithHeaders(s.headers()),
	)
	if err != nil {
		return nil, fmt.Errorf("OTLP log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(exportTimeout),
			sdklog.WithMaxQueueSize(maxQueueSize),
		)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)
	return lp.Shutdown, nil
}

// Setup поднимает трейсы и логи; shutdown закрывает оба провайдера.
func Setup(ctx context.Context, s Settings) (trace.TracerProvider, func(context.Context) error, error) {
	tp, traceShutdown, err := SetupTracingSDK(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	logShutdown, err := SetupLoggingSDK(ctx, s)
	if err != nil {
		return nil, nil, errors.Join(err, traceShutdown(ctx))
	}
	shutdown := func(ctx context.Context) error {
		return errors.Join(traceShutdown(ctx), logShutdown(ctx))
	}
	return tp, shutdown, nil
}
