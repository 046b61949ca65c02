// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jllopis/bringacrew/pkg/config"
	"github.com/jllopis/bringacrew/pkg/errors"
)

// ServiceName identifies the crew runtime in exported telemetry.
const ServiceName = "bringacrew"

// ShutdownFunc flushes and releases telemetry resources.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs the global tracer and meter providers described by cfg.
// Disabled telemetry and the "none" exporter install nothing. Stdout
// exporters write to w, or to stderr when w is nil; attrs are added to the
// service resource.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string, w io.Writer, attrs ...attribute.KeyValue) (ShutdownFunc, error) {
	if !cfg.Enabled || cfg.Exporter == "none" {
		return noopShutdown, nil
	}
	if w == nil {
		w = os.Stderr
	}

	spans, readings, err := newExporters(ctx, cfg, w)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		append([]attribute.KeyValue{
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		}, attrs...)...,
	))
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "create telemetry resource", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spans, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(readings, sdkmetric.WithInterval(time.Minute))),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newExporters(ctx context.Context, cfg config.TelemetryConfig, w io.Writer) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	switch cfg.Exporter {
	case "", "stdout":
		spans, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, errors.New(errors.CodeInternal, "create stdout trace exporter", err)
		}
		readings, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, nil, errors.New(errors.CodeInternal, "create stdout metric exporter", err)
		}
		return spans, readings, nil

	case "otlp":
		if cfg.OTLPEndpoint == "" {
			return nil, nil, errors.New(errors.CodeInvalidInput, "otlp endpoint is required", nil).
				WithContext("key", "telemetry.otlp_endpoint")
		}
		traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
			metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		}
		spans, err := otlptracegrpc.New(ctx, traceOpts...)
		if err != nil {
			return nil, nil, errors.New(errors.CodeUnavailable, "create otlp trace exporter", err).
				WithContext("endpoint", cfg.OTLPEndpoint)
		}
		readings, err := otlpmetricgrpc.New(ctx, metricOpts...)
		if err != nil {
			_ = spans.Shutdown(ctx)
			return nil, nil, errors.New(errors.CodeUnavailable, "create otlp metric exporter", err).
				WithContext("endpoint", cfg.OTLPEndpoint)
		}
		return spans, readings, nil

	default:
		return nil, nil, errors.New(errors.CodeInvalidInput, "unknown telemetry exporter", nil).
			WithContext("exporter", cfg.Exporter)
	}
}
