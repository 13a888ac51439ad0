// Package tracing настраивает OpenTelemetry tracer provider
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc сбрасывает буферы экспортера и останавливает провайдер
type ShutdownFunc func(ctx context.Context) error

// Init устанавливает глобальный tracer provider
// При enabled=false остается no-op провайдер по умолчанию
func Init(serviceName string, enabled bool) (ShutdownFunc, error) {
	return InitWithWriter(serviceName, enabled, os.Stdout)
}

// InitWithWriter то же, что Init, но спаны пишутся в w
func InitWithWriter(serviceName string, enabled bool, w io.Writer) (ShutdownFunc, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("tracing: create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
