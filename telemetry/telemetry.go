// Package telemetry is the coordinator's uniform logging/metrics/tracing
// facade. Components that log (agent registry, workflow engine, REST API)
// take the Bundle's Logger at construction rather than reaching for a
// global logger, per the explicit-wiring-value design note; no component
// takes Metrics or Tracer.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured key-value log messages.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges, each optionally tagged.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, d time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer starts and retrieves spans.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		Span(ctx context.Context) Span
	}

	// Span is the subset of span behavior the coordinator needs.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, keyvals ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}

	// Bundle groups the three facade interfaces so components can take a
	// single constructor argument.
	Bundle struct {
		Logger  Logger
		Metrics Metrics
		Tracer  Tracer
	}
)

// NewNoopBundle returns a Bundle of no-op implementations, always safe to
// construct without external configuration.
func NewNoopBundle() Bundle {
	return Bundle{
		Logger:  NewNoopLogger(),
		Metrics: NewNoopMetrics(),
		Tracer:  NewNoopTracer(),
	}
}

// NewClueBundle returns a Bundle backed by goa.design/clue/log and
// OpenTelemetry. Callers must configure the global MeterProvider/
// TracerProvider (e.g. via clue.ConfigureOpenTelemetry) before use.
func NewClueBundle() Bundle {
	return Bundle{
		Logger:  NewClueLogger(),
		Metrics: NewClueMetrics(),
		Tracer:  NewClueTracer(),
	}
}
