package agent

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/springbank-ai/netagent/agent"

// metrics holds the instruments recorded during a session.
type metrics struct {
	toolCalls  metric.Int64Counter
	retries    metric.Int64Counter
	stepMillis metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	m := &metrics{}
	var err error

	m.toolCalls, err = meter.Int64Counter(
		"agent.tool_calls",
		metric.WithDescription("Tool invocations dispatched"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool call counter: %w", err)
	}

	m.retries, err = meter.Int64Counter(
		"agent.retries",
		metric.WithDescription("Extra attempts beyond the first per tool call"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retry counter: %w", err)
	}

	m.stepMillis, err = meter.Float64Histogram(
		"agent.step_duration",
		metric.WithDescription("Plan step duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create step duration histogram: %w", err)
	}

	return m, nil
}

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

func stepAttrs(tool, provider, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
}
