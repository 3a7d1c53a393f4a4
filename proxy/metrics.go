package proxy

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	spanKeyHub       = "hub.name"
	spanKeyMethod    = "hub.method"
	spanKeyArguments = "hub.arguments"
	spanKeyBound     = "hub.bound"
)

// hubMetrics holds the OpenTelemetry instruments of a hub.
// A nil *hubMetrics records nothing.
type hubMetrics struct {
	invocations    metric.Int64Counter
	unrecognized   metric.Int64Counter
	handlerFailure metric.Int64Counter
}

func newHubMetrics() *hubMetrics {
	meter := otel.Meter("hubevent")
	invocations, _ := meter.Int64Counter("hubevent.hub.invocations",
		metric.WithDescription("Number of invocations delivered to the hub"),
		metric.WithUnit("{invocation}"),
	)
	unrecognized, _ := meter.Int64Counter("hubevent.hub.unrecognized",
		metric.WithDescription("Number of invocations for methods with no bound handler"),
		metric.WithUnit("{invocation}"),
	)
	handlerFailure, _ := meter.Int64Counter("hubevent.hub.handler_failures",
		metric.WithDescription("Number of handler invocations that returned an error or panicked"),
		metric.WithUnit("{call}"),
	)
	return &hubMetrics{
		invocations:    invocations,
		unrecognized:   unrecognized,
		handlerFailure: handlerFailure,
	}
}

func (m *hubMetrics) invoked(ctx context.Context, method string, bound bool) {
	if m == nil {
		return
	}
	if !bound {
		if m.unrecognized != nil {
			m.unrecognized.Add(ctx, 1)
		}
		return
	}
	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	}
}

func (m *hubMetrics) handlerFailed(ctx context.Context, event string) {
	if m == nil || m.handlerFailure == nil {
		return
	}
	m.handlerFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
