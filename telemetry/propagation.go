// Package telemetry attaches trace context to control messages and resolves
// OpenTelemetry exporter endpoints.
package telemetry

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans created by this module.
const InstrumentationName = "github.com/c360/latticectl"

var propagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// HeaderCarrier adapts nats.Header to a propagation.TextMapCarrier. Keys are stored
// exactly as given; bus headers are case sensitive.
type HeaderCarrier nats.Header

var _ propagation.TextMapCarrier = HeaderCarrier{}

func (c HeaderCarrier) Get(key string) string {
	v := c[key]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func (c HeaderCarrier) Set(key, value string) {
	c[key] = []string{value}
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// InjectHeaders writes the trace context of ctx into h and returns h. A nil h is
// allocated.
func InjectHeaders(ctx context.Context, h nats.Header) nats.Header {
	if h == nil {
		h = nats.Header{}
	}
	propagator.Inject(ctx, HeaderCarrier(h))
	return h
}

// ExtractContext returns ctx extended with the trace context found in h.
func ExtractContext(ctx context.Context, h nats.Header) context.Context {
	if h == nil {
		return ctx
	}
	return propagator.Extract(ctx, HeaderCarrier(h))
}

// Tracer returns the tracer for control operations. It is a no-op until the
// application installs a TracerProvider with otel.SetTracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
