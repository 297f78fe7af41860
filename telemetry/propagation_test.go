package telemetry

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func sampledContext(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithSpanContext(context.Background(), sc), sc
}

func TestInjectHeaders(t *testing.T) {
	ctx, _ := sampledContext(t)

	h := InjectHeaders(ctx, nil)
	require.NotNil(t, h)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", h.Get("traceparent"))

	// Keys stay lower case on the wire.
	_, ok := h["traceparent"]
	assert.True(t, ok)
}

func TestInjectHeaders_KeepsExisting(t *testing.T) {
	ctx, _ := sampledContext(t)
	h := nats.Header{}
	h.Set("X-Custom", "1")

	out := InjectHeaders(ctx, h)
	assert.Equal(t, "1", out.Get("X-Custom"))
	assert.NotEmpty(t, out.Get("traceparent"))
}

func TestInjectHeaders_NoSpan(t *testing.T) {
	h := InjectHeaders(context.Background(), nil)
	assert.Empty(t, h.Get("traceparent"))
}

func TestExtractContext_RoundTrip(t *testing.T) {
	ctx, sc := sampledContext(t)
	h := InjectHeaders(ctx, nil)

	extracted := trace.SpanContextFromContext(ExtractContext(context.Background(), h))
	assert.Equal(t, sc.TraceID(), extracted.TraceID())
	assert.Equal(t, sc.SpanID(), extracted.SpanID())
	assert.True(t, extracted.IsSampled())

	assert.Equal(t, context.Background(), ExtractContext(context.Background(), nil))
}

func TestHeaderCarrier(t *testing.T) {
	c := HeaderCarrier{}
	assert.Equal(t, "", c.Get("missing"))
	c.Set("tracestate", "a=b")
	assert.Equal(t, "a=b", c.Get("tracestate"))
	assert.ElementsMatch(t, []string{"tracestate"}, c.Keys())
}

func TestTracer(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "noop")
	defer span.End()
	assert.NotNil(t, span)
}
