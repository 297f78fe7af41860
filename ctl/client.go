package ctl

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/c360/latticectl/envelope"
	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/events"
	"github.com/c360/latticectl/identifier"
	"github.com/c360/latticectl/metric"
	"github.com/c360/latticectl/natsclient"
	"github.com/c360/latticectl/telemetry"
	"github.com/c360/latticectl/topic"
)

const (
	// DefaultLattice is the lattice used when none is configured.
	DefaultLattice = "default"
	// DefaultTimeout bounds a single request-reply exchange.
	DefaultTimeout = 2 * time.Second
	// DefaultAuctionTimeout is the collection window of auctions and host discovery.
	DefaultAuctionTimeout = 5 * time.Second
)

// Bus is the message bus capability the engines need. RequestMsg and PublishMsg
// are expected to carry the trace context of ctx in the message headers, as
// natsclient.Client does.
type Bus interface {
	NewInbox() string
	RequestMsg(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
	PublishMsg(ctx context.Context, msg *nats.Msg) error
	SubscribeSync(ctx context.Context, subject string) (*nats.Subscription, error)
	Flush(ctx context.Context) error
}

var _ Bus = (*natsclient.Client)(nil)

// Ack is the reply to commands and writes that carry no response payload.
type Ack = envelope.Envelope[struct{}]

// Client issues control operations against one lattice. It is safe for
// concurrent use; it holds no mutable state after New returns.
type Client struct {
	bus            Bus
	topics         topic.Scheme
	lattice        string
	topicPrefix    string
	eventPrefix    string
	timeout        time.Duration
	auctionTimeout time.Duration
	eventBuffer    int
	logger         *slog.Logger
	metrics        *metric.Metrics
	clock          clock.Clock
}

// New creates a control client over bus.
func New(bus Bus, opts ...Option) (*Client, error) {
	if bus == nil {
		return nil, errors.WrapInvalid(stderrors.New("bus is required"), "Client", "New", "validate bus")
	}

	c := &Client{
		bus:            bus,
		lattice:        DefaultLattice,
		timeout:        DefaultTimeout,
		auctionTimeout: DefaultAuctionTimeout,
		eventBuffer:    events.DefaultBuffer,
		logger:         slog.Default(),
		clock:          clock.New(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "New", "apply option")
		}
	}

	c.topics = topic.New(c.topicPrefix, c.lattice, topic.WithEventPrefix(c.eventPrefix))
	c.logger = c.logger.With("component", "ctl", "lattice", c.lattice)
	return c, nil
}

// Lattice returns the lattice id every subject is scoped to.
func (c *Client) Lattice() string { return c.lattice }

// Bus returns the underlying bus.
func (c *Client) Bus() Bus { return c.bus }

// Timeout returns the request-reply timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// AuctionTimeout returns the auction collection window.
func (c *Client) AuctionTimeout() time.Duration { return c.auctionTimeout }

// Topics returns the subject scheme.
func (c *Client) Topics() topic.Scheme { return c.topics }

func (c *Client) engine() engine {
	return engine{clock: c.clock, logger: c.logger, metrics: c.metrics}
}

// invalid records a validation failure that happened before any bus activity.
func (c *Client) invalid(op string, err error) error {
	if c.metrics != nil {
		c.metrics.RecordRequest(op, metric.OutcomeInvalid, 0)
	}
	return errors.WrapInvalid(err, "Client", op, "validate")
}

// observation tracks one operation from dispatch to result.
type observation struct {
	c     *Client
	op    string
	start time.Time
	span  trace.Span
}

func (c *Client) begin(ctx context.Context, op, subject string) (context.Context, *observation) {
	ctx, span := telemetry.Tracer().Start(ctx, "ctl."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", subject),
			attribute.String("wasmcloud.lattice", c.lattice),
		))
	c.logger.Debug("dispatch", "operation", op, "subject", subject)
	return ctx, &observation{c: c, op: op, start: c.clock.Now(), span: span}
}

// end closes the span and records the outcome. success is the envelope's flag and
// is ignored when err is set.
func (o *observation) end(err error, success bool) {
	outcome := outcomeOf(err, success)
	switch {
	case err != nil:
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.c.logger.Debug("operation failed", "operation", o.op, "outcome", outcome, "error", err)
	case !success:
		o.span.SetStatus(codes.Error, outcome)
	}
	o.span.SetAttributes(attribute.String("wasmcloud.ctl.outcome", outcome))
	o.span.End()

	if o.c.metrics != nil {
		o.c.metrics.RecordRequest(o.op, outcome, o.c.clock.Since(o.start))
	}
}

func outcomeOf(err error, success bool) string {
	switch {
	case err == nil && success:
		return metric.OutcomeOK
	case err == nil:
		return metric.OutcomeRejected
	case stderrors.Is(err, errors.ErrTimedOut):
		return metric.OutcomeTimeout
	case stderrors.Is(err, errors.ErrDeserialize):
		return metric.OutcomeDeserialize
	case stderrors.Is(err, errors.ErrTransport):
		return metric.OutcomeTransport
	case errors.IsInvalid(err):
		return metric.OutcomeInvalid
	default:
		return metric.OutcomeTransport
	}
}

// call performs one request-reply operation. what names the expected reply in the
// failure message.
func call[T any](ctx context.Context, c *Client, op, subject string, payload any, what string) (envelope.Envelope[T], error) {
	ctx, obs := c.begin(ctx, op, subject)

	data, err := encode(payload)
	if err != nil {
		obs.end(err, false)
		return envelope.Envelope[T]{}, err
	}

	env, err := request[T](ctx, c.engine(), c.bus, subject, data, c.timeout)
	if err != nil {
		err = fmt.Errorf("did not receive %s: %w", what, err)
	}
	obs.end(err, env.Success)
	return env, err
}

// gather performs one scatter/gather operation over the auction window.
func gather[T any](ctx context.Context, c *Client, op, subject string, payload any) ([]envelope.Envelope[T], error) {
	ctx, obs := c.begin(ctx, op, subject)

	data, err := encode(payload)
	if err != nil {
		obs.end(err, false)
		return nil, err
	}

	results, err := auction[T](ctx, c.engine(), c.bus, subject, data, c.auctionTimeout)
	if err == nil && c.metrics != nil {
		c.metrics.RecordAuction(op, len(results))
	}
	obs.span.SetAttributes(attribute.Int("wasmcloud.ctl.responses", len(results)))
	obs.end(err, true)
	return results, err
}

// encode serializes payload. A nil payload is sent as an empty body.
func encode(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return envelope.Encode(payload)
}

// hostToken validates a host id that is spliced into a subject.
func hostToken(raw string) (string, error) {
	return identifier.Token(identifier.HostID, raw)
}
