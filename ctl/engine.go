package ctl

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nats-io/nats.go"

	"github.com/c360/latticectl/envelope"
	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/metric"
)

// flushTimeout bounds the background flush that follows an auction publish.
const flushTimeout = 5 * time.Second

// engine carries the collaborators shared by the request and auction engines.
type engine struct {
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metric.Metrics
}

// EngineOption configures a standalone Request or Auction call.
type EngineOption func(*engine)

// EngineClock sets the clock that drives the auction window.
func EngineClock(clk clock.Clock) EngineOption {
	return func(e *engine) {
		if clk != nil {
			e.clock = clk
		}
	}
}

// EngineLogger sets the logger used for flush and decode failures.
func EngineLogger(l *slog.Logger) EngineOption {
	return func(e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// EngineMetrics counts decode failures.
func EngineMetrics(m *metric.Metrics) EngineOption {
	return func(e *engine) {
		e.metrics = m
	}
}

func newEngine(opts []EngineOption) engine {
	e := engine{clock: clock.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Request sends payload to subject and waits up to timeout for exactly one reply,
// which is decoded as an Envelope[T].
//
// Every error matches one of errors.ErrTimedOut, errors.ErrTransport or
// errors.ErrDeserialize. No retries are made. A subject nobody subscribes to,
// such as an unreachable host, fails at once with errors.ErrTransport wrapping
// nats.ErrNoResponders rather than waiting for errors.ErrTimedOut, so callers
// that treat a missing host as a timeout should check both.
func Request[T any](ctx context.Context, bus Bus, subject string, payload []byte, timeout time.Duration, opts ...EngineOption) (envelope.Envelope[T], error) {
	return request[T](ctx, newEngine(opts), bus, subject, payload, timeout)
}

func request[T any](ctx context.Context, eng engine, bus Bus, subject string, payload []byte, timeout time.Duration) (envelope.Envelope[T], error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg := nats.NewMsg(subject)
	msg.Data = payload

	resp, err := bus.RequestMsg(ctx, msg)
	if err != nil {
		return envelope.Envelope[T]{}, requestError(err, timeout)
	}

	env, err := envelope.Decode[T](resp.Data)
	if err != nil {
		if eng.metrics != nil {
			eng.metrics.RecordDecodeError("request")
		}
		return envelope.Envelope[T]{}, err
	}
	return env, nil
}

func requestError(err error, timeout time.Duration) error {
	switch {
	case stderrors.Is(err, nats.ErrNoResponders):
		return errors.WrapTransient(errors.Transport(err), "ctl", "Request", "send")
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.Is(err, context.Canceled),
		stderrors.Is(err, nats.ErrTimeout):
		return errors.WrapTransient(fmt.Errorf("%w after %v: %w", errors.ErrTimedOut, timeout, err),
			"ctl", "Request", "await reply")
	default:
		return errors.WrapTransient(errors.Transport(err), "ctl", "Request", "send")
	}
}

// Auction publishes payload to subject with a private reply inbox and collects every
// reply that arrives within window. Collection also ends early on an empty reply or
// on the first reply that fails to decode; the replies gathered so far are returned.
//
// Only failures before collection starts are returned as errors. An empty result is
// not an error.
func Auction[T any](ctx context.Context, bus Bus, subject string, payload []byte, window time.Duration, opts ...EngineOption) ([]envelope.Envelope[T], error) {
	return auction[T](ctx, newEngine(opts), bus, subject, payload, window)
}

func auction[T any](ctx context.Context, eng engine, bus Bus, subject string, payload []byte, window time.Duration) ([]envelope.Envelope[T], error) {
	inbox := bus.NewInbox()
	sub, err := bus.SubscribeSync(ctx, inbox)
	if err != nil {
		return nil, errors.WrapTransient(errors.Transport(err), "ctl", "Auction", "subscribe inbox")
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			eng.logger.Debug("unsubscribe auction inbox", "inbox", inbox, "error", err)
		}
	}()

	msg := nats.NewMsg(subject)
	msg.Reply = inbox
	msg.Data = payload

	if err := bus.PublishMsg(ctx, msg); err != nil {
		return nil, errors.WrapTransient(errors.Transport(err), "ctl", "Auction", "publish")
	}

	go func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		if err := bus.Flush(fctx); err != nil {
			eng.logger.Error("flush after publish", "subject", subject, "error", err)
		}
	}()

	timer := eng.clock.Timer(window)
	defer timer.Stop()

	collectCtx, stop := context.WithCancel(ctx)
	defer stop()
	replies := make(chan *nats.Msg)
	go drain(collectCtx, sub, replies)

	var results []envelope.Envelope[T]
	for {
		select {
		case <-timer.C:
			return results, nil
		case <-ctx.Done():
			eng.logger.Debug("auction cancelled", "subject", subject, "collected", len(results))
			return results, nil
		case reply, ok := <-replies:
			if !ok || len(reply.Data) == 0 {
				return results, nil
			}
			env, err := envelope.Decode[T](reply.Data)
			if err != nil {
				eng.logger.Error("deserialization error in auction - results may be incomplete",
					"subject", subject, "error", err)
				if eng.metrics != nil {
					eng.metrics.RecordDecodeError("auction")
				}
				return results, nil
			}
			results = append(results, env)
		}
	}
}

// drain pumps sub into out until ctx is done or the subscription ends.
func drain(ctx context.Context, sub *nats.Subscription, out chan<- *nats.Msg) {
	defer close(out)
	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if stderrors.Is(err, nats.ErrSlowConsumer) {
				continue
			}
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
