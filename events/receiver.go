package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/nats-io/nats.go"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/metric"
)

// DefaultBuffer is the capacity of the Events channel.
const DefaultBuffer = 5000

// Subscriber opens synchronous subscriptions. *natsclient.Client satisfies it.
type Subscriber interface {
	SubscribeSync(ctx context.Context, subject string) (*nats.Subscription, error)
}

type options struct {
	buffer  int
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures Open.
type Option func(*options)

// WithBuffer sets the Events channel capacity. Values below 1 keep the default.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithLogger sets the logger for decode failures and shutdown errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics counts forwarded events, decode failures and open subscriptions.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Receiver owns the merged subscriptions and the channel events are delivered on.
type Receiver struct {
	out     chan event.Event
	subs    []*nats.Subscription
	cancel  context.CancelFunc
	readers *errgroup.Group
	done    chan struct{}
	err     error
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Open subscribes to every subject and starts forwarding. Duplicate subjects are
// subscribed once. If any subscription fails, those already made are removed and
// a transport error is returned.
func Open(ctx context.Context, sub Subscriber, subjects []string, opts ...Option) (*Receiver, error) {
	o := options{buffer: DefaultBuffer, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	subjects = dedupe(subjects)
	if len(subjects) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("no event subjects given"), "events", "Open", "check subjects")
	}

	subs := make([]*nats.Subscription, 0, len(subjects))
	for _, subject := range subjects {
		s, err := sub.SubscribeSync(ctx, subject)
		if err != nil {
			cleanup := unsubscribeAll(subs)
			if cleanup != nil {
				o.logger.Warn("failed to remove partial event subscriptions", "error", cleanup)
			}
			return nil, errors.WrapTransient(errors.Transport(err), "events", "Open",
				fmt.Sprintf("subscribe to %s", subject))
		}
		subs = append(subs, s)
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Receiver{
		out:     make(chan event.Event, o.buffer),
		subs:    subs,
		cancel:  cancel,
		readers: &errgroup.Group{},
		done:    make(chan struct{}),
		logger:  o.logger,
		metrics: o.metrics,
	}

	if r.metrics != nil {
		r.metrics.EventSubscriptions.Add(float64(len(subs)))
	}

	merged := make(chan *nats.Msg)
	for _, s := range subs {
		s := s
		r.readers.Go(func() error { return read(ctx, s, merged, r.logger) })
	}
	go func() {
		_ = r.readers.Wait()
		close(merged)
	}()

	go r.run(ctx, merged)

	return r, nil
}

// Events returns the channel events are delivered on. It is closed when the receiver stops.
func (r *Receiver) Events() <-chan event.Event {
	return r.out
}

// Done is closed after the receiver has stopped and released its subscriptions.
func (r *Receiver) Done() <-chan struct{} {
	return r.done
}

// Err reports read and unsubscribe failures. Valid once Done is closed.
func (r *Receiver) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Close stops forwarding, removes the subscriptions and waits for the receiver to exit.
func (r *Receiver) Close() error {
	r.cancel()
	<-r.done
	return r.err
}

func (r *Receiver) run(ctx context.Context, merged <-chan *nats.Msg) {
	defer close(r.done)
	defer close(r.out)

	r.forward(ctx, merged)

	r.cancel()
	unsubErr := unsubscribeAll(r.subs)
	readErr := r.readers.Wait()
	r.err = multierr.Combine(readErr, unsubErr)
	if r.err != nil {
		r.logger.Warn("event receiver stopped with errors", "error", r.err)
	}

	if r.metrics != nil {
		r.metrics.EventSubscriptions.Sub(float64(len(r.subs)))
	}
}

func (r *Receiver) forward(ctx context.Context, merged <-chan *nats.Msg) {
	for {
		var msg *nats.Msg
		select {
		case <-ctx.Done():
			return
		case m, ok := <-merged:
			if !ok {
				return
			}
			msg = m
		}

		evt, err := Decode(msg.Data)
		if err != nil {
			r.logger.Error("object received on event stream was not a CloudEvent",
				"subject", msg.Subject, "error", err)
			if r.metrics != nil {
				r.metrics.RecordDecodeError("events")
			}
			continue
		}

		select {
		case r.out <- evt:
			if r.metrics != nil {
				r.metrics.RecordEventForwarded(Category(evt))
			}
		case <-ctx.Done():
			return
		}
	}
}

// read pumps one subscription into merged until it ends or ctx is done.
func read(ctx context.Context, sub *nats.Subscription, merged chan<- *nats.Msg, logger *slog.Logger) error {
	for {
		msg, err := sub.NextMsgWithContext(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case stderrors.Is(err, nats.ErrSlowConsumer):
			logger.Warn("event subscription dropped messages", "subject", sub.Subject)
			continue
		case stderrors.Is(err, nats.ErrBadSubscription), stderrors.Is(err, nats.ErrConnectionClosed):
			return nil
		default:
			return errors.WrapTransient(errors.Transport(err), "events", "read", "next message on "+sub.Subject)
		}

		select {
		case merged <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func unsubscribeAll(subs []*nats.Subscription) error {
	var errs error
	for _, s := range subs {
		err := s.Unsubscribe()
		if err == nil || stderrors.Is(err, nats.ErrBadSubscription) || stderrors.Is(err, nats.ErrConnectionClosed) {
			continue
		}
		errs = multierr.Append(errs, fmt.Errorf("unsubscribe %s: %w", s.Subject, err))
	}
	return errs
}

func dedupe(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Decode parses a structured-mode JSON CloudEvent and validates it.
func Decode(data []byte) (event.Event, error) {
	evt := event.New()
	if len(data) == 0 {
		return evt, errors.Deserialize(fmt.Errorf("empty event payload"))
	}
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, errors.Deserialize(err)
	}
	if err := evt.Validate(); err != nil {
		return evt, errors.Deserialize(err)
	}
	return evt, nil
}
