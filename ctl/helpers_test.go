package ctl_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/c360/latticectl/ctl"
	"github.com/c360/latticectl/natsclient"
)

// newLattice starts an embedded server and a control client with short timeouts.
func newLattice(t *testing.T, opts ...ctl.Option) (*ctl.Client, *natsclient.TestClient) {
	t.Helper()

	tc := natsclient.NewEmbeddedTestClient(t)
	base := []ctl.Option{
		ctl.WithTimeout(500 * time.Millisecond),
		ctl.WithAuctionTimeout(300 * time.Millisecond),
	}
	client, err := ctl.New(tc.Client, append(base, opts...)...)
	require.NoError(t, err)
	return client, tc
}

// fakeHost answers control subjects the way a host would.
type fakeHost struct {
	t      *testing.T
	client *natsclient.Client
}

func newFakeHost(t *testing.T, tc *natsclient.TestClient) *fakeHost {
	return &fakeHost{t: t, client: tc.Connect(t)}
}

// handle subscribes to subject. Each request is recorded on the returned channel and
// answered with the replies fn returns, in order. A []byte reply is sent verbatim,
// anything else is JSON encoded. No replies means the host stays silent.
func (h *fakeHost) handle(subject string, fn func(*nats.Msg) []any) <-chan *nats.Msg {
	h.t.Helper()

	seen := make(chan *nats.Msg, 64)
	ctx := context.Background()
	err := h.client.Subscribe(ctx, subject, func(ctx context.Context, m *nats.Msg) {
		select {
		case seen <- m:
		default:
		}
		for _, reply := range fn(m) {
			data, ok := reply.([]byte)
			if !ok {
				var err error
				data, err = json.Marshal(reply)
				if err != nil {
					h.t.Errorf("encode fake reply: %v", err)
					return
				}
			}
			if err := h.client.Publish(ctx, m.Reply, data); err != nil {
				h.t.Errorf("publish fake reply: %v", err)
			}
		}
	})
	require.NoError(h.t, err)
	require.NoError(h.t, h.client.Flush(ctx))
	return seen
}

// reply answers every request on subject with a single fixed reply.
func (h *fakeHost) reply(subject string, v any) <-chan *nats.Msg {
	return h.handle(subject, func(*nats.Msg) []any { return []any{v} })
}

func received(t *testing.T, seen <-chan *nats.Msg) *nats.Msg {
	t.Helper()
	select {
	case m := <-seen:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("fake host received nothing")
		return nil
	}
}

func decodeBody(t *testing.T, m *nats.Msg) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(m.Data, &body))
	return body
}
