package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/latticectl/events"
	"github.com/c360/latticectl/metric"
	"github.com/c360/latticectl/relay"
)

func newEvent(t *testing.T, category string) event.Event {
	t.Helper()
	e := event.New()
	e.SetID(uuid.NewString())
	e.SetSource("NHOSTABC")
	e.SetType(events.TypePrefix + category)
	require.NoError(t, e.SetData(event.ApplicationJSON, map[string]string{"host_id": "NHOSTABC"}))
	return e
}

func serve(t *testing.T, opts ...relay.Option) (*relay.Relay, *httptest.Server) {
	t.Helper()
	r := relay.New(opts...)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		_ = r.Close()
		srv.Close()
	})
	return r, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// metricValue returns the gauge or counter value of a family, and whether it
// is registered.
func metricValue(t *testing.T, registry *metric.MetricsRegistry, name string) (float64, bool) {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		if g := m.GetGauge(); g != nil {
			return g.GetValue(), true
		}
		return m.GetCounter().GetValue(), true
	}
	return 0, false
}

func waitClients(t *testing.T, r *relay.Relay, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var e event.Event
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestRelay_BroadcastsToEveryClient(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	r, srv := serve(t, relay.WithMetrics(registry))

	a := dial(t, srv, "")
	b := dial(t, srv, "")
	waitClients(t, r, 2)
	clients, ok := metricValue(t, registry, "latticectl_relay_clients")
	require.True(t, ok)
	assert.Equal(t, 2.0, clients)

	sent := newEvent(t, "host_started")
	require.NoError(t, r.Broadcast(sent))

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEvent(t, conn)
		assert.Equal(t, sent.ID(), got.ID())
		assert.Equal(t, "host_started", events.Category(got))
	}
	delivered, _ := metricValue(t, registry, "latticectl_relay_delivered_total")
	assert.Equal(t, 2.0, delivered)
}

func TestRelay_CategoryFilter(t *testing.T) {
	r, srv := serve(t)
	filtered := dial(t, srv, "?category=host_stopped&category=component_scaled")
	all := dial(t, srv, "")
	waitClients(t, r, 2)

	require.NoError(t, r.Broadcast(newEvent(t, "linkdef_set")))
	require.NoError(t, r.Broadcast(newEvent(t, "component_scaled")))

	assert.Equal(t, "component_scaled", events.Category(readEvent(t, filtered)))
	assert.Equal(t, "linkdef_set", events.Category(readEvent(t, all)))
	assert.Equal(t, "component_scaled", events.Category(readEvent(t, all)))
}

func TestRelay_RunForwardsUntilChannelCloses(t *testing.T) {
	r, srv := serve(t)
	conn := dial(t, srv, "")
	waitClients(t, r, 1)

	in := make(chan event.Event, 3)
	for _, cat := range []string{"a", "b", "c"} {
		in <- newEvent(t, cat)
	}
	close(in)

	require.NoError(t, r.Run(context.Background(), in))
	for _, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, events.Category(readEvent(t, conn)))
	}
}

func TestRelay_RunStopsOnContext(t *testing.T) {
	r, _ := serve(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, make(chan event.Event)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRelay_DisconnectedClientIsRemoved(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	r, srv := serve(t, relay.WithMetrics(registry))

	conn := dial(t, srv, "")
	stay := dial(t, srv, "")
	waitClients(t, r, 2)

	require.NoError(t, conn.Close())
	waitClients(t, r, 1)
	clients, _ := metricValue(t, registry, "latticectl_relay_clients")
	assert.Equal(t, 1.0, clients)

	require.NoError(t, r.Broadcast(newEvent(t, "host_heartbeat")))
	assert.Equal(t, "host_heartbeat", events.Category(readEvent(t, stay)))
}

func TestRelay_PingsKeepClientAlive(t *testing.T) {
	r, srv := serve(t, relay.WithPingInterval(20*time.Millisecond))
	conn := dial(t, srv, "")
	waitClients(t, r, 1)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	// Pings are only handled while reading, so the event is sent once one arrives.
	ev := newEvent(t, "after_ping")
	go func() {
		select {
		case <-pinged:
			assert.NoError(t, r.Broadcast(ev))
		case <-time.After(2 * time.Second):
		}
	}()

	e := readEvent(t, conn)
	assert.Equal(t, "after_ping", events.Category(e))
	waitClients(t, r, 1)
}

func TestRelay_Close(t *testing.T) {
	r, srv := serve(t)
	conn := dial(t, srv, "")
	waitClients(t, r, 1)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, r.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRelay_PlainHTTPIsRejected(t *testing.T) {
	r, srv := serve(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, r.Clients())
}

func TestRelay_CloseUnregistersMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	first := relay.New(relay.WithMetrics(registry))
	_, ok := metricValue(t, registry, "latticectl_relay_clients")
	require.True(t, ok)

	require.NoError(t, first.Close())
	_, ok = metricValue(t, registry, "latticectl_relay_clients")
	assert.False(t, ok, "metrics should be released on close")

	// The registry can host a new relay once the old one is gone.
	second := relay.New(relay.WithMetrics(registry))
	t.Cleanup(func() { _ = second.Close() })
	_, ok = metricValue(t, registry, "latticectl_relay_clients")
	assert.True(t, ok)
}

func TestRelay_CloseWhileClientsConnect(t *testing.T) {
	r := relay.New()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	closed := make(chan error, 1)
	go func() { closed <- r.Close() }()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	wg.Wait()
	assert.Equal(t, 0, r.Clients())
}
