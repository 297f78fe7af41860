package natsclient

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/latticectl/metric"
)

func TestIntegration_ConnectToRealNATS(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := NewTestClient(t, WithIntegrationDefaults())

	assert.True(t, tc.IsReady())
	assert.Equal(t, StatusConnected, tc.Client.Status())

	rtt, err := tc.Client.RTT()
	assert.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestIntegration_RequestReplyAcrossContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := NewTestClient(t, WithIntegrationDefaults())
	host := tc.Connect(t)
	ctx := context.Background()

	require.NoError(t, host.Subscribe(ctx, "wasmbus.ctl.default.get.hosts", func(_ context.Context, msg *nats.Msg) {
		_ = msg.Respond([]byte(`{"success":true,"message":"","response":{"id":"NHOST"}}`))
	}))
	require.NoError(t, host.Flush(ctx))

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := tc.Client.RequestMsg(reqCtx, nats.NewMsg("wasmbus.ctl.default.get.hosts"))
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), "NHOST")
}

func gaugeValue(t *testing.T, registry *metric.MetricsRegistry, name string) float64 {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			return m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// Restarting an in-process server on the same port exercises the reconnect handlers.
func TestIntegration_ReconnectSameServer(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	opts := natsserver.DefaultTestOptions
	opts.Port = server.RANDOM_PORT
	srv := natsserver.RunServer(&opts)

	_, portStr, err := net.SplitHostPort(srv.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	var disconnected, reconnected atomic.Bool
	registry := metric.NewMetricsRegistry()

	client, err := NewClient(srv.ClientURL(),
		WithReconnectWait(50*time.Millisecond),
		WithHealthInterval(0),
		WithMetrics(registry),
		WithDisconnectCallback(func(error) { disconnected.Store(true) }),
		WithReconnectCallback(func() { reconnected.Store(true) }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	srv.Shutdown()
	srv.WaitForShutdown()

	require.Eventually(t, disconnected.Load, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusReconnecting, client.Status())
	assert.Equal(t, 0.0, gaugeValue(t, registry, "latticectl_nats_connected"))

	opts.Port = port
	srv = natsserver.RunServer(&opts)
	defer srv.Shutdown()

	require.Eventually(t, reconnected.Load, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, StatusConnected, client.Status())
	assert.Equal(t, int32(1), client.GetStatus().Reconnects)
	assert.Equal(t, 1.0, gaugeValue(t, registry, "latticectl_nats_reconnects_total"))
	assert.Equal(t, 1.0, gaugeValue(t, registry, "latticectl_nats_connected"))
}

func TestIntegration_HealthMonitoring(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := natsserver.RunRandClientPortServer()

	client, err := NewClient(srv.ClientURL(), WithMaxReconnects(0))
	require.NoError(t, err)
	client.WithHealthCheck(50 * time.Millisecond)

	healthChanges := make(chan bool, 10)
	client.OnHealthChange(func(healthy bool) {
		healthChanges <- healthy
	})

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	select {
	case healthy := <-healthChanges:
		assert.True(t, healthy)
	case <-time.After(time.Second):
		t.Fatal("initial health not reported")
	}

	srv.Shutdown()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case healthy := <-healthChanges:
			if !healthy {
				return
			}
		case <-deadline:
			t.Fatal("Health change not detected")
		}
	}
}
