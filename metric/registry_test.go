package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterKinds(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "A test counter"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "A test gauge"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "A test histogram"})
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter_vec", Help: "v"}, []string{"host"})
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "v"}, []string{"host"})
	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_histogram_vec", Help: "v"}, []string{"host"})

	require.NoError(t, registry.RegisterCounter("test", "test_counter", counter))
	require.NoError(t, registry.RegisterGauge("test", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("test", "test_histogram", histogram))
	require.NoError(t, registry.RegisterCounterVec("test", "test_counter_vec", counterVec))
	require.NoError(t, registry.RegisterGaugeVec("test", "test_gauge_vec", gaugeVec))
	require.NoError(t, registry.RegisterHistogramVec("test", "test_histogram_vec", histogramVec))

	counter.Inc()
	gauge.Set(42)
	histogram.Observe(0.5)
	counterVec.WithLabelValues("NBXYZ").Inc()
	gaugeVec.WithLabelValues("NBXYZ").Set(1)
	histogramVec.WithLabelValues("NBXYZ").Observe(1)

	names := gatheredNames(t, registry)
	for _, name := range []string{
		"test_counter", "test_gauge", "test_histogram",
		"test_counter_vec", "test_gauge_vec", "test_histogram_vec",
	} {
		assert.True(t, names[name], "%s should be registered", name)
	}
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "duplicate_counter", Help: "First counter"})
	counter2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "duplicate_counter", Help: "First counter"})

	require.NoError(t, registry.RegisterCounter("ctl", "duplicate_counter", counter1))

	// Same key is caught by our own tracking
	err := registry.RegisterCounter("ctl", "duplicate_counter", counter2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metric registration")

	// Different key but same prometheus name is caught by prometheus
	err = registry.RegisterCounter("relay", "duplicate_counter", counter2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	require.NoError(t, registry.RegisterCounter("test", "unregister_counter", counter))
	counter.Inc()
	assert.True(t, gatheredNames(t, registry)["unregister_counter"])

	assert.True(t, registry.Unregister("test", "unregister_counter"))
	assert.False(t, gatheredNames(t, registry)["unregister_counter"])

	assert.False(t, registry.Unregister("test", "unregister_counter"), "second unregister is a no-op")
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	counterCount := 0
	for name := range gatheredNames(t, registry) {
		if strings.HasPrefix(name, "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount)
}

func TestMetricsRegistry_CoreMetricsInitialization(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	// Vector metrics only appear in Gather() once a label set has a value
	core.RecordRequest("scale_component", OutcomeOK, 20*time.Millisecond)
	core.RecordAuction("component_auction", 3)
	core.RecordDecodeError("auction")
	core.RecordEventForwarded("component_scaled")

	names := gatheredNames(t, registry)

	for _, expected := range []string{
		"latticectl_ctl_requests_total",
		"latticectl_ctl_request_duration_seconds",
		"latticectl_ctl_auction_acks",
		"latticectl_ctl_decode_errors_total",
		"latticectl_events_forwarded_total",
		"latticectl_events_subscriptions",
		"latticectl_nats_connected",
		"latticectl_nats_rtt_milliseconds",
		"latticectl_nats_reconnects_total",
		"latticectl_nats_circuit_breaker",
	} {
		assert.True(t, names[expected], "core metric %s should be initialized", expected)
	}

	assert.True(t, names["go_goroutines"], "runtime collectors should be registered")
}

func TestMetricsRegistry_CoreMetricsNilSafe(t *testing.T) {
	var registry *MetricsRegistry
	assert.Nil(t, registry.CoreMetrics())
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordRequest("get_hosts", OutcomeOK, time.Millisecond)
	core.RecordRequest("get_hosts", OutcomeOK, time.Millisecond)
	core.RecordRequest("get_hosts", OutcomeTimeout, time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(core.RequestsTotal.WithLabelValues("get_hosts", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.RequestsTotal.WithLabelValues("get_hosts", OutcomeTimeout)))

	core.RecordDecodeError("request")
	assert.Equal(t, 1.0, testutil.ToFloat64(core.DecodeErrors.WithLabelValues("request")))

	core.RecordEventForwarded("host_heartbeat")
	core.RecordEventForwarded("host_heartbeat")
	assert.Equal(t, 2.0, testutil.ToFloat64(core.EventsForwarded.WithLabelValues("host_heartbeat")))

	core.RecordNATSStatus(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSConnected))
	core.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(core.NATSConnected))

	core.RecordNATSRTT(50 * time.Millisecond)
	assert.Equal(t, 50.0, testutil.ToFloat64(core.NATSRTT))

	core.RecordNATSReconnect()
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSReconnects))

	core.RecordCircuitBreakerState(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSCircuitBreaker))
}
