package relay

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/latticectl/metric"
)

// relayMetrics are registered per relay through the component registrar.
type relayMetrics struct {
	clients   prometheus.Gauge
	delivered prometheus.Counter
	dropped   prometheus.Counter
}

func newRelayMetrics(registry metric.MetricsRegistrar) (*relayMetrics, error) {
	m := &relayMetrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "relay",
			Name:      "clients",
			Help:      "Connected websocket relay clients",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "relay",
			Name:      "delivered_total",
			Help:      "Event frames written to relay clients",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "relay",
			Name:      "dropped_clients_total",
			Help:      "Relay clients disconnected after a failed write",
		}),
	}

	if err := registry.RegisterGauge("relay", "clients", m.clients); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("relay", "delivered", m.delivered); err != nil {
		registry.Unregister("relay", "clients")
		return nil, err
	}
	if err := registry.RegisterCounter("relay", "dropped_clients", m.dropped); err != nil {
		registry.Unregister("relay", "clients")
		registry.Unregister("relay", "delivered")
		return nil, err
	}
	return m, nil
}

func (m *relayMetrics) setClients(n int) {
	if m != nil {
		m.clients.Set(float64(n))
	}
}

func (m *relayMetrics) recordDelivered() {
	if m != nil {
		m.delivered.Inc()
	}
}

func (m *relayMetrics) recordDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *relayMetrics) unregister(registry metric.MetricsRegistrar) {
	if m == nil {
		return
	}
	registry.Unregister("relay", "clients")
	registry.Unregister("relay", "delivered")
	registry.Unregister("relay", "dropped_clients")
}
