package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by this module.
const Namespace = "latticectl"

// Outcome labels for RequestsTotal.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeTimeout     = "timeout"
	OutcomeTransport   = "transport"
	OutcomeDeserialize = "deserialize"
	OutcomeInvalid     = "invalid"
)

// Metrics contains the control-client metrics registered with every registry.
type Metrics struct {
	// Control operations
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuctionAcks     *prometheus.HistogramVec
	DecodeErrors    *prometheus.CounterVec

	// Event stream
	EventsForwarded    *prometheus.CounterVec
	EventSubscriptions prometheus.Gauge

	// NATS connection
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ctl",
				Name:      "requests_total",
				Help:      "Control operations by outcome",
			},
			[]string{"operation", "outcome"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "ctl",
				Name:      "request_duration_seconds",
				Help:      "Time from dispatch to reply or window close",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5, 10},
			},
			[]string{"operation"},
		),

		AuctionAcks: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "ctl",
				Name:      "auction_acks",
				Help:      "Replies collected per auction",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"operation"},
		),

		DecodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ctl",
				Name:      "decode_errors_total",
				Help:      "Payloads that could not be decoded",
			},
			[]string{"engine"},
		),

		EventsForwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "events",
				Name:      "forwarded_total",
				Help:      "Events delivered to the consumer channel",
			},
			[]string{"category"},
		),

		EventSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "events",
				Name:      "subscriptions",
				Help:      "Open event subscriptions",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open)",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.RequestsTotal,
		c.RequestDuration,
		c.AuctionAcks,
		c.DecodeErrors,
		c.EventsForwarded,
		c.EventSubscriptions,
		c.NATSConnected,
		c.NATSRTT,
		c.NATSReconnects,
		c.NATSCircuitBreaker,
	}
}

// RecordRequest counts one finished operation and its latency.
func (c *Metrics) RecordRequest(operation, outcome string, duration time.Duration) {
	c.RequestsTotal.WithLabelValues(operation, outcome).Inc()
	c.RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAuction records how many acks an auction collected.
func (c *Metrics) RecordAuction(operation string, acks int) {
	c.AuctionAcks.WithLabelValues(operation).Observe(float64(acks))
}

// RecordDecodeError counts a payload the engine could not decode.
func (c *Metrics) RecordDecodeError(engine string) {
	c.DecodeErrors.WithLabelValues(engine).Inc()
}

// RecordEventForwarded counts an event handed to the consumer.
func (c *Metrics) RecordEventForwarded(category string) {
	c.EventsForwarded.WithLabelValues(category).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(open bool) {
	value := 0.0
	if open {
		value = 1.0
	}
	c.NATSCircuitBreaker.Set(value)
}
