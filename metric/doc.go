// Package metric provides the Prometheus registry and HTTP server used by latticectl.
//
// A MetricsRegistry always carries the control-client metrics (Metrics) plus the Go
// runtime and process collectors. Components that need more register them through the
// MetricsRegistrar interface, keyed by component and metric name so a second
// registration of the same key is rejected.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	client, err := ctl.New(nc, ctl.WithMetrics(registry))
//
//	server := metric.NewServer(":9090", "/metrics", registry)
//	server.Handle("/events", relayHandler)
//	go func() {
//	    if err := server.Start(); err != nil {
//	        logger.Error("metrics server failed", "error", err)
//	    }
//	}()
//	defer server.Stop()
//
// # Core Metrics
//
//   - latticectl_ctl_requests_total{operation,outcome}
//   - latticectl_ctl_request_duration_seconds{operation}
//   - latticectl_ctl_auction_acks{operation}
//   - latticectl_ctl_decode_errors_total{engine}
//   - latticectl_events_forwarded_total{category}, latticectl_events_subscriptions
//   - latticectl_nats_connected, _rtt_milliseconds, _reconnects_total, _circuit_breaker
//
// The websocket relay registers latticectl_relay_clients, _delivered_total and
// _dropped_clients_total through the registrar when it is created, and unregisters
// them on Close.
//
// Outcome labels are the Outcome* constants. Record* helpers are safe for concurrent use.
package metric
