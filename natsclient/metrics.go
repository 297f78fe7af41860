package natsclient

import (
	"context"
	"time"

	"github.com/c360/latticectl/metric"
)

// connMetrics feeds connection state into the registry's NATS gauges.
// All methods are safe on a nil receiver.
type connMetrics struct {
	core *metric.Metrics
}

func newConnMetrics(registry *metric.MetricsRegistry) *connMetrics {
	core := registry.CoreMetrics()
	if core == nil {
		return nil
	}
	return &connMetrics{core: core}
}

func (c *connMetrics) recordStatus(status ConnectionStatus) {
	if c == nil {
		return
	}
	c.core.RecordNATSStatus(status == StatusConnected)
	c.core.RecordCircuitBreakerState(status == StatusCircuitOpen)
}

func (c *connMetrics) recordReconnect() {
	if c == nil {
		return
	}
	c.core.RecordNATSReconnect()
}

// startPoller samples RTT every interval until the returned cancel is called.
func (c *connMetrics) startPoller(ctx context.Context, interval time.Duration, rtt func() (time.Duration, error)) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	if c == nil {
		return cancel
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if d, err := rtt(); err == nil {
				c.core.RecordNATSRTT(d)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return cancel
}
