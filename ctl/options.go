package ctl

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/c360/latticectl/identifier"
	"github.com/c360/latticectl/metric"
)

// Option configures a Client.
type Option func(*Client) error

// WithLattice sets the lattice id. It becomes a single subject token.
func WithLattice(lattice string) Option {
	return func(c *Client) error {
		if err := identifier.SubjectToken("Lattice", lattice); err != nil {
			return err
		}
		c.lattice = lattice
		return nil
	}
}

// WithTopicPrefix overrides the control subject root. Empty keeps the default.
func WithTopicPrefix(prefix string) Option {
	return func(c *Client) error {
		c.topicPrefix = prefix
		return nil
	}
}

// WithEventPrefix overrides the event subject root. Empty keeps the default.
func WithEventPrefix(prefix string) Option {
	return func(c *Client) error {
		c.eventPrefix = prefix
		return nil
	}
}

// WithTimeout sets the request-reply timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithAuctionTimeout sets the collection window of auctions and host discovery.
func WithAuctionTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("auction timeout must be positive, got %v", d)
		}
		c.auctionTimeout = d
		return nil
	}
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithMetrics records operation metrics into registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) error {
		c.metrics = registry.CoreMetrics()
		return nil
	}
}

// WithClock replaces the clock that drives auction windows and latency measurements.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) error {
		if clk == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.clock = clk
		return nil
	}
}

// WithEventBuffer sets the capacity of event receiver channels.
func WithEventBuffer(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("event buffer must be positive, got %d", n)
		}
		c.eventBuffer = n
		return nil
	}
}
