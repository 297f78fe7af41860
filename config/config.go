package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/c360/latticectl/ctl"
	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/identifier"
	"github.com/c360/latticectl/metric"
	"github.com/c360/latticectl/natsclient"
	"github.com/c360/latticectl/telemetry"
)

// Config is the complete configuration of a control client process.
type Config struct {
	NATS      NATSConfig           `json:"nats"`
	Ctl       CtlConfig            `json:"ctl"`
	Log       LogConfig            `json:"log"`
	Metrics   MetricsConfig        `json:"metrics"`
	Relay     RelayConfig          `json:"relay"`
	Telemetry telemetry.OtelConfig `json:"telemetry"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URL           string        `json:"url"`
	Name          string        `json:"name,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	TLS           NATSTLSConfig `json:"tls"`
	MaxReconnects int           `json:"max_reconnects"`
	ReconnectWait Duration      `json:"reconnect_wait"`
	Timeout       Duration      `json:"timeout"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// CtlConfig scopes and times control operations.
type CtlConfig struct {
	Lattice        string   `json:"lattice"`
	TopicPrefix    string   `json:"topic_prefix,omitempty"`
	EventPrefix    string   `json:"event_prefix,omitempty"`
	Timeout        Duration `json:"timeout"`
	AuctionTimeout Duration `json:"auction_timeout"`
	EventBuffer    int      `json:"event_buffer"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	Path    string `json:"path"`
}

// RelayConfig controls the websocket event relay of the watch command.
type RelayConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	Path    string `json:"path"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
			Timeout:       Duration(5 * time.Second),
		},
		Ctl: CtlConfig{
			Lattice:        ctl.DefaultLattice,
			Timeout:        Duration(ctl.DefaultTimeout),
			AuctionTimeout: Duration(ctl.DefaultAuctionTimeout),
			EventBuffer:    5000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
			Path:    "/metrics",
		},
		Relay: RelayConfig{
			Address: ":8081",
			Path:    "/events",
		},
	}
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Config", "Validate", "check config")
	}
	return nil
}

func (c *Config) validate() error {
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	for _, raw := range strings.Split(c.NATS.URL, ",") {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("nats.url %q: %w", raw, err)
		}
		switch u.Scheme {
		case "nats", "tls", "ws", "wss":
		default:
			return fmt.Errorf("nats.url %q: unsupported scheme %q", raw, u.Scheme)
		}
	}
	if c.NATS.Timeout <= 0 {
		return fmt.Errorf("nats.timeout must be positive")
	}
	if c.NATS.Token != "" && c.NATS.Username != "" {
		return fmt.Errorf("nats.token and nats.username are mutually exclusive")
	}
	if err := c.validateTLS(); err != nil {
		return fmt.Errorf("nats.tls: %w", err)
	}

	if err := identifier.SubjectToken("ctl.lattice", c.Ctl.Lattice); err != nil {
		return err
	}
	if c.Ctl.Timeout <= 0 {
		return fmt.Errorf("ctl.timeout must be positive")
	}
	if c.Ctl.AuctionTimeout <= 0 {
		return fmt.Errorf("ctl.auction_timeout must be positive")
	}
	if c.Ctl.EventBuffer <= 0 {
		return fmt.Errorf("ctl.event_buffer must be positive")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	if c.Relay.Enabled && c.Relay.Address == "" {
		return fmt.Errorf("relay.address is required when the relay is enabled")
	}
	if c.Relay.Enabled && !strings.HasPrefix(c.Relay.Path, "/") {
		return fmt.Errorf("relay.path must start with /")
	}
	if c.Relay.Enabled && c.Metrics.Enabled && c.Relay.Address == c.Metrics.Address {
		return fmt.Errorf("relay.address and metrics.address must differ")
	}
	return nil
}

func (c *Config) validateTLS() error {
	tls := c.NATS.TLS
	if !tls.Enabled {
		return nil
	}
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("cert_file and key_file must be set together")
	}
	for name, path := range map[string]string{"cert_file": tls.CertFile, "key_file": tls.KeyFile, "ca_file": tls.CAFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q must be debug, info, warn or error", level)
	}
}

// NATSOptions translates the NATS section into client options.
func (c *Config) NATSOptions(logger *slog.Logger, registry *metric.MetricsRegistry) []natsclient.ClientOption {
	n := c.NATS
	opts := []natsclient.ClientOption{
		natsclient.WithMaxReconnects(n.MaxReconnects),
		natsclient.WithReconnectWait(n.ReconnectWait.Std()),
		natsclient.WithTimeout(n.Timeout.Std()),
		natsclient.WithSlog(logger),
	}
	if n.Name != "" {
		opts = append(opts, natsclient.WithName(n.Name))
	}
	if n.Username != "" {
		opts = append(opts, natsclient.WithCredentials(n.Username, n.Password))
	}
	if n.Token != "" {
		opts = append(opts, natsclient.WithToken(n.Token))
	}
	if n.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(n.TLS.CertFile, n.TLS.KeyFile, n.TLS.CAFile))
	}
	if registry != nil {
		opts = append(opts, natsclient.WithMetrics(registry))
	}
	return opts
}

// CtlOptions translates the ctl section into control client options.
func (c *Config) CtlOptions(logger *slog.Logger, registry *metric.MetricsRegistry) []ctl.Option {
	opts := []ctl.Option{
		ctl.WithLattice(c.Ctl.Lattice),
		ctl.WithTopicPrefix(c.Ctl.TopicPrefix),
		ctl.WithEventPrefix(c.Ctl.EventPrefix),
		ctl.WithTimeout(c.Ctl.Timeout.Std()),
		ctl.WithAuctionTimeout(c.Ctl.AuctionTimeout.Std()),
		ctl.WithEventBuffer(c.Ctl.EventBuffer),
		ctl.WithLogger(logger),
	}
	if registry != nil {
		opts = append(opts, ctl.WithMetrics(registry))
	}
	return opts
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	redacted := c.Clone()
	for _, s := range []*string{&redacted.NATS.Password, &redacted.NATS.Token} {
		if *s != "" {
			*s = "********"
		}
	}
	data, _ := json.MarshalIndent(redacted, "", "  ")
	return string(data)
}
