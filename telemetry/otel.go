package telemetry

import (
	"fmt"
	"net/url"
	"strings"
)

// Protocol selects the OTLP transport.
type Protocol int

const (
	ProtocolHTTP Protocol = iota
	ProtocolGRPC
)

func (p Protocol) String() string {
	if p == ProtocolGRPC {
		return "grpc"
	}
	return "http"
}

// ParseProtocol accepts "http" or "grpc".
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "http":
		return ProtocolHTTP, nil
	case "grpc":
		return ProtocolGRPC, nil
	default:
		return ProtocolHTTP, fmt.Errorf("unsupported protocol: %q, did you mean 'http' or 'grpc'?", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Capitalized names are accepted
// for compatibility with older config files.
func (p *Protocol) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Http", "HTTP":
		*p = ProtocolHTTP
		return nil
	case "Grpc", "GRPC":
		*p = ProtocolGRPC
		return nil
	}
	parsed, err := ParseProtocol(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Signal is an OpenTelemetry signal kind.
type Signal string

const (
	SignalTraces  Signal = "traces"
	SignalMetrics Signal = "metrics"
	SignalLogs    Signal = "logs"
)

func (s Signal) path() string { return "/v1/" + string(s) }

const (
	defaultGRPCEndpoint = "http://127.0.0.1:4317"
	defaultHTTPEndpoint = "http://127.0.0.1:4318"
)

// OtelConfig holds exporter settings. Exporter setup itself is left to the caller;
// this type only derives endpoints and enabled flags.
type OtelConfig struct {
	EnableObservability   bool     `json:"enable_observability"`
	EnableTraces          *bool    `json:"enable_traces,omitempty"`
	EnableMetrics         *bool    `json:"enable_metrics,omitempty"`
	EnableLogs            *bool    `json:"enable_logs,omitempty"`
	ObservabilityEndpoint string   `json:"observability_endpoint,omitempty"`
	TracesEndpoint        string   `json:"traces_endpoint,omitempty"`
	MetricsEndpoint       string   `json:"metrics_endpoint,omitempty"`
	LogsEndpoint          string   `json:"logs_endpoint,omitempty"`
	Protocol              Protocol `json:"protocol"`
}

// Enabled reports whether signal is exported. Unset per-signal flags fall back to
// EnableObservability.
func (c OtelConfig) Enabled(signal Signal) bool {
	var flag *bool
	switch signal {
	case SignalTraces:
		flag = c.EnableTraces
	case SignalMetrics:
		flag = c.EnableMetrics
	case SignalLogs:
		flag = c.EnableLogs
	}
	if flag != nil {
		return *flag
	}
	return c.EnableObservability
}

// Endpoint resolves the exporter endpoint for signal. A signal-specific endpoint is
// used verbatim; otherwise ObservabilityEndpoint is adapted to the protocol; otherwise
// the local collector default is returned.
func (c OtelConfig) Endpoint(signal Signal) string {
	var override string
	switch signal {
	case SignalTraces:
		override = c.TracesEndpoint
	case SignalMetrics:
		override = c.MetricsEndpoint
	case SignalLogs:
		override = c.LogsEndpoint
	}
	if override != "" {
		return override
	}

	if c.ObservabilityEndpoint != "" {
		if c.Protocol == ProtocolGRPC {
			return grpcEndpoint(c.ObservabilityEndpoint)
		}
		return httpEndpoint(signal, c.ObservabilityEndpoint)
	}

	if c.Protocol == ProtocolGRPC {
		return defaultGRPCEndpoint
	}
	return defaultHTTPEndpoint + signal.path()
}

func parseAbsolute(endpoint string) (*url.URL, bool) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

// gRPC exporters take a bare base URL.
func grpcEndpoint(endpoint string) string {
	u, ok := parseAbsolute(endpoint)
	if !ok {
		return endpoint
	}
	u.Path, u.RawPath = "", ""
	return strings.TrimRight(u.String(), "/")
}

// HTTP exporters take the full signal URL; a bare host gets the signal path appended.
func httpEndpoint(signal Signal, endpoint string) string {
	u, ok := parseAbsolute(endpoint)
	if !ok {
		return endpoint
	}
	if u.Path != "" && u.Path != "/" {
		return endpoint
	}
	u.Path, u.RawPath = "", ""
	return strings.TrimRight(u.String(), "/") + signal.path()
}
