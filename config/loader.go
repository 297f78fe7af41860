package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/c360/latticectl/errors"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "LATTICECTL"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	overrides  []func(*Config)
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  DefaultEnvPrefix,
	}
}

// AddLayer adds a configuration file layer. Later layers win.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// Layers returns the configured file layers in merge order.
func (l *Loader) Layers() []string {
	return append([]string(nil), l.layers...)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// AddOverride registers fn to run after the environment is applied, on every
// Load. Command-line flags use it so they survive a reload.
func (l *Loader) AddOverride(fn func(*Config)) {
	if fn != nil {
		l.overrides = append(l.overrides, fn)
	}
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges the defaults, every file layer, the environment and the overrides,
// in that order.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, path, err), "Loader", "Load", "read layer")
		}
		merged = deepMergeMaps(merged, raw)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Loader", "Load", "decode config")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Loader", "Load", "apply environment")
	}

	for _, fn := range l.overrides {
		fn(cfg)
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw reads one layer into a generic map, whatever its format.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	f, _ := formatOf(path)
	raw := map[string]any{}
	switch f {
	case formatJSON:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case formatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, err
		}
	}
	return normalize(raw).(map[string]any), nil
}

// normalize turns the map[any]any nodes some YAML documents produce into
// map[string]any so the result can be JSON encoded.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			val[k] = normalize(child)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fmt.Sprint(k)] = normalize(child)
		}
		return out
	case []any:
		for i, child := range val {
			val[i] = normalize(child)
		}
		return val
	default:
		return v
	}
}

// deepMergeMaps recursively merges override into base. Nested maps merge key by
// key, anything else in override replaces the base value.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		overrideMap, ok := v.(map[string]any)
		if !ok {
			result[k] = v
			continue
		}
		if baseMap, ok := result[k].(map[string]any); ok {
			result[k] = deepMergeMaps(baseMap, overrideMap)
		} else {
			result[k] = overrideMap
		}
	}
	return result
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// fromMap decodes strictly so misspelled keys surface as errors.
func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies PREFIX_* environment variables on top of the files.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"NATS_URL":      &cfg.NATS.URL,
		"NATS_NAME":     &cfg.NATS.Name,
		"NATS_USER":     &cfg.NATS.Username,
		"NATS_PASSWORD": &cfg.NATS.Password,
		"NATS_TOKEN":    &cfg.NATS.Token,
		"LATTICE":       &cfg.Ctl.Lattice,
		"TOPIC_PREFIX":  &cfg.Ctl.TopicPrefix,
		"EVENT_PREFIX":  &cfg.Ctl.EventPrefix,
		"LOG_LEVEL":     &cfg.Log.Level,
		"LOG_FORMAT":    &cfg.Log.Format,
	}
	for suffix, dst := range strs {
		key := l.envPrefix + "_" + suffix
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		if err := validateEnvVar(key, v); err != nil {
			return err
		}
		*dst = strings.TrimSpace(v)
	}

	durations := map[string]*Duration{
		"TIMEOUT":         &cfg.Ctl.Timeout,
		"AUCTION_TIMEOUT": &cfg.Ctl.AuctionTimeout,
	}
	for suffix, dst := range durations {
		key := l.envPrefix + "_" + suffix
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		if err := validateEnvVar(key, v); err != nil {
			return err
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = Duration(d)
	}
	return nil
}

// WriteFile renders cfg in the format implied by the path's extension.
func WriteFile(path string, cfg *Config) error {
	f, ok := formatOf(path)
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%w: unsupported config file type: %s", errors.ErrInvalidConfig, path), "Config", "WriteFile", "pick format")
	}

	var (
		data []byte
		err  error
	)
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(cfg, "", "  ")
	case formatYAML:
		var m map[string]any
		if m, err = toMap(cfg); err == nil {
			data, err = yaml.Marshal(m)
		}
	case formatTOML:
		var m map[string]any
		if m, err = toMap(cfg); err == nil {
			var buf bytes.Buffer
			err = toml.NewEncoder(&buf).Encode(m)
			data = buf.Bytes()
		}
	}
	if err != nil {
		return errors.WrapFatal(err, "Config", "WriteFile", "encode")
	}
	if err := safeWriteFile(path, data); err != nil {
		return errors.WrapFatal(err, "Config", "WriteFile", "write")
	}
	return nil
}
