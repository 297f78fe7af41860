package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/latticectl/errors"
)

func writeLayer(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoader_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "layer.json", `{"ctl": {"lattice": "staging", "timeout": "750ms"}, "log": {"level": "debug"}}`},
		{"yaml", "layer.yaml", "ctl:\n  lattice: staging\n  timeout: 750ms\nlog:\n  level: debug\n"},
		{"yml", "layer.yml", "ctl: {lattice: staging, timeout: 750ms}\nlog: {level: debug}\n"},
		{"toml", "layer.toml", "[ctl]\nlattice = \"staging\"\ntimeout = \"750ms\"\n\n[log]\nlevel = \"debug\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewLoader().LoadFile(writeLayer(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, "staging", cfg.Ctl.Lattice)
			assert.Equal(t, 750*time.Millisecond, cfg.Ctl.Timeout.Std())
			assert.Equal(t, "debug", cfg.Log.Level)
			// untouched keys keep their defaults
			assert.Equal(t, 5*time.Second, cfg.Ctl.AuctionTimeout.Std())
			assert.Equal(t, "text", cfg.Log.Format)
			assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
		})
	}
}

func TestLoader_LayersMergeInOrder(t *testing.T) {
	base := writeLayer(t, "base.yaml", `
nats:
  url: nats://base:4222
  name: base
ctl:
  lattice: base
  event_buffer: 10
`)
	override := writeLayer(t, "override.toml", `
[ctl]
lattice = "override"

[metrics]
enabled = true
`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)
	loader.EnableValidation(true)
	assert.Equal(t, []string{base, override}, loader.Layers())

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "override", cfg.Ctl.Lattice)
	assert.Equal(t, 10, cfg.Ctl.EventBuffer)
	assert.Equal(t, "nats://base:4222", cfg.NATS.URL)
	assert.Equal(t, "base", cfg.NATS.Name)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}

func TestLoader_Durations(t *testing.T) {
	cfg, err := NewLoader().LoadFile(writeLayer(t, "d.json",
		`{"ctl": {"auction_timeout": "1d", "timeout": 1500000000}}`))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Ctl.AuctionTimeout.Std())
	assert.Equal(t, 1500*time.Millisecond, cfg.Ctl.Timeout.Std())

	_, err = NewLoader().LoadFile(writeLayer(t, "bad.json", `{"ctl": {"timeout": "soon"}}`))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestLoader_EnvOverrides(t *testing.T) {
	path := writeLayer(t, "file.yaml", "ctl:\n  lattice: from-file\n")
	t.Setenv("LATTICECTL_LATTICE", "from-env")
	t.Setenv("LATTICECTL_NATS_URL", "nats://env:4222")
	t.Setenv("LATTICECTL_AUCTION_TIMEOUT", "250ms")
	t.Setenv("LATTICECTL_LOG_FORMAT", "json")

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Ctl.Lattice)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Ctl.AuctionTimeout.Std())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoader_EnvPrefix(t *testing.T) {
	t.Setenv("WASH_LATTICE", "custom")
	t.Setenv("LATTICECTL_LATTICE", "ignored")

	loader := NewLoader()
	loader.SetEnvPrefix("WASH")
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Ctl.Lattice)
}

func TestLoader_BadEnvDuration(t *testing.T) {
	t.Setenv("LATTICECTL_TIMEOUT", "fast")
	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LATTICECTL_TIMEOUT")
}

func TestLoader_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown key", "typo.json", `{"ctl": {"latice": "x"}}`},
		{"malformed json", "broken.json", `{"ctl": `},
		{"malformed yaml", "broken.yaml", "ctl: [unterminated\n"},
		{"malformed toml", "broken.toml", "[ctl\n"},
		{"wrong type", "type.json", `{"ctl": {"event_buffer": "lots"}}`},
		{"unsupported extension", "config.ini", "lattice=x"},
		{"too deep", "deep.json", strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadFile(writeLayer(t, tt.file, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoader_Validation(t *testing.T) {
	path := writeLayer(t, "invalid.json", `{"ctl": {"lattice": "has.dot"}}`)

	_, err := NewLoader().LoadFile(path)
	assert.NoError(t, err, "validation is off by default")

	loader := NewLoader()
	loader.EnableValidation(true)
	_, err = loader.LoadFile(path)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestWriteFile_IsLoadable(t *testing.T) {
	cfg := Default()
	cfg.Ctl.Lattice = "written"
	cfg.Ctl.AuctionTimeout = Duration(1200 * time.Millisecond)
	cfg.Relay.Enabled = true

	for _, name := range []string{"out.json", "out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path, cfg))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			loaded, err := NewLoader().LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}

	err := WriteFile(filepath.Join(t.TempDir(), "out.ini"), cfg)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestDeepMergeMaps(t *testing.T) {
	base := map[string]any{
		"a": map[string]any{"x": 1, "y": 2},
		"b": "keep",
	}
	override := map[string]any{
		"a": map[string]any{"y": 3},
		"c": nil,
	}

	merged := deepMergeMaps(base, override)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 1, "y": 3},
		"b": "keep",
	}, merged)
	assert.Equal(t, 2, base["a"].(map[string]any)["y"], "base is not modified")
}

func TestLoader_OverridesWinOverEnvironment(t *testing.T) {
	t.Setenv("LATTICECTL_LATTICE", "from-env")

	loader := NewLoader()
	loader.AddOverride(nil)
	loader.AddOverride(func(c *Config) { c.Ctl.Lattice = "from-flag" })

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Ctl.Lattice)
}
