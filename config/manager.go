package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Update represents a configuration change notification
type Update struct {
	Path   string      // Changed path (e.g., "ctl.timeout")
	Config *SafeConfig // Full latest configuration
}

// Manager owns the live configuration of a long-running command and re-reads
// its file layers on request.
type Manager struct {
	loader      *Loader
	config      *SafeConfig
	subscribers map[string][]chan Update // Pattern -> channels
	mu          sync.RWMutex             // Protects subscribers map
	reloadMu    sync.Mutex
	logger      *slog.Logger
	stopped     atomic.Bool
}

// NewManager loads the initial configuration through loader.
func NewManager(loader *Loader, logger *slog.Logger) (*Manager, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &Manager{
		loader:      loader,
		config:      NewSafeConfig(cfg),
		subscribers: make(map[string][]chan Update),
		logger:      logger.With("component", "config"),
	}, nil
}

// Config returns the current configuration
func (cm *Manager) Config() *SafeConfig {
	return cm.config
}

// OnChange subscribes to configuration changes matching the pattern.
// Pattern examples:
//   - "ctl.timeout" - exact match
//   - "ctl" or "ctl.*" - anything in the ctl section
//   - "*" - everything
//
// The current configuration is delivered immediately. Slow subscribers miss
// intermediate updates but always see the latest config on their next receive.
func (cm *Manager) OnChange(pattern string) <-chan Update {
	ch := make(chan Update, 1)
	if cm.stopped.Load() {
		close(ch)
		return ch
	}

	cm.mu.Lock()
	cm.subscribers[pattern] = append(cm.subscribers[pattern], ch)
	cm.mu.Unlock()

	select {
	case ch <- Update{Path: pattern, Config: cm.config}:
	default:
	}
	return ch
}

// Reload re-reads every layer and the environment, swaps in the result and
// notifies subscribers of each changed path. A config that fails to load or
// validate leaves the current one in place.
func (cm *Manager) Reload() ([]string, error) {
	if cm.stopped.Load() {
		return nil, fmt.Errorf("config manager stopped")
	}
	cm.reloadMu.Lock()
	defer cm.reloadMu.Unlock()

	next, err := cm.loader.Load()
	if err != nil {
		cm.logger.Error("Config reload failed", "error", err)
		return nil, err
	}

	changed, err := diff(cm.config.Get(), next)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		cm.logger.Debug("Config reload found no changes")
		return nil, nil
	}

	if err := cm.config.Update(next); err != nil {
		cm.logger.Error("Reloaded config rejected", "error", err)
		return nil, err
	}
	cm.logger.Info("Config reloaded", "changed", changed)

	for _, path := range changed {
		cm.notify(path)
	}
	return changed, nil
}

// Stop closes every subscriber channel. It is safe to call more than once.
func (cm *Manager) Stop() {
	if !cm.stopped.CompareAndSwap(false, true) {
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channels := range cm.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	cm.subscribers = make(map[string][]chan Update)
}

func (cm *Manager) notify(path string) {
	update := Update{Path: path, Config: cm.config}

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for pattern, channels := range cm.subscribers {
		if !matchesPattern(path, pattern) {
			continue
		}
		for _, ch := range channels {
			if cm.stopped.Load() {
				return
			}
			// Drop the stale pending update so the newest one is delivered.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// matchesPattern checks if a key matches a subscription pattern
func matchesPattern(key, pattern string) bool {
	if pattern == key || pattern == "*" {
		return true
	}

	// Section subscription: "ctl" matches "ctl.timeout"
	if strings.HasPrefix(key, pattern+".") {
		return true
	}

	// Wildcard suffix: "ctl.*" matches "ctl.timeout"
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(key, prefix+".")
	}

	// Prefix wildcard: "nats.t*" matches "nats.timeout" and "nats.tls"
	if strings.Contains(pattern, "*") {
		parts := strings.SplitN(pattern, "*", 2)
		return strings.HasPrefix(key, parts[0])
	}
	return false
}

// diff lists "section.field" paths whose values differ, sorted.
func diff(prev, next *Config) ([]string, error) {
	a, err := toMap(prev)
	if err != nil {
		return nil, err
	}
	b, err := toMap(next)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	collect := func(from, other map[string]any) {
		for section, v := range from {
			fields, ok := v.(map[string]any)
			otherFields, _ := other[section].(map[string]any)
			if !ok {
				if !reflect.DeepEqual(v, other[section]) {
					seen[section] = true
				}
				continue
			}
			for field, fv := range fields {
				if !reflect.DeepEqual(fv, otherFields[field]) {
					seen[section+"."+field] = true
				}
			}
		}
	}
	collect(a, b)
	collect(b, a)

	changed := make([]string, 0, len(seen))
	for path := range seen {
		changed = append(changed, path)
	}
	sort.Strings(changed)
	return changed, nil
}
