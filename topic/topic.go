// Package topic builds the subjects every control operation is routed on.
//
// All builders are pure: the same scheme and arguments always produce the same
// subject. Arguments are expected to be validated identifiers; no escaping is done.
package topic

import "strings"

const (
	// DefaultPrefix is the control subject root used when none is configured.
	DefaultPrefix = "wasmbus.ctl"
	// DefaultEventPrefix is the event subject root used when none is configured.
	DefaultEventPrefix = "wasmbus"
)

// Scheme holds the prefix and lattice that every subject is scoped to.
type Scheme struct {
	prefix      string
	eventPrefix string
	lattice     string
}

// Option adjusts a Scheme.
type Option func(*Scheme)

// WithEventPrefix overrides DefaultEventPrefix. An empty value is ignored.
func WithEventPrefix(p string) Option {
	return func(s *Scheme) {
		if p != "" {
			s.eventPrefix = p
		}
	}
}

// New returns the scheme for lattice. An empty prefix selects DefaultPrefix.
func New(prefix, lattice string, opts ...Option) Scheme {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := Scheme{prefix: prefix, eventPrefix: DefaultEventPrefix, lattice: lattice}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Prefix returns the control subject root.
func (s Scheme) Prefix() string { return s.prefix }

// EventPrefix returns the event subject root.
func (s Scheme) EventPrefix() string { return s.eventPrefix }

// Lattice returns the lattice id.
func (s Scheme) Lattice() string { return s.lattice }

func (s Scheme) ctl(tokens ...string) string {
	return s.prefix + "." + s.lattice + "." + strings.Join(tokens, ".")
}

// Host-directed commands.

func (s Scheme) ScaleComponent(hostID string) string { return s.ctl("cmd", hostID, "scale") }
func (s Scheme) UpdateComponent(hostID string) string { return s.ctl("cmd", hostID, "update") }
func (s Scheme) StartProvider(hostID string) string { return s.ctl("cmd", hostID, "start_provider") }
func (s Scheme) StopProvider(hostID string) string { return s.ctl("cmd", hostID, "stop_provider") }
func (s Scheme) StopHost(hostID string) string { return s.ctl("cmd", hostID, "stop") }

// Lattice-wide queries.

func (s Scheme) Hosts() string { return s.ctl("get", "hosts") }
func (s Scheme) HostInventory(hostID string) string { return s.ctl("get", "inv", hostID) }
func (s Scheme) Claims() string { return s.ctl("get", "claims") }
func (s Scheme) Links() string { return s.ctl("get", "links") }
func (s Scheme) Config(name string) string { return s.ctl("get", "config", name) }

// Broadcast auctions. No host id: the responders are unknown.

func (s Scheme) ComponentAuction() string { return s.ctl("auction", "component") }
func (s Scheme) ProviderAuction() string { return s.ctl("auction", "provider") }

// Side-channel writes.

func (s Scheme) PutLink() string { return s.ctl("linkdef", "put") }
func (s Scheme) DeleteLink() string { return s.ctl("linkdef", "del") }
func (s Scheme) PutConfig(name string) string { return s.ctl("config", "put", name) }
func (s Scheme) DeleteConfig(name string) string { return s.ctl("config", "del", name) }
func (s Scheme) PutLabel(hostID string) string { return s.ctl("labels", hostID, "put") }
func (s Scheme) DeleteLabel(hostID string) string { return s.ctl("labels", hostID, "del") }
func (s Scheme) PutRegistries() string { return s.ctl("registries", "put") }

// Event returns the subject hosts publish eventType events on.
func (s Scheme) Event(eventType string) string {
	return s.eventPrefix + ".evt." + s.lattice + "." + eventType
}

// AllEvents returns the wildcard subject matching every event on the lattice.
func (s Scheme) AllEvents() string {
	return s.Event(">")
}

// EventType returns the event type of a subject built by Event, or "" if the
// subject is not an event subject of this scheme.
func (s Scheme) EventType(subject string) string {
	root := s.eventPrefix + ".evt." + s.lattice + "."
	if !strings.HasPrefix(subject, root) {
		return ""
	}
	return strings.TrimPrefix(subject, root)
}
