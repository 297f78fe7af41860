package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	s := New("", "default")
	assert.Equal(t, DefaultPrefix, s.Prefix())
	assert.Equal(t, DefaultEventPrefix, s.EventPrefix())
	assert.Equal(t, "default", s.Lattice())

	custom := New("acme.ctl", "prod", WithEventPrefix("acme"))
	assert.Equal(t, "acme.ctl", custom.Prefix())
	assert.Equal(t, "acme", custom.EventPrefix())

	assert.Equal(t, DefaultEventPrefix, New("", "x", WithEventPrefix("")).EventPrefix())
}

func TestSubjects(t *testing.T) {
	s := New("", "default")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"scale", s.ScaleComponent("NHOST"), "wasmbus.ctl.default.cmd.NHOST.scale"},
		{"update", s.UpdateComponent("NHOST"), "wasmbus.ctl.default.cmd.NHOST.update"},
		{"start provider", s.StartProvider("NHOST"), "wasmbus.ctl.default.cmd.NHOST.start_provider"},
		{"stop provider", s.StopProvider("NHOST"), "wasmbus.ctl.default.cmd.NHOST.stop_provider"},
		{"stop host", s.StopHost("NHOST"), "wasmbus.ctl.default.cmd.NHOST.stop"},
		{"hosts", s.Hosts(), "wasmbus.ctl.default.get.hosts"},
		{"inventory", s.HostInventory("NHOST"), "wasmbus.ctl.default.get.inv.NHOST"},
		{"claims", s.Claims(), "wasmbus.ctl.default.get.claims"},
		{"links", s.Links(), "wasmbus.ctl.default.get.links"},
		{"config", s.Config("db"), "wasmbus.ctl.default.get.config.db"},
		{"component auction", s.ComponentAuction(), "wasmbus.ctl.default.auction.component"},
		{"provider auction", s.ProviderAuction(), "wasmbus.ctl.default.auction.provider"},
		{"put link", s.PutLink(), "wasmbus.ctl.default.linkdef.put"},
		{"delete link", s.DeleteLink(), "wasmbus.ctl.default.linkdef.del"},
		{"put config", s.PutConfig("db"), "wasmbus.ctl.default.config.put.db"},
		{"delete config", s.DeleteConfig("db"), "wasmbus.ctl.default.config.del.db"},
		{"put label", s.PutLabel("NHOST"), "wasmbus.ctl.default.labels.NHOST.put"},
		{"delete label", s.DeleteLabel("NHOST"), "wasmbus.ctl.default.labels.NHOST.del"},
		{"registries", s.PutRegistries(), "wasmbus.ctl.default.registries.put"},
		{"event", s.Event("component_scaled"), "wasmbus.evt.default.component_scaled"},
		{"all events", s.AllEvents(), "wasmbus.evt.default.>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

// allSubjects builds one subject per operation, feeding the same value to every
// argument so only the fixed tokens can tell them apart.
func allSubjects(s Scheme, arg string) map[string]string {
	return map[string]string{
		"scale":             s.ScaleComponent(arg),
		"update":            s.UpdateComponent(arg),
		"start_provider":    s.StartProvider(arg),
		"stop_provider":     s.StopProvider(arg),
		"stop_host":         s.StopHost(arg),
		"hosts":             s.Hosts(),
		"inventory":         s.HostInventory(arg),
		"claims":            s.Claims(),
		"links":             s.Links(),
		"config":            s.Config(arg),
		"component_auction": s.ComponentAuction(),
		"provider_auction":  s.ProviderAuction(),
		"put_link":          s.PutLink(),
		"delete_link":       s.DeleteLink(),
		"put_config":        s.PutConfig(arg),
		"delete_config":     s.DeleteConfig(arg),
		"put_label":         s.PutLabel(arg),
		"delete_label":      s.DeleteLabel(arg),
		"registries":        s.PutRegistries(),
	}
}

func TestSubjects_NoCollisions(t *testing.T) {
	s := New("", "default")

	// Arguments that spell out fixed tokens of other operations.
	for _, arg := range []string{"x", "hosts", "put", "del", "scale", "inv", "config"} {
		seen := make(map[string]string)
		for op, subject := range allSubjects(s, arg) {
			if other, dup := seen[subject]; dup {
				t.Errorf("arg %q: %s and %s share subject %s", arg, op, other, subject)
			}
			seen[subject] = op
		}
	}
}

func TestSubjects_Deterministic(t *testing.T) {
	a := allSubjects(New("p", "lattice"), "NHOST")
	b := allSubjects(New("p", "lattice"), "NHOST")
	assert.Equal(t, a, b)

	// Changing any single input changes every subject that uses it.
	otherLattice := allSubjects(New("p", "other"), "NHOST")
	otherPrefix := allSubjects(New("q", "lattice"), "NHOST")
	for op := range a {
		assert.NotEqual(t, a[op], otherLattice[op], op)
		assert.NotEqual(t, a[op], otherPrefix[op], op)
	}

	otherHost := allSubjects(New("p", "lattice"), "OTHER")
	for _, op := range []string{"scale", "update", "start_provider", "stop_provider", "stop_host",
		"inventory", "config", "put_config", "delete_config", "put_label", "delete_label"} {
		assert.NotEqual(t, a[op], otherHost[op], op)
	}
}

func TestEventType(t *testing.T) {
	s := New("", "default")
	assert.Equal(t, "host_heartbeat", s.EventType(s.Event("host_heartbeat")))
	assert.Equal(t, "", s.EventType("wasmbus.evt.other.host_heartbeat"))
	assert.Equal(t, "", s.EventType("wasmbus.ctl.default.get.hosts"))
}
