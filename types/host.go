// Package types contains the payloads exchanged with hosts over the control interface.
package types

// Host is one entry of the hosts query, as reported by a responsive host.
type Host struct {
	ID            string            `json:"id"`
	FriendlyName  string            `json:"friendly_name"`
	Labels        map[string]string `json:"labels,omitempty"`
	Lattice       string            `json:"lattice,omitempty"`
	Version       string            `json:"version,omitempty"`
	UptimeHuman   string            `json:"uptime_human,omitempty"`
	UptimeSeconds uint64            `json:"uptime_seconds"`
	RPCHost       string            `json:"rpc_host,omitempty"`
	CtlHost       string            `json:"ctl_host,omitempty"`
	JSDomain      string            `json:"js_domain,omitempty"`
	OSName        string            `json:"os_name,omitempty"`
	OSArch        string            `json:"os_arch,omitempty"`
	OSKernel      string            `json:"os_kernel,omitempty"`
}

// HostInventory describes everything running on one host.
type HostInventory struct {
	HostID        string                 `json:"host_id"`
	FriendlyName  string                 `json:"friendly_name"`
	Labels        map[string]string      `json:"labels,omitempty"`
	Version       string                 `json:"version,omitempty"`
	UptimeHuman   string                 `json:"uptime_human,omitempty"`
	UptimeSeconds uint64                 `json:"uptime_seconds"`
	Components    []ComponentDescription `json:"components"`
	Providers     []ProviderDescription  `json:"providers"`
}

// ComponentDescription is a component as listed in a host inventory.
type ComponentDescription struct {
	ID           string            `json:"id"`
	ImageRef     string            `json:"image_ref"`
	Name         string            `json:"name,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	Revision     int32             `json:"revision"`
	MaxInstances uint32            `json:"max_instances"`
}

// ProviderDescription is a provider as listed in a host inventory.
type ProviderDescription struct {
	ID          string            `json:"id"`
	ImageRef    string            `json:"image_ref,omitempty"`
	Name        string            `json:"name,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Revision    int32             `json:"revision"`
}

// HostLabel is the payload of a put label request.
type HostLabel struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HostLabelIdentifier is the payload of a delete label request.
type HostLabelIdentifier struct {
	Key string `json:"key"`
}

// Claims is the lattice-wide claims cache: one string map per signed entity.
type Claims []map[string]string

// RegistryCredential authenticates a host against an artifact registry.
type RegistryCredential struct {
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	Token        string `json:"token,omitempty"`
	RegistryType string `json:"registry_type,omitempty"`
}

// RegistryCredentialMap maps registry hostnames to credentials.
type RegistryCredentialMap map[string]RegistryCredential
