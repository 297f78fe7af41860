package types

// ScaleComponentCommand sets the instance count of a component on a host.
// MaxInstances of 0 stops the component.
type ScaleComponentCommand struct {
	ComponentRef string            `json:"component_ref"`
	ComponentID  string            `json:"component_id"`
	HostID       string            `json:"host_id"`
	MaxInstances uint32            `json:"max_instances"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	Config       []string          `json:"config"`
	AllowUpdate  bool              `json:"allow_update"`
}

// UpdateComponentCommand replaces a running component with a new image.
type UpdateComponentCommand struct {
	ComponentID     string            `json:"component_id"`
	HostID          string            `json:"host_id"`
	NewComponentRef string            `json:"new_component_ref"`
	Annotations     map[string]string `json:"annotations,omitempty"`
}

// StartProviderCommand starts a provider on a host.
type StartProviderCommand struct {
	HostID      string            `json:"host_id"`
	ProviderRef string            `json:"provider_ref"`
	ProviderID  string            `json:"provider_id"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Config      []string          `json:"config"`
}

// StopProviderCommand stops a provider on a host.
type StopProviderCommand struct {
	HostID     string `json:"host_id"`
	ProviderID string `json:"provider_id"`
}

// StopHostCommand asks a host to shut down. Timeout is a grace period in milliseconds.
type StopHostCommand struct {
	HostID  string  `json:"host_id"`
	Timeout *uint64 `json:"timeout,omitempty"`
}

// ComponentAuctionRequest solicits hosts able to run a component.
type ComponentAuctionRequest struct {
	ComponentRef string            `json:"component_ref"`
	ComponentID  string            `json:"component_id"`
	Constraints  map[string]string `json:"constraints"`
}

// ComponentAuctionAck is one host's offer to run a component.
type ComponentAuctionAck struct {
	ComponentRef string            `json:"component_ref"`
	ComponentID  string            `json:"component_id"`
	HostID       string            `json:"host_id"`
	Constraints  map[string]string `json:"constraints,omitempty"`
}

// ProviderAuctionRequest solicits hosts able to run a provider.
type ProviderAuctionRequest struct {
	ProviderRef string            `json:"provider_ref"`
	ProviderID  string            `json:"provider_id"`
	Constraints map[string]string `json:"constraints"`
}

// ProviderAuctionAck is one host's offer to run a provider.
type ProviderAuctionAck struct {
	ProviderRef string            `json:"provider_ref"`
	ProviderID  string            `json:"provider_id"`
	HostID      string            `json:"host_id"`
	Constraints map[string]string `json:"constraints,omitempty"`
}
