package ctl

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/identifier"
	"github.com/c360/latticectl/types"
)

// The host acknowledges every command on receipt, before doing the work. Callers
// that need to know the outcome watch the event stream.

// ScaleComponent sets the number of instances of a component on a host. A
// maxInstances of 0 stops the component.
func (c *Client) ScaleComponent(ctx context.Context, hostID, componentRef, componentID string, maxInstances uint32, annotations map[string]string, config []string) (Ack, error) {
	host, err := hostToken(hostID)
	if err != nil {
		return Ack{}, c.invalid("ScaleComponent", err)
	}
	ref, err := identifier.ComponentReference(componentRef)
	if err != nil {
		return Ack{}, c.invalid("ScaleComponent", err)
	}
	id, err := identifier.Component(componentID)
	if err != nil {
		return Ack{}, c.invalid("ScaleComponent", err)
	}

	return call[struct{}](ctx, c, "ScaleComponent", c.topics.ScaleComponent(host), types.ScaleComponentCommand{
		ComponentRef: ref,
		ComponentID:  id,
		HostID:       host,
		MaxInstances: maxInstances,
		Annotations:  annotations,
		Config:       nonNilSlice(config),
	}, "scale component acknowledgement")
}

// UpdateComponent replaces a running component with newComponentRef.
func (c *Client) UpdateComponent(ctx context.Context, hostID, componentID, newComponentRef string, annotations map[string]string) (Ack, error) {
	host, err := hostToken(hostID)
	if err != nil {
		return Ack{}, c.invalid("UpdateComponent", err)
	}
	id, err := identifier.Component(componentID)
	if err != nil {
		return Ack{}, c.invalid("UpdateComponent", err)
	}
	ref, err := identifier.ComponentReference(newComponentRef)
	if err != nil {
		return Ack{}, c.invalid("UpdateComponent", err)
	}

	return call[struct{}](ctx, c, "UpdateComponent", c.topics.UpdateComponent(host), types.UpdateComponentCommand{
		ComponentID:     id,
		HostID:          host,
		NewComponentRef: ref,
		Annotations:     annotations,
	}, "update component acknowledgement")
}

// StartProvider starts a provider on a host with the given named configurations.
func (c *Client) StartProvider(ctx context.Context, hostID, providerRef, providerID string, annotations map[string]string, config []string) (Ack, error) {
	host, err := hostToken(hostID)
	if err != nil {
		return Ack{}, c.invalid("StartProvider", err)
	}
	ref, err := identifier.ProviderReference(providerRef)
	if err != nil {
		return Ack{}, c.invalid("StartProvider", err)
	}
	id, err := identifier.Provider(providerID)
	if err != nil {
		return Ack{}, c.invalid("StartProvider", err)
	}

	return call[struct{}](ctx, c, "StartProvider", c.topics.StartProvider(host), types.StartProviderCommand{
		HostID:      host,
		ProviderRef: ref,
		ProviderID:  id,
		Annotations: annotations,
		Config:      nonNilSlice(config),
	}, "start provider acknowledgement")
}

// StopProvider stops a provider on a host.
func (c *Client) StopProvider(ctx context.Context, hostID, providerID string) (Ack, error) {
	host, err := hostToken(hostID)
	if err != nil {
		return Ack{}, c.invalid("StopProvider", err)
	}
	id, err := identifier.Provider(providerID)
	if err != nil {
		return Ack{}, c.invalid("StopProvider", err)
	}

	return call[struct{}](ctx, c, "StopProvider", c.topics.StopProvider(host), types.StopProviderCommand{
		HostID:     host,
		ProviderID: id,
	}, "stop provider acknowledgement")
}

// StopHost asks a host to shut down. A non-nil grace bounds how long the host may
// take; it is sent in milliseconds.
func (c *Client) StopHost(ctx context.Context, hostID string, grace *time.Duration) (Ack, error) {
	host, err := hostToken(hostID)
	if err != nil {
		return Ack{}, c.invalid("StopHost", err)
	}

	cmd := types.StopHostCommand{HostID: host}
	if grace != nil {
		if *grace < 0 {
			return Ack{}, c.invalid("StopHost",
				fmt.Errorf("grace period cannot be negative: %v: %w", *grace, errors.ErrInvalidData))
		}
		ms := uint64(grace.Milliseconds())
		cmd.Timeout = &ms
	}

	return call[struct{}](ctx, c, "StopHost", c.topics.StopHost(host), cmd, "stop host acknowledgement")
}
