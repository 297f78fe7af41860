package ctl

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/c360/latticectl/envelope"
	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/identifier"
	"github.com/c360/latticectl/types"
)

// PutLink stores a link in the lattice. Source, target and name are validated and
// trimmed before the link is sent.
func (c *Client) PutLink(ctx context.Context, link types.Link) (Ack, error) {
	if err := link.Validate(); err != nil {
		return Ack{}, c.invalid("PutLink", err)
	}
	link.Interfaces = nonNilSlice(link.Interfaces)

	return call[struct{}](ctx, c, "PutLink", c.topics.PutLink(), link, "put link acknowledgement")
}

// DeleteLink removes a link. Deleting a link that does not exist succeeds.
func (c *Client) DeleteLink(ctx context.Context, sourceID, linkName, witNamespace, witPackage string) (Ack, error) {
	src, err := identifier.Component(sourceID)
	if err != nil {
		return Ack{}, c.invalid("DeleteLink", err)
	}
	name, err := identifier.Link(linkName)
	if err != nil {
		return Ack{}, c.invalid("DeleteLink", err)
	}

	return call[struct{}](ctx, c, "DeleteLink", c.topics.DeleteLink(), types.DeleteInterfaceLinkDefinitionRequest{
		SourceID:     src,
		Name:         name,
		WitNamespace: witNamespace,
		WitPackage:   witPackage,
	}, "delete link acknowledgement")
}

// GetLinks lists every link in the lattice.
func (c *Client) GetLinks(ctx context.Context) (envelope.Envelope[[]types.Link], error) {
	return call[[]types.Link](ctx, c, "GetLinks", c.topics.Links(), nil, "a response to get links")
}

// PutConfig stores a named configuration, replacing any existing values. The name
// must be usable as a single subject token.
func (c *Client) PutConfig(ctx context.Context, name string, values map[string]string) (Ack, error) {
	if err := identifier.SubjectToken("Config name", name); err != nil {
		return Ack{}, c.invalid("PutConfig", err)
	}
	return call[struct{}](ctx, c, "PutConfig", c.topics.PutConfig(name), nonNilMap(values),
		"a response to put config request")
}

// DeleteConfig removes a named configuration.
func (c *Client) DeleteConfig(ctx context.Context, name string) (Ack, error) {
	if err := identifier.SubjectToken("Config name", name); err != nil {
		return Ack{}, c.invalid("DeleteConfig", err)
	}
	return call[struct{}](ctx, c, "DeleteConfig", c.topics.DeleteConfig(name), nil,
		"a response to delete config request")
}

// GetConfig fetches a named configuration. A configuration that does not exist is
// a successful envelope without data, not an error.
func (c *Client) GetConfig(ctx context.Context, name string) (envelope.Envelope[map[string]string], error) {
	if err := identifier.SubjectToken("Config name", name); err != nil {
		return envelope.Envelope[map[string]string]{}, c.invalid("GetConfig", err)
	}
	return call[map[string]string](ctx, c, "GetConfig", c.topics.Config(name), nil,
		"a response to get config request")
}

// PutLabel sets a label on a host, replacing an existing value for key.
func (c *Client) PutLabel(ctx context.Context, hostID, key, value string) (Ack, error) {
	host, err := hostToken(hostID)
	if err != nil {
		return Ack{}, c.invalid("PutLabel", err)
	}
	if err := labelKey(key); err != nil {
		return Ack{}, c.invalid("PutLabel", err)
	}

	return call[struct{}](ctx, c, "PutLabel", c.topics.PutLabel(host), types.HostLabel{Key: key, Value: value},
		"put label acknowledgement")
}

// DeleteLabel removes a label from a host.
func (c *Client) DeleteLabel(ctx context.Context, hostID, key string) (Ack, error) {
	host, err := hostToken(hostID)
	if err != nil {
		return Ack{}, c.invalid("DeleteLabel", err)
	}
	if err := labelKey(key); err != nil {
		return Ack{}, c.invalid("DeleteLabel", err)
	}

	return call[struct{}](ctx, c, "DeleteLabel", c.topics.DeleteLabel(host), types.HostLabelIdentifier{Key: key},
		"remove label acknowledgement")
}

func labelKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("Label key cannot be empty: %w", errors.ErrInvalidIdentifier)
	}
	return nil
}

// PutRegistries broadcasts registry credentials to every host. Hosts do not reply;
// the returned envelope only confirms the publish. The payload carries secrets, so
// use TLS and restricted credentials on the control subjects.
func (c *Client) PutRegistries(ctx context.Context, registries types.RegistryCredentialMap) (Ack, error) {
	subject := c.topics.PutRegistries()
	ctx, obs := c.begin(ctx, "PutRegistries", subject)

	if registries == nil {
		registries = types.RegistryCredentialMap{}
	}
	data, err := envelope.Encode(registries)
	if err != nil {
		obs.end(err, false)
		return Ack{}, err
	}

	msg := nats.NewMsg(subject)
	msg.Data = data

	if err := c.bus.PublishMsg(ctx, msg); err != nil {
		err = fmt.Errorf("failed to push registry credential map: %w",
			errors.WrapTransient(errors.Transport(err), "Client", "PutRegistries", "publish"))
		obs.end(err, false)
		return Ack{}, err
	}

	obs.end(nil, true)
	return envelope.OkMessage[struct{}]("successfully added registries"), nil
}
