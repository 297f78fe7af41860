package ctl

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/c360/latticectl/envelope"
	"github.com/c360/latticectl/identifier"
	"github.com/c360/latticectl/types"
)

// inventoryConcurrency caps the inventory requests GetAllInventories has in flight.
const inventoryConcurrency = 8

// GetHosts asks every host on the lattice to identify itself and waits for the full
// auction window. Hosts that do not answer in time are simply absent.
func (c *Client) GetHosts(ctx context.Context) ([]envelope.Envelope[types.Host], error) {
	return gather[types.Host](ctx, c, "GetHosts", c.topics.Hosts(), nil)
}

// GetHostInventory retrieves what is running on one host.
func (c *Client) GetHostInventory(ctx context.Context, hostID string) (envelope.Envelope[types.HostInventory], error) {
	host, err := hostToken(hostID)
	if err != nil {
		return envelope.Envelope[types.HostInventory]{}, c.invalid("GetHostInventory", err)
	}
	return call[types.HostInventory](ctx, c, "GetHostInventory", c.topics.HostInventory(host), nil,
		"host inventory from target host")
}

// GetAllInventories discovers hosts with GetHosts and then fetches every inventory
// concurrently. Inventories are returned in discovery order. Hosts whose inventory
// could not be retrieved are left out and their errors are combined into the returned
// error, so a non-nil error may accompany a partial result.
func (c *Client) GetAllInventories(ctx context.Context) ([]envelope.Envelope[types.HostInventory], error) {
	hosts, err := c.GetHosts(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, h := range hosts {
		if h.Success && h.HasData() && h.Data().ID != "" {
			ids = append(ids, h.Data().ID)
		}
	}

	found := make([]*envelope.Envelope[types.HostInventory], len(ids))
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inventoryConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			inv, err := c.GetHostInventory(gctx, id)
			if err != nil {
				errs[i] = fmt.Errorf("host %s: %w", id, err)
				return nil
			}
			found[i] = &inv
			return nil
		})
	}
	_ = g.Wait()

	out := make([]envelope.Envelope[types.HostInventory], 0, len(ids))
	for _, inv := range found {
		if inv != nil {
			out = append(out, *inv)
		}
	}
	return out, multierr.Combine(errs...)
}

// GetClaims retrieves the lattice-wide claims cache.
func (c *Client) GetClaims(ctx context.Context) (envelope.Envelope[types.Claims], error) {
	return call[types.Claims](ctx, c, "GetClaims", c.topics.Claims(), nil, "claims from lattice")
}

// PerformComponentAuction asks every host whether it can run the component under the
// given constraints. It always waits for the full auction window; an empty result
// means no host offered.
func (c *Client) PerformComponentAuction(ctx context.Context, componentRef, componentID string, constraints map[string]string) ([]envelope.Envelope[types.ComponentAuctionAck], error) {
	ref, err := identifier.ComponentReference(componentRef)
	if err != nil {
		return nil, c.invalid("PerformComponentAuction", err)
	}
	id, err := identifier.Component(componentID)
	if err != nil {
		return nil, c.invalid("PerformComponentAuction", err)
	}

	return gather[types.ComponentAuctionAck](ctx, c, "PerformComponentAuction", c.topics.ComponentAuction(),
		types.ComponentAuctionRequest{
			ComponentRef: ref,
			ComponentID:  id,
			Constraints:  nonNilMap(constraints),
		})
}

// PerformProviderAuction asks every host whether it can run the provider under the
// given constraints.
func (c *Client) PerformProviderAuction(ctx context.Context, providerRef, providerID string, constraints map[string]string) ([]envelope.Envelope[types.ProviderAuctionAck], error) {
	ref, err := identifier.ProviderReference(providerRef)
	if err != nil {
		return nil, c.invalid("PerformProviderAuction", err)
	}
	id, err := identifier.Provider(providerID)
	if err != nil {
		return nil, c.invalid("PerformProviderAuction", err)
	}

	return gather[types.ProviderAuctionAck](ctx, c, "PerformProviderAuction", c.topics.ProviderAuction(),
		types.ProviderAuctionRequest{
			ProviderRef: ref,
			ProviderID:  id,
			Constraints: nonNilMap(constraints),
		})
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
