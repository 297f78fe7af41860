// Package ctl is the client side of the lattice control interface.
//
// A Client turns control operations into subjects and payloads, sends them over a
// Bus and decodes the replies. Three interaction patterns are used:
//
//   - request-reply (Request): one reply within the client timeout, used by every
//     command and most queries
//   - scatter/gather (Auction): a broadcast whose replies are collected for the
//     auction window, used by GetHosts and the component and provider auctions
//   - event streaming (EventsReceiver): CloudEvents fanned in from one subscription
//     per category
//
// # Usage
//
//	nc, err := natsclient.NewClient("nats://127.0.0.1:4222")
//	...
//	client, err := ctl.New(nc, ctl.WithLattice("default"), ctl.WithTimeout(2*time.Second))
//	if err != nil {
//	    return err
//	}
//
//	hosts, err := client.GetHosts(ctx)
//	for _, h := range hosts {
//	    fmt.Println(h.Data().ID)
//	}
//
//	ack, err := client.ScaleComponent(ctx, hostID, "ghcr.io/wasmcloud/components/http-hello-world-rust:0.1.0",
//	    "hello", 1, nil, nil)
//	if err == nil {
//	    err = ack.Err() // host-side rejection
//	}
//
// # Errors
//
// Identifiers are validated before anything is sent; failures match
// errors.ErrInvalidIdentifier. Bus failures match errors.ErrTransport, a missing reply
// matches errors.ErrTimedOut and an undecodable reply matches errors.ErrDeserialize.
// A reply with success=false is not an error: check Envelope.Success or Envelope.Err.
//
// Nothing in this package retries. Commands such as StartProvider are not idempotent
// on the host; wrap safe operations with pkg/retry where needed.
package ctl
