// Package natsclient wraps a nats.go connection with a circuit breaker, status
// tracking and the handful of primitives the lattice control client needs.
//
// # Core Features
//
// Circuit Breaker: after a threshold of consecutive connection failures (default 5)
// the circuit opens and every wire call fails fast with ErrCircuitOpen. The breaker
// half-opens after an exponential backoff capped by WithMaxBackoff. Request timeouts
// and "no responders" replies are answers from the bus, so they never count as failures.
//
// Connection Lifecycle: Disconnected → Connecting → Connected → Reconnecting → Connected,
// with callbacks for disconnect, reconnect, health change and loss of the connection.
//
// Trace Propagation: RequestMsg and PublishMsg inject W3C trace context from ctx into
// the message headers. Subscribe handlers receive a context carrying the remote span.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("latticectl"),
//	    natsclient.WithSlog(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
// # Wire Primitives
//
//	resp, err := client.RequestMsg(ctx, nats.NewMsg(subject))   // single reply
//
//	inbox := client.NewInbox()
//	sub, err := client.SubscribeSync(ctx, inbox)                // caller unsubscribes
//	err = client.PublishMsg(ctx, &nats.Msg{Subject: s, Reply: inbox, Data: body})
//	err = client.Flush(ctx)
//
// # Metrics
//
// WithMetrics(registry) reports connection state, circuit state, reconnects and a
// periodic RTT sample into the registry's latticectl_nats_* metrics.
//
// # Testing
//
// NewEmbeddedTestClient runs nats-server in-process for fast unit tests.
// NewTestClient and NewSharedTestClient start a real server with testcontainers.
// TestClient.Connect opens an extra client so a test can play the host side.
package natsclient
