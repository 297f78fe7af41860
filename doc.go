// Package latticectl is a control-plane client for wasmCloud lattices over NATS.
//
// A lattice is a set of hosts sharing one NATS subject namespace. Hosts listen on
// control subjects under wasmbus.ctl.<lattice> and publish CloudEvents under
// wasmbus.evt.<lattice>. This module talks to them in three patterns:
//
//   - request-reply: one host answers (inventory, scale, labels, config, links)
//   - scatter-gather: every host may answer within a window (host discovery, auctions)
//   - event stream: many event subjects merged onto one channel
//
// # Layout
//
//	ctl/          Client: every control operation, the request and auction engines
//	events/       Receiver merging event subscriptions, CloudEvent decoding
//	identifier/   Identifier and subject token validation
//	topic/        Subject construction for a prefix and lattice
//	envelope/     The success/message/response reply wrapper
//	types/        Request and response payloads
//	natsclient/   NATS connection with circuit breaker, health and test helpers
//	config/       Layered JSON/YAML/TOML configuration with reload
//	metric/       Prometheus registry, core metrics and HTTP server
//	telemetry/    Trace context propagation and OTLP endpoint settings
//	relay/        Websocket fan-out of lattice events
//	errors/       Error classes and control-plane sentinels
//	pkg/retry/    Exponential backoff for callers
//	cmd/latticectl/  Command-line client
//
// # Quick Start
//
//	nc, err := natsclient.NewClient("nats://127.0.0.1:4222")
//	if err != nil {
//	    return err
//	}
//	if err := nc.Connect(ctx); err != nil {
//	    return err
//	}
//	defer nc.Close(ctx)
//
//	client, err := ctl.New(nc, ctl.WithLattice("default"))
//	if err != nil {
//	    return err
//	}
//
//	hosts, err := client.GetHosts(ctx)
//	for _, h := range hosts {
//	    fmt.Println(h.Data().ID)
//	}
//
// Nothing in this module retries on its own. Wrap calls that are safe to
// repeat with pkg/retry.
package latticectl
