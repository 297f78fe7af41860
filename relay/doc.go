// Package relay serves lattice events to websocket clients.
//
// A Relay is an http.Handler. Each connected client receives every event as a
// structured CloudEvents JSON text frame, optionally narrowed with repeated
// category query parameters:
//
//	ws://localhost:8081/events?category=host_heartbeat&category=component_scaled
//
//	rcv, _ := client.EventsReceiver(ctx, nil)
//	r := relay.New(relay.WithLogger(logger))
//	srv.Handle("/events", r)
//	go r.Run(ctx, rcv.Events())
//
// Clients that cannot keep up are disconnected rather than buffered.
package relay
