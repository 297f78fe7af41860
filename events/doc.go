// Package events merges lattice event subscriptions into one bounded channel of CloudEvents.
//
// Open subscribes to every subject before it returns, so no event published after Open
// is missed. One reader per subscription feeds a single forwarder that decodes each
// message as a CloudEvent and performs a blocking send into the output channel:
// a slow consumer throttles delivery instead of losing events. Messages that are not
// CloudEvents are logged and skipped.
//
// Order is preserved per subscription. There is no global order across subjects.
//
// The Receiver stops when every subscription has ended (unsubscribed or the connection
// closed), when the ctx passed to Open is cancelled, or when Close is called. In every
// case the Events channel is closed once the forwarder exits.
//
//	rcv, err := events.Open(ctx, nc, []string{"wasmbus.evt.default.component_scaled"})
//	if err != nil {
//	    return err
//	}
//	defer rcv.Close()
//	for evt := range rcv.Events() {
//	    fmt.Println(events.Category(evt), evt.ID())
//	}
package events
