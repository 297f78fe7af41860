package ctl

import (
	"context"

	"github.com/c360/latticectl/events"
	"github.com/c360/latticectl/identifier"
)

// EventsReceiver subscribes to the given event categories on this lattice and returns
// a receiver delivering them as CloudEvents. An empty or nil list subscribes to the
// "{event prefix}.{lattice}.>" wildcard, so every event type is delivered.
// Cancel ctx or call Close on the receiver to stop it.
func (c *Client) EventsReceiver(ctx context.Context, categories []string) (*events.Receiver, error) {
	var subjects []string
	if len(categories) == 0 {
		subjects = []string{c.topics.AllEvents()}
	}
	for _, category := range categories {
		if err := identifier.SubjectToken("Event type", category); err != nil {
			return nil, c.invalid("EventsReceiver", err)
		}
		subjects = append(subjects, c.topics.Event(category))
	}

	c.logger.Debug("opening event receiver", "subjects", subjects)
	return events.Open(ctx, c.bus, subjects,
		events.WithBuffer(c.eventBuffer),
		events.WithLogger(c.logger),
		events.WithMetrics(c.metrics),
	)
}
