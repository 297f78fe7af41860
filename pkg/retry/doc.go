// Package retry provides exponential backoff for callers of the control client.
//
// The request, auction and event engines never retry: several control commands
// (starting a provider, for example) are not idempotent on the host side. Callers that
// know an operation is safe to repeat wrap it here.
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay
//   - Quick(): 10 attempts, 50ms-1s delay (dialing the bus)
//   - Persistent(): 30 attempts, 200ms-10s delay
//
// # Usage
//
//	err := retry.Do(ctx, retry.Quick(), func(ctx context.Context, _ int) error {
//	    return nc.Connect(ctx)
//	})
//
// Only retry transient failures:
//
//	cfg := retry.DefaultConfig()
//	cfg.Retryable = errors.IsTransient
//	inv, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context, _ int) (envelope.Envelope[types.HostInventory], error) {
//	    return client.GetHostInventory(ctx, hostID)
//	})
//
// Backoff timers come from Config.Clock, so tests can drive them with clock.NewMock().
// All retry operations stop as soon as ctx is cancelled.
package retry
