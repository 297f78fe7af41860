// Package errors provides standardized error handling for the lattice control client.
//
// # Overview
//
// Two layers work together. The three-class classification (Transient, Invalid, Fatal)
// tells callers whether an operation may be retried. The control-plane sentinels tell
// callers what went wrong on the bus:
//
//   - ErrInvalidIdentifier: an empty or unusable identifier, raised before any network activity
//   - ErrTransport: publish, subscribe or connection failure
//   - ErrTimedOut: no reply within the call's timeout
//   - ErrDeserialize: a reply or event payload could not be decoded
//   - ErrRejected: the reply decoded but the host reported success=false
//
// Every error returned by the request and auction engines matches exactly one of the
// first four with errors.Is. ErrRejected is only produced by Envelope.Err, because an
// application-level rejection is a successful round trip.
//
// # Error Wrapping Pattern
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
//	errors.WrapTransient(err, "Client", "ScaleComponent", "request")  // retryable
//	errors.WrapInvalid(err, "Client", "PutLink", "validate link")     // bad input
//	errors.WrapFatal(err, "Config", "Load", "read file")              // stop
//
// Transport and Deserialize attach the matching sentinel to a cause from the bus or the
// JSON decoder while keeping the cause reachable:
//
//	if err := nc.PublishMsg(ctx, msg); err != nil {
//	    return errors.WrapTransient(errors.Transport(err), "Auction", "publish", "broadcast")
//	}
//
// # Retrying
//
// The engines never retry. RetryConfig and ToRetryConfig let callers decide; the
// converted config only repeats transient failures (and RetryableErrors, when set):
//
//	cfg := errors.DefaultRetryConfig().ToRetryConfig()
//	err := retry.Do(ctx, cfg, op)
//
// ConnectRetryConfig is the quick policy used when dialing the bus.
//
// Context errors (context.DeadlineExceeded, context.Canceled) classify as Transient.
package errors
