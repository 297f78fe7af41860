// Package envelope implements the success/message/response wrapper carried by every
// control reply.
package envelope

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/c360/latticectl/errors"
)

// DefaultFailureMessage replaces an empty message on a failed envelope.
const DefaultFailureMessage = "request failed"

// Envelope wraps a reply. A nil Response with Success set means the host had
// nothing to report, which is different from a call that never completed.
type Envelope[T any] struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response *T     `json:"response,omitempty"`
}

// Ok returns a successful envelope with no response.
func Ok[T any]() Envelope[T] {
	return Envelope[T]{Success: true}
}

// OkWith returns a successful envelope carrying v.
func OkWith[T any](v T) Envelope[T] {
	return Envelope[T]{Success: true, Response: &v}
}

// OkMessage returns a successful envelope with a message and no response.
func OkMessage[T any](msg string) Envelope[T] {
	return Envelope[T]{Success: true, Message: msg}
}

// Fail returns a failed envelope. A failed envelope always has a message.
func Fail[T any](msg string) Envelope[T] {
	if msg == "" {
		msg = DefaultFailureMessage
	}
	return Envelope[T]{Success: false, Message: msg}
}

// HasData reports whether a response payload is present.
func (e Envelope[T]) HasData() bool {
	return e.Response != nil
}

// Data returns the response payload, or the zero value of T when absent.
func (e Envelope[T]) Data() T {
	var zero T
	if e.Response == nil {
		return zero
	}
	return *e.Response
}

// Err returns a *RejectedError when the host reported failure, nil otherwise.
func (e Envelope[T]) Err() error {
	if e.Success {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = DefaultFailureMessage
	}
	return &RejectedError{Message: msg}
}

// RejectedError is an application-level failure reported inside a reply.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", errors.ErrRejected, e.Message)
}

// Unwrap lets errors.Is match errors.ErrRejected.
func (e *RejectedError) Unwrap() error {
	return errors.ErrRejected
}

// Encode serializes a request payload or an envelope.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapInvalid(err, "envelope", "Encode", "marshal payload")
	}
	return data, nil
}

// Decode parses an envelope. Unknown fields are ignored and zero-length input fails.
func Decode[T any](data []byte) (Envelope[T], error) {
	var env Envelope[T]
	if len(data) == 0 {
		return env, errors.WrapInvalid(errors.Deserialize(stderrors.New("empty payload")),
			"envelope", "Decode", "decode envelope")
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope[T]{}, errors.WrapInvalid(errors.Deserialize(err), "envelope", "Decode", "decode envelope")
	}
	return env, nil
}
