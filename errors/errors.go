// Package errors provides standardized error handling patterns for the lattice control client.
// It includes error classification, the control-plane error taxonomy, and helper functions
// for consistent error wrapping and classification across the module.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360/latticectl/pkg/retry"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Control-plane error taxonomy. Every failure surfaced by the request, auction and
// event engines matches exactly one of these with errors.Is.
var (
	// ErrInvalidIdentifier is returned before dispatch for empty or unusable identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrTransport covers publish, subscribe and connection failures on the bus.
	ErrTransport = errors.New("transport failure")
	// ErrTimedOut is returned when no reply arrived within the call's timeout.
	ErrTimedOut = errors.New("timed out waiting for reply")
	// ErrDeserialize is returned for payloads that cannot be decoded.
	ErrDeserialize = errors.New("deserialization failed")
	// ErrRejected marks an envelope whose success flag is false.
	ErrRejected = errors.New("request rejected by host")
)

// Standard error variables for common conditions
var (
	// Connection and networking errors
	ErrNoConnection       = errors.New("no connection available")
	ErrConnectionLost     = errors.New("connection lost")
	ErrConnectionTimeout  = errors.New("connection timeout")
	ErrSubscriptionFailed = errors.New("subscription failed")

	// Data processing errors
	ErrInvalidData   = errors.New("invalid data format")
	ErrParsingFailed = errors.New("parsing failed")

	// Configuration errors
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrConfigNotFound = errors.New("configuration not found")

	// Circuit breaker and retry errors
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrTimedOut) ||
		errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, ErrNoConnection) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	// Check error message for common transient patterns
	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
		"busy",
		"retry",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	if errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	fatalPatterns := []string{
		"fatal",
		"panic",
		"invalid config",
		"missing config",
	}

	for _, pattern := range fatalPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	if errors.Is(err, ErrInvalidIdentifier) ||
		errors.Is(err, ErrDeserialize) ||
		errors.Is(err, ErrInvalidData) ||
		errors.Is(err, ErrParsingFailed) {
		return true
	}

	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient // Default for nil
	}

	// Explicit classification wins over pattern matching
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	if IsInvalid(err) {
		return ErrorInvalid
	}
	if IsTransient(err) {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}

	// Default to transient for unknown errors to allow retry
	return ErrorTransient
}

// newClassified creates a new classified error
// This is an internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// Transport marks cause as a bus-level failure. errors.Is matches both
// ErrTransport and cause.
func Transport(cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrTransport) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrTransport, cause)
}

// Deserialize marks cause as a decode failure.
func Deserialize(cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrDeserialize) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrDeserialize, cause)
}

// RetryConfig defines configuration for caller-side retry of control operations.
// The engines never retry on their own.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []error
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: nil, // Empty list means retry all transient errors
	}
}

// ShouldRetry determines if an error should be retried based on config
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if attempt >= rc.MaxRetries {
		return false
	}
	return rc.Retryable(err)
}

// Retryable reports whether err is transient and, when RetryableErrors is set,
// matches one of them. Attempt limits are not considered.
func (rc RetryConfig) Retryable(err error) bool {
	if err == nil || !IsTransient(err) {
		return false
	}
	if len(rc.RetryableErrors) == 0 {
		return true
	}
	for _, retryableErr := range rc.RetryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
}

// ToRetryConfig converts RetryConfig to the retry package's Config.
//
// The conversion adds 1 to MaxRetries (converting "additional attempts" to "total attempts"),
// enables jitter and uses rc.Retryable as the retry predicate.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
		Retryable:    rc.Retryable,
	}
}

// ConnectRetryConfig returns the policy for dialing the bus: quick retries of
// transient failures only.
func ConnectRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    9,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 1.5,
	}
}
