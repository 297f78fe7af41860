// Package identifier validates the identifiers accepted by control operations.
//
// Validation only trims surrounding whitespace and rejects empty results. Case and
// internal characters are kept verbatim; SubjectToken is the separate check applied
// to values that end up as a single subject token.
package identifier

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/c360/latticectl/errors"
)

// Kind names the identifier being validated.
type Kind int

const (
	HostID Kind = iota
	ComponentID
	ComponentRef
	ProviderID
	ProviderRef
	LinkName
)

// String returns the label used in validation messages.
func (k Kind) String() string {
	switch k {
	case HostID:
		return "Host ID"
	case ComponentID:
		return "Component ID"
	case ComponentRef:
		return "Component OCI reference"
	case ProviderID:
		return "Provider ID"
	case ProviderRef:
		return "Provider OCI reference"
	case LinkName:
		return "Link Name"
	default:
		return "Identifier"
	}
}

// EmptyError reports an identifier that was empty after trimming.
type EmptyError struct {
	Kind Kind
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("%s cannot be empty", e.Kind)
}

// Unwrap lets errors.Is match errors.ErrInvalidIdentifier.
func (e *EmptyError) Unwrap() error {
	return errors.ErrInvalidIdentifier
}

// Validate trims raw and fails with *EmptyError if nothing is left.
func Validate(kind Kind, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &EmptyError{Kind: kind}
	}
	return s, nil
}

// Host validates a host id.
func Host(raw string) (string, error) { return Validate(HostID, raw) }

// Component validates a component id.
func Component(raw string) (string, error) { return Validate(ComponentID, raw) }

// ComponentReference validates a component image reference.
func ComponentReference(raw string) (string, error) { return Validate(ComponentRef, raw) }

// Provider validates a provider id.
func Provider(raw string) (string, error) { return Validate(ProviderID, raw) }

// ProviderReference validates a provider image reference.
func ProviderReference(raw string) (string, error) { return Validate(ProviderRef, raw) }

// Link validates a link name.
func Link(raw string) (string, error) { return Validate(LinkName, raw) }

// TokenError reports a value that cannot be used as a single subject token.
type TokenError struct {
	Name  string
	Value string
	Char  rune
}

func (e *TokenError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s cannot be empty", e.Name)
	}
	return fmt.Sprintf("%s %q cannot be used in a subject: contains %q", e.Name, e.Value, e.Char)
}

func (e *TokenError) Unwrap() error {
	return errors.ErrInvalidIdentifier
}

// SubjectToken checks that value can be spliced into a subject as exactly one token.
// The bus delimiter, both wildcards and whitespace are rejected.
func SubjectToken(name, value string) error {
	if value == "" {
		return &TokenError{Name: name}
	}
	for _, r := range value {
		if r == '.' || r == '*' || r == '>' || unicode.IsSpace(r) {
			return &TokenError{Name: name, Value: value, Char: r}
		}
	}
	return nil
}

// Token validates kind and then checks the result with SubjectToken.
func Token(kind Kind, raw string) (string, error) {
	s, err := Validate(kind, raw)
	if err != nil {
		return "", err
	}
	if err := SubjectToken(kind.String(), s); err != nil {
		return "", err
	}
	return s, nil
}
