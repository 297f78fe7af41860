package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/latticectl/errors"
)

func TestValidate_RejectsBlank(t *testing.T) {
	blanks := []string{"", " ", "             ", "\t\n", "  "}

	for _, kind := range []Kind{HostID, ComponentID, ComponentRef, ProviderID, ProviderRef, LinkName} {
		for _, raw := range blanks {
			_, err := Validate(kind, raw)
			require.Error(t, err, "kind %s raw %q", kind, raw)
			assert.ErrorIs(t, err, errors.ErrInvalidIdentifier)
			assert.True(t, errors.IsInvalid(err))

			var empty *EmptyError
			require.ErrorAs(t, err, &empty)
			assert.Equal(t, kind, empty.Kind)
		}
	}
}

func TestValidate_Messages(t *testing.T) {
	_, err := Host("             ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Host ID cannot be empty")

	_, err = ProviderReference("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Provider OCI reference cannot be empty")

	tests := []struct {
		fn   func(string) (string, error)
		want string
	}{
		{Component, "Component ID cannot be empty"},
		{ComponentReference, "Component OCI reference cannot be empty"},
		{Provider, "Provider ID cannot be empty"},
		{Link, "Link Name cannot be empty"},
	}
	for _, tt := range tests {
		_, err := tt.fn(" ")
		require.Error(t, err)
		assert.Equal(t, tt.want, err.Error())
	}
}

func TestValidate_TrimsOnly(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"host_id", "host_id"},
		{"            iambatman  ", "iambatman"},
		{"\tNBCMHOST\n", "NBCMHOST"},
		{"ghcr.io/wasmcloud/http:0.1.0", "ghcr.io/wasmcloud/http:0.1.0"},
		{" a b ", "a b"},
		{"wild.*.>", "wild.*.>"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Validate(ComponentID, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"NBCMHOST", true},
		{"my-config_1", true},
		{"", false},
		{"a.b", false},
		{"*", false},
		{"all>", false},
		{"has space", false},
		{"tab\t", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := SubjectToken("config name", tt.value)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errors.ErrInvalidIdentifier)
		})
	}
}

func TestToken(t *testing.T) {
	got, err := Token(HostID, "  NBCMHOST ")
	require.NoError(t, err)
	assert.Equal(t, "NBCMHOST", got)

	_, err = Token(HostID, "host.with.dots")
	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, '.', tokenErr.Char)
	assert.Contains(t, err.Error(), "Host ID")

	_, err = Token(HostID, "  ")
	var empty *EmptyError
	assert.ErrorAs(t, err, &empty)
}
