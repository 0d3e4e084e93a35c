package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/trustchecker/atrest/internal/errors"
)

func TestHexKey256(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "valid lowercase key",
			input:     strings.Repeat("ab", 32),
			shouldErr: false,
		},
		{
			name:      "valid uppercase key",
			input:     strings.Repeat("AB", 32),
			shouldErr: false,
		},
		{
			name:      "too short",
			input:     strings.Repeat("ab", 31),
			shouldErr: true,
		},
		{
			name:      "too long",
			input:     strings.Repeat("ab", 33),
			shouldErr: true,
		},
		{
			name:      "non hex characters",
			input:     strings.Repeat("zz", 32),
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HexKey256.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSQLIdentifier(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "simple table", input: "users", shouldErr: false},
		{name: "snake case column", input: "representative_email", shouldErr: false},
		{name: "leading underscore", input: "_internal", shouldErr: false},
		{name: "leading digit", input: "1users", shouldErr: true},
		{name: "quote injection", input: `users"; DROP TABLE users; --`, shouldErr: true},
		{name: "space", input: "audit logs", shouldErr: true},
		{name: "too long", input: strings.Repeat("a", 64), shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SQLIdentifier.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSecretName(t *testing.T) {
	assert.NoError(t, SecretName.Validate("jwt_secret"))
	assert.NoError(t, SecretName.Validate("stripe-key"))
	assert.NoError(t, SecretName.Validate("team/db.url"))
	assert.Error(t, SecretName.Validate("bad name"))
	assert.Error(t, SecretName.Validate("name?x=1"))
}

func TestNoWhitespace(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "no whitespace", input: "validstring", shouldErr: false},
		{name: "leading whitespace", input: " validstring", shouldErr: true},
		{name: "trailing whitespace", input: "validstring ", shouldErr: true},
		{name: "internal whitespace", input: "valid string", shouldErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NoWhitespace.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.Error(t, NotBlank.Validate("   "))
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(errors.New("name: cannot be blank"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "name: cannot be blank")
}
