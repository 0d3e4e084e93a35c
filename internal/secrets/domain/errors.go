// Package domain defines the secret names, audit records and errors shared by
// the secrets providers and the secrets vault.
package domain

import (
	"github.com/trustchecker/atrest/internal/errors"
)

// Secret-specific error definitions.
var (
	// ErrSecretNotFound indicates the provider has no value for the name.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrProviderUnavailable indicates the provider could not be reached or timed out.
	// The vault treats it like a missing secret and never retries.
	ErrProviderUnavailable = errors.Wrap(errors.ErrUnavailable, "secrets provider unavailable")

	// ErrProviderNotCompiled indicates the binary was built without the selected provider.
	ErrProviderNotCompiled = errors.Wrap(errors.ErrUnavailable, "secrets provider not compiled in")

	// ErrInvalidSecretName indicates a name that cannot be mapped to a provider key.
	ErrInvalidSecretName = errors.Wrap(errors.ErrInvalidInput, "invalid secret name")
)
