// Package domain defines which entities carry PII fields and the shapes the
// persistence hook and the rotation sweep pass around.
package domain

import (
	"github.com/trustchecker/atrest/internal/errors"
)

// PII mapping error definitions.
var (
	// ErrUnknownEntity indicates a model name that is not in the PII field map.
	ErrUnknownEntity = errors.Wrap(errors.ErrNotFound, "entity not in pii field map")

	// ErrInvalidEntitySpec indicates an entity spec with an unsafe table or column name.
	ErrInvalidEntitySpec = errors.Wrap(errors.ErrInvalidInput, "invalid entity spec")
)
