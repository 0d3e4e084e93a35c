package domain

import (
	"github.com/trustchecker/atrest/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so the
// HTTP layer and CLI can map them without knowing about cryptography.
var (
	// ErrInvalidKeySize indicates a master or derived key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidMasterKey indicates the configured master key is not 64 hex characters.
	//
	// This is a configuration error and is fatal at startup: encryption must never
	// silently degrade to plaintext because the key was mistyped.
	ErrInvalidMasterKey = errors.Wrap(errors.ErrInvalidInput, "master key must be 64 hex characters (32 bytes)")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This covers wrong keys (including the wrong tenant) and tampered data. The
	// specific cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrMalformedEnvelope indicates a value carries the envelope prefix but does not
	// have three non-empty base64 parts with a 12-byte IV and a 16-byte tag.
	ErrMalformedEnvelope = errors.Wrap(errors.ErrInvalidInput, "malformed envelope")

	// ErrEncryptionInactive indicates no master key is active.
	ErrEncryptionInactive = errors.Wrap(errors.ErrUnavailable, "encryption is not active")

	// ErrEncryptionFailed indicates a write was rejected because its fields could not
	// be encrypted under the fail-closed policy.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrUnknownFailurePolicy indicates ENCRYPTION_FAILURE_POLICY has an unsupported value.
	ErrUnknownFailurePolicy = errors.Wrap(errors.ErrInvalidInput, "unknown failure policy")

	// ErrRotationInProgress indicates another rotation sweep is already running.
	ErrRotationInProgress = errors.Wrap(errors.ErrLocked, "key rotation already in progress")

	// ErrRotationKeyMismatch indicates the old key passed to a rotation is not the
	// currently active master key.
	ErrRotationKeyMismatch = errors.Wrap(errors.ErrConflict, "old key does not match the active master key")

	// ErrRotationSameKey indicates the new key equals the old key.
	ErrRotationSameKey = errors.Wrap(errors.ErrInvalidInput, "new key must differ from old key")

	// ErrGeneratedKeyNotDurable indicates a rotation asked for a generated key while the
	// secrets provider cannot store it beyond this process. The operator must supply the
	// new key so it exists outside the process.
	ErrGeneratedKeyNotDurable = errors.Wrap(
		errors.ErrInvalidInput,
		"secrets provider cannot persist a generated master key, supply the new key",
	)

	// ErrMasterKeyNotPersisted indicates a completed rotation whose new key was only
	// stored in process memory and must be saved by the operator before a restart.
	ErrMasterKeyNotPersisted = errors.New("new master key not persisted")

	// ErrRotationAborted indicates the sweep stopped before every entity was processed.
	// The active key is left unchanged.
	ErrRotationAborted = errors.New("key rotation aborted")
)
