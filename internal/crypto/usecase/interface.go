// Package usecase implements encryption bootstrap and master key rotation.
//
// The encryption use case loads the master key from the secrets vault into the
// keyring at startup and reports encryption status. The rotation use case
// re-encrypts every PII field under a new master key and only then swaps the
// active key, so readers never observe a half-rotated keyring.
package usecase

import (
	"context"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoService "github.com/trustchecker/atrest/internal/crypto/service"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
)

// SecretsReader resolves named secrets. The secrets vault satisfies it.
type SecretsReader interface {
	Get(ctx context.Context, name string) (string, bool)
}

// CipherStatsProvider exposes field cipher counters.
type CipherStatsProvider interface {
	Stats() cryptoService.CipherStats
}

// RecordRepository reads and rewrites PII columns in batches.
//
// Available implementations:
//   - PostgreSQLRecordRepository
//   - MySQLRecordRepository
type RecordRepository interface {
	// ListBatch returns up to limit records with an id greater than afterID,
	// ordered by id. An empty afterID starts from the first record.
	ListBatch(ctx context.Context, entity piiDomain.EntitySpec, afterID string, limit int) ([]*piiDomain.Record, error)

	// UpdateFields overwrites the given PII columns of one record. It joins the
	// transaction carried by ctx, if any, and returns ErrNotFound when the
	// record no longer exists.
	UpdateFields(ctx context.Context, entity piiDomain.EntitySpec, id string, fields map[string]string) error
}

// RotationRunRepository persists the rotation run log.
type RotationRunRepository interface {
	Create(ctx context.Context, run *cryptoDomain.RotationRun) error
	Update(ctx context.Context, run *cryptoDomain.RotationRun) error
	ListRecent(ctx context.Context, limit int) ([]*cryptoDomain.RotationRun, error)
}

// EncryptionUseCase bootstraps the master key and reports encryption status.
type EncryptionUseCase interface {
	// Initialize reads the master key from the secrets vault and activates it.
	//
	// A missing key leaves encryption inactive and returns nil. A malformed key,
	// or one that cannot be unwrapped by the configured KMS, returns an error so
	// the process refuses to start.
	Initialize(ctx context.Context) error

	// Status returns the current encryption state and the latest rotation run.
	Status(ctx context.Context) (*cryptoDomain.EncryptionStatus, error)
}

// RotationUseCase re-encrypts all PII under a new master key.
type RotationUseCase interface {
	// Rotate sweeps every mapped entity, re-encrypting fields from oldKey to
	// newKey, and activates newKey once the sweep has finished.
	//
	// Per-record failures are counted in the summary and do not stop the sweep.
	// A record deleted between read and write is skipped.
	// A batch that cannot be loaded or written, or a cancelled ctx, aborts the
	// rotation: the summary is returned with status "aborted", the error wraps
	// ErrRotationAborted and the old key stays active.
	Rotate(ctx context.Context, oldKey, newKey []byte) (*cryptoDomain.RotationSummary, error)

	// RotateActive rotates from the currently active key to newKeyHex, or to a
	// generated key when newKeyHex is empty. A generated key is refused unless
	// the rotation hooks persist it outside this process.
	//
	// The result is nil when the rotation was rejected before the sweep. A
	// completed rotation whose hooks failed returns both the result and the error.
	RotateActive(ctx context.Context, newKeyHex string) (*cryptoDomain.MasterKeyRotation, error)
}

// RotationHook runs after a rotation has swapped the active key.
type RotationHook func(ctx context.Context, summary *cryptoDomain.RotationSummary, newKey *cryptoDomain.MasterKey) error
