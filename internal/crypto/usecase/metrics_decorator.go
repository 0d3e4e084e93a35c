package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	"github.com/trustchecker/atrest/internal/metrics"
)

// encryptionUseCaseWithMetrics decorates EncryptionUseCase with metrics instrumentation.
type encryptionUseCaseWithMetrics struct {
	next    EncryptionUseCase
	metrics metrics.BusinessMetrics
}

// NewEncryptionUseCaseWithMetrics wraps an EncryptionUseCase with metrics recording.
func NewEncryptionUseCaseWithMetrics(useCase EncryptionUseCase, m metrics.BusinessMetrics) EncryptionUseCase {
	return &encryptionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Initialize records metrics for master key bootstrap.
func (e *encryptionUseCaseWithMetrics) Initialize(ctx context.Context) error {
	start := time.Now()
	err := e.next.Initialize(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordOperation(ctx, "encryption", "encryption_initialize", status)
	e.metrics.RecordDuration(ctx, "encryption", "encryption_initialize", time.Since(start), status)

	return err
}

// Status is not instrumented; it is polled by the admin endpoint.
func (e *encryptionUseCaseWithMetrics) Status(ctx context.Context) (*cryptoDomain.EncryptionStatus, error) {
	return e.next.Status(ctx)
}

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Rotate records the outcome of a rotation: "completed", "aborted" or "error"
// for calls rejected before the sweep started.
func (r *rotationUseCaseWithMetrics) Rotate(
	ctx context.Context,
	oldKey, newKey []byte,
) (*cryptoDomain.RotationSummary, error) {
	start := time.Now()
	summary, err := r.next.Rotate(ctx, oldKey, newKey)

	status := "error"
	if summary != nil {
		status = string(summary.Status)
	}
	r.metrics.RecordOperation(ctx, "encryption", "key_rotation", status)
	r.metrics.RecordDuration(ctx, "encryption", "key_rotation", time.Since(start), status)

	return summary, err
}

// RotateActive records the same outcome labels as Rotate.
func (r *rotationUseCaseWithMetrics) RotateActive(
	ctx context.Context,
	newKeyHex string,
) (*cryptoDomain.MasterKeyRotation, error) {
	start := time.Now()
	result, err := r.next.RotateActive(ctx, newKeyHex)

	status := "error"
	if result != nil {
		status = string(result.Summary.Status)
	}
	r.metrics.RecordOperation(ctx, "encryption", "key_rotation", status)
	r.metrics.RecordDuration(ctx, "encryption", "key_rotation", time.Since(start), status)

	return result, err
}
