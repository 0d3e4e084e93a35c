package usecase

import (
	"context"
	"time"

	"github.com/trustchecker/atrest/internal/metrics"
	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// secretsVaultWithMetrics decorates SecretsVault with metrics instrumentation.
type secretsVaultWithMetrics struct {
	next    SecretsVault
	metrics metrics.BusinessMetrics
}

// NewSecretsVaultWithMetrics wraps a SecretsVault with metrics recording.
func NewSecretsVaultWithMetrics(vault SecretsVault, m metrics.BusinessMetrics) SecretsVault {
	return &secretsVaultWithMetrics{
		next:    vault,
		metrics: m,
	}
}

func (s *secretsVaultWithMetrics) record(ctx context.Context, operation, status string, start time.Time) {
	s.metrics.RecordOperation(ctx, "secrets", operation, status)
	s.metrics.RecordDuration(ctx, "secrets", operation, time.Since(start), status)
}

// Get records metrics for secret reads. A miss is recorded as "not_found".
func (s *secretsVaultWithMetrics) Get(ctx context.Context, name string) (string, bool) {
	start := time.Now()
	value, ok := s.next.Get(ctx, name)

	status := "success"
	if !ok {
		status = "not_found"
	}
	s.record(ctx, "secrets_get", status, start)

	return value, ok
}

// GetRequired records metrics for required secret reads.
func (s *secretsVaultWithMetrics) GetRequired(ctx context.Context, name string) (string, error) {
	start := time.Now()
	value, err := s.next.GetRequired(ctx, name)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.record(ctx, "secrets_get_required", status, start)

	return value, err
}

// Set records metrics for secret writes.
func (s *secretsVaultWithMetrics) Set(ctx context.Context, name, value string) error {
	start := time.Now()
	err := s.next.Set(ctx, name, value)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.record(ctx, "secrets_set", status, start)

	return err
}

// Preload records metrics for the boot-time preload. Any missing secret marks
// the run as "partial".
func (s *secretsVaultWithMetrics) Preload(ctx context.Context) secretsDomain.PreloadResult {
	start := time.Now()
	result := s.next.Preload(ctx)

	status := "success"
	if len(result.Missing) > 0 {
		status = "partial"
	}
	s.record(ctx, "secrets_preload", status, start)

	return result
}

func (s *secretsVaultWithMetrics) StartRotationWatcher(ctx context.Context) bool {
	return s.next.StartRotationWatcher(ctx)
}

func (s *secretsVaultWithMetrics) StopRotationWatcher() {
	s.next.StopRotationWatcher()
}

// CheckRotation records one metric per detected rotation.
func (s *secretsVaultWithMetrics) CheckRotation(ctx context.Context) int {
	start := time.Now()
	rotated := s.next.CheckRotation(ctx)

	status := "unchanged"
	if rotated > 0 {
		status = "rotated"
	}
	s.record(ctx, "secrets_rotation_check", status, start)

	return rotated
}

func (s *secretsVaultWithMetrics) ClearCache() {
	s.next.ClearCache()
}

func (s *secretsVaultWithMetrics) AuditLog() []secretsDomain.AuditRecord {
	return s.next.AuditLog()
}

func (s *secretsVaultWithMetrics) Status() secretsDomain.Status {
	return s.next.Status()
}
