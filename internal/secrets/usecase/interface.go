// Package usecase implements the secrets vault: a cached, audited view over the
// configured secrets provider with boot-time preload and a rotation watcher.
package usecase

import (
	"context"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// SecretsProvider is the secret store the vault reads through.
type SecretsProvider interface {
	Name() string
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	List(ctx context.Context) ([]string, error)
}

// SecretsVault defines the secrets facade used by the rest of the application.
type SecretsVault interface {
	// Get returns the secret value and whether it resolved to a non-empty value.
	// Provider failures are logged and reported as not found.
	Get(ctx context.Context, name string) (string, bool)
	// GetRequired is like Get but returns ErrSecretNotFound when the value is empty.
	GetRequired(ctx context.Context, name string) (string, error)
	// Set writes through to the provider and refreshes the cache entry.
	Set(ctx context.Context, name, value string) error
	// Preload fetches every known secret concurrently. It never fails.
	Preload(ctx context.Context) secretsDomain.PreloadResult
	// StartRotationWatcher starts polling cached secrets for out-of-band changes.
	// It returns false for the environment provider, which cannot rotate externally.
	StartRotationWatcher(ctx context.Context) bool
	// StopRotationWatcher stops the watcher and waits for it to exit.
	StopRotationWatcher()
	// CheckRotation runs one watcher poll and returns the number of changed secrets.
	CheckRotation(ctx context.Context) int
	// ClearCache drops every cached secret.
	ClearCache()
	// AuditLog returns a copy of the audit ring, oldest first.
	AuditLog() []secretsDomain.AuditRecord
	// Status summarizes the vault.
	Status() secretsDomain.Status
}
