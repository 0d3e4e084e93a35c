// Package provider implements the secret stores the secrets vault reads from:
// process environment, Vault KV-v2 and AWS Secrets Manager.
package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// Provider names reported in status output and audit records.
const (
	NameEnv   = "env"
	NameVault = "vault"
	NameAWS   = "aws-sm"
)

// DefaultTimeout bounds every network call made by a provider.
const DefaultTimeout = 5 * time.Second

// Provider is a uniform get/set/list contract over one secret store.
//
// Get returns secretsDomain.ErrSecretNotFound when the store has no value for
// name, and an error wrapping secretsDomain.ErrProviderUnavailable when the
// store could not be reached. Providers never retry.
type Provider interface {
	Name() string
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	List(ctx context.Context) ([]string, error)
}

// Config selects and configures the provider.
type Config struct {
	Prefix     string
	VaultAddr  string
	VaultToken string
	VaultMount string
	AWSRegion  string
	UseEnv     bool
	Timeout    time.Duration
}

// New builds the provider selected by cfg: Vault when address and token are
// set, else AWS Secrets Manager when a region is set and UseEnv is false,
// else the process environment.
//
// When AWS is selected but the binary was built with the noawssm tag, New logs
// a warning and falls back to the environment provider.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var (
		p   Provider
		err error
	)
	switch {
	case cfg.VaultAddr != "" && cfg.VaultToken != "":
		p, err = NewVaultProvider(VaultConfig{
			Address: cfg.VaultAddr,
			Token:   cfg.VaultToken,
			Mount:   cfg.VaultMount,
			Prefix:  cfg.Prefix,
			Timeout: cfg.Timeout,
		}, logger)
	case cfg.AWSRegion != "" && !cfg.UseEnv:
		p, err = NewAWSProvider(ctx, AWSConfig{
			Region:  cfg.AWSRegion,
			Prefix:  cfg.Prefix,
			Timeout: cfg.Timeout,
		}, logger)
		if errors.Is(err, secretsDomain.ErrProviderNotCompiled) {
			logger.Warn("aws secrets manager provider not compiled in, using environment provider",
				slog.String("region", cfg.AWSRegion),
			)
			p, err = NewEnvProvider(), nil
		}
	default:
		p = NewEnvProvider()
	}
	if err != nil {
		return nil, err
	}

	logger.Info("secrets provider selected", slog.String("provider", p.Name()))
	return p, nil
}
