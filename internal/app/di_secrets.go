package app

import (
	"context"
	"fmt"

	secretsProvider "github.com/trustchecker/atrest/internal/secrets/provider"
	secretsUseCase "github.com/trustchecker/atrest/internal/secrets/usecase"
)

// SecretsProvider returns the secrets backend selected by configuration.
func (c *Container) SecretsProvider() (secretsProvider.Provider, error) {
	var err error
	c.secretsProviderInit.Do(func() {
		c.secretsProvider, err = c.initSecretsProvider()
		if err != nil {
			c.initErrors["secretsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretsProvider"]; exists {
		return nil, storedErr
	}
	return c.secretsProvider, nil
}

// SecretsVault returns the cached, audited secrets facade.
func (c *Container) SecretsVault() (secretsUseCase.SecretsVault, error) {
	var err error
	c.secretsVaultInit.Do(func() {
		c.secretsVault, err = c.initSecretsVault()
		if err != nil {
			c.initErrors["secretsVault"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretsVault"]; exists {
		return nil, storedErr
	}
	return c.secretsVault, nil
}

// initSecretsProvider selects Vault, AWS Secrets Manager or the environment.
func (c *Container) initSecretsProvider() (secretsProvider.Provider, error) {
	provider, err := secretsProvider.New(context.Background(), secretsProvider.Config{
		Prefix:     c.config.SecretsPrefix,
		VaultAddr:  c.config.VaultAddr,
		VaultToken: c.config.VaultToken,
		VaultMount: c.config.VaultMount,
		AWSRegion:  c.config.AWSRegion,
		UseEnv:     c.config.SecretsUseEnv,
		Timeout:    c.config.SecretsProviderTimeout,
	}, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets provider: %w", err)
	}
	return provider, nil
}

// initSecretsVault creates the secrets vault, wrapped with metrics when enabled.
func (c *Container) initSecretsVault() (secretsUseCase.SecretsVault, error) {
	provider, err := c.SecretsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get secrets provider for secrets vault: %w", err)
	}

	vault := secretsUseCase.NewSecretsVault(provider, secretsUseCase.Options{
		CacheTTL:              c.config.SecretsCacheTTL,
		RotationCheckInterval: c.config.SecretsRotationCheckInterval,
	}, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for secrets vault: %w", err)
		}
		return secretsUseCase.NewSecretsVaultWithMetrics(vault, businessMetrics), nil
	}

	return vault, nil
}
