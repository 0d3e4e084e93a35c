package app

import (
	"context"
	"fmt"
	"log/slog"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoRepository "github.com/trustchecker/atrest/internal/crypto/repository"
	cryptoService "github.com/trustchecker/atrest/internal/crypto/service"
	cryptoUseCase "github.com/trustchecker/atrest/internal/crypto/usecase"
	"github.com/trustchecker/atrest/internal/database"
	"github.com/trustchecker/atrest/internal/metrics"
	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
	secretsProvider "github.com/trustchecker/atrest/internal/secrets/provider"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// Keyring returns the holder of the active master key.
func (c *Container) Keyring() *cryptoService.Keyring {
	c.keyringInit.Do(func() {
		c.keyring = cryptoService.NewKeyring()
	})
	return c.keyring
}

// KeyDeriver returns the memoizing tenant key deriver.
func (c *Container) KeyDeriver() (*cryptoService.KeyDeriver, error) {
	var err error
	c.keyDeriverInit.Do(func() {
		c.keyDeriver, err = cryptoService.NewKeyDeriver(c.config.EncryptionAppName, cryptoService.DefaultDerivedKeyCacheSize)
		if err != nil {
			c.initErrors["keyDeriver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyDeriver"]; exists {
		return nil, storedErr
	}
	return c.keyDeriver, nil
}

// FieldCipher returns the field cipher shared by the PII hook and the status endpoint.
func (c *Container) FieldCipher() (*cryptoService.FieldCipher, error) {
	var err error
	c.fieldCipherInit.Do(func() {
		c.fieldCipher, err = c.initFieldCipher()
		if err != nil {
			c.initErrors["fieldCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipher"]; exists {
		return nil, storedErr
	}
	return c.fieldCipher, nil
}

// RotationRunRepository returns the rotation run repository based on database driver.
func (c *Container) RotationRunRepository() (cryptoUseCase.RotationRunRepository, error) {
	var err error
	c.rotationRunRepositoryInit.Do(func() {
		c.rotationRunRepository, err = c.initRotationRunRepository()
		if err != nil {
			c.initErrors["rotationRunRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationRunRepository"]; exists {
		return nil, storedErr
	}
	return c.rotationRunRepository, nil
}

// EncryptionUseCase returns the encryption use case.
func (c *Container) EncryptionUseCase() (cryptoUseCase.EncryptionUseCase, error) {
	var err error
	c.encryptionUseCaseInit.Do(func() {
		c.encryptionUseCase, err = c.initEncryptionUseCase()
		if err != nil {
			c.initErrors["encryptionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["encryptionUseCase"]; exists {
		return nil, storedErr
	}
	return c.encryptionUseCase, nil
}

// RotationUseCase returns the key rotation use case. A successful rotation
// persists the new master key through the secrets vault.
func (c *Container) RotationUseCase() (cryptoUseCase.RotationUseCase, error) {
	var err error
	c.rotationUseCaseInit.Do(func() {
		c.rotationUseCase, err = c.initRotationUseCase()
		if err != nil {
			c.initErrors["rotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

// initFieldCipher creates the field cipher and exports its counters when metrics are enabled.
func (c *Container) initFieldCipher() (*cryptoService.FieldCipher, error) {
	deriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for field cipher: %w", err)
	}

	policy, err := cryptoDomain.ParseFailurePolicy(c.config.EncryptionFailurePolicy)
	if err != nil {
		return nil, err
	}

	cipher := cryptoService.NewFieldCipher(c.Keyring(), deriver, policy, c.Logger())

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for field cipher: %w", err)
	}
	if provider != nil {
		err = metrics.RegisterEncryptionObservers(provider.MeterProvider(), c.config.MetricsNamespace,
			func() metrics.EncryptionSnapshot {
				stats := cipher.Stats()
				return metrics.EncryptionSnapshot{
					Active:      stats.Active,
					Rotating:    stats.Rotating,
					Encryptions: stats.Encryptions,
					Decryptions: stats.Decryptions,
					Errors:      stats.Errors,
				}
			})
		if err != nil {
			return nil, fmt.Errorf("failed to register encryption metrics: %w", err)
		}
	}

	return cipher, nil
}

// initRotationRunRepository creates the rotation run repository based on the database driver.
func (c *Container) initRotationRunRepository() (cryptoUseCase.RotationRunRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation run repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return cryptoRepository.NewPostgreSQLRotationRunRepository(db), nil
	case database.DriverMySQL:
		return cryptoRepository.NewMySQLRotationRunRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEncryptionUseCase creates the encryption use case. The database is
// optional here: without it Status omits the last rotation.
func (c *Container) initEncryptionUseCase() (cryptoUseCase.EncryptionUseCase, error) {
	secretsVault, err := c.SecretsVault()
	if err != nil {
		return nil, fmt.Errorf("failed to get secrets vault for encryption use case: %w", err)
	}

	cipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for encryption use case: %w", err)
	}

	runRepo, err := c.RotationRunRepository()
	if err != nil {
		c.Logger().Warn("rotation history unavailable", slog.Any("error", err))
		runRepo = nil
	}

	useCase := cryptoUseCase.NewEncryptionUseCase(
		secretsVault,
		c.KMSService(),
		c.Keyring(),
		cipher,
		c.PiiFieldMap(),
		runRepo,
		cryptoUseCase.EncryptionConfig{KMSKeyURI: c.config.KMSKeyURI},
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for encryption use case: %w", err)
		}
		return cryptoUseCase.NewEncryptionUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

// initRotationUseCase creates the rotation use case with all its dependencies.
func (c *Container) initRotationUseCase() (cryptoUseCase.RotationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rotation use case: %w", err)
	}

	records, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for rotation use case: %w", err)
	}

	runRepo, err := c.RotationRunRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation run repository for rotation use case: %w", err)
	}

	deriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for rotation use case: %w", err)
	}

	provider, err := c.SecretsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get secrets provider for rotation use case: %w", err)
	}

	useCase := cryptoUseCase.NewRotationUseCase(
		txManager,
		records,
		runRepo,
		c.Keyring(),
		deriver,
		c.PiiFieldMap(),
		cryptoUseCase.RotationOptions{
			BatchSize:        c.config.RotationBatchSize,
			RecordsPerSecond: c.config.RotationRecordsPerSec,
			OnCommitted: []cryptoUseCase.RotationHook{
				c.persistMasterKey,
				c.invalidateSecretsCache,
			},
			DurableKeyStore: provider.Name() != secretsProvider.NameEnv,
		},
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
		}
		return cryptoUseCase.NewRotationUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

// persistMasterKey stores the rotated master key, KMS-wrapped when a KMS key
// is configured, so the next boot activates it.
//
// The environment provider only changes this process's environment. The key is
// still written so in-process reads see it, but ErrMasterKeyNotPersisted is
// returned so the caller surfaces the key to the operator.
func (c *Container) persistMasterKey(
	ctx context.Context,
	summary *cryptoDomain.RotationSummary,
	newKey *cryptoDomain.MasterKey,
) error {
	secretsVault, err := c.SecretsVault()
	if err != nil {
		return fmt.Errorf("failed to get secrets vault: %w", err)
	}

	stored := newKey.Hex()
	if c.config.KMSKeyURI != "" {
		stored, err = cryptoService.WrapMasterKey(ctx, c.KMSService(), c.config.KMSKeyURI, stored)
		if err != nil {
			return err
		}
	}

	if err := secretsVault.Set(ctx, secretsDomain.EncryptionMasterKey, stored); err != nil {
		return fmt.Errorf("failed to persist rotated master key: %w", err)
	}

	if secretsVault.Status().Provider == secretsProvider.NameEnv {
		c.Logger().Warn("rotated master key held in process environment only",
			slog.String("run_id", summary.RunID.String()),
			slog.String("key_fingerprint", newKey.Fingerprint()),
		)
		return fmt.Errorf("%w: the env secrets provider cannot store it durably", cryptoDomain.ErrMasterKeyNotPersisted)
	}

	c.Logger().Info("rotated master key persisted",
		slog.String("run_id", summary.RunID.String()),
		slog.String("key_fingerprint", newKey.Fingerprint()),
	)
	return nil
}

// invalidateSecretsCache drops every cached secret once a rotation completes.
func (c *Container) invalidateSecretsCache(
	ctx context.Context,
	summary *cryptoDomain.RotationSummary,
	newKey *cryptoDomain.MasterKey,
) error {
	secretsVault, err := c.SecretsVault()
	if err != nil {
		return fmt.Errorf("failed to get secrets vault: %w", err)
	}
	secretsVault.ClearCache()
	c.Logger().Debug("secrets cache cleared after rotation", slog.String("run_id", summary.RunID.String()))
	return nil
}
