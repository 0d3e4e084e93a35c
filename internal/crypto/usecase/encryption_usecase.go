package usecase

import (
	"context"
	"log/slog"
	"strings"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoService "github.com/trustchecker/atrest/internal/crypto/service"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// EncryptionConfig configures the encryption use case.
type EncryptionConfig struct {
	// KMSKeyURI, when set, means the stored master key is base64 KMS ciphertext of
	// the hex key and must be unwrapped before use.
	KMSKeyURI string
}

// encryptionUseCase implements EncryptionUseCase.
type encryptionUseCase struct {
	secrets    SecretsReader
	kmsService cryptoService.KMSService
	keyring    *cryptoService.Keyring
	cipher     CipherStatsProvider
	fields     piiDomain.PiiFieldMap
	runRepo    RotationRunRepository
	cfg        EncryptionConfig
	logger     *slog.Logger
}

// NewEncryptionUseCase creates an EncryptionUseCase. runRepo may be nil, in
// which case Status omits the last rotation.
func NewEncryptionUseCase(
	secrets SecretsReader,
	kmsService cryptoService.KMSService,
	keyring *cryptoService.Keyring,
	cipher CipherStatsProvider,
	fields piiDomain.PiiFieldMap,
	runRepo RotationRunRepository,
	cfg EncryptionConfig,
	logger *slog.Logger,
) EncryptionUseCase {
	return &encryptionUseCase{
		secrets:    secrets,
		kmsService: kmsService,
		keyring:    keyring,
		cipher:     cipher,
		fields:     fields,
		runRepo:    runRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// Initialize reads encryption_master_key and activates it.
func (e *encryptionUseCase) Initialize(ctx context.Context) error {
	stored, ok := e.secrets.Get(ctx, secretsDomain.EncryptionMasterKey)
	if !ok {
		e.logger.Warn("no encryption master key configured, pii fields will not be encrypted")
		return nil
	}

	keyHex := strings.TrimSpace(stored)
	if e.cfg.KMSKeyURI != "" {
		unwrapped, err := cryptoService.UnwrapMasterKey(ctx, e.kmsService, e.cfg.KMSKeyURI, keyHex)
		if err != nil {
			return err
		}
		keyHex = unwrapped
	}

	key, err := cryptoDomain.ParseMasterKeyHex(keyHex)
	if err != nil {
		return err
	}

	e.keyring.Activate(key)
	e.logger.Info("field encryption initialized",
		slog.String("algorithm", string(cryptoDomain.AESGCM)),
		slog.String("key_fingerprint", key.Fingerprint()),
		slog.Bool("kms_wrapped", e.cfg.KMSKeyURI != ""),
	)
	return nil
}

// Status combines cipher counters, key state and the latest rotation run.
func (e *encryptionUseCase) Status(ctx context.Context) (*cryptoDomain.EncryptionStatus, error) {
	stats := e.cipher.Stats()
	status := &cryptoDomain.EncryptionStatus{
		Active:         stats.Active,
		Algorithm:      stats.Algorithm,
		FailurePolicy:  stats.FailurePolicy,
		KeyFingerprint: stats.KeyFingerprint,
		KMSWrapped:     e.cfg.KMSKeyURI != "",
		Rotating:       stats.Rotating,
		Encryptions:    stats.Encryptions,
		Decryptions:    stats.Decryptions,
		Errors:         stats.Errors,
		PiiModels:      len(e.fields),
		TotalPiiFields: e.fields.TotalFields(),
	}

	if e.runRepo != nil {
		runs, err := e.runRepo.ListRecent(ctx, 1)
		if err != nil {
			e.logger.Warn("failed to load last rotation run", slog.Any("error", err))
		} else if len(runs) > 0 {
			status.LastRotation = runs[0]
		}
	}

	return status, nil
}
