package service

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
)

// CipherStats is a point-in-time view of the field cipher.
type CipherStats struct {
	Active         bool                       `json:"active"`
	Algorithm      cryptoDomain.Algorithm     `json:"algorithm"`
	FailurePolicy  cryptoDomain.FailurePolicy `json:"failure_policy"`
	KeyFingerprint string                     `json:"key_fingerprint,omitempty"`
	Rotating       bool                       `json:"rotating"`
	Encryptions    int64                      `json:"encryptions"`
	Decryptions    int64                      `json:"decryptions"`
	Errors         int64                      `json:"errors"`
}

// FieldCipher encrypts and decrypts single field values under the tenant key
// derived from the active master key.
//
// Encrypt is idempotent: values that already carry the envelope prefix are returned
// as is. Decrypt never fails: anything it cannot open is returned unchanged, so a
// result that still starts with "enc:v1:" signals a decryption failure.
type FieldCipher struct {
	keyring *Keyring
	deriver *KeyDeriver
	policy  cryptoDomain.FailurePolicy
	logger  *slog.Logger

	encryptions    atomic.Int64
	decryptions    atomic.Int64
	errors         atomic.Int64
	warnedInactive atomic.Bool
}

// NewFieldCipher creates a FieldCipher reading the active key from keyring.
func NewFieldCipher(
	keyring *Keyring,
	deriver *KeyDeriver,
	policy cryptoDomain.FailurePolicy,
	logger *slog.Logger,
) *FieldCipher {
	return &FieldCipher{
		keyring: keyring,
		deriver: deriver,
		policy:  policy,
		logger:  logger,
	}
}

// Encrypt returns the envelope for plaintext under tenantID's key.
//
// Empty values and values already in envelope form pass through. When no key is
// active or encryption fails, FailOpen returns the plaintext with a nil error and
// FailClosed returns ErrEncryptionInactive or ErrEncryptionFailed.
func (c *FieldCipher) Encrypt(plaintext, tenantID string) (string, error) {
	if plaintext == "" || cryptoDomain.IsEnvelope(plaintext) {
		return plaintext, nil
	}

	key := c.keyring.Active()
	if key == nil {
		if c.policy == cryptoDomain.FailClosed {
			return "", cryptoDomain.ErrEncryptionInactive
		}
		if c.warnedInactive.CompareAndSwap(false, true) {
			c.logger.Warn("encryption master key not set, storing fields as plaintext")
		}
		return plaintext, nil
	}

	envelope, err := c.seal(key, plaintext, tenantID)
	if err != nil {
		c.errors.Add(1)
		c.logger.Error("field encryption failed",
			slog.String("tenant_id", tenantID),
			slog.String("failure_policy", string(c.policy)),
			slog.Any("error", err),
		)
		if c.policy == cryptoDomain.FailClosed {
			return "", fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailed, err)
		}
		return plaintext, nil
	}

	c.encryptions.Add(1)
	return envelope, nil
}

// Decrypt opens an envelope under tenantID's key. Non-envelope values are legacy
// plaintext and pass through. Failures are logged and counted and the input is
// returned unchanged.
func (c *FieldCipher) Decrypt(value, tenantID string) string {
	if !cryptoDomain.IsEnvelope(value) {
		return value
	}

	key := c.keyring.Active()
	if key == nil {
		c.errors.Add(1)
		c.logger.Warn("cannot decrypt field, encryption master key not set")
		return value
	}

	tenantKey, err := c.deriver.Derive(key, tenantID)
	if err == nil {
		var plaintext string
		plaintext, err = OpenEnvelope(tenantKey, value)
		if err == nil {
			c.decryptions.Add(1)
			return plaintext
		}
	}

	c.errors.Add(1)
	c.logger.Error("field decryption failed",
		slog.String("tenant_id", tenantID),
		slog.Any("error", err),
	)
	return value
}

// Stats returns the cipher counters and key state.
func (c *FieldCipher) Stats() CipherStats {
	stats := CipherStats{
		Algorithm:     cryptoDomain.AESGCM,
		FailurePolicy: c.policy,
		Rotating:      c.keyring.Rotating(),
		Encryptions:   c.encryptions.Load(),
		Decryptions:   c.decryptions.Load(),
		Errors:        c.errors.Load(),
	}
	if key := c.keyring.Active(); key != nil {
		stats.Active = true
		stats.KeyFingerprint = key.Fingerprint()
	}
	return stats
}

func (c *FieldCipher) seal(key *cryptoDomain.MasterKey, plaintext, tenantID string) (string, error) {
	tenantKey, err := c.deriver.Derive(key, tenantID)
	if err != nil {
		return "", err
	}
	return SealEnvelope(tenantKey, plaintext)
}
