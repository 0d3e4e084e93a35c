package service

import (
	"fmt"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
)

// SealEnvelope encrypts plaintext under key with AES-256-GCM and returns the
// "enc:v1:<iv>:<tag>:<ciphertext>" string.
func SealEnvelope(key []byte, plaintext string) (string, error) {
	c, err := NewAESGCM(key)
	if err != nil {
		return "", err
	}

	sealed, nonce, err := c.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	split := len(sealed) - cryptoDomain.TagSize
	return cryptoDomain.Envelope{
		IV:         nonce,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}.String(), nil
}

// OpenEnvelope parses and decrypts an envelope produced by SealEnvelope.
//
// Structural problems return ErrMalformedEnvelope without touching the cipher;
// a wrong key or tampered data returns ErrDecryptionFailed.
func OpenEnvelope(key []byte, envelope string) (string, error) {
	env, err := cryptoDomain.ParseEnvelope(envelope)
	if err != nil {
		return "", err
	}

	c, err := NewAESGCM(key)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := c.Decrypt(sealed, env.IV, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open envelope: %w", err)
	}
	return string(plaintext), nil
}
