// Package service provides the cryptographic primitives of field-level encryption:
// AES-256-GCM, HKDF tenant key derivation, the enc:v1 envelope codec, the active
// keyring and the FieldCipher built on top of them.
package service

import (
	"context"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext (tag appended) and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext (tag appended) using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// KMSService opens keepers used to wrap and unwrap the master key.
type KMSService interface {
	// OpenKeeper opens a keeper for keyURI (gcpkms://, awskms://, azurekeyvault://,
	// hashivault://, base64key://).
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}
