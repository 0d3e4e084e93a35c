package domain

// Algorithm represents the cryptographic algorithm used for field encryption.
//
// Only AES-256-GCM is supported. It is an AEAD cipher, so every envelope is both
// confidential and tamper-evident: a flipped bit in the IV, tag or ciphertext makes
// decryption fail instead of returning garbage.
type Algorithm string

// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
//
// Key features:
//   - 256-bit key size
//   - 12-byte nonce (96 bits), fresh from crypto/rand on every call
//   - 16-byte authentication tag
const AESGCM Algorithm = "aes-256-gcm"

const (
	// KeySize is the size in bytes of master keys and derived tenant keys.
	KeySize = 32

	// IVSize is the GCM nonce size in bytes.
	IVSize = 12

	// TagSize is the GCM authentication tag size in bytes.
	TagSize = 16

	// EnvelopePrefix marks a stored value as an encrypted envelope. It is a
	// persistence compatibility contract: a new format gets a new prefix.
	EnvelopePrefix = "enc:v1:"

	// DefaultTenant is the tenant scope used when a record carries no tenant id.
	DefaultTenant = "default"

	// DefaultAppName is the default HKDF info prefix.
	DefaultAppName = "trustchecker"

	// FingerprintLength is the number of hex characters of SHA-256(key) used to
	// identify a master key in logs, status output and cache keys.
	FingerprintLength = 8
)
