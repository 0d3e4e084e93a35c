package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// MasterKey is the 256-bit root key from which every tenant key is derived.
//
// Exactly one master key is active per process. It is never persisted by this
// service: it is read from the secrets provider at startup and held only in memory.
// During a rotation the orchestrator also holds the previous key, for migration only.
type MasterKey struct {
	key         []byte
	fingerprint string
}

// NewMasterKey copies b into a new MasterKey. b must be exactly 32 bytes.
func NewMasterKey(b []byte) (*MasterKey, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidKeySize, KeySize, len(b))
	}
	key := CloneKey(b)
	return &MasterKey{key: key, fingerprint: Fingerprint(key)}, nil
}

// ParseMasterKeyHex decodes a 64 character hex string into a MasterKey.
//
// Any other length or a non-hex character returns ErrInvalidMasterKey.
func ParseMasterKeyHex(s string) (*MasterKey, error) {
	if len(s) != KeySize*2 {
		return nil, fmt.Errorf("%w: got %d characters", ErrInvalidMasterKey, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidMasterKey
	}
	defer Zero(b)
	return NewMasterKey(b)
}

// GenerateMasterKey returns a new random master key encoded as 64 hex characters.
func GenerateMasterKey() (string, error) {
	b := make([]byte, KeySize)
	defer Zero(b)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Bytes returns the raw key material. Callers must not modify it.
func (m *MasterKey) Bytes() []byte {
	return m.key
}

// Hex returns the key encoded as 64 hex characters.
func (m *MasterKey) Hex() string {
	return hex.EncodeToString(m.key)
}

// Fingerprint returns the first 8 hex characters of SHA-256 of the key.
func (m *MasterKey) Fingerprint() string {
	return m.fingerprint
}

// Equal reports whether b is the same key material, in constant time.
func (m *MasterKey) Equal(b []byte) bool {
	return subtle.ConstantTimeCompare(m.key, b) == 1
}

// Close zeroes the key material.
func (m *MasterKey) Close() {
	Zero(m.key)
}

// Fingerprint returns the first 8 hex characters of SHA-256(b).
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}
