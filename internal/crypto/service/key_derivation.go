package service

import (
	"crypto/sha256"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
)

// DefaultDerivedKeyCacheSize bounds the number of memoized tenant keys.
const DefaultDerivedKeyCacheSize = 500

// DeriveKey derives the 32-byte tenant key from masterKey with HKDF-SHA256 using
// the default application name.
//
//	salt = SHA-256(tenantID)
//	info = "trustchecker-pii-" + tenantID
//
// An empty tenantID is treated as "default".
func DeriveKey(masterKey []byte, tenantID string) ([]byte, error) {
	return deriveKey(masterKey, tenantID, cryptoDomain.DefaultAppName)
}

func deriveKey(masterKey []byte, tenantID, appName string) ([]byte, error) {
	if len(masterKey) != cryptoDomain.KeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes", cryptoDomain.ErrInvalidKeySize, cryptoDomain.KeySize)
	}
	if tenantID == "" {
		tenantID = cryptoDomain.DefaultTenant
	}

	salt := sha256.Sum256([]byte(tenantID))
	info := []byte(appName + "-pii-" + tenantID)
	r := hkdf.New(sha256.New, masterKey, salt[:], info)

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive tenant key: %w", err)
	}
	return key, nil
}

// KeyDeriver memoizes tenant key derivation.
//
// Entries are keyed by "<master key fingerprint>:<tenant>" so keys derived from
// different master keys never collide. The cache is bounded and Purge is called
// after a rotation so nothing derived from a retired key stays reachable.
type KeyDeriver struct {
	appName string
	cache   *lru.Cache[string, []byte]
}

// NewKeyDeriver creates a KeyDeriver. An empty appName selects "trustchecker";
// a non-positive size selects DefaultDerivedKeyCacheSize.
func NewKeyDeriver(appName string, size int) (*KeyDeriver, error) {
	if appName == "" {
		appName = cryptoDomain.DefaultAppName
	}
	if size <= 0 {
		size = DefaultDerivedKeyCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create derived key cache: %w", err)
	}
	return &KeyDeriver{appName: appName, cache: cache}, nil
}

// Derive returns the cached tenant key for masterKey, deriving it on a miss.
// The returned slice is shared and must not be modified.
func (d *KeyDeriver) Derive(masterKey *cryptoDomain.MasterKey, tenantID string) ([]byte, error) {
	if tenantID == "" {
		tenantID = cryptoDomain.DefaultTenant
	}
	cacheKey := masterKey.Fingerprint() + ":" + tenantID
	if key, ok := d.cache.Get(cacheKey); ok {
		return key, nil
	}

	key, err := deriveKey(masterKey.Bytes(), tenantID, d.appName)
	if err != nil {
		return nil, err
	}
	d.cache.Add(cacheKey, key)
	return key, nil
}

// DeriveUncached derives a tenant key without reading or writing the cache.
// The rotation sweep uses it so that old and new key material never enters the
// shared cache. The caller owns the returned slice.
func (d *KeyDeriver) DeriveUncached(masterKey []byte, tenantID string) ([]byte, error) {
	return deriveKey(masterKey, tenantID, d.appName)
}

// Purge drops every cached tenant key.
func (d *KeyDeriver) Purge() {
	d.cache.Purge()
}

// Len returns the number of cached tenant keys.
func (d *KeyDeriver) Len() int {
	return d.cache.Len()
}
