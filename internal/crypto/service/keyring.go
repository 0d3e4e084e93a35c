package service

import (
	"sync/atomic"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
)

// Keyring holds the process-wide active master key.
//
// Readers load the pointer once per operation so they never see a torn key. After
// bootstrap only the rotation orchestrator calls Activate, once, after its sweep
// has finished.
type Keyring struct {
	active   atomic.Pointer[cryptoDomain.MasterKey]
	rotating atomic.Bool
}

// NewKeyring creates an empty (inactive) keyring.
func NewKeyring() *Keyring {
	return &Keyring{}
}

// Active returns the active master key, or nil when encryption is inactive.
func (k *Keyring) Active() *cryptoDomain.MasterKey {
	return k.active.Load()
}

// Activate publishes key as the active master key and returns the previous one.
func (k *Keyring) Activate(key *cryptoDomain.MasterKey) *cryptoDomain.MasterKey {
	return k.active.Swap(key)
}

// BeginRotation marks a rotation as running. It returns false if one already is.
func (k *Keyring) BeginRotation() bool {
	return k.rotating.CompareAndSwap(false, true)
}

// EndRotation clears the rotation flag.
func (k *Keyring) EndRotation() {
	k.rotating.Store(false)
}

// Rotating reports whether a rotation sweep is running.
func (k *Keyring) Rotating() bool {
	return k.rotating.Load()
}
