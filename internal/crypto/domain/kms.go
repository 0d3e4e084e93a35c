package domain

import "context"

// KMSKeeper unwraps and wraps the stored master key with an external KMS.
//
// *gocloud.dev/secrets.Keeper satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
