package service

import (
	"context"
	"encoding/base64"
	"errors"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	apperrors "github.com/trustchecker/atrest/internal/errors"
)

// WrapMasterKey encrypts the hex master key with the KMS key at keyURI and
// returns the base64 ciphertext stored as encryption_master_key.
func WrapMasterKey(ctx context.Context, kms KMSService, keyURI, keyHex string) (wrapped string, err error) {
	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, keeper.Close())
	}()

	ciphertext, err := keeper.Encrypt(ctx, []byte(keyHex))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to wrap master key with kms")
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// UnwrapMasterKey reverses WrapMasterKey.
func UnwrapMasterKey(ctx context.Context, kms KMSService, keyURI, wrapped string) (keyHex string, err error) {
	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return "", apperrors.Wrap(cryptoDomain.ErrInvalidMasterKey, "kms-wrapped master key is not base64")
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, keeper.Close())
	}()

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to unwrap master key with kms")
	}
	defer cryptoDomain.Zero(plaintext)

	return string(plaintext), nil
}
