package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoService "github.com/trustchecker/atrest/internal/crypto/service"
)

// RunCreateMasterKey generates a new 256-bit master key and prints it as the
// ENCRYPTION_MASTER_KEY value. When kmsKeyURI is set the key is wrapped with
// that KMS key and the base64 ciphertext is printed instead.
//
// For local development use kmsKeyURI="base64key://<32-byte-base64-key>". Never
// use base64key:// in production.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	keyHex, err := cryptoDomain.GenerateMasterKey()
	if err != nil {
		return err
	}

	stored := keyHex
	if kmsKeyURI != "" {
		stored, err = cryptoService.WrapMasterKey(ctx, kmsService, kmsKeyURI, keyHex)
		if err != nil {
			return err
		}
	}

	key, err := cryptoDomain.ParseMasterKeyHex(keyHex)
	if err != nil {
		return err
	}
	defer key.Close()

	logger.Info("master key generated",
		slog.String("key_fingerprint", key.Fingerprint()),
		slog.Bool("kms_wrapped", kmsKeyURI != ""),
	)

	_, _ = fmt.Fprintln(writer, "# Field encryption master key")
	_, _ = fmt.Fprintln(writer, "# Store this value as encryption_master_key in your secrets backend")
	_, _ = fmt.Fprintf(writer, "# Fingerprint: %s\n", key.Fingerprint())
	_, _ = fmt.Fprintln(writer)
	if kmsKeyURI != "" {
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	}
	_, _ = fmt.Fprintf(writer, "ENCRYPTION_MASTER_KEY=\"%s\"\n", stored)

	return nil
}
