package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoUseCase "github.com/trustchecker/atrest/internal/crypto/usecase"
	adminHTTP "github.com/trustchecker/atrest/internal/http"
	customValidation "github.com/trustchecker/atrest/internal/validation"
)

// rotationClient reaches the admin API of a running server.
type rotationClient interface {
	Healthy(ctx context.Context) bool
	Rotate(ctx context.Context, newKeyHex string) (*adminHTTP.RotateResponse, error)
}

// RunRotateMasterKey asks the running server to re-encrypt every PII field
// under a new master key. The sweep and the keyring swap happen inside the
// server so live traffic moves to the new key at once.
//
// newKeyHex may be empty, in which case the server generates a key when its
// secrets provider can store it. If the sweep committed but persisting failed,
// the new key is printed so it can be stored by hand.
func RunRotateMasterKey(
	ctx context.Context,
	client rotationClient,
	logger *slog.Logger,
	writer io.Writer,
	newKeyHex, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if newKeyHex != "" {
		if err := validation.Validate(newKeyHex, customValidation.HexKey256); err != nil {
			return customValidation.WrapValidationError(fmt.Errorf("new key: %w", err))
		}
	}

	logger.Info("requesting master key rotation from server", slog.Bool("generate_key", newKeyHex == ""))

	resp, err := client.Rotate(ctx, newKeyHex)
	if err != nil {
		if errors.Is(err, errServerUnreachable) {
			return fmt.Errorf("%w (use --offline when no server is running)", err)
		}
		return fmt.Errorf("failed to rotate master key: %w", err)
	}
	return reportRotation(writer, resp, format)
}

// RunRotateMasterKeyOffline rotates in this process. It refuses while a server
// answers on the admin address, since that server would keep the old key.
func RunRotateMasterKeyOffline(
	ctx context.Context,
	client rotationClient,
	encryption cryptoUseCase.EncryptionUseCase,
	rotation cryptoUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	newKeyHex, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if client.Healthy(ctx) {
		return errors.New("a server is running, rotate through it so its keyring swaps (drop --offline)")
	}

	if err := encryption.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to load current master key: %w", err)
	}

	logger.Info("starting offline master key rotation")

	result, err := rotation.RotateActive(ctx, newKeyHex)
	if result == nil {
		if errors.Is(err, cryptoDomain.ErrEncryptionInactive) {
			return errors.New("no active master key, nothing to rotate (use create-master-key instead)")
		}
		return fmt.Errorf("failed to rotate master key: %w", err)
	}

	resp := adminHTTP.NewRotateResponse(result, err)
	return reportRotation(writer, &resp, format)
}

func reportRotation(writer io.Writer, resp *adminHTTP.RotateResponse, format string) error {
	if resp.NewKey != "" {
		_, _ = fmt.Fprintln(writer, "# WARNING: rotation committed but the new key was not persisted")
		_, _ = fmt.Fprintln(writer, "# Store this value as encryption_master_key before restarting")
		_, _ = fmt.Fprintf(writer, "ENCRYPTION_MASTER_KEY=\"%s\"\n", resp.NewKey)
	}

	if err := outputRotationSummary(writer, resp, format); err != nil {
		return err
	}

	if resp.Status != cryptoDomain.RotationCompleted {
		return fmt.Errorf("master key rotation %s: %s", resp.Status, resp.Error)
	}
	if !resp.Persisted {
		return fmt.Errorf("%w: %s", cryptoDomain.ErrMasterKeyNotPersisted, resp.Error)
	}
	return nil
}

func outputRotationSummary(writer io.Writer, resp *adminHTTP.RotateResponse, format string) error {
	if format == "json" {
		return writeJSON(writer, map[string]any{
			"run_id":          resp.RunID,
			"status":          resp.Status,
			"reencrypted":     resp.Reencrypted,
			"errors":          resp.Errors,
			"new_fingerprint": resp.NewFingerprint,
			"generated":       resp.Generated,
			"persisted":       resp.Persisted,
		})
	}

	_, _ = fmt.Fprintf(writer, "Rotation run %s: %s\n", resp.RunID, resp.Status)
	_, _ = fmt.Fprintf(writer, "  re-encrypted fields: %d\n", resp.Reencrypted)
	_, _ = fmt.Fprintf(writer, "  failed records:      %d\n", resp.Errors)
	if resp.Status == cryptoDomain.RotationCompleted {
		_, _ = fmt.Fprintf(writer, "  active key:          %s\n", resp.NewFingerprint)
	}
	return nil
}
