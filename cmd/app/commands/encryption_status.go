package commands

import (
	"context"
	"fmt"
	"io"

	cryptoUseCase "github.com/trustchecker/atrest/internal/crypto/usecase"
)

// RunEncryptionStatus loads the master key and prints the encryption status.
func RunEncryptionStatus(
	ctx context.Context,
	encryption cryptoUseCase.EncryptionUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if err := encryption.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}

	status, err := encryption.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get encryption status: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, status)
	}

	state := "inactive"
	if status.Active {
		state = "active"
	}
	_, _ = fmt.Fprintf(writer, "Field encryption: %s\n", state)
	_, _ = fmt.Fprintf(writer, "  algorithm:      %s\n", status.Algorithm)
	_, _ = fmt.Fprintf(writer, "  failure policy: %s\n", status.FailurePolicy)
	if status.KeyFingerprint != "" {
		_, _ = fmt.Fprintf(writer, "  key:            %s\n", status.KeyFingerprint)
	}
	_, _ = fmt.Fprintf(writer, "  kms wrapped:    %t\n", status.KMSWrapped)
	_, _ = fmt.Fprintf(writer, "  pii fields:     %d across %d models\n", status.TotalPiiFields, status.PiiModels)
	if run := status.LastRotation; run != nil {
		_, _ = fmt.Fprintf(writer, "  last rotation:  %s %s (%d re-encrypted, %d errors)\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.Status, run.Reencrypted, run.Errors)
	}
	return nil
}
