package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// secretsPreloader warms the secrets cache.
type secretsPreloader interface {
	Preload(ctx context.Context) secretsDomain.PreloadResult
}

// RunPreloadSecrets fetches every known secret and reports which ones resolved.
// Missing secrets are not an error.
func RunPreloadSecrets(
	ctx context.Context,
	vault secretsPreloader,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	result := vault.Preload(ctx)
	logger.Info("secrets preloaded",
		slog.Int("loaded", len(result.Loaded)),
		slog.Int("missing", len(result.Missing)),
	)

	if format == "json" {
		return writeJSON(writer, result)
	}

	_, _ = fmt.Fprintf(writer, "Loaded %d of %d known secrets\n",
		len(result.Loaded), len(result.Loaded)+len(result.Missing))
	for _, name := range result.Loaded {
		_, _ = fmt.Fprintf(writer, "  ok       %s\n", name)
	}
	for _, name := range result.Missing {
		_, _ = fmt.Fprintf(writer, "  missing  %s\n", name)
	}
	return nil
}
