package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

type stubPreloader struct {
	result secretsDomain.PreloadResult
}

func (s stubPreloader) Preload(context.Context) secretsDomain.PreloadResult {
	return s.result
}

func TestRunPreloadSecrets(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault := stubPreloader{result: secretsDomain.PreloadResult{
		Loaded:  []string{"database_url", "encryption_master_key"},
		Missing: []string{"smtp_password"},
	}}

	t.Run("success-text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunPreloadSecrets(ctx, vault, logger, &out, "text"))

		output := out.String()
		assert.Contains(t, output, "Loaded 2 of 3 known secrets")
		assert.Contains(t, output, "missing  smtp_password")
	})

	t.Run("success-json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunPreloadSecrets(ctx, vault, logger, &out, "json"))

		var body secretsDomain.PreloadResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &body))
		assert.Equal(t, vault.result, body)
	})

	t.Run("invalid-format", func(t *testing.T) {
		var out bytes.Buffer
		assert.Error(t, RunPreloadSecrets(ctx, vault, logger, &out, "xml"))
	})
}
