package provider

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{
			name:     "vault when address and token are set",
			cfg:      Config{VaultAddr: "http://127.0.0.1:8200", VaultToken: "t", AWSRegion: "eu-west-1"},
			expected: NameVault,
		},
		{
			name:     "env when vault token is missing",
			cfg:      Config{VaultAddr: "http://127.0.0.1:8200"},
			expected: NameEnv,
		},
		{
			name:     "env when env override is forced",
			cfg:      Config{AWSRegion: "eu-west-1", UseEnv: true},
			expected: NameEnv,
		},
		{
			name:     "env by default",
			cfg:      Config{},
			expected: NameEnv,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(ctx, tt.cfg, logger)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Name())
		})
	}
}
