package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// VaultConfig configures the Vault KV-v2 provider.
type VaultConfig struct {
	Address string
	Token   string
	// Mount is the KV-v2 mount path. Defaults to "secret".
	Mount   string
	Prefix  string
	Timeout time.Duration
}

// VaultProvider stores each secret at <mount>/data/<prefix><name> under the
// "value" field of a KV-v2 entry.
type VaultProvider struct {
	client  *vault.Client
	mount   string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewVaultProvider creates a Vault client without contacting the server.
func NewVaultProvider(cfg VaultConfig, logger *slog.Logger) (*VaultProvider, error) {
	if cfg.Mount == "" {
		cfg.Mount = "secret"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	vaultCfg := vault.DefaultConfig()
	if vaultCfg.Error != nil {
		return nil, fmt.Errorf("failed to build Vault config: %w", vaultCfg.Error)
	}
	vaultCfg.Address = cfg.Address
	vaultCfg.Timeout = cfg.Timeout
	vaultCfg.MaxRetries = 0

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultProvider{
		client:  client,
		mount:   strings.Trim(cfg.Mount, "/"),
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Name implements Provider.
func (p *VaultProvider) Name() string {
	return NameVault
}

func (p *VaultProvider) dataPath(name string) string {
	return fmt.Sprintf("%s/data/%s%s", p.mount, p.prefix, name)
}

// Get implements Provider. A 404 or an entry without a "value" field is not found.
func (p *VaultProvider) Get(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	secret, err := p.client.Logical().ReadWithContext(ctx, p.dataPath(name))
	if err != nil {
		if isNotFound(err) {
			return "", secretsDomain.ErrSecretNotFound
		}
		p.logger.Warn("vault read failed", slog.String("key", name), slog.Any("error", err))
		return "", fmt.Errorf("%w: vault read %s: %v", secretsDomain.ErrProviderUnavailable, name, err)
	}
	if secret == nil || secret.Data == nil {
		return "", secretsDomain.ErrSecretNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", secretsDomain.ErrSecretNotFound
	}
	value, ok := data["value"].(string)
	if !ok || value == "" {
		return "", secretsDomain.ErrSecretNotFound
	}
	return value, nil
}

// Set implements Provider.
func (p *VaultProvider) Set(ctx context.Context, name, value string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.client.Logical().WriteWithContext(ctx, p.dataPath(name), map[string]interface{}{
		"data": map[string]interface{}{"value": value},
	})
	if err != nil {
		return fmt.Errorf("%w: vault write %s: %v", secretsDomain.ErrProviderUnavailable, name, err)
	}
	return nil
}

// List implements Provider. Sub-folders under the prefix are skipped.
func (p *VaultProvider) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	secret, err := p.client.Logical().ListWithContext(ctx, fmt.Sprintf("%s/metadata/%s", p.mount, p.prefix))
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: vault list: %v", secretsDomain.ErrProviderUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return []string{}, nil
	}

	raw, _ := secret.Data["keys"].([]interface{})
	names := make([]string, 0, len(raw))
	for _, k := range raw {
		name, ok := k.(string)
		if !ok || strings.HasSuffix(name, "/") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func isNotFound(err error) bool {
	var apiErr *vault.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}
