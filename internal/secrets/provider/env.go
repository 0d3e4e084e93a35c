package provider

import (
	"context"
	"os"
	"strings"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// EnvProvider reads secrets from process environment variables. A name maps to
// its uppercase form with "-" replaced by "_" (jwt_secret -> JWT_SECRET).
type EnvProvider struct{}

// NewEnvProvider creates an EnvProvider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// EnvVarName returns the environment variable holding name.
func EnvVarName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Name implements Provider.
func (p *EnvProvider) Name() string {
	return NameEnv
}

// Get implements Provider.
func (p *EnvProvider) Get(_ context.Context, name string) (string, error) {
	value := os.Getenv(EnvVarName(name))
	if value == "" {
		return "", secretsDomain.ErrSecretNotFound
	}
	return value, nil
}

// Set mutates the in-process environment only.
func (p *EnvProvider) Set(_ context.Context, name, value string) error {
	return os.Setenv(EnvVarName(name), value)
}

// List returns the known secret names that are currently set.
func (p *EnvProvider) List(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(secretsDomain.KnownSecretNames))
	for _, name := range secretsDomain.KnownSecretNames {
		if os.Getenv(EnvVarName(name)) != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
