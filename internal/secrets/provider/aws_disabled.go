//go:build noawssm

package provider

import (
	"context"
	"log/slog"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// AWSProvider is not available in builds tagged noawssm.
type AWSProvider struct{}

// NewAWSProvider always returns ErrProviderNotCompiled.
func NewAWSProvider(_ context.Context, _ AWSConfig, _ *slog.Logger) (*AWSProvider, error) {
	return nil, secretsDomain.ErrProviderNotCompiled
}

// Name implements Provider.
func (p *AWSProvider) Name() string { return NameAWS }

// Get implements Provider.
func (p *AWSProvider) Get(context.Context, string) (string, error) {
	return "", secretsDomain.ErrProviderNotCompiled
}

// Set implements Provider.
func (p *AWSProvider) Set(context.Context, string, string) error {
	return secretsDomain.ErrProviderNotCompiled
}

// List implements Provider.
func (p *AWSProvider) List(context.Context) ([]string, error) {
	return nil, secretsDomain.ErrProviderNotCompiled
}
