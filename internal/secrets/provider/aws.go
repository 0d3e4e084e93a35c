//go:build !noawssm

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// secretsManagerAPI is the subset of *secretsmanager.Client used by AWSProvider.
type secretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(
		ctx context.Context,
		params *secretsmanager.PutSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(
		ctx context.Context,
		params *secretsmanager.CreateSecretInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.CreateSecretOutput, error)
	ListSecrets(
		ctx context.Context,
		params *secretsmanager.ListSecretsInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.ListSecretsOutput, error)
}

// AWSProvider reads secrets from AWS Secrets Manager. SecretId is <prefix><name>
// and SecretString is either {"value": "..."} or the raw value.
//
// The SDK client is built on first use so an unused provider never loads AWS
// configuration or credentials.
type AWSProvider struct {
	cfg       AWSConfig
	logger    *slog.Logger
	newClient func(ctx context.Context) (secretsManagerAPI, error)

	once      sync.Once
	client    secretsManagerAPI
	clientErr error
}

// NewAWSProvider creates an AWSProvider.
func NewAWSProvider(_ context.Context, cfg AWSConfig, logger *slog.Logger) (*AWSProvider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	p := &AWSProvider{cfg: cfg, logger: logger}
	p.newClient = p.loadClient
	return p, nil
}

func (p *AWSProvider) loadClient(ctx context.Context) (secretsManagerAPI, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(p.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// getClient builds the client once. The build is detached from the caller's
// cancellation, since its result is shared by every later call, and bounded by
// the provider timeout instead.
func (p *AWSProvider) getClient(ctx context.Context) (secretsManagerAPI, error) {
	p.once.Do(func() {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
		defer cancel()
		p.client, p.clientErr = p.newClient(buildCtx)
		if p.clientErr != nil {
			p.logger.Warn("aws secrets manager client unavailable", slog.Any("error", p.clientErr))
		}
	})
	if p.clientErr != nil {
		return nil, fmt.Errorf("%w: %v", secretsDomain.ErrProviderUnavailable, p.clientErr)
	}
	return p.client, nil
}

// Name implements Provider.
func (p *AWSProvider) Name() string {
	return NameAWS
}

// Get implements Provider.
func (p *AWSProvider) Get(ctx context.Context, name string) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.cfg.Prefix + name),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return "", secretsDomain.ErrSecretNotFound
		}
		p.logger.Warn("aws secrets manager read failed", slog.String("key", name), slog.Any("error", err))
		return "", fmt.Errorf("%w: aws read %s: %v", secretsDomain.ErrProviderUnavailable, name, err)
	}

	value := parseSecretString(aws.ToString(out.SecretString))
	if value == "" {
		return "", secretsDomain.ErrSecretNotFound
	}
	return value, nil
}

// Set implements Provider. A missing secret is created.
func (p *AWSProvider) Set(ctx context.Context, name, value string) error {
	client, err := p.getClient(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return err
	}

	_, err = client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(p.cfg.Prefix + name),
		SecretString: aws.String(string(payload)),
	})
	if isResourceNotFound(err) {
		_, err = client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(p.cfg.Prefix + name),
			SecretString: aws.String(string(payload)),
		})
	}
	if err != nil {
		return fmt.Errorf("%w: aws write %s: %v", secretsDomain.ErrProviderUnavailable, name, err)
	}
	return nil
}

// List implements Provider. Names are returned without the prefix.
func (p *AWSProvider) List(ctx context.Context) ([]string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	paginator := secretsmanager.NewListSecretsPaginator(client, &secretsmanager.ListSecretsInput{
		Filters: []types.Filter{{Key: types.FilterNameStringTypeName, Values: []string{p.cfg.Prefix}}},
	})

	names := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: aws list: %v", secretsDomain.ErrProviderUnavailable, err)
		}
		for _, entry := range page.SecretList {
			full := aws.ToString(entry.Name)
			if !strings.HasPrefix(full, p.cfg.Prefix) {
				continue
			}
			names = append(names, strings.TrimPrefix(full, p.cfg.Prefix))
		}
	}
	return names, nil
}

// parseSecretString unwraps {"value": "..."} and otherwise returns s unchanged.
func parseSecretString(s string) string {
	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(s), &wrapped); err == nil && wrapped.Value != "" {
		return wrapped.Value
	}
	return s
}

func isResourceNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == (&types.ResourceNotFoundException{}).ErrorCode()
	}
	return false
}
