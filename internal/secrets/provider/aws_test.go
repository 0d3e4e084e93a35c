//go:build !noawssm

package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

type mockSecretsManager struct {
	mock.Mock
}

func (m *mockSecretsManager) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

func (m *mockSecretsManager) PutSecretValue(
	ctx context.Context,
	params *secretsmanager.PutSecretValueInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.PutSecretValueOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.PutSecretValueOutput), args.Error(1)
}

func (m *mockSecretsManager) CreateSecret(
	ctx context.Context,
	params *secretsmanager.CreateSecretInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.CreateSecretOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.CreateSecretOutput), args.Error(1)
}

func (m *mockSecretsManager) ListSecrets(
	ctx context.Context,
	params *secretsmanager.ListSecretsInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.ListSecretsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.ListSecretsOutput), args.Error(1)
}

func newTestAWSProvider(t *testing.T, client secretsManagerAPI, clientErr error) (*AWSProvider, *int) {
	t.Helper()
	p, err := NewAWSProvider(context.Background(), AWSConfig{
		Region: "eu-west-1",
		Prefix: "trustchecker/",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	calls := 0
	p.newClient = func(context.Context) (secretsManagerAPI, error) {
		calls++
		return client, clientErr
	}
	return p, &calls
}

func secretIDIs(id string) any {
	return mock.MatchedBy(func(in *secretsmanager.GetSecretValueInput) bool {
		return aws.ToString(in.SecretId) == id
	})
}

func TestAWSProvider_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_JSONValue", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("GetSecretValue", mock.Anything, secretIDIs("trustchecker/jwt_secret")).
			Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"value":"wrapped"}`)}, nil)
		p, _ := newTestAWSProvider(t, client, nil)

		value, err := p.Get(ctx, "jwt_secret")
		require.NoError(t, err)
		assert.Equal(t, "wrapped", value)
		client.AssertExpectations(t)
	})

	t.Run("Success_RawValue", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("GetSecretValue", mock.Anything, secretIDIs("trustchecker/redis_url")).
			Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("redis://cache:6379")}, nil)
		p, _ := newTestAWSProvider(t, client, nil)

		value, err := p.Get(ctx, "redis_url")
		require.NoError(t, err)
		assert.Equal(t, "redis://cache:6379", value)
	})

	t.Run("Error_ResourceNotFound", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("GetSecretValue", mock.Anything, mock.Anything).
			Return(nil, &types.ResourceNotFoundException{Message: aws.String("missing")})
		p, _ := newTestAWSProvider(t, client, nil)

		_, err := p.Get(ctx, "stripe_key")
		assert.ErrorIs(t, err, secretsDomain.ErrSecretNotFound)
	})

	t.Run("Error_TransportFailure", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("GetSecretValue", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout"))
		p, _ := newTestAWSProvider(t, client, nil)

		_, err := p.Get(ctx, "stripe_key")
		assert.ErrorIs(t, err, secretsDomain.ErrProviderUnavailable)
	})

	t.Run("Success_ClientBuiltOnce", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("GetSecretValue", mock.Anything, mock.Anything).
			Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("v")}, nil)
		p, calls := newTestAWSProvider(t, client, nil)

		_, _ = p.Get(ctx, "a")
		_, _ = p.Get(ctx, "b")
		assert.Equal(t, 1, *calls)
	})

	t.Run("Success_CancelledFirstCallerDoesNotPoisonClient", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("GetSecretValue", mock.Anything, mock.Anything).
			Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("v")}, nil)
		p, _ := newTestAWSProvider(t, client, nil)

		var buildErr error
		var hasDeadline bool
		p.newClient = func(buildCtx context.Context) (secretsManagerAPI, error) {
			buildErr = buildCtx.Err()
			_, hasDeadline = buildCtx.Deadline()
			if buildErr != nil {
				return nil, buildErr
			}
			return client, nil
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, _ = p.Get(cancelled, "jwt_secret")

		require.NoError(t, buildErr)
		assert.True(t, hasDeadline)

		value, err := p.Get(ctx, "jwt_secret")
		require.NoError(t, err)
		assert.Equal(t, "v", value)
	})

	t.Run("Error_ClientUnavailable", func(t *testing.T) {
		p, calls := newTestAWSProvider(t, nil, errors.New("no credentials"))

		_, err := p.Get(ctx, "a")
		assert.ErrorIs(t, err, secretsDomain.ErrProviderUnavailable)
		_, err = p.List(ctx)
		assert.ErrorIs(t, err, secretsDomain.ErrProviderUnavailable)
		assert.Equal(t, 1, *calls)
	})
}

func TestAWSProvider_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PutWrapsValue", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("PutSecretValue", mock.Anything, mock.MatchedBy(func(in *secretsmanager.PutSecretValueInput) bool {
			return aws.ToString(in.SecretId) == "trustchecker/jwt_secret" &&
				aws.ToString(in.SecretString) == `{"value":"new"}`
		})).Return(&secretsmanager.PutSecretValueOutput{}, nil)
		p, _ := newTestAWSProvider(t, client, nil)

		require.NoError(t, p.Set(ctx, "jwt_secret", "new"))
		client.AssertExpectations(t)
	})

	t.Run("Success_CreatesMissingSecret", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("PutSecretValue", mock.Anything, mock.Anything).
			Return(nil, &types.ResourceNotFoundException{Message: aws.String("missing")})
		client.On("CreateSecret", mock.Anything, mock.MatchedBy(func(in *secretsmanager.CreateSecretInput) bool {
			return aws.ToString(in.Name) == "trustchecker/jwt_secret"
		})).Return(&secretsmanager.CreateSecretOutput{}, nil)
		p, _ := newTestAWSProvider(t, client, nil)

		require.NoError(t, p.Set(ctx, "jwt_secret", "new"))
		client.AssertExpectations(t)
	})

	t.Run("Error_PutFails", func(t *testing.T) {
		client := &mockSecretsManager{}
		client.On("PutSecretValue", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
		p, _ := newTestAWSProvider(t, client, nil)

		err := p.Set(ctx, "jwt_secret", "new")
		assert.ErrorIs(t, err, secretsDomain.ErrProviderUnavailable)
	})
}

func TestAWSProvider_List(t *testing.T) {
	client := &mockSecretsManager{}
	client.On("ListSecrets", mock.Anything, mock.Anything).Return(&secretsmanager.ListSecretsOutput{
		SecretList: []types.SecretListEntry{
			{Name: aws.String("trustchecker/jwt_secret")},
			{Name: aws.String("trustchecker/stripe_key")},
			{Name: aws.String("other/thing")},
		},
	}, nil)
	p, _ := newTestAWSProvider(t, client, nil)

	names, err := p.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"jwt_secret", "stripe_key"}, names)
	assert.Equal(t, "aws-sm", p.Name())
}
