package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/trustchecker/atrest/internal/metrics"
	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func expectRecord(m *mockBusinessMetrics, operation, status string) {
	m.On("RecordOperation", mock.Anything, "secrets", operation, status).Return().Once()
	m.On("RecordDuration", mock.Anything, "secrets", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestNewSecretsVaultWithMetrics(t *testing.T) {
	decorator := NewSecretsVaultWithMetrics(NewSecretsVault(newFakeProvider("env", nil), Options{}, nil), &mockBusinessMetrics{})

	assert.NotNil(t, decorator)
	assert.Implements(t, (*SecretsVault)(nil), decorator)
}

func TestMetricsDecorator_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		inner, _ := newTestVault(newFakeProvider("vault", map[string]string{"jwt_secret": "v"}))
		m := &mockBusinessMetrics{}
		expectRecord(m, "secrets_get", "success")

		value, ok := NewSecretsVaultWithMetrics(inner, m).Get(ctx, "jwt_secret")

		assert.True(t, ok)
		assert.Equal(t, "v", value)
		m.AssertExpectations(t)
	})

	t.Run("Success_RecordsNotFound", func(t *testing.T) {
		inner, _ := newTestVault(newFakeProvider("vault", nil))
		m := &mockBusinessMetrics{}
		expectRecord(m, "secrets_get", "not_found")

		_, ok := NewSecretsVaultWithMetrics(inner, m).Get(ctx, "jwt_secret")

		assert.False(t, ok)
		m.AssertExpectations(t)
	})
}

func TestMetricsDecorator_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		inner, _ := newTestVault(newFakeProvider("vault", nil))
		m := &mockBusinessMetrics{}
		expectRecord(m, "secrets_set", "success")

		err := NewSecretsVaultWithMetrics(inner, m).Set(ctx, "jwt_secret", "v")

		assert.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		p := newFakeProvider("vault", nil)
		p.failSet = errors.New("sealed")
		inner, _ := newTestVault(p)
		m := &mockBusinessMetrics{}
		expectRecord(m, "secrets_set", "error")

		err := NewSecretsVaultWithMetrics(inner, m).Set(ctx, "jwt_secret", "v")

		assert.Error(t, err)
		m.AssertExpectations(t)
	})
}

func TestMetricsDecorator_Preload(t *testing.T) {
	inner, _ := newTestVault(newFakeProvider("vault", map[string]string{"jwt_secret": "v"}))
	m := &mockBusinessMetrics{}
	expectRecord(m, "secrets_preload", "partial")
	// Preload goes through the inner vault, so individual reads are not recorded.

	result := NewSecretsVaultWithMetrics(inner, m).Preload(context.Background())

	assert.Equal(t, []string{secretsDomain.JWTSecret}, result.Loaded)
	m.AssertExpectations(t)
}

func TestMetricsDecorator_GetRequiredAndCheckRotation(t *testing.T) {
	ctx := context.Background()
	inner, _ := newTestVault(newFakeProvider("vault", nil))
	m := &mockBusinessMetrics{}
	expectRecord(m, "secrets_get_required", "error")
	expectRecord(m, "secrets_rotation_check", "unchanged")

	d := NewSecretsVaultWithMetrics(inner, m)
	_, err := d.GetRequired(ctx, "jwt_secret")
	assert.ErrorIs(t, err, secretsDomain.ErrSecretNotFound)
	assert.Equal(t, 0, d.CheckRotation(ctx))

	m.AssertExpectations(t)
}
