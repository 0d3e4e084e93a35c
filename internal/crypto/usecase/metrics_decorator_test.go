package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	"github.com/trustchecker/atrest/internal/metrics"
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
	m.On("RecordOperation", mock.Anything, "encryption", operation, status).Return().Once()
	m.On("RecordDuration", mock.Anything, "encryption", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

// stubRotationUseCase returns a canned result.
type stubRotationUseCase struct {
	summary *cryptoDomain.RotationSummary
	err     error
}

func (s *stubRotationUseCase) Rotate(ctx context.Context, oldKey, newKey []byte) (*cryptoDomain.RotationSummary, error) {
	return s.summary, s.err
}

func (s *stubRotationUseCase) RotateActive(ctx context.Context, newKeyHex string) (*cryptoDomain.MasterKeyRotation, error) {
	if s.summary == nil {
		return nil, s.err
	}
	return &cryptoDomain.MasterKeyRotation{Summary: s.summary}, s.err
}

// stubEncryptionUseCase returns a canned result.
type stubEncryptionUseCase struct {
	err error
}

func (s *stubEncryptionUseCase) Initialize(ctx context.Context) error {
	return s.err
}

func (s *stubEncryptionUseCase) Status(ctx context.Context) (*cryptoDomain.EncryptionStatus, error) {
	return &cryptoDomain.EncryptionStatus{Active: true}, nil
}

func TestRotationMetricsDecorator_Rotate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		inner  *stubRotationUseCase
		status string
	}{
		{
			name:   "Success_Completed",
			inner:  &stubRotationUseCase{summary: &cryptoDomain.RotationSummary{Status: cryptoDomain.RotationCompleted}},
			status: "completed",
		},
		{
			name: "Error_Aborted",
			inner: &stubRotationUseCase{
				summary: &cryptoDomain.RotationSummary{Status: cryptoDomain.RotationAborted},
				err:     cryptoDomain.ErrRotationAborted,
			},
			status: "aborted",
		},
		{
			name:   "Error_Rejected",
			inner:  &stubRotationUseCase{err: cryptoDomain.ErrRotationInProgress},
			status: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockBusinessMetrics{}
			expectRecord(m, "key_rotation", tt.status)

			summary, err := NewRotationUseCaseWithMetrics(tt.inner, m).Rotate(ctx, nil, nil)

			assert.Equal(t, tt.inner.summary, summary)
			assert.Equal(t, tt.inner.err, err)
			m.AssertExpectations(t)
		})

		t.Run(tt.name+"_Active", func(t *testing.T) {
			m := &mockBusinessMetrics{}
			expectRecord(m, "key_rotation", tt.status)

			result, err := NewRotationUseCaseWithMetrics(tt.inner, m).RotateActive(ctx, "")

			if tt.inner.summary == nil {
				assert.Nil(t, result)
			} else {
				require.NotNil(t, result)
				assert.Equal(t, tt.inner.summary, result.Summary)
			}
			assert.Equal(t, tt.inner.err, err)
			m.AssertExpectations(t)
		})
	}
}

func TestEncryptionMetricsDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Initialize", func(t *testing.T) {
		m := &mockBusinessMetrics{}
		expectRecord(m, "encryption_initialize", "success")

		require.NoError(t, NewEncryptionUseCaseWithMetrics(&stubEncryptionUseCase{}, m).Initialize(ctx))
		m.AssertExpectations(t)
	})

	t.Run("Error_Initialize", func(t *testing.T) {
		m := &mockBusinessMetrics{}
		expectRecord(m, "encryption_initialize", "error")

		err := NewEncryptionUseCaseWithMetrics(&stubEncryptionUseCase{err: errors.New("boom")}, m).Initialize(ctx)
		assert.Error(t, err)
		m.AssertExpectations(t)
	})

	t.Run("Success_StatusNotRecorded", func(t *testing.T) {
		m := &mockBusinessMetrics{}

		status, err := NewEncryptionUseCaseWithMetrics(&stubEncryptionUseCase{}, m).Status(ctx)
		require.NoError(t, err)
		assert.True(t, status.Active)
		m.AssertNotCalled(t, "RecordOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
