package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	apperrors "github.com/trustchecker/atrest/internal/errors"
	adminHTTP "github.com/trustchecker/atrest/internal/http"
	"github.com/trustchecker/atrest/internal/httputil"
)

const testAdminToken = "0123456789abcdef0123"

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestAdminClient_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SendsTokenAndKey", func(t *testing.T) {
		var got adminHTTP.RotateRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/encryption/rotate", r.URL.Path)
			assert.Equal(t, "Bearer "+testAdminToken, r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeTestJSON(t, w, http.StatusOK, adminHTTP.RotateResponse{
				RunID:       "run-1",
				Status:      cryptoDomain.RotationCompleted,
				Reencrypted: 4,
				Persisted:   true,
			})
		}))
		defer server.Close()

		client := NewAdminClient(server.URL+"/", testAdminToken, time.Minute)
		resp, err := client.Rotate(ctx, "abcd")
		require.NoError(t, err)
		assert.Equal(t, "abcd", got.NewKey)
		assert.Equal(t, "run-1", resp.RunID)
		assert.Equal(t, 4, resp.Reencrypted)
		assert.True(t, resp.Persisted)
	})

	t.Run("Success_AbortedRunIsReturned", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusInternalServerError, adminHTTP.RotateResponse{
				RunID:  "run-2",
				Status: cryptoDomain.RotationAborted,
				Error:  "key rotation aborted",
			})
		}))
		defer server.Close()

		resp, err := NewAdminClient(server.URL, testAdminToken, time.Minute).Rotate(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, cryptoDomain.RotationAborted, resp.Status)
	})

	errorCases := []struct {
		name   string
		status int
		target error
	}{
		{"Error_Unauthorized", http.StatusUnauthorized, apperrors.ErrUnauthorized},
		{"Error_Locked", http.StatusLocked, apperrors.ErrLocked},
		{"Error_Conflict", http.StatusConflict, apperrors.ErrConflict},
		{"Error_InvalidInput", http.StatusUnprocessableEntity, apperrors.ErrInvalidInput},
		{"Error_Unavailable", http.StatusServiceUnavailable, apperrors.ErrUnavailable},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeTestJSON(t, w, tc.status, httputil.ErrorResponse{Error: "x", Message: "rejected by server"})
			}))
			defer server.Close()

			resp, err := NewAdminClient(server.URL, testAdminToken, time.Minute).Rotate(ctx, "")
			require.ErrorIs(t, err, tc.target)
			assert.Nil(t, resp)
			assert.NotErrorIs(t, err, errServerUnreachable)
		})
	}

	t.Run("Error_RouteDisabled", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := NewAdminClient(server.URL, testAdminToken, time.Minute).Rotate(ctx, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_TOKEN")
	})

	t.Run("Error_Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewAdminClient(url, testAdminToken, time.Minute).Rotate(ctx, "")
		require.ErrorIs(t, err, errServerUnreachable)
		assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	})
}

func TestAdminClient_Healthy(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	assert.True(t, NewAdminClient(server.URL, "", time.Minute).Healthy(ctx))

	url := server.URL
	server.Close()
	assert.False(t, NewAdminClient(url, "", time.Minute).Healthy(ctx))
}

func TestAdminServerURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080", AdminServerURL("0.0.0.0", 8080))
	assert.Equal(t, "http://127.0.0.1:8080", AdminServerURL("", 8080))
	assert.Equal(t, "http://admin.internal:9000", AdminServerURL("admin.internal", 9000))
	assert.Equal(t, "http://[::1]:8080", AdminServerURL("::1", 8080))
}
