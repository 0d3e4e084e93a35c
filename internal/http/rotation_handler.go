package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	"github.com/trustchecker/atrest/internal/httputil"
)

// KeyRotator rotates the master key held by this process.
type KeyRotator interface {
	RotateActive(ctx context.Context, newKeyHex string) (*cryptoDomain.MasterKeyRotation, error)
}

// RotateRequest is the body of POST /v1/encryption/rotate. An empty NewKey asks
// the server to generate one.
type RotateRequest struct {
	NewKey string `json:"new_key"`
}

// RotateResponse reports a rotation attempt that reached the sweep.
//
// NewKey is only set when the rotation completed but the key could not be
// persisted, so the operator can store it before the server restarts.
type RotateResponse struct {
	RunID          string                      `json:"run_id"`
	Status         cryptoDomain.RotationStatus `json:"status"`
	Reencrypted    int                         `json:"reencrypted"`
	Errors         int                         `json:"errors"`
	NewFingerprint string                      `json:"new_fingerprint"`
	Generated      bool                        `json:"generated"`
	Persisted      bool                        `json:"persisted"`
	NewKey         string                      `json:"new_key,omitempty"`
	Error          string                      `json:"error,omitempty"`
}

type rotationHandler struct {
	rotator KeyRotator
	timeout time.Duration
	logger  *slog.Logger
}

func newRotationHandler(rotator KeyRotator, timeout time.Duration, logger *slog.Logger) *rotationHandler {
	return &rotationHandler{rotator: rotator, timeout: timeout, logger: logger}
}

// rotate handles POST /v1/encryption/rotate. The sweep runs in this process so
// the key swap reaches live traffic. A client disconnect does not abort it.
func (h *rotationHandler) rotate(c *gin.Context) {
	var req RotateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	// The sweep outlives the server write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Now().Add(h.timeout)); err != nil {
		h.logger.Warn("cannot extend write deadline for rotation", slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()

	result, err := h.rotator.RotateActive(ctx, req.NewKey)
	if result == nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	resp := NewRotateResponse(result, err)
	if !resp.Persisted && resp.Status == cryptoDomain.RotationCompleted {
		h.logger.Error("rotated master key was not persisted",
			slog.String("run_id", resp.RunID),
			slog.Any("error", err),
		)
	}

	c.Header("Cache-Control", "no-store")
	if resp.Status != cryptoDomain.RotationCompleted {
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NewRotateResponse builds the report for a rotation that reached the sweep.
// err is the error RotateActive returned alongside result.
func NewRotateResponse(result *cryptoDomain.MasterKeyRotation, err error) RotateResponse {
	summary := result.Summary
	completed := summary.Status == cryptoDomain.RotationCompleted

	resp := RotateResponse{
		RunID:          summary.RunID.String(),
		Status:         summary.Status,
		Reencrypted:    summary.Reencrypted,
		Errors:         summary.Errors,
		NewFingerprint: result.NewKey.Fingerprint(),
		Generated:      result.Generated,
		Persisted:      completed && err == nil,
	}
	if err != nil {
		resp.Error = err.Error()
		if completed {
			resp.NewKey = result.NewKey.Hex()
		}
	}
	return resp
}
