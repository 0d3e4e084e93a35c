package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	"github.com/trustchecker/atrest/internal/httputil"
	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
)

// EncryptionStatusProvider reports field encryption state.
type EncryptionStatusProvider interface {
	Status(ctx context.Context) (*cryptoDomain.EncryptionStatus, error)
}

// SecretsStatusProvider reports secrets vault state and its audit trail.
type SecretsStatusProvider interface {
	Status() secretsDomain.Status
	AuditLog() []secretsDomain.AuditRecord
}

type statusHandler struct {
	encryption EncryptionStatusProvider
	secrets    SecretsStatusProvider
	logger     *slog.Logger
}

func newStatusHandler(
	encryption EncryptionStatusProvider,
	secrets SecretsStatusProvider,
	logger *slog.Logger,
) *statusHandler {
	return &statusHandler{encryption: encryption, secrets: secrets, logger: logger}
}

// encryptionStatus handles GET /v1/encryption/status.
func (h *statusHandler) encryptionStatus(c *gin.Context) {
	status, err := h.encryption.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, status)
}

// secretsStatus handles GET /v1/secrets/status.
func (h *statusHandler) secretsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.secrets.Status())
}

type auditLogResponse struct {
	Data   []secretsDomain.AuditRecord `json:"data"`
	Total  int                         `json:"total"`
	Offset int                         `json:"offset"`
	Limit  int                         `json:"limit"`
}

// secretsAudit handles GET /v1/secrets/audit, newest entries first.
func (h *statusHandler) secretsAudit(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c, httputil.AuditPageBounds(secretsDomain.AuditCapacity))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	records := h.secrets.AuditLog()
	newestFirst := make([]secretsDomain.AuditRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, records[i])
	}

	page := []secretsDomain.AuditRecord{}
	if offset < len(newestFirst) {
		end := offset + limit
		if end > len(newestFirst) {
			end = len(newestFirst)
		}
		page = newestFirst[offset:end]
	}

	c.JSON(http.StatusOK, auditLogResponse{
		Data:   page,
		Total:  len(records),
		Offset: offset,
		Limit:  limit,
	})
}
