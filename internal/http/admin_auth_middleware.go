package http

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/trustchecker/atrest/internal/errors"
	"github.com/trustchecker/atrest/internal/httputil"
)

// AdminTokenMiddleware requires "Authorization: Bearer <token>" matching the
// configured admin token. The "bearer" scheme is matched case-insensitively.
func AdminTokenMiddleware(token string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(token)

	return func(c *gin.Context) {
		const bearerPrefix = "bearer "
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("admin authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		presented := []byte(authHeader[len(bearerPrefix):])
		if subtle.ConstantTimeCompare(presented, expected) != 1 {
			logger.Warn("admin authentication failed: invalid token",
				slog.String("client_ip", c.ClientIP()))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
