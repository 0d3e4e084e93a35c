package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// createCORSMiddleware lets browser dashboards read the status endpoints.
// It returns nil when CORS is disabled or no usable origin is configured.
//
// Only GET is allowed cross-origin, so POST /v1/encryption/rotate stays out of
// reach of browser pages. The admin token travels in a header, never a cookie,
// so credentials are not allowed either.
func createCORSMiddleware(enabled bool, allowOriginsStr string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOriginsStr, logger)
	if len(origins) == 0 {
		logger.Warn("CORS enabled but no valid origins configured, CORS will not be applied")
		return nil
	}

	logger.Info("CORS enabled for status endpoints", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet},
		AllowHeaders:     []string{"Authorization"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// parseOrigins splits a comma-separated origin list. Wildcards and anything
// that is not a bare http(s) origin are dropped with a warning.
func parseOrigins(originsStr string, logger *slog.Logger) []string {
	if originsStr == "" {
		return nil
	}

	var origins []string
	for _, part := range strings.Split(originsStr, ",") {
		origin := strings.TrimRight(strings.TrimSpace(part), "/")
		if origin == "" {
			continue
		}
		if !isBareOrigin(origin) {
			logger.Warn("ignoring CORS origin", slog.String("origin", origin))
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

func isBareOrigin(origin string) bool {
	if strings.Contains(origin, "*") {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" &&
		u.Path == "" && u.RawQuery == "" && u.User == nil
}
