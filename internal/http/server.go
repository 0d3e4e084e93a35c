// Package http provides the admin HTTP server: health checks, encryption and
// secrets status endpoints, and master key rotation guarded by the admin token.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trustchecker/atrest/internal/config"
	"github.com/trustchecker/atrest/internal/metrics"
)

// Server is the admin HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger

	stopRateLimiter context.CancelFunc
}

// NewServer creates a new admin server. db may be nil, in which case readiness
// reports the database as unavailable.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter registers middleware and routes.
func (s *Server) SetupRouter(
	cfg *config.Config,
	encryption EncryptionStatusProvider,
	secrets SecretsStatusProvider,
	rotator KeyRotator,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.RateLimitEnabled {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopRateLimiter = cancel
		router.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	handler := newStatusHandler(encryption, secrets, s.logger)
	v1 := router.Group("/v1")
	{
		v1.GET("/encryption/status", handler.encryptionStatus)
		v1.GET("/secrets/status", handler.secretsStatus)
		v1.GET("/secrets/audit", handler.secretsAudit)

		if cfg.AdminToken != "" && rotator != nil {
			rotation := newRotationHandler(rotator, cfg.RotationTimeout, s.logger)
			v1.POST("/encryption/rotate", AdminTokenMiddleware(cfg.AdminToken, s.logger), rotation.rotate)
		}
	}

	s.router = router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if s.stopRateLimiter != nil {
		s.stopRateLimiter()
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness database ping failed", slog.Any("error", err))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
