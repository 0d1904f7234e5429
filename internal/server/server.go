// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/documents"
	"github.com/jeranaias/lmchat/internal/session"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the API listens unless configured otherwise.
	DefaultAddr = "127.0.0.1:8080"

	// MaxRequestBodySize bounds JSON request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

// ============================================================================
// CONFIG
// ============================================================================

// Config holds server options.
type Config struct {
	Addr string

	// DefaultModel is used when a chat request names no model.
	DefaultModel string

	// MaxUploadSize bounds each uploaded document.
	MaxUploadSize int64

	CORS        *CORSConfig
	RateLimiter *RateLimiter
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:          DefaultAddr,
		MaxUploadSize: documents.DefaultMaxFileSize,
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server serves one chat session over HTTP.
type Server struct {
	cfg    Config
	ctrl   *session.Controller
	engine *gin.Engine
	logger *zap.Logger
}

// New creates a server for ctrl. Zero config fields take their defaults.
func New(ctrl *session.Controller, cfg Config, logger *zap.Logger) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = def.MaxUploadSize
	}
	if cfg.CORS == nil {
		cfg.CORS = DefaultCORSConfig()
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = DefaultRateLimiter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		ctrl:   ctrl,
		logger: logger.Named("server"),
	}
	s.engine = s.newEngine()
	return s
}

func (s *Server) newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.cfg.CORS),
		RateLimitMiddleware(s.cfg.RateLimiter, s.logger),
	)
	s.registerRoutes(engine)
	return engine
}

func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/models", s.handleModels)

	api.POST("/documents", s.handleUploadDocuments)
	api.DELETE("/documents/:name", s.handleDeleteDocument)
	api.POST("/webpages", s.handleAddWebPage)

	api.POST("/chat", s.handleChat)
	api.DELETE("/chat", s.handleCancel)

	api.GET("/transcript", s.handleTranscript)
	api.DELETE("/transcript", s.handleReset)
	api.GET("/export", s.handleExport)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Run serves until ctx is cancelled, then shuts down gracefully. A running
// generation is cancelled first so its stream can end.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("SERVER_START", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("SERVER_SHUTDOWN")
	s.ctrl.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
