// Package api exposes the rating calculator over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/history"
	"github.com/pdr-rating-server/internal/metrics"
	"github.com/pdr-rating-server/internal/middleware"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// Calculator is the rating engine the handlers call into
type Calculator interface {
	CalculateRating(ctx context.Context, input *domain.RatingInput) (*domain.RatingResult, error)
	ResolveOccupation(ctx context.Context, title string) (*domain.OccupationVariant, error)
	DescribeImpairment(ctx context.Context, code string) (*domain.ImpairmentDescription, error)
	Ping(ctx context.Context) error
}

// Config holds the HTTP settings the server needs
type Config struct {
	Server    domain.ServerConfig
	RateLimit domain.RateLimitConfig
}

// Server represents the HTTP server
type Server struct {
	config     Config
	calculator Calculator
	history    history.Store
	metrics    *metrics.Metrics
	logger     *logrus.Logger
	router     *gin.Engine
	server     *http.Server
}

// Option configures optional server dependencies
type Option func(*Server)

// WithHistory persists medical-input calculations and enables the history routes
func WithHistory(store history.Store) Option {
	return func(s *Server) {
		s.history = store
	}
}

// WithMetrics enables request metrics and the /metrics endpoint
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new HTTP server instance
func NewServer(config Config, calculator Calculator, logger *logrus.Logger, opts ...Option) *Server {
	switch config.Server.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(config.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:     config,
		calculator: calculator,
		logger:     logger,
		router:     gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CorrelationID())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(config.Server.CORSOrigins))
	s.router.Use(middleware.AuditLogger(logger))
	if s.metrics != nil {
		s.router.Use(middleware.RequestMetrics(s.metrics))
	}
	if config.RateLimit.Enabled {
		s.router.Use(middleware.NewRateLimiter(config.RateLimit).Middleware())
	}

	s.setupRoutes()
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/ratings/calculate", s.handleCalculate)
		v1.POST("/ratings/medical-input", s.handleMedicalInput)
		v1.GET("/occupations/:title/variant", s.handleOccupationVariant)
		v1.GET("/impairments/:code", s.handleImpairment)

		if s.history != nil {
			v1.GET("/ratings/history", s.handleListHistory)
			v1.GET("/ratings/history/:id", s.handleGetHistory)
		}
	}
}
