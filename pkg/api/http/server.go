package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/pocketbus/internal/application/publisher"
	"github.com/aescanero/pocketbus/pkg/bus"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP admin API server
type Server struct {
	router    *gin.Engine
	server    *http.Server
	bus       *bus.Bus
	publisher *publisher.Manager
	logger    *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr      string
	Bus       *bus.Bus
	Publisher *publisher.Manager
	Logger    *zap.Logger

	// Gatherer serves /metrics. Nil uses the default Prometheus gatherer.
	Gatherer prometheus.Gatherer
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger(logger))

	s := &Server{
		router:    router,
		bus:       cfg.Bus,
		publisher: cfg.Publisher,
		logger:    logger,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	if gatherer == nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	} else {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/stats", s.handleStats)
		v1.POST("/events", s.handleSubmitEvent)
		v1.GET("/sticky", s.handleListSticky)
		v1.DELETE("/sticky/:kind", s.handleRemoveSticky)
		v1.POST("/sweep", s.handleSweep)
	}
}

// SetupWebSocket adds the event tap handler to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleEventStream(*gin.Context)
}) {
	s.router.GET("/api/v1/events/ws", handler.HandleEventStream)
}

// Handler returns the router, for serving the API without a listener
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
