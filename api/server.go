package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authapi "github.com/killallgit/scribe-api/api/auth"
	"github.com/killallgit/scribe-api/api/types"
	"github.com/killallgit/scribe-api/internal/metrics"
	"github.com/killallgit/scribe-api/internal/services/cleanup"
	"github.com/killallgit/scribe-api/pkg/config"
)

// Server represents the HTTP server
type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	rateLimiters *RateLimiters
	reaper       *cleanup.Service
	options      Options

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// Options controls the optional layers of the HTTP surface
type Options struct {
	// Auth protects /api/v1 when set
	Auth *authapi.Handler

	RateLimiting config.RateLimitConfig
	Monitoring   config.MonitoringConfig
	MaxBodyBytes int64
}

// NewServer creates a new HTTP server. A zero write timeout keeps pipeline
// event streams open.
func NewServer(address string, cfg config.ServerConfig) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	maxHeaderBytes := cfg.MaxHeaderBytes
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = 1 << 20
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}

	return &Server{
		engine:       engine,
		rateLimiters: NewRateLimiters(),
		httpServer: &http.Server{
			Addr:           address,
			Handler:        engine,
			ReadTimeout:    readTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: maxHeaderBytes,
		},
	}
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// SetOptions sets auth, rate limiting and monitoring options
func (s *Server) SetOptions(opts Options) {
	s.options = opts
}

// SetReaper attaches the stale recording reaper stopped on shutdown
func (s *Server) SetReaper(reaper *cleanup.Service) {
	s.reaper = reaper
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()
	return RegisterRoutes(s.engine, s.dependencies, s.options, s.rateLimiters)
}

func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Logger())

	if s.options.Monitoring.MetricsEnabled {
		s.engine.Use(metrics.Middleware())
	}

	s.engine.Use(CORS())

	if s.options.MaxBodyBytes > 0 {
		s.engine.Use(RequestSizeLimitWithSize(s.options.MaxBodyBytes))
	} else {
		s.engine.Use(RequestSizeLimit())
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.reaper != nil {
		s.reaper.Stop()
	}

	s.rateLimiters.Stop()

	return s.httpServer.Shutdown(ctx)
}
