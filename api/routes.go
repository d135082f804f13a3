package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/scribe-api/api/appointments"
	authapi "github.com/killallgit/scribe-api/api/auth"
	"github.com/killallgit/scribe-api/api/capture"
	"github.com/killallgit/scribe-api/api/health"
	"github.com/killallgit/scribe-api/api/notes"
	"github.com/killallgit/scribe-api/api/pipeline"
	"github.com/killallgit/scribe-api/api/recordings"
	"github.com/killallgit/scribe-api/api/types"
	"github.com/killallgit/scribe-api/api/version"
	_ "github.com/killallgit/scribe-api/docs/swagger"
	"github.com/killallgit/scribe-api/internal/metrics"
	"github.com/killallgit/scribe-api/internal/services/auth"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, opts Options, rateLimiters *RateLimiters) error {
	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Public routes, no auth or rate limiting
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	if opts.Monitoring.MetricsEnabled {
		path := opts.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, metrics.Handler())
	}

	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")
	if opts.Auth != nil {
		v1.Use(opts.Auth.AuthMiddleware())
		authapi.RegisterRoutes(v1, opts.Auth)
	}

	// Stage endpoints need a pipeline; without one only the public routes exist
	if deps.Pipeline == nil {
		return nil
	}

	limit := func(scope string, rps, burst int) gin.HandlerFunc {
		if !opts.RateLimiting.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return PerClientRateLimit(rateLimiters, scope, rps, burst)
	}
	rps, burst := opts.RateLimiting.RPS, opts.RateLimiting.Burst
	if rps <= 0 {
		rps, burst = 10, 20
	}

	// Capture and pipeline control, the event stream reconnects often
	recordGroup := v1.Group("/appointments", permission(opts, auth.PermissionRecord), limit("record", rps, burst))
	capture.RegisterRoutes(recordGroup, deps)
	pipeline.RegisterRoutes(recordGroup, deps)

	readAppointments := v1.Group("/appointments", limit("read", rps, burst))
	readRecordings := v1.Group("/recordings", limit("read", rps, burst))
	recordings.RegisterRoutes(readAppointments, readRecordings, deps)
	appointments.RegisterRoutes(readAppointments, deps)

	notesAppointments := v1.Group("/appointments", permission(opts, auth.PermissionNotes), limit("notes", rps, burst))
	notesGroup := v1.Group("/notes", permission(opts, auth.PermissionNotes), limit("notes", rps, burst))
	notes.RegisterRoutes(notesAppointments, notesGroup, deps)

	// Destructive and directory writes, low rate
	adminRecordings := v1.Group("/recordings", permission(opts, auth.PermissionAdmin), limit("admin", 1, 5))
	recordings.RegisterAdminRoutes(adminRecordings, deps)
	adminAppointments := v1.Group("/appointments", permission(opts, auth.PermissionAdmin), limit("admin", 1, 5))
	appointments.RegisterAdminRoutes(adminAppointments, deps)

	return nil
}

// permission is a no-op when auth is disabled
func permission(opts Options, p string) gin.HandlerFunc {
	if opts.Auth == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return opts.Auth.RequirePermission(p)
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
