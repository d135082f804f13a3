package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"preflight request", http.MethodOptions, http.StatusNoContent},
		{"regular GET request", http.MethodGet, http.StatusOK},
		{"PATCH request", http.MethodPatch, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS())
			router.Any("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "success"})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", "https://clinic.example.com")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
		})
	}
}

func TestRequestSizeLimitWithSize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		bodySize       int
		expectedStatus int
	}{
		{"under limit", 100, http.StatusOK},
		{"at limit", 1024, http.StatusOK},
		{"over limit", 4096, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestSizeLimitWithSize(1024))
			router.POST("/test", func(c *gin.Context) {
				body, err := io.ReadAll(c.Request.Body)
				if err != nil {
					c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"received": len(body)})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("a", tt.bodySize)))
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestPerClientRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiters := NewRateLimiters()
	defer limiters.Stop()

	router := gin.New()
	router.GET("/capture", PerClientRateLimit(limiters, "capture", 1, 3), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/notes", PerClientRateLimit(limiters, "notes", 1, 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func(path, ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit("/capture", "10.0.0.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit("/capture", "10.0.0.1"))

	// Other clients and other scopes have their own buckets
	assert.Equal(t, http.StatusOK, hit("/capture", "10.0.0.2"))
	assert.Equal(t, http.StatusOK, hit("/notes", "10.0.0.1"))
	assert.Equal(t, 3, limiters.Len())
}

func TestRateLimiters_EvictIdle(t *testing.T) {
	limiters := NewRateLimiters()
	defer limiters.Stop()

	now := time.Now()
	limiters.limiters.Store("old", &clientLimiter{lastSeen: now.Add(-time.Hour)})
	limiters.limiters.Store("fresh", &clientLimiter{lastSeen: now})

	limiters.evictIdle(now)
	assert.Equal(t, 1, limiters.Len())
	_, ok := limiters.limiters.Load("fresh")
	assert.True(t, ok)
}
