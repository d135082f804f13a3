package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/killallgit/scribe-api/api/types"
)

// clientLimiter holds a rate limiter and its last accessed time
type clientLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (cl *clientLimiter) touch(now time.Time) {
	cl.mu.Lock()
	cl.lastSeen = now
	cl.mu.Unlock()
}

func (cl *clientLimiter) idleSince(now time.Time) time.Duration {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return now.Sub(cl.lastSeen)
}

// RateLimiters keeps one token bucket per client IP and route group. Idle
// buckets are dropped by a background sweep until Stop is called.
type RateLimiters struct {
	limiters sync.Map
	stop     chan struct{}
	once     sync.Once
	stopOnce sync.Once
	idleTTL  time.Duration
	sweep    time.Duration
}

// NewRateLimiters creates an empty registry
func NewRateLimiters() *RateLimiters {
	return &RateLimiters{
		stop:    make(chan struct{}),
		idleTTL: 10 * time.Minute,
		sweep:   5 * time.Minute,
	}
}

// Stop ends the idle sweep
func (r *RateLimiters) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Len reports how many client buckets exist
func (r *RateLimiters) Len() int {
	n := 0
	r.limiters.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (r *RateLimiters) cleanup() {
	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle(time.Now())
		case <-r.stop:
			return
		}
	}
}

func (r *RateLimiters) evictIdle(now time.Time) {
	r.limiters.Range(func(key, value interface{}) bool {
		if value.(*clientLimiter).idleSince(now) > r.idleTTL {
			r.limiters.Delete(key)
		}
		return true
	})
}

// CORS allows browser clients on other origins
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func RequestSizeLimit() gin.HandlerFunc {
	return RequestSizeLimitWithSize(1024 * 1024)
}

func RequestSizeLimitWithSize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodPatch {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
					Status:  types.StatusError,
					Message: "Request body too large",
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// PerClientRateLimit limits each client IP to rps requests per second with
// the given burst. scope keeps buckets of different groups apart.
func PerClientRateLimit(limiters *RateLimiters, scope string, rps int, burst int) gin.HandlerFunc {
	limiters.once.Do(func() {
		go limiters.cleanup()
	})
	if rps <= 0 {
		rps = 1
	}

	return func(c *gin.Context) {
		now := time.Now()
		key := scope + "|" + c.ClientIP()

		value, _ := limiters.limiters.LoadOrStore(key, &clientLimiter{
			limiter:  rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), burst),
			lastSeen: now,
		})
		cl := value.(*clientLimiter)
		cl.touch(now)

		if !cl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "Rate limit exceeded. Please slow down your requests.",
			})
			return
		}
		c.Next()
	}
}
