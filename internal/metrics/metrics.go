// Package metrics exposes Prometheus collectors for the scribe pipeline and
// the HTTP surface. Collectors are registered on the default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_stage_transitions_total",
		Help: "Pipeline stage entries, by stage.",
	}, []string{"stage"})

	stageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_stage_failures_total",
		Help: "Pipeline stage failures, by stage and error class.",
	}, []string{"stage", "class"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scribe_stage_duration_seconds",
		Help:    "Time spent in each remote pipeline stage.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_upload_bytes_total",
		Help: "Bytes of recorded audio written to durable storage.",
	})

	activeCaptures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_active_captures",
		Help: "Captures currently holding a microphone.",
	})

	appointmentCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_appointment_cache_total",
		Help: "Appointment lookups served by the cache, by result.",
	}, []string{"result"})

	reapedRecordingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_reaped_recordings_total",
		Help: "Abandoned recordings marked failed by the cleanup pass.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_http_requests_total",
		Help: "HTTP requests handled, by method, route and status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scribe_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// StageEntered counts a pipeline attempt entering stage
func StageEntered(stage string) {
	stageTransitionsTotal.WithLabelValues(stage).Inc()
}

// StageFailed counts a failure of stage classified as class
func StageFailed(stage, class string) {
	stageFailuresTotal.WithLabelValues(stage, class).Inc()
}

// ObserveStage records how long a stage ran
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddUploadedBytes counts bytes stored by a successful upload
func AddUploadedBytes(n int64) {
	if n > 0 {
		uploadBytesTotal.Add(float64(n))
	}
}

func CaptureStarted() { activeCaptures.Inc() }

func CaptureEnded() { activeCaptures.Dec() }

func AppointmentCacheHit() { appointmentCacheTotal.WithLabelValues("hit").Inc() }

func AppointmentCacheMiss() { appointmentCacheTotal.WithLabelValues("miss").Inc() }

// RecordingsReaped counts recordings moved to failed by cleanup
func RecordingsReaped(n int) {
	if n > 0 {
		reapedRecordingsTotal.Add(float64(n))
	}
}

// Middleware records request counts and latency. Routes are labelled by
// their registered pattern so ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
