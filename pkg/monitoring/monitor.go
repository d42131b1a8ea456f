package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// CheckpointSubmissions result: passed | failed
	CheckpointSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkpoint_submissions_total",
			Help: "Checkpoint quiz submissions by checkpoint and result",
		},
		[]string{"checkpoint", "result"},
	)

	ModuleCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "module_completions_total",
			Help: "Learning modules newly marked as completed",
		},
	)

	QuizSessionsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_purged_total",
			Help: "Expired in-memory quiz sessions removed by the scheduler",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			CheckpointSubmissions,
			ModuleCompletions,
			QuizSessionsPurged,
		)
	})
}

func ObserveSubmission(checkpoint int, passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	CheckpointSubmissions.WithLabelValues(strconv.Itoa(checkpoint), result).Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
