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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	EnrollmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollments_created_total",
			Help: "Total number of enrollments created",
		},
	)

	EnrollmentsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollments_deleted_total",
			Help: "Total number of enrollments deleted",
		},
	)

	LessonProgressUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_lesson_updates_total",
			Help: "Total number of lesson progress updates persisted",
		},
	)

	ProgressResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_resets_total",
			Help: "Total number of progress resets",
		},
	)

	ProgressUpdateConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_update_conflicts_total",
			Help: "Optimistic version conflicts while writing lesson progress",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			EnrollmentsCreated,
			EnrollmentsDeleted,
			LessonProgressUpdates,
			ProgressResets,
			ProgressUpdateConflicts,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
