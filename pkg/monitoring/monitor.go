package monitoring

import (
	"strconv"
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

	QuizGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_generated_total",
			Help: "Quizzes assembled from a config",
		},
	)

	PartialAssemblies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_partial_assembly_total",
			Help: "Quizzes returned with fewer questions than requested",
		},
	)

	FetchRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_fetch_retries_total",
			Help: "Retries of transient read failures",
		},
		[]string{"op"},
	)

	GradedAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_graded_attempts_total",
			Help: "Attempts graded by question type and outcome",
		},
		[]string{"type", "outcome"},
	)

	AuditFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_audit_failures_total",
			Help: "Audit diff or emission failures after a successful write",
		},
		[]string{"action"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(QuizGenerated)
	prometheus.MustRegister(PartialAssemblies)
	prometheus.MustRegister(FetchRetries)
	prometheus.MustRegister(GradedAttempts)
	prometheus.MustRegister(AuditFailures)
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
