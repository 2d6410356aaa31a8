package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	AttemptsStarted  prometheus.Counter
	AttemptsRejected *prometheus.CounterVec
	AttemptsClosed   *prometheus.CounterVec
	AttemptsGraded   *prometheus.CounterVec
	GradingDuration  prometheus.Histogram
	StaleWrites      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),

		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Attempts created",
		}),
		AttemptsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_rejected_total",
				Help: "Attempt creations rejected, by reason",
			},
			[]string{"reason"},
		),
		AttemptsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_closed_total",
				Help: "Attempts leaving in_progress, by resulting status",
			},
			[]string{"status"},
		),
		AttemptsGraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_graded_total",
				Help: "Graded attempts, by outcome",
			},
			[]string{"outcome"},
		),
		GradingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_grading_duration_seconds",
			Help:    "Time spent scoring and storing one attempt",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		StaleWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_stale_writes_total",
				Help: "Conditional writes that lost a race, by operation",
			},
			[]string{"operation"},
		),
	}

	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.AttemptsStarted,
		m.AttemptsRejected,
		m.AttemptsClosed,
		m.AttemptsGraded,
		m.GradingDuration,
		m.StaleWrites,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ===== DOMAIN RECORDERS =====

func (m *Metrics) AttemptStarted() {
	if m == nil {
		return
	}
	m.AttemptsStarted.Inc()
}

func (m *Metrics) AttemptRejected(reason string) {
	if m == nil {
		return
	}
	m.AttemptsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) AttemptClosed(status string) {
	if m == nil {
		return
	}
	m.AttemptsClosed.WithLabelValues(status).Inc()
}

func (m *Metrics) AttemptGraded(passed bool, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.AttemptsGraded.WithLabelValues(outcome).Inc()
	m.GradingDuration.Observe(took.Seconds())
}

func (m *Metrics) StaleWrite(operation string) {
	if m == nil {
		return
	}
	m.StaleWrites.WithLabelValues(operation).Inc()
}

// ===== HTTP =====

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
