package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TotalRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wellca_http_requests_total",
		Help: "Number of HTTP requests served.",
	},
	[]string{"path", "code", "method"},
)

var HttpDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "wellca_http_request_duration_seconds",
		Help: "HTTP request latency.",
		Buckets: []float64{
			0.05,
			0.1,
			0.25,
			0.5,
			1,
			2.5,
			5,
			10,
		},
	},
	[]string{"path", "code", "method"},
)

var Submissions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wellca_submissions_total",
		Help: "Form submissions by category and outcome.",
	},
	[]string{"category", "outcome"},
)

var ReportRefreshes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wellca_report_refreshes_total",
		Help: "Report refreshes by outcome.",
	},
	[]string{"outcome"},
)

var VisibleMessages = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "wellca_visible_messages",
		Help: "Notification bubbles currently visible.",
	},
)

var WSClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "wellca_ws_clients",
		Help: "Connected message websocket clients.",
	},
)

// Outcome labels shared by the counters.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeError      = "error"
	OutcomeStale      = "stale"
	OutcomeBusy       = "busy"
)

// GinMiddleware records request counts and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		TotalRequests.WithLabelValues(path, code, c.Request.Method).Inc()
		HttpDuration.WithLabelValues(path, code, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
