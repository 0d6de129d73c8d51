// Package metrics exposes prometheus instruments for the billing engine.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics instruments inbound HTTP requests.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vedalegal_http_requests_total",
			Help: "Inbound HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vedalegal_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	prometheus.MustRegister(m.requests, m.duration)
	return m
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Metrics exposes billing-domain instruments.
type Metrics struct {
	documentsFinalized *prometheus.CounterVec
	documentsDeleted   prometheus.Counter
	itemsWaived        *prometheus.CounterVec
	writeOffsCleared   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		documentsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vedalegal_documents_status_transitions_total",
			Help: "Service description finalize/unlock transitions.",
		}, []string{"transition"}),
		documentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vedalegal_documents_deleted_total",
			Help: "Service descriptions deleted.",
		}),
		itemsWaived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vedalegal_line_items_waived_total",
			Help: "Line item waive operations by mode.",
		}, []string{"mode"}),
		writeOffsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vedalegal_write_offs_cleared_total",
			Help: "Time entries whose write-off flag was cleared by reconciliation.",
		}),
	}
	prometheus.MustRegister(m.documentsFinalized, m.documentsDeleted, m.itemsWaived, m.writeOffsCleared)
	return m
}

func (m *Metrics) RecordStatusTransition(transition string) {
	if m == nil {
		return
	}
	m.documentsFinalized.WithLabelValues(strings.TrimSpace(transition)).Inc()
}

func (m *Metrics) RecordDocumentDeleted() {
	if m == nil {
		return
	}
	m.documentsDeleted.Inc()
}

func (m *Metrics) RecordItemWaived(mode string) {
	if m == nil {
		return
	}
	if mode == "" {
		mode = "restored"
	}
	m.itemsWaived.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordWriteOffCleared(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.writeOffsCleared.Add(float64(n))
}
