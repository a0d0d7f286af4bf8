// Package metrics exposes the Prometheus instruments of the customs tracker.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transition results
const (
	ResultApplied  = "applied"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics holds the application instruments
type Metrics struct {
	transitions  *prometheus.CounterVec
	commands     *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	gatherer     prometheus.Gatherer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the metrics registered with the global Prometheus registry
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// ResetDefaultForTest drops the singleton so a test can start from a fresh registry
func ResetDefaultForTest() {
	defaultOnce = sync.Once{}
	defaultMetrics = nil
}

// New creates and registers the instruments with registerer
func New(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "customs_transitions_total",
		Help: "Status transition requests by source status, target status and result.",
	}, []string{"from", "to", "result"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "customs_commands_total",
		Help: "Custom order commands by name and result.",
	}, []string{"command", "result"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "customs_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route", "status"})

	registerer.MustRegister(transitions, commands, httpDuration)

	return &Metrics{
		transitions:  transitions,
		commands:     commands,
		httpDuration: httpDuration,
		gatherer:     gatherer,
	}
}

// RecordTransition counts one transition request
func (m *Metrics) RecordTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, result).Inc()
}

// RecordCommand counts one command outcome
func (m *Metrics) RecordCommand(command, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, result).Inc()
}

// ObserveHTTP records the latency of one request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// GinMiddleware times every request by its route template
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Handler serves the registry in the Prometheus text format
func Handler(m *Metrics) gin.HandlerFunc {
	if m == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
