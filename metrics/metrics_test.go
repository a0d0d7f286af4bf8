package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	return New(registry, registry)
}

func TestRecordTransition(t *testing.T) {
	m := newTestMetrics()

	m.RecordTransition("partially_paid", "fully_paid", ResultApplied)
	m.RecordTransition("partially_paid", "fully_paid", ResultApplied)
	m.RecordTransition("refunded", "done", ResultRejected)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("partially_paid", "fully_paid", ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("refunded", "done", ResultRejected)))
}

func TestRecordCommand(t *testing.T) {
	m := newTestMetrics()

	m.RecordCommand("update_description", ResultRejected)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("update_description", ResultRejected)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordTransition("a", "b", ResultApplied)
		m.RecordCommand("create", ResultApplied)
		m.ObserveHTTP(http.MethodGet, "/", http.StatusOK, 0)
	})
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMetrics()

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.GET("/api/v1/customs/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/metrics", Handler(m))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/customs/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration, "customs_http_request_duration_seconds"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/api/v1/customs/:id"`)
}

func TestDefaultIsSingleton(t *testing.T) {
	ResetDefaultForTest()
	defer ResetDefaultForTest()

	first := Default()
	assert.Same(t, first, Default())
}
