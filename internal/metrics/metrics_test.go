package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	m := New(reg)

	// Act
	m.ObserveRequest("catalog", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("catalog", http.StatusOK, 10*time.Millisecond)
	m.IngestOutcome("added")
	m.CleanupOutcome("retrying")
	m.ShardError(2, "find")

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("catalog", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingest.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleanup.WithLabelValues("retrying")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shardErrors.WithLabelValues("2", "find")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("stream", http.StatusOK, time.Millisecond)
		m.IngestOutcome("failed")
		m.CleanupOutcome("failed")
		m.ShardError(1, "find")
	})
}

func TestMetrics_Handler(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IngestOutcome("merged")
	rec := httptest.NewRecorder()

	// Act
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `catalog_ingest_items_total{outcome="merged"} 1`)
}
