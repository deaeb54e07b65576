package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTP(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveHTTP(http.MethodPost, "/search", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/search", http.StatusOK, 30*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/search", http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/search", "400")))
}

func TestObserveTool_FallbackSkipsLatency(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveTool("search", OutcomeSuccess, time.Second)
	m.ObserveTool("search", OutcomeFallback, time.Second)
	m.ObserveFallback("search")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolInvocations.WithLabelValues("search", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolInvocations.WithLabelValues("search", OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackResponses.WithLabelValues("search")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ToolDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, 0)
		m.ObserveTool("image", OutcomeSuccess, 0)
		m.ObserveFallback("image")
	})
}

func TestHandler_Exposition(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveFallback("image")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `explorer_fallback_responses_total{kind="image"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
