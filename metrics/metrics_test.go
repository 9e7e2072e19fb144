package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/mediarelay/metrics"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := metrics.New()

	m.ObserveRequest("/users/{id}", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest("/users/{id}", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("/users/{id}", http.MethodGet, http.StatusNotFound, time.Millisecond)

	count, err := testutil.GatherAndCount(m.Registry(), "mediarelay_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_ObserveOperation(t *testing.T) {
	m := metrics.New()

	m.ObserveOperation("create_user", "conflict")
	m.ObserveOperation("create_user", "ok")

	count, err := testutil.GatherAndCount(m.Registry(), "mediarelay_upstream_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mediarelay_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = metrics.New()
		_ = metrics.New()
	})
}
