package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/fittracker/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecovery(t *testing.T) {
	metricsManager := metrics.NewTestManager()

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler gone wrong")
	})
	wrapped := PanicRecovery(metricsManager)(panicking)

	req, err := http.NewRequest("GET", "/workouts/list", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		wrapped.ServeHTTP(rec, req)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterHandleRequestPanic))
}

func TestCors_NoOriginAllowed(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	wrapped := Cors()(next)

	req, err := http.NewRequest("GET", "/workouts/list", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCors_UnknownOriginForbidden(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	wrapped := Cors()(next)

	req, err := http.NewRequest("GET", "/workouts/list", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestMetrics(t *testing.T) {
	metricsManager := metrics.NewTestManager()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	wrapped := RequestMetrics(metricsManager)(next)

	req, err := http.NewRequest("POST", "/workouts", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	counter, err := metricsManager.CounterRequests.GetMetricWith(map[string]string{
		"method": "POST",
		"status": "201",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}
