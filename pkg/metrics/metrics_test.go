package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CacheHitsTotal.Inc()
	m.MatchRequestsTotal.WithLabelValues("miss").Add(2)
	m.CircuitBreakerState.WithLabelValues("postgres").Set(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchRequestsTotal.WithLabelValues("miss")))

	// A second set on a fresh registry must not panic.
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.JobsLoaded.Set(5)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "jobs_loaded 5")
}

func TestScrapeMux(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.JobsLoaded.Set(3)
	mux := scrapeMux(reg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobs_loaded 3")
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 302, rec.Code)
	assert.Equal(t, "/metrics", rec.Header().Get("Location"))
}
