package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector("metacatalog")

	c.ObserveHTTP(http.MethodGet, "/api/v1/pipelines", http.StatusOK, 10*time.Millisecond)
	c.ObserveOperation("pipeline", "create", nil, time.Millisecond)
	c.ObserveOperation("pipeline", "create", errors.New("boom"), time.Millisecond)
	c.ObserveEvent("pipeline", "entityCreated")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/v1/pipelines", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EntityOperations.WithLabelValues("pipeline", "create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EntityOperations.WithLabelValues("pipeline", "create", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChangeEvents.WithLabelValues("pipeline", "entityCreated")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveHTTP(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		c.ObserveOperation("pipeline", "get", nil, time.Millisecond)
		c.ObserveEvent("pipeline", "entityCreated")
	})
}

func TestHandler(t *testing.T) {
	c := NewCollector("metacatalog")
	c.ObserveEvent("table", "entityDeleted")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "metacatalog_change_events_total")
}
