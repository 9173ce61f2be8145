package telemetry

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStep(t *testing.T) {
	m := New()
	m.ObserveStep("sync", "ready", 50*time.Millisecond)
	m.ObserveStep("sync", "ready", 10*time.Millisecond)
	m.ObserveStep("drain", "drained", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.steps.WithLabelValues("sync", "ready")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.steps.WithLabelValues("drain", "drained")))
}

func TestObserveEvent(t *testing.T) {
	m := New()
	m.ObserveEvent(false)
	m.ObserveEvent(true)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.events))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.drift))
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	m.ObserveStep("sync", "ready", time.Second)
	m.ObserveEvent(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveStep("sync", "ready", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "awsres_steps_total")
}
