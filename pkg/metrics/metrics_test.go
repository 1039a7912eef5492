package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.RecordTransition("assign")
	c.RecordTransition("assign")
	c.RecordTransitionFailure("complete", "invalid_transition")
	c.RecordDispatch("success", 1200)
	c.RecordDispatch("no_location", 0)
	c.RecordGeocodeFailure()
	c.RecordNotification("email", false)
	c.RecordCommission()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transitions.WithLabelValues("assign")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitionFailures.WithLabelValues("complete", "invalid_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("no_location")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.geocodeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("email", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commissions))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordTransition("confirm")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fieldcrm_job_transitions_total{transition="confirm"} 1`)
}

func TestNewCollector_Independent(t *testing.T) {
	// Each collector owns its registry, so building two must not panic.
	assert.NotPanics(t, func() {
		NewCollector()
		NewCollector()
	})
}
