package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.JobCreated()
	m.ItemProcessed("simple", "")
	m.ProviderFallback("gemini", "quota")
	m.Charge("description_update", "ok")
	m.QueueRejection()
	assert.NotNil(t, m.Handler())
}

func TestMetricsRecordAndExpose(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.JobCreated()
	m.ItemProcessed("complex", "")
	m.ItemProcessed("complex", "generation")
	m.ChargeSkipped("image_update")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsProcessed.WithLabelValues("complex", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChargesSkipped.WithLabelValues("image_update")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "offersync_jobs_created_total 1"))
}
