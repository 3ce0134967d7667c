package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCalculation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveCalculation("dwelling", OutcomeSuccess, 2*time.Millisecond, 2)
	m.ObserveCalculation("dwelling", OutcomeSuccess, time.Millisecond, 0)
	m.ObserveCalculation("feeder", OutcomeInvalid, 0, 0)

	expected := `
# HELP loadcalc_calculations_total Calculations run, by kind and outcome
# TYPE loadcalc_calculations_total counter
loadcalc_calculations_total{kind="dwelling",outcome="success"} 2
loadcalc_calculations_total{kind="feeder",outcome="invalid"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.calculations, strings.NewReader(expected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.warnings.WithLabelValues("dwelling")))
	// Invalid runs are counted but not timed.
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestObserveRequestAndPersistence(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveRequest(http.MethodPost, "/api/v1/calculations/dwelling", http.StatusOK, 3*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/api/v1/calculations/dwelling", http.StatusBadRequest, time.Millisecond)
	m.PersistenceFailed()
	m.ObserveServiceAmps("dwelling", 119.3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/v1/calculations/dwelling", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.serviceAmps))
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.PersistenceFailed()
	second.PersistenceFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(first.persistFailures))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCalculation("dwelling", OutcomeSuccess, time.Millisecond, 1)
		m.ObserveServiceAmps("dwelling", 100)
		m.ObserveRequest("GET", "/health", 200, time.Millisecond)
		m.PersistenceFailed()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveCalculation("commercial", OutcomeSuccess, time.Millisecond, 0)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `loadcalc_calculations_total{kind="commercial",outcome="success"} 1`)
}
