// Package metrics exposes Prometheus collectors for calculations and HTTP
// traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calculation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds the collectors registered by New.
type Metrics struct {
	calculations    *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	warnings        *prometheus.CounterVec
	serviceAmps     *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	persistFailures prometheus.Counter
}

// New registers the collectors on reg, or the default registerer when reg is
// nil. Collectors already registered are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadcalc_calculations_total",
			Help: "Calculations run, by kind and outcome",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadcalc_calculation_duration_seconds",
			Help:    "Engine time per calculation",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"kind"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadcalc_calculation_warnings_total",
			Help: "Compliance warnings emitted, by calculation kind",
		}, []string{"kind"}),
		serviceAmps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadcalc_service_amps",
			Help:    "Calculated service current",
			Buckets: []float64{50, 100, 150, 200, 300, 400, 600, 800, 1200, 2000, 4000},
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadcalc_http_requests_total",
			Help: "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadcalc_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadcalc_persistence_failures_total",
			Help: "Calculation records that could not be saved",
		}),
	}

	var err error
	if m.calculations, err = register(reg, m.calculations); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.warnings, err = register(reg, m.warnings); err != nil {
		return nil, err
	}
	if m.serviceAmps, err = register(reg, m.serviceAmps); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.requestDuration, err = register(reg, m.requestDuration); err != nil {
		return nil, err
	}
	if m.persistFailures, err = register(reg, m.persistFailures); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveCalculation records one engine run.
func (m *Metrics) ObserveCalculation(kind, outcome string, d time.Duration, warnings int) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
	if warnings > 0 {
		m.warnings.WithLabelValues(kind).Add(float64(warnings))
	}
}

// ObserveServiceAmps records the service current of a finished calculation.
func (m *Metrics) ObserveServiceAmps(kind string, amps float64) {
	if m == nil {
		return
	}
	m.serviceAmps.WithLabelValues(kind).Observe(amps)
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// PersistenceFailed counts a calculation record that could not be saved.
func (m *Metrics) PersistenceFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
