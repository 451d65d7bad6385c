package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewMetricsCollector_WithProcessMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableProcessMetrics: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "process_cpu_seconds_total")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("requests_total", "requests", "method")
	vec.WithLabelValues("GET").Inc()
	vec.WithLabelValues("GET").Add(2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_requests_total{method="GET"} 3`)
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("in_flight", "in flight", "kind").WithLabelValues("a")
	g.Set(5)
	g.Inc()
	g.Dec()
	g.Add(-2)

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_in_flight{kind="a"} 3`)
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterHistogram("latency_seconds", "latency", nil).WithLabelValues().Observe(0.2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_latency_seconds_bucket{le="0.25"} 1`)
	assert.Contains(t, out, "test_unit_latency_seconds_count 1")
}

func TestRegister_Idempotent(t *testing.T) {
	c := newTestCollector(t)
	a := c.RegisterCounter("dup_total", "dup")
	b := c.RegisterCounter("dup_total", "dup")
	a.WithLabelValues().Inc()
	b.WithLabelValues().Inc()

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_dup_total 2")
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("clash", "clash")
	g := c.RegisterGauge("clash", "clash")

	assert.NotPanics(t, func() { g.WithLabelValues().Set(1) })
	assert.IsType(t, noopGaugeVec{}, g)
}

func TestRegister_ConcurrentSafe(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("race_total", "race").WithLabelValues().Inc()
		}()
	}
	wg.Wait()

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_race_total 16")
}

func TestMustRegister(t *testing.T) {
	c := newTestCollector(t)
	custom := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_total", Help: "custom"})
	c.MustRegister(custom)
	custom.Inc()

	assert.Contains(t, scrapeMetrics(t, c), "custom_total 1")
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("timer_seconds", "timer", nil).WithLabelValues()
	timer := NewTimer(h)
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.ObserveDuration(), time.Duration(0))
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_timer_seconds_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}

//Personal.AI order the ending
