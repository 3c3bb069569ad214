package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/errors"
)

func TestMetricsRegistry_CoreMetrics(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()
	require.NotNil(t, core)

	core.RecordNormalization("int", true)
	core.RecordNormalization("int", true)
	core.RecordNormalization("int", false)
	assert.Equal(t, 2.0, testutil.ToFloat64(core.Normalizations.WithLabelValues("int", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.Normalizations.WithLabelValues("int", "error")))

	core.RecordMutation("form", "add", "ok", time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(core.SchemaMutations.WithLabelValues("form", "add", "ok")))

	core.RecordExtendedCount("form", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(core.ExtendedElements.WithLabelValues("form")))

	core.RecordEventPublished("nats")
	core.RecordEventDropped("async")
	assert.Equal(t, 1.0, testutil.ToFloat64(core.EventsPublished.WithLabelValues("nats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.EventsDropped.WithLabelValues("async")))

	core.RecordNATSStatus(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSConnected))
	core.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(core.NATSConnected))
}

func TestMetricsRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_requests_total",
		Help: "test counter",
	})
	require.NoError(t, registry.RegisterCounter("svc", "requests", counter))

	err := registry.RegisterCounter("svc", "requests", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	assert.True(t, registry.Unregister("svc", "requests"))
	assert.False(t, registry.Unregister("svc", "requests"))

	require.NoError(t, registry.RegisterCounter("svc", "requests", counter))
}

func TestMetricsRegistry_PrometheusConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	a := prometheus.NewGauge(prometheus.GaugeOpts{Name: "conflict_gauge", Help: "a"})
	b := prometheus.NewGauge(prometheus.GaugeOpts{Name: "conflict_gauge", Help: "a"})

	require.NoError(t, registry.RegisterGauge("one", "g", a))
	err := registry.RegisterGauge("two", "g", b)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordMutation("univ", "del", "ok", time.Millisecond)

	srv := NewServer(0, "", registry)
	srv.Handle("/extra", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("extra"))
	}))
	assert.Equal(t, "http://localhost:9090/metrics", srv.Address())

	handler, err := srv.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	defer ts.Close()

	body := get(t, ts.URL+"/metrics")
	assert.True(t, strings.Contains(body, "semmodel_model_mutations_total"))

	assert.Equal(t, "OK", get(t, ts.URL+"/health"))
	assert.Equal(t, "extra", get(t, ts.URL+"/extra"))
}

func TestServer_NilRegistry(t *testing.T) {
	srv := NewServer(0, "", nil)
	err := srv.Start()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
