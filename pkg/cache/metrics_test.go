package cache

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/metric"
)

func TestCacheMetricsIntegration(t *testing.T) {
	metricsRegistry := metric.NewMetricsRegistry()

	c, err := NewSharded[string](10, 2, WithMetrics[string](metricsRegistry, "test_cache"))
	require.NoError(t, err)

	_, _ = c.Set("key1", "value1")
	_, _ = c.Set("key2", "value2")

	val, found := c.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	_, found = c.Get("key3")
	assert.False(t, found)

	deleted, _ := c.Delete("key2")
	assert.True(t, deleted)

	metricFamilies, err := metricsRegistry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	metricsByName := make(map[string]*dto.MetricFamily)
	for _, mf := range metricFamilies {
		metricsByName[mf.GetName()] = mf
	}

	hits := metricsByName["semmodel_cache_hits_total"]
	require.NotNil(t, hits)
	assert.Equal(t, float64(1), hits.Metric[0].GetCounter().GetValue())

	misses := metricsByName["semmodel_cache_misses_total"]
	require.NotNil(t, misses)
	assert.Equal(t, float64(1), misses.Metric[0].GetCounter().GetValue())

	sets := metricsByName["semmodel_cache_sets_total"]
	require.NotNil(t, sets)
	assert.Equal(t, float64(2), sets.Metric[0].GetCounter().GetValue())

	size := metricsByName["semmodel_cache_size"]
	require.NotNil(t, size)
	assert.Equal(t, float64(1), size.Metric[0].GetGauge().GetValue())
}

func TestCacheMetrics_DuplicatePrefix(t *testing.T) {
	metricsRegistry := metric.NewMetricsRegistry()

	_, err := NewLRU[string](10, WithMetrics[string](metricsRegistry, "dup"))
	require.NoError(t, err)

	_, err = NewLRU[string](10, WithMetrics[string](metricsRegistry, "dup"))
	assert.Error(t, err)
}
