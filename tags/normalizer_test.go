package tags

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/metric"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  #A.B.C  ", "a.b.c"},
		{"foo.bar", "foo.bar"},
		{"#Foo.  Bar   Baz .qux#", "foo.bar baz.qux"},
		{"a..b", "a.b"},
		{".a.", "a"},
		{"#", ""},
		{"", ""},
		{"   ", ""},
		{"CAPS", "caps"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestDecompose(t *testing.T) {
	assert.Equal(t, []string{"a", "a.b", "a.b.c"}, Decompose(Normalize("  #A.B.C  ")))
	assert.Equal(t, []string{"solo"}, Decompose("solo"))
	assert.Empty(t, Decompose(""))
}

func TestHierarchyHelpers(t *testing.T) {
	assert.Equal(t, "a.b", Parent("a.b.c"))
	assert.Equal(t, "", Parent("a"))
	assert.Equal(t, "c", Base("a.b.c"))
	assert.Equal(t, "a", Base("a"))
	assert.Equal(t, 2, Depth("a.b.c"))
	assert.Equal(t, 0, Depth("a"))
	assert.Equal(t, 0, Depth(""))
}

func TestNormalizer_Memoizes(t *testing.T) {
	n, err := NewNormalizer()
	require.NoError(t, err)
	defer n.Close()

	first := n.Normalize("  #A.B.C  ")
	before := n.Computations()
	second := n.Normalize("  #A.B.C  ")

	assert.Equal(t, first, second)
	assert.Equal(t, before, n.Computations(), "second call must be served from cache")

	parts := n.Decompose(first)
	assert.Equal(t, []string{"a", "a.b", "a.b.c"}, parts)

	// callers get a copy
	parts[0] = "mutated"
	assert.Equal(t, []string{"a", "a.b", "a.b.c"}, n.Decompose(first))

	norms, decomps := n.Stats()
	assert.GreaterOrEqual(t, norms.Hits, int64(1))
	assert.GreaterOrEqual(t, decomps.Hits, int64(1))
}

func TestNormalizer_Bounded(t *testing.T) {
	n, err := NewNormalizer(WithCapacity(8), WithShards(2))
	require.NoError(t, err)
	defer n.Close()

	for i := 0; i < 100; i++ {
		n.Normalize(fmt.Sprintf("tag.%d", i))
	}
	norms, _ := n.Stats()
	assert.LessOrEqual(t, norms.CurrentSize, int64(8))
	assert.Equal(t, int64(100), n.Computations())
}

func TestNormalizer_Concurrent(t *testing.T) {
	n, err := NewNormalizer(WithShards(4))
	require.NoError(t, err)
	defer n.Close()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				text := fmt.Sprintf("#Team.%d.Member %d", i%10, g%3)
				assert.Equal(t, Normalize(text), n.Normalize(text))
			}
		}(g)
	}
	wg.Wait()

	// 10 * 3 distinct inputs; singleflight and the cache keep the count at that.
	assert.Equal(t, int64(30), n.Computations())
}

func TestNormalizer_WithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	n, err := NewNormalizer(WithMetrics(registry))
	require.NoError(t, err)
	defer n.Close()

	n.Normalize("x.y")

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["semmodel_cache_sets_total"])
}

func TestNewNormalizer_InvalidCapacity(t *testing.T) {
	_, err := NewNormalizer(WithCapacity(0))
	require.Error(t, err)
}
