package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpers(t *testing.T) {
	opts := map[string]any{
		"lower":  true,
		"min":    float64(10),
		"max":    "0x20",
		"half":   1.5,
		"name":   "score",
		"tags":   []any{"a", "b"},
		"broken": []any{"a", 1},
	}

	assert.True(t, GetBool(opts, "lower", false))
	assert.False(t, GetBool(opts, "name", false))

	assert.Equal(t, 10, GetInt(opts, "min", 0))
	assert.Equal(t, 32, GetInt(opts, "max", 0))
	assert.Equal(t, 7, GetInt(opts, "half", 7), "non-integral floats fall back")

	n, ok := GetInt64(opts, "missing")
	assert.False(t, ok)
	assert.Zero(t, n)

	assert.Equal(t, "score", GetString(opts, "name", ""))
	assert.Equal(t, "x", GetString(opts, "min", "x"))

	assert.Equal(t, []string{"a", "b"}, GetStringSlice(opts, "tags", nil))
	assert.Nil(t, GetStringSlice(opts, "broken", nil))

	assert.True(t, HasKey(opts, "half"))
	assert.False(t, HasKey(opts, "nope"))
}
