package datatype

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Variant
	}{
		{"int", 3, VariantInt},
		{"int8", int8(-3), VariantInt},
		{"uint32", uint32(7), VariantInt},
		{"uint64", uint64(7), VariantInt},
		{"float", 1.5, VariantFloat},
		{"float32", float32(1.5), VariantFloat},
		{"json int", json.Number("12"), VariantInt},
		{"json float", json.Number("12.5"), VariantFloat},
		{"string", "x", VariantStr},
		{"bool", true, VariantBool},
		{"any list", []any{1, "a"}, VariantList},
		{"float pair", [2]float64{1, 2}, VariantList},
		{"string list", []string{"a", "b"}, VariantList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Classify(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Variant)
			assert.Equal(t, tt.in, r.Value)
		})
	}
}

func TestClassify_Values(t *testing.T) {
	r, err := Classify(json.Number("12"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), r.Int)

	r, err = Classify([]any{1, "a"})
	require.NoError(t, err)
	require.Len(t, r.List, 2)
	assert.Equal(t, int64(1), r.List[0].Int)
	assert.Equal(t, "a", r.List[1].Str)

	// already classified values pass through
	r2, err := Classify(r)
	require.NoError(t, err)
	assert.Equal(t, r.Variant, r2.Variant)
}

func TestClassify_Rejects(t *testing.T) {
	for name, in := range map[string]any{
		"nil":       nil,
		"nan":       math.NaN(),
		"inf":       math.Inf(1),
		"big uint":  uint64(math.MaxUint64),
		"map":       map[string]any{},
		"bad child": []any{struct{}{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Classify(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrBadTypeValu))
		})
	}
}

func TestVariant_String(t *testing.T) {
	assert.Equal(t, "int", VariantInt.String())
	assert.Equal(t, "list", VariantList.String())
	assert.Equal(t, "unknown", Variant(0).String())
}
