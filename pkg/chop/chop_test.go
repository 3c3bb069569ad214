package chop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	semerrors "github.com/c360/semmodel/errors"
)

func TestIntStr(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10", 10},
		{"0x10", 16},
		{"0o17", 15},
		{"0b101", 5},
		{" -42 ", -42},
		{"1_000", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := IntStr(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := IntStr("ten")
	assert.True(t, errors.Is(err, semerrors.ErrBadTypeValu))
}

func TestIntRange(t *testing.T) {
	minv, maxv, err := IntRange("0x10:20")
	require.NoError(t, err)
	assert.Equal(t, int64(16), minv)
	assert.Equal(t, int64(20), maxv)

	_, _, err = IntRange("20")
	assert.Error(t, err)
	_, _, err = IntRange("a:b")
	assert.Error(t, err)
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "20210101", Digits("2021-01-01"))
	assert.Equal(t, "", Digits("abc"))
}

func TestMergeRanges(t *testing.T) {
	assert.Equal(t, [2]int64{-5, 30}, MergeRanges([2]int64{0, 30}, [2]int64{-5, 10}))
	assert.Equal(t, [2]int64{1, 2}, MergeRanges([2]int64{1, 2}, [2]int64{2, 1}))
}

func TestHexStr(t *testing.T) {
	got, err := HexStr("0xFF00")
	require.NoError(t, err)
	assert.Equal(t, "ff00", got)

	got, err = HexStr(" ff00 ")
	require.NoError(t, err)
	assert.Equal(t, "ff00", got)

	for _, bad := range []string{"0x", "", "fff", "zz"} {
		_, err := HexStr(bad)
		assert.True(t, errors.Is(err, semerrors.ErrBadTypeValu), bad)
	}
}

func TestOneSpace(t *testing.T) {
	assert.Equal(t, "a b c", OneSpace("  a \t b\n\nc "))
	assert.Equal(t, "", OneSpace("   "))
}
