package geo

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/c360/semmodel/datatype"
)

// Units maps distance unit names to millimeters.
var Units = map[string]int64{
	"mm":     1,
	"cm":     10,
	"m":      1000,
	"meters": 1000,
	"km":     1000000,
}

var distRepr = []struct {
	base float64
	unit string
}{
	{1000000, "km"},
	{1000, "m"},
	{10, "cm"},
}

// Dist is a non-negative distance in millimeters. Text is a number followed
// by a unit, with optional space between: "10 km", "2.5m".
type Dist struct {
	datatype.Common
}

// NewDist builds a Dist type.
func NewDist(name, base string, info datatype.Info, opts map[string]any) (*Dist, error) {
	t := &Dist{}
	t.Common = datatype.NewCommon(name, base, info, opts, datatype.StorU64)
	t.Handle(datatype.VariantInt, func(r datatype.Raw) (datatype.Norm, error) {
		if r.Int < 0 {
			return datatype.Norm{}, t.BadValu(r.Value, "distance cannot be negative")
		}
		return datatype.Value(r.Int), nil
	})
	t.Handle(datatype.VariantStr, t.normStr)
	return t, nil
}

func (t *Dist) normStr(r datatype.Raw) (datatype.Norm, error) {
	text := strings.TrimSpace(r.Str)
	split := strings.IndexFunc(text, func(c rune) bool {
		return !(unicode.IsDigit(c) || c == '.' || c == '-' || c == '+')
	})
	if split <= 0 {
		return datatype.Norm{}, t.BadValu(r.Value, "distance must be a number followed by a unit")
	}

	valu, err := strconv.ParseFloat(text[:split], 64)
	if err != nil {
		return datatype.Norm{}, t.BadValu(r.Value, "invalid distance number")
	}
	unit := strings.ToLower(strings.TrimSpace(text[split:]))
	mult, ok := Units[unit]
	if !ok {
		return datatype.Norm{}, t.BadValu(r.Value, "invalid/unknown dist unit: %s", unit)
	}

	mm := math.Trunc(valu * float64(mult))
	if mm < 0 || mm > math.MaxInt64 {
		return datatype.Norm{}, t.BadValu(r.Value, "distance out of range")
	}
	return datatype.Value(int64(mm)), nil
}

// Index is the millimeter value as 8 big-endian bytes.
func (t *Dist) Index(valu any) ([]byte, error) {
	n, ok := valu.(int64)
	if !ok || n < 0 {
		return nil, t.BadValu(valu, "index expects a non-negative int64")
	}
	return datatype.UnsignedKey(uint64(n), 8), nil
}

// Repr uses the largest unit not exceeding the value.
func (t *Dist) Repr(valu any) (string, error) {
	n, ok := valu.(int64)
	if !ok {
		return "", t.BadValu(valu, "repr expects int64, got %T", valu)
	}
	for _, u := range distRepr {
		if float64(n) >= u.base {
			return strconv.FormatFloat(float64(n)/u.base, 'f', -1, 64) + " " + u.unit, nil
		}
	}
	return strconv.FormatInt(n, 10) + " mm", nil
}

func (t *Dist) Extend(name string, opts map[string]any, info datatype.Info) (datatype.Type, error) {
	return NewDist(name, t.Name(), info, datatype.MergeOpts(t.Opts(), opts))
}
