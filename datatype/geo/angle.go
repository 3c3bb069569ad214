package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/c360/semmodel/datatype"
)

const (
	// Scale is the fixed-point resolution, about 1mm at the Earth's surface.
	Scale = 1e8

	// angleWidth bytes hold 180e8+180e8 without truncation.
	angleWidth = 5
)

// Angle is a bounded number of degrees stored as fixed point with a positive
// offset, so keys are unsigned and sort in value order. Latitude and
// Longitude are Angles with limits 90 and 180.
type Angle struct {
	datatype.Common
	limit float64
	space float64
	noun  string
}

// Latitude is an Angle in -90.0..90.0.
type Latitude = Angle

// Longitude is an Angle in -180.0..180.0.
type Longitude = Angle

// NewLatitude builds a latitude type.
func NewLatitude(name, base string, info datatype.Info, opts map[string]any) (*Angle, error) {
	return newAngle(name, base, info, opts, 90, "Latitude")
}

// NewLongitude builds a longitude type.
func NewLongitude(name, base string, info datatype.Info, opts map[string]any) (*Angle, error) {
	return newAngle(name, base, info, opts, 180, "Longitude")
}

func newAngle(name, base string, info datatype.Info, opts map[string]any, limit float64, noun string) (*Angle, error) {
	t := &Angle{limit: limit, space: limit * Scale, noun: noun}
	t.Common = datatype.NewCommon(name, base, info, opts, datatype.StorI64)
	t.Handle(datatype.VariantFloat, func(r datatype.Raw) (datatype.Norm, error) { return t.norm(r.Float, r.Value) })
	t.Handle(datatype.VariantInt, func(r datatype.Raw) (datatype.Norm, error) { return t.norm(float64(r.Int), r.Value) })
	t.Handle(datatype.VariantStr, func(r datatype.Raw) (datatype.Norm, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return datatype.Norm{}, t.BadValu(r.Value, "Invalid float format")
		}
		return t.norm(f, r.Value)
	})
	return t, nil
}

// norm truncates to Scale resolution after the range check.
func (t *Angle) norm(f float64, orig any) (datatype.Norm, error) {
	if f > t.limit || f < -t.limit {
		return datatype.Norm{}, t.BadValu(orig, "%s may only be -%.1f to %.1f", t.noun, t.limit, t.limit)
	}
	return datatype.Value(math.Trunc(f*Scale) / Scale), nil
}

// Index is round(valu*Scale)+limit*Scale as 5 big-endian bytes.
func (t *Angle) Index(valu any) ([]byte, error) {
	f, ok := valu.(float64)
	if !ok || f > t.limit || f < -t.limit {
		return nil, t.BadValu(valu, "index expects a normalized %s", strings.ToLower(t.noun))
	}
	n := math.Round(f*Scale) + t.space
	return datatype.UnsignedKey(uint64(n), angleWidth), nil
}

func (t *Angle) Repr(valu any) (string, error) {
	f, ok := valu.(float64)
	if !ok {
		return "", t.BadValu(valu, "repr expects float64, got %T", valu)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func (t *Angle) Extend(name string, opts map[string]any, info datatype.Info) (datatype.Type, error) {
	return newAngle(name, t.Name(), info, datatype.MergeOpts(t.Opts(), opts), t.limit, t.noun)
}
