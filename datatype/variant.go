package datatype

import (
	"encoding/json"
	"math"

	"github.com/c360/semmodel/errors"
)

// Variant is the runtime shape of a raw input value.
type Variant int

// Raw input variants. A Type declares which of these it accepts.
const (
	VariantInt Variant = iota + 1
	VariantFloat
	VariantStr
	VariantBool
	VariantList
)

// String returns the variant name
func (v Variant) String() string {
	switch v {
	case VariantInt:
		return "int"
	case VariantFloat:
		return "float"
	case VariantStr:
		return "str"
	case VariantBool:
		return "bool"
	case VariantList:
		return "list"
	default:
		return "unknown"
	}
}

// Raw is a classified input value. Only the field matching Variant is set.
type Raw struct {
	Variant Variant
	Int     int64
	Float   float64
	Str     string
	Bool    bool
	List    []Raw

	// Value is the value as the caller passed it, kept for error reporting.
	Value any
}

// IntRaw, StrRaw and friends build classified values directly.
func IntRaw(v int64) Raw     { return Raw{Variant: VariantInt, Int: v, Value: v} }
func FloatRaw(v float64) Raw { return Raw{Variant: VariantFloat, Float: v, Value: v} }
func StrRaw(v string) Raw    { return Raw{Variant: VariantStr, Str: v, Value: v} }
func BoolRaw(v bool) Raw     { return Raw{Variant: VariantBool, Bool: v, Value: v} }

// Classify inspects the Go shape of v once and returns its Raw form.
// Unsigned values above math.MaxInt64, NaN, infinities, nil and any
// unrecognized shape fail with BadTypeValu.
func Classify(v any) (Raw, error) {
	switch x := v.(type) {
	case Raw:
		return x, nil
	case int:
		return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
	case int8:
		return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
	case int16:
		return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
	case int32:
		return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
	case int64:
		return Raw{Variant: VariantInt, Int: x, Value: v}, nil
	case uint8:
		return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
	case uint16:
		return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
	case uint32:
		return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
	case uint:
		return classifyUint(uint64(x), v)
	case uint64:
		return classifyUint(x, v)
	case float32:
		return classifyFloat(float64(x), v)
	case float64:
		return classifyFloat(x, v)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Raw{Variant: VariantInt, Int: i, Value: v}, nil
		}
		f, err := x.Float64()
		if err != nil {
			return Raw{}, errors.BadTypeValu("", v, "invalid json number")
		}
		return classifyFloat(f, v)
	case string:
		return Raw{Variant: VariantStr, Str: x, Value: v}, nil
	case bool:
		return Raw{Variant: VariantBool, Bool: x, Value: v}, nil
	case []any:
		return classifyList(len(x), func(i int) any { return x[i] }, v)
	case []string:
		return classifyList(len(x), func(i int) any { return x[i] }, v)
	case []int:
		return classifyList(len(x), func(i int) any { return x[i] }, v)
	case []int64:
		return classifyList(len(x), func(i int) any { return x[i] }, v)
	case []float64:
		return classifyList(len(x), func(i int) any { return x[i] }, v)
	case [2]float64:
		return classifyList(2, func(i int) any { return x[i] }, v)
	case [2]any:
		return classifyList(2, func(i int) any { return x[i] }, v)
	case nil:
		return Raw{}, errors.BadTypeValu("", nil, "nil value")
	default:
		return Raw{}, errors.BadTypeValu("", v, "unsupported value shape %T", v)
	}
}

func classifyUint(x uint64, v any) (Raw, error) {
	if x > math.MaxInt64 {
		return Raw{}, errors.BadTypeValu("", v, "integer out of range")
	}
	return Raw{Variant: VariantInt, Int: int64(x), Value: v}, nil
}

func classifyFloat(f float64, v any) (Raw, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Raw{}, errors.BadTypeValu("", v, "non-finite float")
	}
	return Raw{Variant: VariantFloat, Float: f, Value: v}, nil
}

func classifyList(n int, at func(int) any, v any) (Raw, error) {
	items := make([]Raw, n)
	for i := range items {
		item, err := Classify(at(i))
		if err != nil {
			return Raw{}, err
		}
		items[i] = item
	}
	return Raw{Variant: VariantList, List: items, Value: v}, nil
}
