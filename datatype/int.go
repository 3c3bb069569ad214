package datatype

import (
	"math"
	"strconv"
	"strings"

	"github.com/c360/semmodel/config"
	"github.com/c360/semmodel/pkg/chop"
)

// Int is a bounded integer. Options:
//
//	size    byte width 1, 2, 4 or 8 (default 8)
//	signed  default true
//	min/max inclusive bounds
//	range   "min:max", merged with any min/max already set
//	enums   list of [int, name] pairs; names normalize to their int
type Int struct {
	Common
	minv, maxv int64
	signed     bool
	enumNorm   map[string]int64
	enumRepr   map[int64]string
}

// NewInt builds an Int type from opts.
func NewInt(name, base string, info Info, opts map[string]any) (*Int, error) {
	t := &Int{signed: true}

	size := config.GetInt(opts, "size", 8)
	t.signed = config.GetBool(opts, "signed", true)

	var stor StorType
	switch size {
	case 1:
		stor = pick(t.signed, StorI8, StorU8)
	case 2:
		stor = pick(t.signed, StorI16, StorU16)
	case 4:
		stor = pick(t.signed, StorI32, StorU32)
	case 8:
		stor = pick(t.signed, StorI64, StorU64)
	default:
		return nil, badDef(name, "invalid int size %d", size)
	}
	t.Common = NewCommon(name, base, info, opts, stor)

	bits := uint(size * 8)
	if t.signed {
		t.minv = -1 << (bits - 1)
		t.maxv = 1<<(bits-1) - 1
	} else {
		t.minv = 0
		t.maxv = math.MaxInt64
		if bits < 64 {
			t.maxv = 1<<bits - 1
		}
	}

	if v, ok := t.OptInt("min"); ok {
		t.minv = max(t.minv, v)
	}
	if v, ok := t.OptInt("max"); ok {
		t.maxv = min(t.maxv, v)
	}
	if text := t.OptString("range", ""); text != "" {
		lo, hi, err := chop.IntRange(text)
		if err != nil {
			return nil, badDef(name, "invalid range %q", text)
		}
		t.minv = max(t.minv, lo)
		t.maxv = min(t.maxv, hi)
	}
	if t.minv > t.maxv {
		return nil, badDef(name, "min %d is greater than max %d", t.minv, t.maxv)
	}

	if err := t.initEnums(); err != nil {
		return nil, err
	}

	t.Handle(VariantInt, t.normInt)
	t.Handle(VariantStr, t.normStr)
	t.Handle(VariantFloat, t.normFloat)
	t.Handle(VariantBool, t.normBool)
	return t, nil
}

func (t *Int) initEnums() error {
	raw, ok := t.opts["enums"]
	if !ok || raw == nil {
		return nil
	}
	pairs, ok := raw.([]any)
	if !ok {
		return badDef(t.name, "enums must be a list of [int, name] pairs")
	}
	t.enumNorm = make(map[string]int64, len(pairs))
	t.enumRepr = make(map[int64]string, len(pairs))
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			return badDef(t.name, "enums must be a list of [int, name] pairs")
		}
		n, ok := config.GetInt64(map[string]any{"v": pair[0]}, "v")
		label, isStr := pair[1].(string)
		if !ok || !isStr || label == "" {
			return badDef(t.name, "invalid enum pair %v", pair)
		}
		t.enumNorm[strings.ToLower(label)] = n
		t.enumRepr[n] = label
	}
	return nil
}

func (t *Int) normInt(r Raw) (Norm, error) {
	return t.check(r.Int, r.Value)
}

func (t *Int) normStr(r Raw) (Norm, error) {
	text := strings.TrimSpace(r.Str)
	if t.enumNorm != nil {
		if n, ok := t.enumNorm[strings.ToLower(text)]; ok {
			return t.check(n, r.Value)
		}
	}
	n, err := chop.IntStr(text)
	if err != nil {
		return Norm{}, t.BadValu(r.Value, "invalid integer")
	}
	return t.check(n, r.Value)
}

func (t *Int) normFloat(r Raw) (Norm, error) {
	if r.Float != math.Trunc(r.Float) || r.Float < math.MinInt64 || r.Float >= math.MaxInt64 {
		return Norm{}, t.BadValu(r.Value, "value is not an integer")
	}
	return t.check(int64(r.Float), r.Value)
}

func (t *Int) normBool(r Raw) (Norm, error) {
	if r.Bool {
		return t.check(1, r.Value)
	}
	return t.check(0, r.Value)
}

func (t *Int) check(n int64, orig any) (Norm, error) {
	if n < t.minv {
		return Norm{}, t.BadValu(orig, "value is less than %d", t.minv)
	}
	if n > t.maxv {
		return Norm{}, t.BadValu(orig, "value is greater than %d", t.maxv)
	}
	if t.enumRepr != nil {
		if _, ok := t.enumRepr[n]; !ok {
			return Norm{}, t.BadValu(orig, "value is not a valid enum")
		}
	}
	return Value(n), nil
}

// Index encodes the value as 8 sign-flipped big-endian bytes.
func (t *Int) Index(valu any) ([]byte, error) {
	n, ok := valu.(int64)
	if !ok {
		return nil, t.BadValu(valu, "index expects int64, got %T", valu)
	}
	return SignedKey(n), nil
}

// Repr returns the enum name or the decimal value.
func (t *Int) Repr(valu any) (string, error) {
	n, ok := valu.(int64)
	if !ok {
		return "", t.BadValu(valu, "repr expects int64, got %T", valu)
	}
	if label, ok := t.enumRepr[n]; ok {
		return label, nil
	}
	return strconv.FormatInt(n, 10), nil
}

func (t *Int) Extend(name string, opts map[string]any, info Info) (Type, error) {
	return NewInt(name, t.name, info, MergeOpts(t.opts, opts))
}

func pick(cond bool, a, b StorType) StorType {
	if cond {
		return a
	}
	return b
}
