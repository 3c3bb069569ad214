package datatype

import (
	"strings"
)

// Bool is a boolean. Ints are true when non-zero; strings accept the usual
// spellings (true/false, 1/0, yes/no, on/off).
type Bool struct {
	Common
}

// NewBool builds a Bool type.
func NewBool(name, base string, info Info, opts map[string]any) (*Bool, error) {
	t := &Bool{}
	t.Common = NewCommon(name, base, info, opts, StorU8)
	t.Handle(VariantBool, func(r Raw) (Norm, error) { return Value(r.Bool), nil })
	t.Handle(VariantInt, func(r Raw) (Norm, error) { return Value(r.Int != 0), nil })
	t.Handle(VariantStr, func(r Raw) (Norm, error) {
		switch strings.ToLower(strings.TrimSpace(r.Str)) {
		case "true", "1", "yes", "on":
			return Value(true), nil
		case "false", "0", "no", "off":
			return Value(false), nil
		}
		return Norm{}, t.BadValu(r.Value, "invalid boolean string")
	})
	return t, nil
}

func (t *Bool) Index(valu any) ([]byte, error) {
	b, ok := valu.(bool)
	if !ok {
		return nil, t.BadValu(valu, "index expects bool, got %T", valu)
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (t *Bool) Repr(valu any) (string, error) {
	b, ok := valu.(bool)
	if !ok {
		return "", t.BadValu(valu, "repr expects bool, got %T", valu)
	}
	if b {
		return "true", nil
	}
	return "false", nil
}

func (t *Bool) Extend(name string, opts map[string]any, info Info) (Type, error) {
	return NewBool(name, t.name, info, MergeOpts(t.opts, opts))
}
