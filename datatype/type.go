package datatype

import (
	"encoding/binary"
	"maps"
	"slices"

	"github.com/c360/semmodel/config"
	"github.com/c360/semmodel/errors"
)

// StorType identifies how a normalized value is laid out in storage.
type StorType int

// Storage layouts.
const (
	StorUTF8    StorType = 1
	StorU8      StorType = 2
	StorU16     StorType = 3
	StorU32     StorType = 4
	StorU64     StorType = 5
	StorI8      StorType = 6
	StorI16     StorType = 7
	StorI32     StorType = 8
	StorI64     StorType = 9
	StorGUID    StorType = 10
	StorTime    StorType = 11
	StorIval    StorType = 12
	StorMsgp    StorType = 13
	StorLatLong StorType = 14
	StorLoc     StorType = 15
	StorTag     StorType = 16
	StorFQDN    StorType = 17
	StorIPv6    StorType = 18
	StorU128    StorType = 19
	StorI128    StorType = 20
	StorMinTime StorType = 21
	StorFloat64 StorType = 22
)

// Info is the descriptive metadata of a type.
type Info struct {
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`
	Ex  string `json:"ex,omitempty" yaml:"ex,omitempty"`
}

// Norm is the result of normalizing a raw value.
type Norm struct {
	Value any
	Subs  map[string]any
}

// Type normalizes raw values into canonical values with ordered index keys.
type Type interface {
	Name() string
	// Base is the name of the type this one extends, "" for built-ins.
	Base() string
	Info() Info
	Opts() map[string]any
	StorType() StorType
	Accepts() []Variant

	Normalize(raw any) (Norm, error)
	// Index encodes a normalized value. It only fails for values that did
	// not come from Normalize.
	Index(valu any) ([]byte, error)
	Repr(valu any) (string, error)

	// Extend derives a named type with opts layered over this type's opts.
	Extend(name string, opts map[string]any, info Info) (Type, error)
}

// Handler normalizes one classified variant.
type Handler func(Raw) (Norm, error)

// Common carries the state every Type shares and dispatches Normalize to the
// handler registered for the input variant. Concrete types embed it.
type Common struct {
	name     string
	base     string
	info     Info
	opts     map[string]any
	stortype StorType
	handlers map[Variant]Handler
}

// NewCommon builds the shared part of a Type.
func NewCommon(name, base string, info Info, opts map[string]any, stor StorType) Common {
	if opts == nil {
		opts = map[string]any{}
	}
	return Common{
		name:     name,
		base:     base,
		info:     info,
		opts:     opts,
		stortype: stor,
		handlers: make(map[Variant]Handler),
	}
}

// Handle registers the handler for a variant.
func (c *Common) Handle(v Variant, h Handler) {
	c.handlers[v] = h
}

func (c *Common) Name() string       { return c.name }
func (c *Common) Base() string       { return c.base }
func (c *Common) Info() Info         { return c.info }
func (c *Common) StorType() StorType { return c.stortype }

// Opts returns a copy of the type options.
func (c *Common) Opts() map[string]any {
	return maps.Clone(c.opts)
}

// Accepts lists the accepted variants in ascending order.
func (c *Common) Accepts() []Variant {
	return slices.Sorted(maps.Keys(c.handlers))
}

// Normalize classifies raw once and dispatches to the variant's handler.
func (c *Common) Normalize(raw any) (Norm, error) {
	r, err := Classify(raw)
	if err != nil {
		return Norm{}, c.BadValu(raw, "%s", messageOf(err))
	}
	return c.NormalizeRaw(r)
}

// NormalizeRaw dispatches an already classified value.
func (c *Common) NormalizeRaw(r Raw) (Norm, error) {
	h, ok := c.handlers[r.Variant]
	if !ok {
		return Norm{}, c.BadValu(r.Value, "%s does not accept %s values", c.name, r.Variant)
	}
	return h(r)
}

// BadValu builds a BadTypeValu error naming this type.
func (c *Common) BadValu(valu any, format string, args ...any) error {
	return errors.BadTypeValu(c.name, valu, format, args...)
}

// OptString, OptBool and OptInt read type options.
func (c *Common) OptString(key, def string) string { return config.GetString(c.opts, key, def) }
func (c *Common) OptBool(key string, def bool) bool  { return config.GetBool(c.opts, key, def) }
func (c *Common) OptInt(key string) (int64, bool)    { return config.GetInt64(c.opts, key) }

// MergeOpts returns base overlaid with over. Neither input is modified.
func MergeOpts(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

// Norms without sub values share this map; callers must not modify it.
var noSubs = map[string]any{}

// Value wraps a canonical value with no sub values.
func Value(v any) Norm {
	return Norm{Value: v, Subs: noSubs}
}

// SignedKey encodes v as 8 big-endian bytes with the sign bit flipped, so
// negative values sort before positive ones.
func SignedKey(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v)^(1<<63))
	return buf
}

// UnsignedKey encodes v as width big-endian bytes.
func UnsignedKey(v uint64, width int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf[8-width:]
}

func badDef(name, format string, args ...any) error {
	return errors.NewModelError(errors.KindBadTypeDef, name, format, args...)
}

func messageOf(err error) string {
	var me *errors.ModelError
	if errors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	return err.Error()
}
