package datatype

import (
	"encoding/hex"
	"strconv"

	"github.com/c360/semmodel/pkg/chop"
)

// Hex is a lowercase hex string without a 0x prefix. The size option fixes
// the number of hex characters; ints are zero padded to it.
type Hex struct {
	Common
	size int64
}

// NewHex builds a Hex type.
func NewHex(name, base string, info Info, opts map[string]any) (*Hex, error) {
	t := &Hex{}
	t.Common = NewCommon(name, base, info, opts, StorUTF8)
	if size, ok := t.OptInt("size"); ok {
		if size <= 0 || size%2 != 0 {
			return nil, badDef(name, "hex size must be a positive even number")
		}
		t.size = size
	}
	t.Handle(VariantStr, t.normStr)
	t.Handle(VariantInt, t.normInt)
	return t, nil
}

func (t *Hex) normStr(r Raw) (Norm, error) {
	text, err := chop.HexStr(r.Str)
	if err != nil {
		return Norm{}, t.BadValu(r.Value, "%s", messageOf(err))
	}
	return t.checkSize(text, r.Value)
}

func (t *Hex) normInt(r Raw) (Norm, error) {
	if r.Int < 0 {
		return Norm{}, t.BadValu(r.Value, "hex cannot encode negative integers")
	}
	text := strconv.FormatUint(uint64(r.Int), 16)
	width := int64(len(text) + len(text)%2)
	if t.size > width {
		width = t.size
	}
	for int64(len(text)) < width {
		text = "0" + text
	}
	return t.checkSize(text, r.Value)
}

func (t *Hex) checkSize(text string, orig any) (Norm, error) {
	if t.size != 0 && int64(len(text)) != t.size {
		return Norm{}, t.BadValu(orig, "invalid width %d, expected %d", len(text), t.size)
	}
	return Value(text), nil
}

// Index is the decoded bytes, so keys sort numerically for equal widths.
func (t *Hex) Index(valu any) ([]byte, error) {
	s, ok := valu.(string)
	if !ok {
		return nil, t.BadValu(valu, "index expects string, got %T", valu)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, t.BadValu(valu, "%v", err)
	}
	return b, nil
}

func (t *Hex) Repr(valu any) (string, error) {
	s, ok := valu.(string)
	if !ok {
		return "", t.BadValu(valu, "repr expects string, got %T", valu)
	}
	return s, nil
}

func (t *Hex) Extend(name string, opts map[string]any, info Info) (Type, error) {
	return NewHex(name, t.name, info, MergeOpts(t.opts, opts))
}
