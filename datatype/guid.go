package datatype

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// GUID is a 128 bit identifier as 32 lowercase hex characters. "*" generates
// a random one. Dashed UUID text is accepted and normalized.
type GUID struct {
	Common
}

// NewGUID builds a GUID type.
func NewGUID(name, base string, info Info, opts map[string]any) (*GUID, error) {
	t := &GUID{}
	t.Common = NewCommon(name, base, info, opts, StorGUID)
	t.Handle(VariantStr, t.normStr)
	return t, nil
}

func (t *GUID) normStr(r Raw) (Norm, error) {
	text := strings.ToLower(strings.TrimSpace(r.Str))
	if text == "*" {
		id := uuid.New()
		return Value(hex.EncodeToString(id[:])), nil
	}
	if strings.Contains(text, "-") {
		id, err := uuid.Parse(text)
		if err != nil {
			return Norm{}, t.BadValu(r.Value, "invalid guid: %v", err)
		}
		return Value(hex.EncodeToString(id[:])), nil
	}
	if len(text) != 32 {
		return Norm{}, t.BadValu(r.Value, "guid must be 32 hex characters")
	}
	if _, err := hex.DecodeString(text); err != nil {
		return Norm{}, t.BadValu(r.Value, "guid must be 32 hex characters")
	}
	return Value(text), nil
}

func (t *GUID) Index(valu any) ([]byte, error) {
	s, ok := valu.(string)
	if !ok {
		return nil, t.BadValu(valu, "index expects string, got %T", valu)
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return nil, t.BadValu(valu, "not a normalized guid")
	}
	return b, nil
}

func (t *GUID) Repr(valu any) (string, error) {
	s, ok := valu.(string)
	if !ok {
		return "", t.BadValu(valu, "repr expects string, got %T", valu)
	}
	return s, nil
}

func (t *GUID) Extend(name string, opts map[string]any, info Info) (Type, error) {
	return NewGUID(name, t.name, info, MergeOpts(t.opts, opts))
}
