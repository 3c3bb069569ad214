package datatype

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/c360/semmodel/pkg/chop"
)

// Str is a UTF-8 string. Options:
//
//	lower     lowercase the value
//	strip     trim surrounding whitespace
//	onespace  collapse whitespace runs (implies strip)
//	regex     the normalized value must match
type Str struct {
	Common
	lower, strip, onespace bool
	regex                  *regexp.Regexp
}

// NewStr builds a Str type from opts.
func NewStr(name, base string, info Info, opts map[string]any) (*Str, error) {
	t := &Str{}
	t.Common = NewCommon(name, base, info, opts, StorUTF8)
	t.lower = t.OptBool("lower", false)
	t.strip = t.OptBool("strip", false)
	t.onespace = t.OptBool("onespace", false)

	if expr := t.OptString("regex", ""); expr != "" {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, badDef(name, "invalid regex: %v", err)
		}
		t.regex = re
	}

	t.Handle(VariantStr, func(r Raw) (Norm, error) { return t.norm(r.Str, r.Value) })
	t.Handle(VariantInt, func(r Raw) (Norm, error) { return t.norm(strconv.FormatInt(r.Int, 10), r.Value) })
	t.Handle(VariantFloat, func(r Raw) (Norm, error) {
		return t.norm(strconv.FormatFloat(r.Float, 'f', -1, 64), r.Value)
	})
	t.Handle(VariantBool, func(r Raw) (Norm, error) { return t.norm(strconv.FormatBool(r.Bool), r.Value) })
	return t, nil
}

func (t *Str) norm(text string, orig any) (Norm, error) {
	if t.lower {
		text = strings.ToLower(text)
	}
	if t.onespace {
		text = chop.OneSpace(text)
	} else if t.strip {
		text = strings.TrimSpace(text)
	}
	if t.regex != nil && !t.regex.MatchString(text) {
		return Norm{}, t.BadValu(orig, "value does not match regex %s", t.regex)
	}
	return Value(text), nil
}

func (t *Str) Index(valu any) ([]byte, error) {
	s, ok := valu.(string)
	if !ok {
		return nil, t.BadValu(valu, "index expects string, got %T", valu)
	}
	return []byte(s), nil
}

func (t *Str) Repr(valu any) (string, error) {
	s, ok := valu.(string)
	if !ok {
		return "", t.BadValu(valu, "repr expects string, got %T", valu)
	}
	return s, nil
}

func (t *Str) Extend(name string, opts map[string]any, info Info) (Type, error) {
	return NewStr(name, t.name, info, MergeOpts(t.opts, opts))
}
