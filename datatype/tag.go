package datatype

import (
	"strings"

	"github.com/c360/semmodel/tags"
)

// Tag is a hierarchical tag normalized through a shared tags.Normalizer.
// Subs: up (parent tag, "" at the root), depth and base (last component).
type Tag struct {
	Common
	norm *tags.Normalizer
}

// NewTag builds a Tag type backed by norm.
func NewTag(name, base string, info Info, opts map[string]any, norm *tags.Normalizer) (*Tag, error) {
	if norm == nil {
		return nil, badDef(name, "tag type requires a normalizer")
	}
	t := &Tag{norm: norm}
	t.Common = NewCommon(name, base, info, opts, StorTag)
	t.Handle(VariantStr, t.normStr)
	t.Handle(VariantList, t.normList)
	return t, nil
}

func (t *Tag) normStr(r Raw) (Norm, error) {
	tag := t.norm.Normalize(r.Str)
	if tag == "" {
		return Norm{}, t.BadValu(r.Value, "tag is empty after normalization")
	}
	return Norm{
		Value: tag,
		Subs: map[string]any{
			"up":    tags.Parent(tag),
			"depth": int64(tags.Depth(tag)),
			"base":  tags.Base(tag),
		},
	}, nil
}

// normList joins a list of components, so ["foo", "Bar Baz"] is "foo.bar baz".
func (t *Tag) normList(r Raw) (Norm, error) {
	parts := make([]string, 0, len(r.List))
	for _, item := range r.List {
		if item.Variant != VariantStr {
			return Norm{}, t.BadValu(r.Value, "tag components must be strings")
		}
		parts = append(parts, item.Str)
	}
	return t.normStr(Raw{Variant: VariantStr, Str: strings.Join(parts, tags.Sep), Value: r.Value})
}

func (t *Tag) Index(valu any) ([]byte, error) {
	s, ok := valu.(string)
	if !ok {
		return nil, t.BadValu(valu, "index expects string, got %T", valu)
	}
	return []byte(s), nil
}

func (t *Tag) Repr(valu any) (string, error) {
	s, ok := valu.(string)
	if !ok {
		return "", t.BadValu(valu, "repr expects string, got %T", valu)
	}
	return s, nil
}

func (t *Tag) Extend(name string, opts map[string]any, info Info) (Type, error) {
	return NewTag(name, t.name, info, MergeOpts(t.opts, opts), t.norm)
}
