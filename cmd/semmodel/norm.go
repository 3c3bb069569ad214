package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/c360/semmodel/config"
	"github.com/c360/semmodel/datatype"
	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/model"
	"github.com/c360/semmodel/tags"
)

type normResult struct {
	Type  string         `json:"type"`
	Value any            `json:"value"`
	Subs  map[string]any `json:"subs,omitempty"`
	Index string         `json:"index"`
	Repr  string         `json:"repr"`
}

func runNorm(a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("norm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "Parse the value as JSON instead of a plain string")
	asProp := fs.Bool("prop", false, "Treat the name as a full property name")
	if err := fs.Parse(args); err != nil {
		return errors.WrapInvalid(err, "CLI", "norm", "parse arguments")
	}
	if fs.NArg() != 2 {
		return errors.WrapInvalid(fmt.Errorf("usage: norm [-json] [-prop] <type> <value>"), "CLI", "norm", "parse arguments")
	}
	name, text := fs.Arg(0), fs.Arg(1)

	var raw any = text
	if *asJSON {
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return errors.WrapInvalid(err, "CLI", "norm", "decode JSON value")
		}
	}

	var t datatype.Type
	if *asProp {
		p := a.model.Prop(name)
		if p == nil {
			return errors.NewModelError(errors.KindNoSuchProp, name, "no such property")
		}
		t = p.Type
	} else {
		var err error
		if t, err = a.types.Type(name); err != nil {
			return err
		}
	}

	norm, err := a.types.Normalize(t.Name(), raw)
	if err != nil {
		return err
	}
	idx, err := t.Index(norm.Value)
	if err != nil {
		return err
	}
	repr, err := t.Repr(norm.Value)
	if err != nil {
		return err
	}
	return writeJSON(out, normResult{
		Type:  t.Name(),
		Value: norm.Value,
		Subs:  norm.Subs,
		Index: hex.EncodeToString(idx),
		Repr:  repr,
	})
}

func runTag(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.WrapInvalid(fmt.Errorf("usage: tag <text>"), "CLI", "tag", "parse arguments")
	}
	norm, err := tags.NewNormalizer(
		tags.WithCapacity(cfg.Model.TagCacheSize),
		tags.WithShards(cfg.Model.TagCacheShards),
	)
	if err != nil {
		return err
	}
	defer norm.Close()

	tag := norm.Normalize(args[0])
	if tag == "" {
		return errors.BadTypeValu(datatype.TypeTag, args[0], "tag is empty after normalization")
	}
	return writeJSON(out, map[string]any{
		"tag":   tag,
		"base":  tags.Base(tag),
		"depth": tags.Depth(tag),
		"parts": norm.Decompose(tag),
	})
}

func runTypes(a *app, out io.Writer) error {
	names := a.types.Names()
	packed := make([]map[string]any, 0, len(names))
	for _, name := range names {
		t, err := a.types.Type(name)
		if err != nil {
			continue
		}
		packed = append(packed, model.PackType(t))
	}
	return writeJSON(out, packed)
}

func packModel(m *model.Model) map[string]any {
	forms := make([]map[string]any, 0)
	for _, f := range m.Forms() {
		pf := f.Pack()
		props := make([]map[string]any, 0)
		for _, p := range f.Props() {
			props = append(props, p.Pack())
		}
		pf["props"] = props
		pf["extended"] = f.Extended
		forms = append(forms, pf)
	}
	univs := make([]map[string]any, 0)
	for _, p := range m.Univs() {
		univs = append(univs, p.Pack())
	}
	tagprops := make([]map[string]any, 0)
	for _, tp := range m.TagProps() {
		tagprops = append(tagprops, map[string]any{
			"name": tp.Name,
			"type": []any{tp.TypeName, tp.TypeOpts},
			"info": tp.Info,
		})
	}
	return map[string]any{
		"forms":    forms,
		"univs":    univs,
		"tagprops": tagprops,
		"counts":   m.Counts(),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
