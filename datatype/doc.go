// Package datatype defines the Type contract and the built-in types.
//
// A Type turns raw input into a canonical value (Normalize), encodes
// canonical values into byte keys whose lexicographic order matches the
// value order (Index), and renders them for display (Repr). Raw input is
// classified once into a Variant; each Type registers one Handler per
// variant it accepts and rejects the rest with BadTypeValu.
//
// Types live in a Registry owned by a model. Extended types are derived
// with Extend or Registry.Define, layering options over their base:
//
//	reg, _ := datatype.NewRegistry(norm)
//	pct, _ := reg.Define("pct", "int", map[string]any{"min": 0, "max": 100}, datatype.Info{})
//	n, err := pct.Normalize("42")
package datatype
