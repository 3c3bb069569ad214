package datatype

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
	"github.com/c360/semmodel/tags"
)

// Built-in type names.
const (
	TypeInt  = "int"
	TypeStr  = "str"
	TypeTime = "time"
	TypeBool = "bool"
	TypeHex  = "hex"
	TypeGUID = "guid"
	TypeTag  = "syn:tag"
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMetrics records Normalize outcomes per type.
func WithMetrics(m *metric.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// Registry holds the types known to one model. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	types   map[string]Type
	tags    *tags.Normalizer
	metrics *metric.Metrics
	logger  *slog.Logger
}

// NewRegistry creates a registry holding the built-in types.
func NewRegistry(norm *tags.Normalizer, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		types:  make(map[string]Type),
		tags:   norm,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	builtins := []func() (Type, error){
		func() (Type, error) {
			return NewInt(TypeInt, "", Info{Doc: "The base 64 bit signed integer type."}, nil)
		},
		func() (Type, error) { return NewStr(TypeStr, "", Info{Doc: "The base string type."}, nil) },
		func() (Type, error) {
			return NewTime(TypeTime, "", Info{Doc: "A date/time value in epoch milliseconds.", Ex: "2021/01/01"}, nil)
		},
		func() (Type, error) { return NewBool(TypeBool, "", Info{Doc: "The base boolean type."}, nil) },
		func() (Type, error) { return NewHex(TypeHex, "", Info{Doc: "The base hex type."}, nil) },
		func() (Type, error) {
			return NewGUID(TypeGUID, "", Info{Doc: "A 128 bit globally unique identifier."}, nil)
		},
		func() (Type, error) {
			return NewTag(TypeTag, "", Info{Doc: "The hierarchical tag type.", Ex: "foo.bar"}, nil, norm)
		},
	}
	for _, build := range builtins {
		t, err := build()
		if err != nil {
			return nil, err
		}
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Tags returns the tag normalizer shared by tag-valued types.
func (r *Registry) Tags() *tags.Normalizer {
	return r.tags
}

// Add registers a type under its name.
func (r *Registry) Add(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name()]; exists {
		return errors.NewModelError(errors.KindBadTypeDef, t.Name(), "type already exists")
	}
	r.types[t.Name()] = t
	return nil
}

// Remove unregisters a derived type. Built-in types are never removed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.types[name]
	if !ok || t.Base() == "" {
		return false
	}
	delete(r.types, name)
	return true
}

// Define extends base into a new named type and registers it.
func (r *Registry) Define(name, base string, opts map[string]any, info Info) (Type, error) {
	bt, err := r.Type(base)
	if err != nil {
		return nil, err
	}
	t, err := bt.Extend(name, opts, info)
	if err != nil {
		return nil, err
	}
	if err := r.Add(t); err != nil {
		return nil, err
	}
	r.logger.Debug("type defined", "name", name, "base", base)
	return t, nil
}

// Type resolves a type by name. Unknown names fail with NoSuchType.
func (r *Registry) Type(name string) (Type, error) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewModelError(errors.KindNoSuchType, name, "no such type")
	}
	return t, nil
}

// Resolve returns the named type, specialized with opts when any are given.
// The result is not registered.
func (r *Registry) Resolve(name string, opts map[string]any) (Type, error) {
	t, err := r.Type(name)
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return t, nil
	}
	return t.Extend(name, opts, t.Info())
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.types))
}

// Normalize resolves name and normalizes raw through it.
func (r *Registry) Normalize(name string, raw any) (Norm, error) {
	t, err := r.Type(name)
	if err != nil {
		return Norm{}, err
	}
	norm, err := t.Normalize(raw)
	if r.metrics != nil {
		r.metrics.RecordNormalization(name, err == nil)
	}
	return norm, err
}
