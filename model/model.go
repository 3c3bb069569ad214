// Package model is the schema catalog: forms and their properties, universal
// properties and tag properties, each bound to a datatype.Type.
//
// Elements loaded from the core model are built-in and cannot be deleted.
// Elements added through the exported Add* methods are extended. The
// methods enforce collisions, type resolution and referential integrity but
// not naming grammar or permissions; see package modelext for those.
package model

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/c360/semmodel/datatype"
	"github.com/c360/semmodel/errors"
)

// Info describes a form or property.
type Info struct {
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`
	RO  bool   `json:"ro,omitempty" yaml:"ro,omitempty"`
}

// Form is an entity kind backed by a type of the same name.
type Form struct {
	Name     string
	Type     datatype.Type
	Info     Info
	Extended bool

	props    []*Prop
	ownsType bool
}

// OwnsType reports whether the form defined its type when it was added, as
// opposed to reusing a type already registered under its name.
func (f *Form) OwnsType() bool {
	return f.ownsType
}

// Props returns the form properties in declaration order.
func (f *Form) Props() []*Prop {
	return slices.Clone(f.props)
}

// ExtendedProps returns the names of the extended properties in declaration order.
func (f *Form) ExtendedProps() []string {
	var names []string
	for _, p := range f.props {
		if p.Extended {
			names = append(names, p.Name)
		}
	}
	return names
}

// Pack returns the event representation of the form.
func (f *Form) Pack() map[string]any {
	props := make([]string, len(f.props))
	for i, p := range f.props {
		props[i] = p.Name
	}
	return map[string]any{
		"name":  f.Name,
		"doc":   f.Info.Doc,
		"props": props,
	}
}

// Prop is a form property or, when Form is "", a universal property.
type Prop struct {
	Form     string
	Name     string // relative name; universal names keep their leading "."
	Full     string
	TypeName string
	TypeOpts map[string]any
	Type     datatype.Type
	Info     Info
	Extended bool
}

// IsUniv reports whether the property is universal.
func (p *Prop) IsUniv() bool {
	return p.Form == ""
}

// Pack returns the event representation of the property.
func (p *Prop) Pack() map[string]any {
	return map[string]any{
		"full":     p.Full,
		"name":     p.Name,
		"stortype": int(p.Type.StorType()),
		"type":     []any{p.TypeName, p.TypeOpts},
		"doc":      p.Info.Doc,
		"ro":       p.Info.RO,
	}
}

// TagProp is a typed attribute attachable to any tag.
type TagProp struct {
	Name     string
	TypeName string
	TypeOpts map[string]any
	Type     datatype.Type
	Info     Info
	Extended bool
}

// PackType returns the event representation of a type.
func PackType(t datatype.Type) map[string]any {
	return map[string]any{
		"name":     t.Name(),
		"base":     t.Base(),
		"opts":     t.Opts(),
		"stortype": int(t.StorType()),
		"info":     t.Info(),
	}
}

// UnivFull returns the full name of a universal property, adding the leading
// "." when missing.
func UnivFull(name string) string {
	if strings.HasPrefix(name, ".") {
		return name
	}
	return "." + name
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// Model is the schema catalog. Safe for concurrent use.
type Model struct {
	mu    sync.RWMutex
	types *datatype.Registry

	forms     map[string]*Form
	formOrder []string
	props     map[string]*Prop // full name -> form or universal prop
	univOrder []string
	tagprops  map[string]*TagProp
	tagOrder  []string

	logger *slog.Logger
}

// New builds a model over types and loads the core model into it.
func New(types *datatype.Registry, opts ...Option) (*Model, error) {
	m := &Model{
		types:    types,
		forms:    make(map[string]*Form),
		props:    make(map[string]*Prop),
		tagprops: make(map[string]*TagProp),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadCore(); err != nil {
		return nil, errors.WrapFatal(err, "Model", "New", "load core model")
	}
	return m, nil
}

// Types returns the type registry.
func (m *Model) Types() *datatype.Registry {
	return m.types
}

// Type resolves a type by name.
func (m *Model) Type(name string) (datatype.Type, error) {
	return m.types.Type(name)
}

// Form returns the named form or nil.
func (m *Model) Form(name string) *Form {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forms[name]
}

// IsCoreForm reports whether name is a built-in form.
func (m *Model) IsCoreForm(name string) bool {
	f := m.Form(name)
	return f != nil && !f.Extended
}

// Forms returns all forms in the order they were added.
func (m *Model) Forms() []*Form {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Form, 0, len(m.formOrder))
	for _, name := range m.formOrder {
		out = append(out, m.forms[name])
	}
	return out
}

// Prop returns a property by full name ("form:prop" or ".univ") or nil.
func (m *Model) Prop(full string) *Prop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.props[full]
}

// FormProp returns the property name of form or nil.
func (m *Model) FormProp(form, name string) *Prop {
	return m.Prop(form + ":" + name)
}

// Univ returns a universal property by name, with or without the leading ".".
func (m *Model) Univ(name string) *Prop {
	return m.Prop(UnivFull(name))
}

// Univs returns the universal properties in the order they were added.
func (m *Model) Univs() []*Prop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Prop, 0, len(m.univOrder))
	for _, full := range m.univOrder {
		out = append(out, m.props[full])
	}
	return out
}

// TagProp returns the named tag property or nil.
func (m *Model) TagProp(name string) *TagProp {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tagprops[name]
}

// TagProps returns the tag properties in the order they were added.
func (m *Model) TagProps() []*TagProp {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*TagProp, 0, len(m.tagOrder))
	for _, name := range m.tagOrder {
		out = append(out, m.tagprops[name])
	}
	return out
}

// NormProp normalizes raw through the type of the property full.
func (m *Model) NormProp(full string, raw any) (datatype.Norm, error) {
	p := m.Prop(full)
	if p == nil {
		return datatype.Norm{}, errors.NewModelError(errors.KindNoSuchProp, full, "no such property")
	}
	return p.Type.Normalize(raw)
}

// NormTagProp normalizes raw through the type of the tag property name.
func (m *Model) NormTagProp(name string, raw any) (datatype.Norm, error) {
	tp := m.TagProp(name)
	if tp == nil {
		return datatype.Norm{}, errors.NewModelError(errors.KindNoSuchProp, name, "no such tag property")
	}
	return tp.Type.Normalize(raw)
}

// Counts reports how many extended forms, props, universal props and tag
// props the model holds.
func (m *Model) Counts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{"form": 0, "prop": 0, "univ": 0, "tagprop": 0}
	for _, f := range m.forms {
		if f.Extended {
			counts["form"]++
		}
	}
	for _, p := range m.props {
		switch {
		case !p.Extended:
		case p.IsUniv():
			counts["univ"]++
		default:
			counts["prop"]++
		}
	}
	for _, tp := range m.tagprops {
		if tp.Extended {
			counts["tagprop"]++
		}
	}
	return counts
}

// AddForm adds an extended form backed by a new type name derived from
// typeName and typeOpts.
func (m *Model) AddForm(name, typeName string, typeOpts map[string]any, info Info) (*Form, error) {
	return m.addForm(name, typeName, typeOpts, info, true)
}

func (m *Model) addForm(name, typeName string, typeOpts map[string]any, info Info, extended bool) (*Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.forms[name]; exists {
		return nil, errors.NewModelError(errors.KindDupPropName, name, "Form already exists")
	}

	var typ datatype.Type
	owns := false
	if existing, err := m.types.Type(name); err == nil && typeName == name {
		// backed by a type already registered under the form name
		typ = existing
	} else {
		owns = true
		typ, err = m.types.Define(name, typeName, typeOpts, datatype.Info{Doc: info.Doc})
		if err != nil {
			return nil, err
		}
	}

	f := &Form{Name: name, Type: typ, Info: info, Extended: extended, ownsType: owns}
	m.forms[name] = f
	m.formOrder = append(m.formOrder, name)
	m.logger.Debug("form added", "form", name, "type", typeName, "extended", extended)
	return f, nil
}

// AddFormProp adds an extended property to form.
func (m *Model) AddFormProp(form, name, typeName string, typeOpts map[string]any, info Info) (*Prop, error) {
	return m.addFormProp(form, name, typeName, typeOpts, info, true)
}

func (m *Model) addFormProp(form, name, typeName string, typeOpts map[string]any, info Info, extended bool) (*Prop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.forms[form]
	if !ok {
		return nil, errors.NewModelError(errors.KindNoSuchForm, form, "no such form")
	}
	full := form + ":" + name
	if _, exists := m.props[full]; exists {
		return nil, errors.NewModelError(errors.KindDupPropName, full, "Prop already exists")
	}
	typ, err := m.types.Resolve(typeName, typeOpts)
	if err != nil {
		return nil, err
	}

	p := &Prop{
		Form:     form,
		Name:     name,
		Full:     full,
		TypeName: typeName,
		TypeOpts: typeOpts,
		Type:     typ,
		Info:     info,
		Extended: extended,
	}
	f.props = append(f.props, p)
	m.props[full] = p
	m.logger.Debug("prop added", "prop", full, "type", typeName, "extended", extended)
	return p, nil
}

// AddUnivProp adds an extended universal property.
func (m *Model) AddUnivProp(name, typeName string, typeOpts map[string]any, info Info) (*Prop, error) {
	return m.addUnivProp(name, typeName, typeOpts, info, true)
}

func (m *Model) addUnivProp(name, typeName string, typeOpts map[string]any, info Info, extended bool) (*Prop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	full := UnivFull(name)
	if _, exists := m.props[full]; exists {
		return nil, errors.NewModelError(errors.KindDupPropName, full, "Universal prop already exists")
	}
	typ, err := m.types.Resolve(typeName, typeOpts)
	if err != nil {
		return nil, err
	}

	p := &Prop{
		Name:     full,
		Full:     full,
		TypeName: typeName,
		TypeOpts: typeOpts,
		Type:     typ,
		Info:     info,
		Extended: extended,
	}
	m.props[full] = p
	m.univOrder = append(m.univOrder, full)
	m.logger.Debug("universal prop added", "prop", full, "type", typeName, "extended", extended)
	return p, nil
}

// AddTagProp adds an extended tag property.
func (m *Model) AddTagProp(name, typeName string, typeOpts map[string]any, info Info) (*TagProp, error) {
	return m.addTagProp(name, typeName, typeOpts, info, true)
}

func (m *Model) addTagProp(name, typeName string, typeOpts map[string]any, info Info, extended bool) (*TagProp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tagprops[name]; exists {
		return nil, errors.NewModelError(errors.KindDupPropName, name, "Tag prop already exists")
	}
	typ, err := m.types.Resolve(typeName, typeOpts)
	if err != nil {
		return nil, err
	}

	tp := &TagProp{
		Name:     name,
		TypeName: typeName,
		TypeOpts: typeOpts,
		Type:     typ,
		Info:     info,
		Extended: extended,
	}
	m.tagprops[name] = tp
	m.tagOrder = append(m.tagOrder, name)
	m.logger.Debug("tag prop added", "tagprop", name, "type", typeName, "extended", extended)
	return tp, nil
}

// DelForm removes an extended form and, when the form defined it, its type.
// It fails with CantDelForm while the form still has extended properties or
// while other elements are typed by the form's type.
func (m *Model) DelForm(name string) (*Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.forms[name]
	if !ok {
		return nil, errors.NewModelError(errors.KindNoSuchForm, name, "no such form")
	}
	if !f.Extended {
		return nil, errors.NewModelError(errors.KindUnsupported, name, "Core forms cannot be deleted")
	}
	if ext := f.ExtendedProps(); len(ext) > 0 {
		return nil, errors.NewModelError(errors.KindCantDelForm, name,
			"Form has extended properties: %s", strings.Join(ext, ", "))
	}
	if f.ownsType {
		if users := m.typeUsers(name); len(users) > 0 {
			return nil, errors.NewModelError(errors.KindCantDelForm, name,
				"Form type is in use by: %s", strings.Join(users, ", "))
		}
	}

	delete(m.forms, name)
	m.formOrder = slices.DeleteFunc(m.formOrder, func(n string) bool { return n == name })
	if f.ownsType {
		m.types.Remove(name)
	}
	m.logger.Debug("form deleted", "form", name)
	return f, nil
}

// typeUsers lists the forms, properties, universal properties and tag
// properties typed by typeName, in declaration order. Callers hold m.mu.
func (m *Model) typeUsers(typeName string) []string {
	var users []string
	for _, fname := range m.formOrder {
		f := m.forms[fname]
		if f.Name != typeName && f.Type.Base() == typeName {
			users = append(users, f.Name)
		}
		for _, p := range f.props {
			if p.TypeName == typeName {
				users = append(users, p.Full)
			}
		}
	}
	for _, full := range m.univOrder {
		if p := m.props[full]; p.TypeName == typeName {
			users = append(users, full)
		}
	}
	for _, name := range m.tagOrder {
		if tp := m.tagprops[name]; tp.TypeName == typeName {
			users = append(users, "#:"+name)
		}
	}
	return users
}

// DelFormProp removes an extended property from form.
func (m *Model) DelFormProp(form, name string) (*Prop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.forms[form]
	if !ok {
		return nil, errors.NewModelError(errors.KindNoSuchForm, form, "no such form")
	}
	full := form + ":" + name
	p, ok := m.props[full]
	if !ok {
		return nil, errors.NewModelError(errors.KindNoSuchProp, full, "no such prop")
	}
	if !p.Extended {
		return nil, errors.NewModelError(errors.KindUnsupported, full, "Core props cannot be deleted")
	}

	delete(m.props, full)
	f.props = slices.DeleteFunc(f.props, func(x *Prop) bool { return x == p })
	m.logger.Debug("prop deleted", "prop", full)
	return p, nil
}

// RestoreFormProp puts a property returned by DelFormProp back at index in its
// form's declaration order. An index past the end appends.
func (m *Model) RestoreFormProp(p *Prop, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.forms[p.Form]
	if !ok {
		return errors.NewModelError(errors.KindNoSuchForm, p.Form, "no such form")
	}
	if _, exists := m.props[p.Full]; exists {
		return errors.NewModelError(errors.KindDupPropName, p.Full, "Prop already exists")
	}
	index = min(max(index, 0), len(f.props))
	f.props = slices.Insert(f.props, index, p)
	m.props[p.Full] = p
	return nil
}

// PropIndex returns the declaration position of prop in form, or -1.
func (m *Model) PropIndex(form, name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.forms[form]
	if !ok {
		return -1
	}
	return slices.IndexFunc(f.props, func(p *Prop) bool { return p.Name == name })
}

// DelUnivProp removes an extended universal property.
func (m *Model) DelUnivProp(name string) (*Prop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	full := UnivFull(name)
	p, ok := m.props[full]
	if !ok || !p.IsUniv() {
		return nil, errors.NewModelError(errors.KindNoSuchProp, full, "no such universal prop")
	}
	if !p.Extended {
		return nil, errors.NewModelError(errors.KindUnsupported, full, "Core universal props cannot be deleted")
	}

	delete(m.props, full)
	m.univOrder = slices.DeleteFunc(m.univOrder, func(n string) bool { return n == full })
	m.logger.Debug("universal prop deleted", "prop", full)
	return p, nil
}

// DelTagProp removes an extended tag property.
func (m *Model) DelTagProp(name string) (*TagProp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tp, ok := m.tagprops[name]
	if !ok {
		return nil, errors.NewModelError(errors.KindNoSuchProp, name, "no such tag prop")
	}
	if !tp.Extended {
		return nil, errors.NewModelError(errors.KindUnsupported, name, "Core tag props cannot be deleted")
	}

	delete(m.tagprops, name)
	m.tagOrder = slices.DeleteFunc(m.tagOrder, func(n string) bool { return n == name })
	m.logger.Debug("tag prop deleted", "tagprop", name)
	return tp, nil
}
