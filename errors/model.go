package errors

import (
	"errors"
	"fmt"
)

// Kind identifies a schema or normalization failure.
type Kind string

// Model error kinds. Every kind is recoverable by the caller and
// none of them leave partial state behind.
const (
	KindBadTypeValu Kind = "BadTypeValu"
	KindBadTypeDef  Kind = "BadTypeDef"
	KindBadPropDef  Kind = "BadPropDef"
	KindDupPropName Kind = "DupPropName"
	KindCantDelForm Kind = "CantDelForm"
	KindAuthDeny    Kind = "AuthDeny"
	KindNoSuchType  Kind = "NoSuchType"
	KindNoSuchForm  Kind = "NoSuchForm"
	KindNoSuchProp  Kind = "NoSuchProp"
	KindUnsupported Kind = "Unsupported"
)

// Sentinels usable with errors.Is against any *ModelError of the same kind.
var (
	ErrBadTypeValu = &ModelError{Kind: KindBadTypeValu}
	ErrBadTypeDef  = &ModelError{Kind: KindBadTypeDef}
	ErrBadPropDef  = &ModelError{Kind: KindBadPropDef}
	ErrDupPropName = &ModelError{Kind: KindDupPropName}
	ErrCantDelForm = &ModelError{Kind: KindCantDelForm}
	ErrAuthDeny    = &ModelError{Kind: KindAuthDeny}
	ErrNoSuchType  = &ModelError{Kind: KindNoSuchType}
	ErrNoSuchForm  = &ModelError{Kind: KindNoSuchForm}
	ErrNoSuchProp  = &ModelError{Kind: KindNoSuchProp}
	ErrUnsupported = &ModelError{Kind: KindUnsupported}
)

// ModelError carries the structured payload of a schema failure: the kind,
// the type or element name involved, the rejected raw value and a message.
type ModelError struct {
	Kind    Kind
	Name    string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ModelError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Name != "" && e.Value != nil:
		return fmt.Sprintf("%s: %s (name=%s valu=%v)", e.Kind, msg, e.Name, e.Value)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (name=%s)", e.Kind, msg, e.Name)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
}

// Is reports kind equality so sentinels match any error of the same kind.
func (e *ModelError) Is(target error) bool {
	var t *ModelError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// BadTypeValu reports a raw value the named type could not normalize.
func BadTypeValu(name string, valu any, format string, args ...any) *ModelError {
	return &ModelError{Kind: KindBadTypeValu, Name: name, Value: valu, Message: fmt.Sprintf(format, args...)}
}

// NewModelError builds a model error of the given kind for a named element.
func NewModelError(kind Kind, name, format string, args ...any) *ModelError {
	return &ModelError{Kind: kind, Name: name, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *ModelError in the chain, or "".
func KindOf(err error) Kind {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// IsKind reports whether err carries a model error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
