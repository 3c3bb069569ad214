// Package errors provides standardized error handling patterns for semmodel.
//
// # Overview
//
// Two families of errors live here.
//
// The first is the three-class classification inherited by every infrastructure
// component: Transient (temporary, retryable), Invalid (bad input, non-retryable)
// and Fatal (unrecoverable). Infrastructure code wraps third-party errors with
// context using the standard format:
//
//	"component.method: action failed: %w"
//
//	if err := kv.Put(ctx, key, data); err != nil {
//	    return errors.WrapTransient(err, "Store", "Save", "put record")
//	}
//
// The second is ModelError, the typed failure raised by value normalization
// and schema mutation. A ModelError carries a Kind plus the structured fields
// a caller needs to report the problem:
//
//	_, err := lat.Normalize(91.0)
//	// BadTypeValu: Latitude may only be -90.0 to 90.0 (name=geo:latitude valu=91)
//
// Kinds are matched with the package sentinels or KindOf:
//
//	if errors.Is(err, errors.ErrBadTypeValu) { ... }
//	switch errors.KindOf(err) {
//	case errors.KindAuthDeny:
//	case errors.KindDupPropName:
//	}
//
// Model errors always classify as Invalid: the caller may retry with corrected
// input, nothing retries them internally.
//
// # Kinds
//
//   - BadTypeValu: a raw value could not be normalized by its type
//   - BadTypeDef: unknown or malformed type options
//   - BadPropDef: an extended name violates the naming grammar
//   - DupPropName: a schema element name collides with an existing one
//   - CantDelForm: a form still owns extended properties
//   - AuthDeny: the caller lacks the permission for a mutating action
//   - NoSuchType, NoSuchForm, NoSuchProp: lookups that found nothing
//   - Unsupported: the operation is not allowed on this element (built-ins)
package errors
