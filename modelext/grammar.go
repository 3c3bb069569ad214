package modelext

import (
	"regexp"
	"strings"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/tags"
)

var (
	formNameRe    = regexp.MustCompile(`^_[a-z0-9_]+(:[a-z0-9_]+)+$`)
	propNameRe    = regexp.MustCompile(`^[a-z0-9_]+(:[a-z0-9_]+)*$`)
	univNameRe    = regexp.MustCompile(`^_[a-z0-9_]+(:[a-z0-9_]+)*$`)
	tagPropNameRe = regexp.MustCompile(`^[a-z0-9_]+([:.][a-z0-9_]+)*$`)
)

func badName(name, what string) error {
	return errors.NewModelError(errors.KindBadPropDef, name, "Invalid %s name %s", what, name)
}

// illegal catches the characters no extended name may carry, whatever its grammar.
func illegal(name string) bool {
	return name == "" || strings.Contains(name, "^") || strings.Contains(name, "::")
}

// CheckFormName validates an extended form name such as "_visi:int".
func CheckFormName(name string) error {
	if illegal(name) || !formNameRe.MatchString(name) {
		return badName(name, "form")
	}
	return nil
}

// CheckPropName validates the relative name of a property added to a form.
// Properties of core forms must themselves be extended names.
func CheckPropName(name string, coreForm bool) error {
	if illegal(name) || !propNameRe.MatchString(name) {
		return badName(name, "property")
	}
	if coreForm && !strings.HasPrefix(name, "_") {
		return badName(name, "property")
	}
	return nil
}

// CheckUnivName validates a universal property name, with or without its
// leading ".", and returns it without the dot.
func CheckUnivName(name string) (string, error) {
	rel := strings.TrimPrefix(name, ".")
	if illegal(rel) || !univNameRe.MatchString(rel) {
		return "", badName(name, "universal property")
	}
	return rel, nil
}

// CheckTagPropName normalizes a tag property name the way tags are normalized
// and validates the result.
func CheckTagPropName(name string) (string, error) {
	norm := tags.Normalize(name)
	if illegal(norm) || !tagPropNameRe.MatchString(norm) {
		return "", badName(name, "tag property")
	}
	return norm, nil
}
