// Package auth decides whether a user may perform a schema mutation.
package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/c360/semmodel/config"
	"github.com/c360/semmodel/errors"
)

// Perm names one (kind, action) permission, "model.<kind>.<action>".
type Perm string

// Schema mutation permissions.
const (
	PermFormAdd    Perm = "model.form.add"
	PermFormDel    Perm = "model.form.del"
	PermPropAdd    Perm = "model.prop.add"
	PermPropDel    Perm = "model.prop.del"
	PermUnivAdd    Perm = "model.univ.add"
	PermUnivDel    Perm = "model.univ.del"
	PermTagPropAdd Perm = "model.tagprop.add"
	PermTagPropDel Perm = "model.tagprop.del"
)

// All lists every schema mutation permission.
var All = []Perm{
	PermFormAdd, PermFormDel,
	PermPropAdd, PermPropDel,
	PermUnivAdd, PermUnivDel,
	PermTagPropAdd, PermTagPropDel,
}

// Authorizer checks permissions. Allowed returns nil when user holds perm
// and an AuthDeny error otherwise.
type Authorizer interface {
	Allowed(ctx context.Context, user string, perm Perm) error
}

// Func adapts a function to Authorizer.
type Func func(ctx context.Context, user string, perm Perm) error

// Allowed calls f.
func (f Func) Allowed(ctx context.Context, user string, perm Perm) error {
	return f(ctx, user, perm)
}

// AllowAll grants everything.
var AllowAll Authorizer = Func(func(context.Context, string, Perm) error { return nil })

// DenyAll refuses everything.
var DenyAll Authorizer = Func(func(_ context.Context, user string, perm Perm) error {
	return Deny(user, perm)
})

// Deny builds the AuthDeny error for user and perm.
func Deny(user string, perm Perm) error {
	return errors.NewModelError(errors.KindAuthDeny, user, "User is not allowed %s", perm)
}

// Rule is the permission set of one user.
type Rule struct {
	Admin bool
	Allow []string
	Deny  []string
}

// Policy is a per-user rule table. Deny patterns are checked first, then
// admin, then allow patterns. Unknown users are denied.
//
// Patterns are dot-separated and match component-wise, with "*" matching
// any single component; "model.*.add" grants every add. A trailing "*"
// component also matches any remaining components, so "model.*" and "*"
// match every permission.
type Policy struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewPolicy creates an empty policy.
func NewPolicy() *Policy {
	return &Policy{rules: make(map[string]Rule)}
}

// PolicyFromConfig builds a policy from the auth.users section.
func PolicyFromConfig(users map[string]config.UserPolicy) *Policy {
	p := NewPolicy()
	for user, up := range users {
		p.Set(user, Rule{Admin: up.Admin, Allow: up.Allow, Deny: up.Deny})
	}
	return p
}

// FromConfig returns the Authorizer selected by cfg.Mode.
func FromConfig(cfg config.AuthConfig) (Authorizer, error) {
	switch cfg.Mode {
	case config.AuthAllowAll:
		return AllowAll, nil
	case config.AuthDenyAll:
		return DenyAll, nil
	case config.AuthPolicy, "":
		return PolicyFromConfig(cfg.Users), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "auth", "FromConfig", "unknown mode "+cfg.Mode)
	}
}

// Set replaces the rule for user.
func (p *Policy) Set(user string, r Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules[user] = r
}

// Remove drops user from the policy.
func (p *Policy) Remove(user string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rules, user)
}

// Allowed implements Authorizer.
func (p *Policy) Allowed(_ context.Context, user string, perm Perm) error {
	p.mu.RLock()
	r, ok := p.rules[user]
	p.mu.RUnlock()
	if !ok {
		return Deny(user, perm)
	}

	for _, pattern := range r.Deny {
		if matchWildcard(pattern, string(perm)) {
			return Deny(user, perm)
		}
	}
	if r.Admin {
		return nil
	}
	for _, pattern := range r.Allow {
		if matchWildcard(pattern, string(perm)) {
			return nil
		}
	}
	return Deny(user, perm)
}

func matchWildcard(pattern, text string) bool {
	patternParts := strings.Split(pattern, ".")
	textParts := strings.Split(text, ".")

	for i, part := range patternParts {
		last := i == len(patternParts)-1
		if last && part == "*" {
			return len(textParts) >= len(patternParts)
		}
		if i >= len(textParts) {
			return false
		}
		if part != "*" && part != textParts[i] {
			return false
		}
	}
	return len(patternParts) == len(textParts)
}
