package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/config"
	"github.com/c360/semmodel/errors"
)

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		pattern, text string
		want          bool
	}{
		{"model.form.add", "model.form.add", true},
		{"model.form.add", "model.form.del", false},
		{"model.*.add", "model.prop.add", true},
		{"model.*.add", "model.prop.del", false},
		{"model.form.*", "model.form.del", true},
		{"model.*", "model.tagprop.add", true},
		{"*", "model.univ.del", true},
		{"model", "model.form.add", false},
		{"model.form.add.extra", "model.form.add", false},
		{"other.*", "model.form.add", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, matchWildcard(tt.pattern, tt.text))
		})
	}
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()
	p := NewPolicy()
	p.Set("root", Rule{Admin: true})
	p.Set("visi", Rule{Allow: []string{"model.*.add"}, Deny: []string{"model.tagprop.*"}})
	p.Set("fenced", Rule{Admin: true, Deny: []string{"model.form.del"}})

	assert.NoError(t, p.Allowed(ctx, "root", PermFormDel))

	assert.NoError(t, p.Allowed(ctx, "visi", PermFormAdd))
	assert.NoError(t, p.Allowed(ctx, "visi", PermUnivAdd))
	assert.Error(t, p.Allowed(ctx, "visi", PermFormDel))
	assert.Error(t, p.Allowed(ctx, "visi", PermTagPropAdd), "deny wins over allow")

	assert.NoError(t, p.Allowed(ctx, "fenced", PermFormAdd))
	assert.Error(t, p.Allowed(ctx, "fenced", PermFormDel), "deny wins over admin")

	err := p.Allowed(ctx, "stranger", PermFormAdd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAuthDeny))
	assert.Contains(t, err.Error(), "model.form.add")

	p.Remove("root")
	assert.Error(t, p.Allowed(ctx, "root", PermFormDel))
}

func TestAllowAllDenyAll(t *testing.T) {
	ctx := context.Background()
	for _, perm := range All {
		assert.NoError(t, AllowAll.Allowed(ctx, "anyone", perm))
		err := DenyAll.Allowed(ctx, "anyone", perm)
		assert.True(t, errors.IsKind(err, errors.KindAuthDeny))
	}
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	a, err := FromConfig(config.AuthConfig{Mode: config.AuthPolicy, Users: map[string]config.UserPolicy{
		"visi": {Allow: []string{"model.form.*"}},
	}})
	require.NoError(t, err)
	assert.NoError(t, a.Allowed(ctx, "visi", PermFormAdd))
	assert.Error(t, a.Allowed(ctx, "visi", PermPropAdd))

	a, err = FromConfig(config.AuthConfig{Mode: config.AuthAllowAll})
	require.NoError(t, err)
	assert.NoError(t, a.Allowed(ctx, "x", PermPropDel))

	a, err = FromConfig(config.AuthConfig{Mode: config.AuthDenyAll})
	require.NoError(t, err)
	assert.Error(t, a.Allowed(ctx, "x", PermPropDel))

	_, err = FromConfig(config.AuthConfig{Mode: "bogus"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
