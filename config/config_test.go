package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10000, cfg.Model.TagCacheSize)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, AuthPolicy, cfg.Auth.Mode)
}

func TestLoader_JSONLayer(t *testing.T) {
	path := writeFile(t, "semmodel.json", `{
		"log": {"level": "debug"},
		"nats": {"enabled": true, "reconnect_wait": "5s"},
		"model": {"tag_cache_size": 500},
		"auth": {"users": {"root": {"admin": true}, "visi": {"allow": ["model.form.*"]}}}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "untouched keys keep defaults")
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, 500, cfg.Model.TagCacheSize)
	assert.Equal(t, 16, cfg.Model.TagCacheShards)
	assert.True(t, cfg.Auth.Users["root"].Admin)
	assert.Equal(t, []string{"model.form.*"}, cfg.Auth.Users["visi"].Allow)
}

func TestLoader_YAMLLayersMerge(t *testing.T) {
	base := writeFile(t, "base.yaml", `
log:
  format: json
model:
  types:
    score:
      base: int
      min: 0
      max: 100
`)
	override := writeFile(t, "override.yml", `
model:
  tag_cache_shards: 4
store:
  backend: memory
`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Model.TagCacheShards)
	require.Contains(t, cfg.Model.Types, "score")
	assert.Equal(t, "int", GetString(cfg.Model.Types["score"], "base", ""))
	assert.Equal(t, 100, GetInt(cfg.Model.Types["score"], "max", 0))
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SEMMODEL_LOG_LEVEL", "warn")
	t.Setenv("SEMMODEL_NATS_URLS", "nats://a:4222,nats://b:4222")
	t.Setenv("SEMMODEL_METRICS_PORT", "9191")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.URLs)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

func TestLoader_BadEnvPort(t *testing.T) {
	t.Setenv("SEMMODEL_METRICS_PORT", "http")
	_, err := NewLoader().Load()
	require.Error(t, err)
}

func TestLoader_RejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "semmodel.toml", `x = 1`)
	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only JSON or YAML")
}

func TestLoader_ValidationFailure(t *testing.T) {
	path := writeFile(t, "bad.json", `{"store": {"backend": "kv"}}`)
	loader := NewLoader()
	loader.AddLayer(path)
	loader.EnableValidation(true)

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires nats.enabled")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad version", func(c *Config) { c.Version = "one" }, "not a semantic version"},
		{"future version", func(c *Config) { c.Version = "2.0.0" }, "not supported"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero cache", func(c *Config) { c.Model.TagCacheSize = 0 }, "tag_cache_size"},
		{"type without base", func(c *Config) {
			c.Model.Types = map[string]map[string]any{"score": {"min": 0}}
		}, "base is required"},
		{"bad backend", func(c *Config) { c.Store.Backend = "disk" }, "store.backend"},
		{"bad subject", func(c *Config) { c.Events.SubjectPrefix = "semmodel..model" }, "subject_prefix"},
		{"bad port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 70000 }, "metrics.port"},
		{"bad auth mode", func(c *Config) { c.Auth.Mode = "maybe" }, "auth.mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_SaveAndReload(t *testing.T) {
	cfg := Defaults()
	cfg.Model.TagCacheSize = 42
	path := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Model.TagCacheSize)
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.NATS.Password = "hunter2"
	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.Equal(t, "hunter2", cfg.NATS.Password)
}

func TestValidateJSONDepth(t *testing.T) {
	require.NoError(t, validateJSONDepth([]byte(`{"a": [1, {"b": "[[["}]}`)))

	deep := strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)
	assert.ErrorContains(t, validateJSONDepth([]byte(deep)), "too deep")

	assert.Error(t, validateJSONDepth([]byte(`{"a": [1, 2}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a": [1, 2]`)))
}
