package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the range of config file versions this build reads.
const SupportedVersions = "^1.0.0"

var supportedVersions = func() *semver.Constraints {
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		panic(err)
	}
	return c
}()

// Store backends
const (
	StoreMemory = "memory" // extensions live only as long as the process
	StoreKV     = "kv"     // extensions persisted in a NATS KV bucket
)

// Authorization modes
const (
	AuthPolicy   = "policy"
	AuthAllowAll = "allow_all"
	AuthDenyAll  = "deny_all"
)

// Config represents the complete application configuration
type Config struct {
	Version string        `json:"version"`
	Log     LogConfig     `json:"log"`
	NATS    NATSConfig    `json:"nats"`
	Model   ModelConfig   `json:"model"`
	Store   StoreConfig   `json:"store"`
	Events  EventsConfig  `json:"events"`
	Metrics MetricsConfig `json:"metrics"`
	Auth    AuthConfig    `json:"auth"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	Enabled       bool          `json:"enabled"`
	URLs          []string      `json:"urls,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// ModelConfig sizes the normalization caches and declares type options
// applied on top of the built-in types.
type ModelConfig struct {
	TagCacheSize   int                       `json:"tag_cache_size"`
	TagCacheShards int                       `json:"tag_cache_shards"`
	Types          map[string]map[string]any `json:"types,omitempty"` // name -> {"base": ..., opts...}
}

// StoreConfig selects where extension records are persisted
type StoreConfig struct {
	Backend  string `json:"backend"`
	Bucket   string `json:"bucket"`
	Replicas int    `json:"replicas,omitempty"`
	History  int    `json:"history,omitempty"`
}

// EventsConfig controls change event delivery
type EventsConfig struct {
	SubjectPrefix string `json:"subject_prefix"`
	QueueSize     int    `json:"queue_size"`
	Workers       int    `json:"workers"`
	Websocket     bool   `json:"websocket"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// AuthConfig declares per-user permissions
type AuthConfig struct {
	Mode  string                `json:"mode"`
	Users map[string]UserPolicy `json:"users,omitempty"`
}

// UserPolicy lists the permissions granted to one user. Entries may end in
// "*" to match a prefix.
type UserPolicy struct {
	Admin bool     `json:"admin,omitempty"`
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Version != "" {
		v, err := semver.NewVersion(c.Version)
		if err != nil {
			return fmt.Errorf("version '%s' is not a semantic version: %w", c.Version, err)
		}
		if !supportedVersions.Check(v) {
			return fmt.Errorf("version %s is not supported, want %s", c.Version, SupportedVersions)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level '%s' must be one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format '%s' must be json or text", c.Log.Format)
	}

	if c.Model.TagCacheSize <= 0 {
		return errors.New("model.tag_cache_size must be positive")
	}
	if c.Model.TagCacheShards <= 0 {
		return errors.New("model.tag_cache_shards must be positive")
	}
	for name, opts := range c.Model.Types {
		if name == "" {
			return errors.New("model.types entry with empty name")
		}
		if GetString(opts, "base", "") == "" {
			return fmt.Errorf("model.types.%s: base is required", name)
		}
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreKV:
		if !c.NATS.Enabled {
			return errors.New("store.backend 'kv' requires nats.enabled")
		}
		if c.Store.Bucket == "" {
			return errors.New("store.bucket is required for the kv backend")
		}
	default:
		return fmt.Errorf("store.backend '%s' must be memory or kv", c.Store.Backend)
	}

	if c.Events.SubjectPrefix != "" && !isValidNATSSubject(c.Events.SubjectPrefix) {
		return fmt.Errorf(
			"events.subject_prefix '%s' is not valid for NATS subjects (alphanumeric with dots, dashes, underscores)",
			c.Events.SubjectPrefix)
	}
	if c.Events.QueueSize < 0 || c.Events.Workers < 0 {
		return errors.New("events.queue_size and events.workers cannot be negative")
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
	}

	switch c.Auth.Mode {
	case AuthPolicy, AuthAllowAll, AuthDenyAll:
	default:
		return fmt.Errorf("auth.mode '%s' must be policy, allow_all or deny_all", c.Auth.Mode)
	}
	for user := range c.Auth.Users {
		if user == "" {
			return errors.New("auth.users entry with empty name")
		}
	}

	return nil
}

// isValidNATSSubject checks if a string is valid for use as a NATS subject prefix.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubject(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  "SEMMODEL",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		merged, err := mergeFromMap(cfg, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
		cfg = merged
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Version: "1.0.0",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Model: ModelConfig{
			TagCacheSize:   10000,
			TagCacheShards: 16,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Bucket:  "semmodel_extensions",
			History: 5,
		},
		Events: EventsConfig{
			SubjectPrefix: "semmodel.model",
			QueueSize:     1024,
			Workers:       1,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Auth: AuthConfig{
			Mode: AuthPolicy,
		},
	}
}

// loadRaw loads a JSON or YAML file as a map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}

	parseDurations(raw)
	return raw, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(data map[string]any) {
	if nats, ok := data["nats"].(map[string]any); ok {
		if wait, ok := nats["reconnect_wait"].(string); ok {
			if d, err := time.ParseDuration(wait); err == nil {
				nats["reconnect_wait"] = d.Nanoseconds()
			}
		}
	}
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(name string) (string, bool, error) {
		key := l.envPrefix + "_" + name
		val := os.Getenv(key)
		if err := validateEnvVar(key, val); err != nil {
			return "", false, err
		}
		return val, val != "", nil
	}

	if val, ok, err := env("LOG_LEVEL"); err != nil {
		return err
	} else if ok {
		cfg.Log.Level = val
	}
	if val, ok, err := env("LOG_FORMAT"); err != nil {
		return err
	} else if ok {
		cfg.Log.Format = val
	}

	if val, ok, err := env("NATS_URLS"); err != nil {
		return err
	} else if ok {
		cfg.NATS.URLs = strings.Split(val, ",")
		cfg.NATS.Enabled = true
	}
	if val, ok, err := env("NATS_USERNAME"); err != nil {
		return err
	} else if ok {
		cfg.NATS.Username = val
	}
	if val, ok, err := env("NATS_PASSWORD"); err != nil {
		return err
	} else if ok {
		cfg.NATS.Password = val
	}
	if val, ok, err := env("NATS_TOKEN"); err != nil {
		return err
	} else if ok {
		cfg.NATS.Token = val
	}

	if val, ok, err := env("STORE_BACKEND"); err != nil {
		return err
	} else if ok {
		cfg.Store.Backend = val
	}
	if val, ok, err := env("AUTH_MODE"); err != nil {
		return err
	} else if ok {
		cfg.Auth.Mode = val
	}
	if val, ok, err := env("METRICS_PORT"); err != nil {
		return err
	} else if ok {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_METRICS_PORT: %w", l.envPrefix, err)
		}
		cfg.Metrics.Port = port
		cfg.Metrics.Enabled = true
	}

	return nil
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.NATS.Password != "" {
		masked.NATS.Password = "***"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "***"
	}
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}
