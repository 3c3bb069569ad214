// Package tags canonicalizes hierarchical tag text and decomposes tags into
// their ancestor chain, memoizing both in bounded sharded caches.
package tags

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
	"github.com/c360/semmodel/pkg/cache"
	"github.com/c360/semmodel/pkg/chop"
)

const (
	// DefaultCapacity is the number of entries each memo cache holds.
	DefaultCapacity = 10000

	// Sep separates tag components.
	Sep = "."
)

type options struct {
	capacity int
	shards   int
	registry *metric.MetricsRegistry
	logger   *slog.Logger
}

// Option configures a Normalizer.
type Option func(*options)

// WithCapacity bounds each memo cache to n entries.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithShards sets how many independent cache shards are used.
func WithShards(n int) Option {
	return func(o *options) { o.shards = n }
}

// WithMetrics exports cache metrics under the tag_norm and tag_parts prefixes.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Normalizer memoizes Normalize and Decompose. Safe for concurrent use.
type Normalizer struct {
	norms        cache.Memo[string]
	parts        cache.Memo[[]string]
	computations atomic.Int64
	logger       *slog.Logger
}

// NewNormalizer creates a Normalizer with DefaultCapacity and cache.DefaultShards
// unless overridden.
func NewNormalizer(opts ...Option) (*Normalizer, error) {
	o := &options{
		capacity: DefaultCapacity,
		shards:   cache.DefaultShards,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	var normOpts []cache.Option[string]
	var partOpts []cache.Option[[]string]
	if o.registry != nil {
		normOpts = append(normOpts, cache.WithMetrics[string](o.registry, "tag_norm"))
		partOpts = append(partOpts, cache.WithMetrics[[]string](o.registry, "tag_parts"))
	}

	norms, err := cache.NewSharded(o.capacity, o.shards, normOpts...)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Normalizer", "NewNormalizer", "create normalize cache")
	}
	parts, err := cache.NewSharded(o.capacity, o.shards, partOpts...)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Normalizer", "NewNormalizer", "create decompose cache")
	}

	o.logger.Debug("tag normalizer ready", "capacity", o.capacity, "shards", o.shards)

	return &Normalizer{
		norms:  norms,
		parts:  parts,
		logger: o.logger,
	}, nil
}

// Normalize returns the canonical form of text. See Normalize.
func (n *Normalizer) Normalize(text string) string {
	norm, _ := n.norms.GetOrCompute(text, func() (string, error) {
		n.computations.Add(1)
		return Normalize(text), nil
	})
	return norm
}

// Decompose returns the ancestor chain of tag. The returned slice is a copy
// and may be modified by the caller.
func (n *Normalizer) Decompose(tag string) []string {
	parts, _ := n.parts.GetOrCompute(tag, func() ([]string, error) {
		n.computations.Add(1)
		return Decompose(tag), nil
	})
	return append([]string(nil), parts...)
}

// Computations reports how many times a value was computed rather than
// served from cache.
func (n *Normalizer) Computations() int64 {
	return n.computations.Load()
}

// Stats returns the normalize and decompose cache statistics.
func (n *Normalizer) Stats() (norms, parts cache.StatsSummary) {
	return n.norms.Stats().Summary(), n.parts.Stats().Summary()
}

// Close releases both caches.
func (n *Normalizer) Close() error {
	_ = n.norms.Close()
	return n.parts.Close()
}

// Normalize lowercases text, trims surrounding whitespace and '#', collapses
// whitespace inside each dot-separated component and drops empty components.
// It never fails.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "#")
	text = strings.TrimSpace(text)

	segs := strings.Split(text, Sep)
	out := segs[:0]
	for _, seg := range segs {
		if seg = chop.OneSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return strings.Join(out, Sep)
}

// Decompose splits a normalized tag into its prefixes, shortest first.
// "a.b.c" yields ["a", "a.b", "a.b.c"]. The empty tag has no prefixes.
func Decompose(tag string) []string {
	if tag == "" {
		return []string{}
	}
	segs := strings.Split(tag, Sep)
	out := make([]string, len(segs))
	for i := range segs {
		out[i] = strings.Join(segs[:i+1], Sep)
	}
	return out
}

// Parent returns the tag one level up, or "" for a root tag.
func Parent(tag string) string {
	if i := strings.LastIndex(tag, Sep); i >= 0 {
		return tag[:i]
	}
	return ""
}

// Base returns the last component of tag.
func Base(tag string) string {
	return tag[strings.LastIndex(tag, Sep)+1:]
}

// Depth is the number of components minus one, so root tags have depth 0.
func Depth(tag string) int {
	if tag == "" {
		return 0
	}
	return strings.Count(tag, Sep)
}
