// Package engine wires the waveform pipeline together: text is parsed
// into an expression tree, canonicalized, and compiled into sample
// buffers through a shared cache. The Engine is the surface external
// collaborators (device drivers, calibration tooling) consume; each
// Engine owns its own cache, so tests and independent subsystems get
// full isolation by constructing their own.
package engine

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pulsekit/go-pulse/cache"
	"github.com/pulsekit/go-pulse/canon"
	"github.com/pulsekit/go-pulse/config"
	"github.com/pulsekit/go-pulse/dsl"
	"github.com/pulsekit/go-pulse/sampler"
	"github.com/pulsekit/go-pulse/store"
	"github.com/pulsekit/go-pulse/wave"
)

// Limits bounds accepted expressions. A zero field disables that bound.
type Limits struct {
	MaxNodes int
	MaxDepth int
}

// Engine compiles waveform expressions to sample buffers. It is safe
// for concurrent use; the cache is the only shared mutable state and
// identical concurrent compilations are collapsed into one.
type Engine struct {
	comp     *sampler.Compiler
	cache    *cache.Cache
	limits   Limits
	log      zerolog.Logger
	parallel bool
	store    cache.BufferStore
	capacity int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards logs.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCacheCapacity bounds the buffer cache; 0 means unbounded.
func WithCacheCapacity(capacity int) Option {
	return func(e *Engine) { e.capacity = capacity }
}

// WithLimits sets the expression size guard.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithStore wires a persistent buffer tier behind the cache.
func WithStore(s cache.BufferStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithParallel toggles concurrent compilation of sum/product children.
func WithParallel(enabled bool) Option {
	return func(e *Engine) { e.parallel = enabled }
}

// New creates an Engine with its own empty cache.
func New(opts ...Option) *Engine {
	def := config.Default()
	e := &Engine{
		limits:   Limits{MaxNodes: def.Limits.MaxNodes, MaxDepth: def.Limits.MaxDepth},
		log:      zerolog.Nop(),
		capacity: def.Cache.Capacity,
	}
	for _, opt := range opts {
		opt(e)
	}
	var cacheOpts []cache.Option
	if e.store != nil {
		cacheOpts = append(cacheOpts, cache.WithStore(e.store))
	}
	e.cache = cache.New(e.capacity, cacheOpts...)
	e.comp = sampler.New(sampler.WithMemo(e.cache), sampler.WithParallel(e.parallel))
	return e
}

// NewFromConfig builds an Engine from loaded configuration, opening the
// persistent store when one is configured.
func NewFromConfig(cfg config.Config, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		log = log.Level(lvl)
	}
	opts := []Option{
		WithLogger(log),
		WithCacheCapacity(cfg.Cache.Capacity),
		WithLimits(Limits{MaxNodes: cfg.Limits.MaxNodes, MaxDepth: cfg.Limits.MaxDepth}),
	}
	if cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithStore(s))
	}
	return New(opts...), nil
}

// Parse turns waveform text into an expression tree. Errors are
// *dsl.SyntaxError values with 1-based positions.
func (e *Engine) Parse(text string) (wave.Expr, error) {
	return dsl.Parse(text)
}

// Canonicalize returns the canonical form of expr.
func (e *Engine) Canonicalize(expr wave.Expr) wave.Expr {
	return canon.Canonicalize(expr)
}

// Fingerprint returns the canonical structural hash of expr. Two
// expressions denoting the same waveform fingerprint identically, which
// lets calibration tooling detect "same waveform" without sampling.
func (e *Engine) Fingerprint(expr wave.Expr) uint64 {
	return canon.Fingerprint(expr)
}

// SameWaveform reports whether two expressions canonicalize to the same
// tree.
func (e *Engine) SameWaveform(a, b wave.Expr) bool {
	return canon.Equal(a, b)
}

// Sample compiles expr over the grid (start, rate, length) and returns
// the sample values. This is the primary entry point for external
// callers; the returned slice is a private copy the caller owns.
func (e *Engine) Sample(expr wave.Expr, start, rate float64, length int) ([]float64, error) {
	buf, err := e.Compile(expr, start, rate, length)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(buf.Samples))
	copy(out, buf.Samples)
	return out, nil
}

// SampleText parses and samples in one call.
func (e *Engine) SampleText(text string, start, rate float64, length int) ([]float64, error) {
	expr, err := dsl.Parse(text)
	if err != nil {
		return nil, err
	}
	return e.Sample(expr, start, rate, length)
}

// Compile compiles expr over the grid and returns the buffer itself.
// The buffer may be shared with the cache: callers must treat it as
// read-only and Clone before mutating.
func (e *Engine) Compile(expr wave.Expr, start, rate float64, length int) (*sampler.Buffer, error) {
	d, err := sampler.NewDomain(start, rate, length)
	if err != nil {
		return nil, err
	}
	if err := e.checkLimits(expr); err != nil {
		return nil, err
	}
	ce := canon.Canonicalize(expr)

	job := uuid.NewString()
	e.log.Debug().
		Str("job", job).
		Str("fingerprint", wave.FingerprintString(ce)).
		Float64("start", start).
		Float64("rate", rate).
		Int("length", length).
		Msg("compiling waveform")

	buf, err := e.comp.Compile(ce, d)
	if err != nil {
		e.log.Debug().Str("job", job).Err(err).Msg("waveform compile failed")
		return nil, err
	}
	return buf, nil
}

// checkLimits rejects pathologically large expressions before any
// compilation work happens.
func (e *Engine) checkLimits(expr wave.Expr) error {
	if e.limits.MaxNodes <= 0 && e.limits.MaxDepth <= 0 {
		return nil
	}
	nodes := wave.NodeCount(expr)
	depth := wave.Depth(expr)
	if (e.limits.MaxNodes > 0 && nodes > e.limits.MaxNodes) ||
		(e.limits.MaxDepth > 0 && depth > e.limits.MaxDepth) {
		return &wave.ResourceLimitError{
			Nodes:    nodes,
			MaxNodes: e.limits.MaxNodes,
			Depth:    depth,
			MaxDepth: e.limits.MaxDepth,
		}
	}
	return nil
}

// CacheStats exposes the cache counters for monitoring.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// ClearCache drops all cached buffers.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}
