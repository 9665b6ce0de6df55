package quantum

import (
	"context"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// ResultCache keeps recent simulation results keyed by a SHA3-256 digest of the circuit
// text and the options it was run with
type ResultCache struct {
	entries *lru.Cache[string, *Result]
}

// NewResultCache creates a cache holding at most size results
func NewResultCache(size int) (*ResultCache, error) {
	entries, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, errors.Wrap(err, "create result cache")
	}
	return &ResultCache{entries: entries}, nil
}

// CircuitKey returns the cache key for a circuit run under the given options
func CircuitKey(qasm string, opts Options) string {
	h := sha3.New256()
	h.Write([]byte(opts.String()))
	h.Write([]byte{0})
	h.Write([]byte(qasm))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached result
func (c *ResultCache) Get(key string) (*Result, bool) {
	r, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Add stores a copy of the result
func (c *ResultCache) Add(key string, r *Result) {
	c.entries.Add(key, r.Clone())
}

// Len returns the number of cached results
func (c *ResultCache) Len() int {
	return c.entries.Len()
}

// CachedBackend serves repeated circuits from a ResultCache. Results from a fallback path
// are not cached so the primary engine is retried once it recovers.
type CachedBackend struct {
	backend SimulationBackend
	cache   *ResultCache
	opts    Options
}

// NewCachedBackend wraps backend with cache. opts must be the options the backend
// simulates with so differently configured runs never share entries.
func NewCachedBackend(backend SimulationBackend, cache *ResultCache, opts Options) *CachedBackend {
	return &CachedBackend{backend: backend, cache: cache, opts: opts}
}

// Name returns the wrapped backend's name
func (c *CachedBackend) Name() string {
	return c.backend.Name()
}

// Unwrap returns the wrapped backend
func (c *CachedBackend) Unwrap() SimulationBackend {
	return c.backend
}

// IsSimulator returns the wrapped backend's value
func (c *CachedBackend) IsSimulator() bool {
	return c.backend.IsSimulator()
}

// Simulate returns a cached result or runs the wrapped backend
func (c *CachedBackend) Simulate(ctx context.Context, qasm string) (*Result, error) {
	key := CircuitKey(qasm, c.opts)
	if r, ok := c.cache.Get(key); ok {
		return r, nil
	}

	r, err := c.backend.Simulate(ctx, qasm)
	if err != nil {
		return nil, err
	}
	if !r.Fallback {
		c.cache.Add(key, r)
	}
	return r, nil
}
