// Package cache memoizes compiled sample buffers keyed by the canonical
// fingerprint of an expression plus the time domain it was compiled
// over. Entries are immutable and shared: a hit returns the same buffer
// to every caller, and callers that need a private copy clone it
// explicitly. Eviction is least-recently-used with a configurable bound;
// because sampling is pure, an evicted entry recompiles bit-identically,
// so eviction can only ever cost performance, never correctness.
package cache

import (
	"container/list"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pulsekit/go-pulse/sampler"
	"github.com/pulsekit/go-pulse/wave"
)

var _ sampler.Memo = (*Cache)(nil)

// Key identifies one compiled buffer: the structural fingerprint of a
// canonical expression and the exact sampling grid.
type Key struct {
	Fingerprint uint64
	Start       float64
	Rate        float64
	N           int
}

// KeyFor builds the cache key for an expression over a domain. The
// expression must already be canonical for the key to be sound.
func KeyFor(e wave.Expr, d sampler.Domain) Key {
	return Key{Fingerprint: wave.Fingerprint(e), Start: d.Start, Rate: d.Rate, N: d.N}
}

// String renders the key for logs and as the singleflight group key.
func (k Key) String() string {
	return fmt.Sprintf("%016x@%g/%g/%d", k.Fingerprint, k.Start, k.Rate, k.N)
}

// BufferStore is an optional second tier behind the in-memory cache,
// typically the sqlite-backed store package. Load misses are reported
// with ok=false, not an error.
type BufferStore interface {
	Load(key Key) (*sampler.Buffer, bool, error)
	Save(key Key, buf *sampler.Buffer) error
}

// Cache is a bounded LRU of compiled buffers, safe for concurrent use.
// Concurrent misses for the same key compile once: duplicate callers
// block on the in-flight compilation and share its result.
type Cache struct {
	mu        sync.Mutex
	capacity  int
	ll        *list.List
	items     map[Key]*list.Element
	hits      uint64
	misses    uint64
	evictions uint64

	flight singleflight.Group
	store  BufferStore
}

type entry struct {
	key Key
	buf *sampler.Buffer
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore wires a persistent second tier. Loads are tried on every
// in-memory miss; saves are best effort after every compile.
func WithStore(s BufferStore) Option {
	return func(c *Cache) { c.store = s }
}

// New creates a cache holding at most capacity entries. A capacity of 0
// or less means unbounded.
func New(capacity int, opts ...Option) *Cache {
	c := &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompile returns the cached buffer for (e, d), or compiles and
// inserts it. Compilation failures are returned to every waiting caller
// and are never cached, so a later call retries cleanly. The returned
// buffer is shared and must not be mutated.
func (c *Cache) GetOrCompile(e wave.Expr, d sampler.Domain, compile func() (*sampler.Buffer, error)) (*sampler.Buffer, error) {
	key := KeyFor(e, d)

	if buf, ok := c.get(key); ok {
		c.count(&c.hits)
		return buf, nil
	}
	c.count(&c.misses)

	v, err, _ := c.flight.Do(key.String(), func() (interface{}, error) {
		// A racing caller may have finished between our miss and this
		// flight starting.
		if buf, ok := c.get(key); ok {
			return buf, nil
		}
		if c.store != nil {
			if buf, ok, err := c.store.Load(key); err == nil && ok {
				c.insert(key, buf)
				return buf, nil
			}
		}
		buf, err := compile()
		if err != nil {
			return nil, err
		}
		c.insert(key, buf)
		if c.store != nil {
			_ = c.store.Save(key, buf) // best effort; memory tier is authoritative
		}
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sampler.Buffer), nil
}

// Get returns the cached buffer for (e, d) without compiling.
func (c *Cache) Get(e wave.Expr, d sampler.Domain) (*sampler.Buffer, bool) {
	buf, ok := c.get(KeyFor(e, d))
	if ok {
		c.count(&c.hits)
	} else {
		c.count(&c.misses)
	}
	return buf, ok
}

// Invalidate drops the entry for (e, d) if present.
func (c *Cache) Invalidate(e wave.Expr, d sampler.Domain) {
	key := KeyFor(e, d)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[Key]*list.Element)
}

// Size returns the current number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) get(key Key) (*sampler.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).buf, true
}

func (c *Cache) insert(key Key, buf *sampler.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		// Pure sampling makes a racing insert byte-identical; keep the
		// existing entry.
		return
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, buf: buf})
	for c.capacity > 0 && len(c.items) > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
		c.evictions++
	}
}

func (c *Cache) count(field *uint64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:      len(c.items),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   rate,
	}
}
