package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pulsekit/go-pulse/sampler"
	"github.com/pulsekit/go-pulse/wave"
)

var testDomain = sampler.Domain{Start: 0, Rate: 10, N: 8}

func constBuffer(v float64, d sampler.Domain) *sampler.Buffer {
	samples := make([]float64, d.N)
	for i := range samples {
		samples[i] = v
	}
	return &sampler.Buffer{Domain: d, Samples: samples}
}

func TestGetOrCompileComputesOnce(t *testing.T) {
	c := New(16)
	e := wave.NewGaussian(1, 0)
	calls := 0
	compile := func() (*sampler.Buffer, error) {
		calls++
		return constBuffer(1, testDomain), nil
	}

	first, err := c.GetOrCompile(e, testDomain, compile)
	if err != nil {
		t.Fatalf("first GetOrCompile: %v", err)
	}
	second, err := c.GetOrCompile(e, testDomain, compile)
	if err != nil {
		t.Fatalf("second GetOrCompile: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 compile call, got %d", calls)
	}
	if first != second {
		t.Error("hit should return the shared buffer")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestKeyIncludesDomain(t *testing.T) {
	c := New(16)
	e := wave.NewGaussian(1, 0)
	calls := 0
	compile := func() (*sampler.Buffer, error) {
		calls++
		return constBuffer(1, testDomain), nil
	}

	c.GetOrCompile(e, testDomain, compile)
	c.GetOrCompile(e, testDomain.Shifted(0.5), compile)
	c.GetOrCompile(e, sampler.Domain{Start: 0, Rate: 20, N: 8}, compile)
	if calls != 3 {
		t.Errorf("distinct domains must compile separately, got %d calls", calls)
	}
	if c.Size() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Size())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2)
	a := wave.NewGaussian(1, 0)
	b := wave.NewGaussian(2, 0)
	x := wave.NewGaussian(3, 0)
	fill := func(e wave.Expr) {
		c.GetOrCompile(e, testDomain, func() (*sampler.Buffer, error) {
			return constBuffer(1, testDomain), nil
		})
	}

	fill(a)
	fill(b)
	// Touch a so b becomes least recently used.
	if _, ok := c.Get(a, testDomain); !ok {
		t.Fatal("a should be cached")
	}
	fill(x)

	if _, ok := c.Get(b, testDomain); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get(a, testDomain); !ok {
		t.Error("recently used a should survive")
	}
	if _, ok := c.Get(x, testDomain); !ok {
		t.Error("newest x should survive")
	}
	if ev := c.Stats().Evictions; ev != 1 {
		t.Errorf("expected 1 eviction, got %d", ev)
	}
}

func TestEvictedEntryRecompilesIdentically(t *testing.T) {
	c := New(1)
	comp := sampler.New(sampler.WithMemo(c))
	a := wave.Mul(wave.NewGaussian(1, 0), wave.NewSin(3, 0.25))
	b := wave.NewCosPulse(1, 0)

	first, err := comp.Compile(a, testDomain)
	if err != nil {
		t.Fatalf("compile a: %v", err)
	}
	keep := first.Clone()

	// Push a out, then compile it again from scratch.
	if _, err := comp.Compile(b, testDomain); err != nil {
		t.Fatalf("compile b: %v", err)
	}
	again, err := comp.Compile(a, testDomain)
	if err != nil {
		t.Fatalf("recompile a: %v", err)
	}
	for i := range keep.Samples {
		if keep.Samples[i] != again.Samples[i] {
			t.Fatalf("sample %d changed across eviction: %g vs %g",
				i, keep.Samples[i], again.Samples[i])
		}
	}
}

func TestConcurrentMissesCompileOnce(t *testing.T) {
	c := New(16)
	e := wave.NewGaussian(1, 0)
	var calls atomic.Int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCompile(e, testDomain, func() (*sampler.Buffer, error) {
				calls.Add(1)
				<-release
				return constBuffer(1, testDomain), nil
			})
			if err != nil {
				t.Errorf("GetOrCompile: %v", err)
			}
		}()
	}
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected a single in-flight compile, got %d", n)
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	c := New(16)
	e := wave.NewGaussian(1, 0)
	boom := errors.New("boom")
	calls := 0

	_, err := c.GetOrCompile(e, testDomain, func() (*sampler.Buffer, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Size() != 0 {
		t.Error("a failed compile must not leave an entry behind")
	}

	buf, err := c.GetOrCompile(e, testDomain, func() (*sampler.Buffer, error) {
		calls++
		return constBuffer(1, testDomain), nil
	})
	if err != nil || buf == nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected the retry to compile, got %d calls", calls)
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := New(16)
	a := wave.NewGaussian(1, 0)
	b := wave.NewGaussian(2, 0)
	fill := func(e wave.Expr) {
		c.GetOrCompile(e, testDomain, func() (*sampler.Buffer, error) {
			return constBuffer(1, testDomain), nil
		})
	}
	fill(a)
	fill(b)

	c.Invalidate(a, testDomain)
	if _, ok := c.Get(a, testDomain); ok {
		t.Error("invalidated entry should be gone")
	}
	if _, ok := c.Get(b, testDomain); !ok {
		t.Error("other entries should survive invalidation")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Clear should empty the cache, size %d", c.Size())
	}
}

type fakeStore struct {
	mu    sync.Mutex
	data  map[Key]*sampler.Buffer
	loads int
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[Key]*sampler.Buffer)}
}

func (s *fakeStore) Load(key Key) (*sampler.Buffer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	buf, ok := s.data[key]
	return buf, ok, nil
}

func (s *fakeStore) Save(key Key, buf *sampler.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.data[key] = buf
	return nil
}

func TestStoreTier(t *testing.T) {
	store := newFakeStore()
	e := wave.NewGaussian(1, 0)
	compile := func() (*sampler.Buffer, error) {
		return constBuffer(1, testDomain), nil
	}

	// A fresh miss compiles and writes through.
	c := New(16, WithStore(store))
	if _, err := c.GetOrCompile(e, testDomain, compile); err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("expected 1 save, got %d", store.saves)
	}

	// A second cache over the same store warm-starts without compiling.
	c2 := New(16, WithStore(store))
	calls := 0
	buf, err := c2.GetOrCompile(e, testDomain, func() (*sampler.Buffer, error) {
		calls++
		return nil, errors.New("should not compile")
	})
	if err != nil {
		t.Fatalf("warm start: %v", err)
	}
	if calls != 0 {
		t.Error("store hit should skip compilation")
	}
	if buf.Samples[0] != 1 {
		t.Errorf("unexpected warm-start samples: %v", buf.Samples)
	}
}
