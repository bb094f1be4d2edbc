package sampler

import (
	"golang.org/x/sync/errgroup"

	"github.com/pulsekit/go-pulse/wave"
)

// Memo is the caching port consulted for every non-trivial sub-tree the
// compiler lowers. Implementations must return the compile callback's
// result for a miss and a shared immutable buffer for a hit; the cache
// package provides the standard implementation. A nil Memo disables
// memoization entirely.
type Memo interface {
	GetOrCompile(e wave.Expr, d Domain, compile func() (*Buffer, error)) (*Buffer, error)
}

// Compiler lowers canonical expression trees into sample buffers.
// It is safe for concurrent use: it holds no mutable state of its own,
// and the Memo is the only shared resource.
type Compiler struct {
	memo     Memo
	parallel bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithMemo wires a cache into the compiler. Every combinator sub-tree is
// compiled through it, so shared sub-expressions are computed once.
func WithMemo(m Memo) Option {
	return func(c *Compiler) { c.memo = m }
}

// WithParallel enables concurrent compilation of Sum and Product
// children. Node immutability makes sibling compilation order-free; the
// combined result is deterministic regardless of completion order.
func WithParallel(enabled bool) Option {
	return func(c *Compiler) { c.parallel = enabled }
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile lowers e over the given domain. The expression should already
// be canonical (canon.Canonicalize) when a Memo is wired, since the memo
// keys on structural fingerprints. The returned buffer may be shared
// with the cache: treat it as read-only and Clone before mutating.
func (c *Compiler) Compile(e wave.Expr, d Domain) (*Buffer, error) {
	if _, err := NewDomain(d.Start, d.Rate, d.N); err != nil {
		return nil, err
	}
	return c.compile(e, d)
}

// compile routes a node through the memo when one is wired. Constants
// and the bare time variable are cheaper to refill than to cache.
func (c *Compiler) compile(e wave.Expr, d Domain) (*Buffer, error) {
	if c.memo == nil {
		return c.compileNode(e, d)
	}
	switch e.Kind() {
	case wave.KindConstant, wave.KindTimeVar:
		return c.compileNode(e, d)
	}
	return c.memo.GetOrCompile(e, d, func() (*Buffer, error) {
		return c.compileNode(e, d)
	})
}

func (c *Compiler) compileNode(e wave.Expr, d Domain) (*Buffer, error) {
	switch n := e.(type) {
	case *wave.Constant:
		out := make([]float64, d.N)
		for i := range out {
			out[i] = n.Value
		}
		return &Buffer{Domain: d, Samples: out}, nil

	case *wave.TimeVar:
		return &Buffer{Domain: d, Samples: d.Times()}, nil

	case *wave.Primitive:
		out := make([]float64, d.N)
		for i := range out {
			out[i] = n.Eval(d.Time(i))
		}
		return &Buffer{Domain: d, Samples: out}, nil

	case *wave.Sum:
		bufs, err := c.compileChildren(n.Children, d)
		if err != nil {
			return nil, err
		}
		out := make([]float64, d.N)
		for _, b := range bufs {
			for i, v := range b.Samples {
				out[i] += v
			}
		}
		return &Buffer{Domain: d, Samples: out}, nil

	case *wave.Product:
		bufs, err := c.compileChildren(n.Children, d)
		if err != nil {
			return nil, err
		}
		out := make([]float64, d.N)
		for i := range out {
			out[i] = 1
		}
		for _, b := range bufs {
			for i, v := range b.Samples {
				out[i] *= v
			}
		}
		return &Buffer{Domain: d, Samples: out}, nil

	case *wave.Scale:
		inner, err := c.compile(n.Expr, d)
		if err != nil {
			return nil, err
		}
		out := make([]float64, d.N)
		for i, v := range inner.Samples {
			out[i] = v * n.Factor
		}
		return &Buffer{Domain: d, Samples: out}, nil

	case *wave.Shift:
		// A delayed waveform over this grid equals the operand over the
		// grid moved by -offset, sample for sample. Going through the
		// memo means a buffer already compiled for the shifted domain is
		// reused instead of resampled.
		inner, err := c.compile(n.Expr, d.Shifted(-n.Offset))
		if err != nil {
			return nil, err
		}
		return &Buffer{Domain: d, Samples: inner.Samples}, nil

	case *wave.Window:
		inner, err := c.compile(n.Expr, d)
		if err != nil {
			return nil, err
		}
		out := make([]float64, d.N)
		for i := range out {
			t := d.Time(i)
			if t >= n.Start && t < n.Stop {
				out[i] = inner.Samples[i]
			}
		}
		return &Buffer{Domain: d, Samples: out}, nil

	case *wave.Convolve:
		return c.compileConvolve(n, d)

	case *wave.Filter:
		return c.compileFilter(n, d)

	default:
		// The kind set is closed; reaching here means a new node kind
		// was added without extending the compiler.
		return nil, &wave.DomainError{Start: d.Start, Rate: d.Rate, Length: d.N,
			Reason: "unsupported node kind " + e.Kind().String()}
	}
}

func (c *Compiler) compileChildren(children []wave.Expr, d Domain) ([]*Buffer, error) {
	bufs := make([]*Buffer, len(children))
	if !c.parallel || len(children) < 2 {
		for i, child := range children {
			b, err := c.compile(child, d)
			if err != nil {
				return nil, err
			}
			bufs[i] = b
		}
		return bufs, nil
	}

	g := new(errgroup.Group)
	for i, child := range children {
		i, child := i, child
		g.Go(func() error {
			b, err := c.compile(child, d)
			if err != nil {
				return err
			}
			bufs[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bufs, nil
}

// compileConvolve approximates continuous convolution on the sample
// grid: the kernel is sampled at the domain rate over a zero-centered
// grid of the same length, and the discrete convolution is scaled by the
// sample spacing. A kernel declared for a different rate is an error,
// never a silent resample.
func (c *Compiler) compileConvolve(n *wave.Convolve, d Domain) (*Buffer, error) {
	if n.Rate != 0 && n.Rate != d.Rate {
		return nil, &wave.RateMismatchError{DeclaredRate: n.Rate, DomainRate: d.Rate}
	}
	x, err := c.compile(n.Expr, d)
	if err != nil {
		return nil, err
	}
	m := d.N
	half := (m - 1) / 2
	kd := Domain{Start: -float64(half) / d.Rate, Rate: d.Rate, N: m}
	k, err := c.compile(n.Kernel, kd)
	if err != nil {
		return nil, err
	}

	dt := d.Dt()
	out := make([]float64, d.N)
	for i := range out {
		acc := 0.0
		for j := 0; j < m; j++ {
			ki := i - j + half
			if ki < 0 || ki >= m {
				continue
			}
			acc += x.Samples[j] * k.Samples[ki]
		}
		out[i] = acc * dt
	}
	return &Buffer{Domain: d, Samples: out}, nil
}

// compileFilter runs a direct-form difference equation over the grid:
//
//	y[i] = sum_j b[j]*x[i-j] - sum_j a[j]*y[i-j-1]
//
// FIR when the feedback coefficients are empty. Samples before the
// domain start are taken as zero (zero initial conditions).
func (c *Compiler) compileFilter(n *wave.Filter, d Domain) (*Buffer, error) {
	if n.Rate != 0 && n.Rate != d.Rate {
		return nil, &wave.RateMismatchError{DeclaredRate: n.Rate, DomainRate: d.Rate}
	}
	x, err := c.compile(n.Expr, d)
	if err != nil {
		return nil, err
	}

	out := make([]float64, d.N)
	for i := range out {
		acc := 0.0
		for j, bj := range n.FeedForward {
			if i-j >= 0 {
				acc += bj * x.Samples[i-j]
			}
		}
		for j, aj := range n.FeedBack {
			if i-j-1 >= 0 {
				acc -= aj * out[i-j-1]
			}
		}
		out[i] = acc
	}
	return &Buffer{Domain: d, Samples: out}, nil
}
