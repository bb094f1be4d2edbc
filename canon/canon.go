// Package canon rewrites waveform expressions into a canonical reduced
// form: constants folded, nested sums and products flattened, children
// sorted by a total order, identity and zero elements elided, shifts
// composed and pushed down to the leaves they translate. Two expressions
// denoting the same waveform under these algebraic identities converge to
// structurally identical trees, which is what makes canonical
// fingerprints sound as cache keys.
//
// Canonicalize is total: it always terminates and has no failure mode,
// because trees are finite and every rewrite strictly reduces a
// well-founded measure over the tree.
package canon

import (
	"sort"

	"github.com/pulsekit/go-pulse/wave"
)

// Canonicalize returns the canonical form of e. The input tree is never
// mutated; unchanged sub-trees may be shared with the result.
// Canonicalize is idempotent: applying it to its own output returns a
// structurally equal tree.
func Canonicalize(e wave.Expr) wave.Expr {
	return rewrite(e)
}

// Equal reports whether two expressions denote the same waveform up to
// the canonicalizer's algebraic identities.
func Equal(a, b wave.Expr) bool {
	return wave.Equal(Canonicalize(a), Canonicalize(b))
}

// Fingerprint returns the structural hash of e's canonical form. Equal
// waveforms (in the sense of Equal) fingerprint identically.
func Fingerprint(e wave.Expr) uint64 {
	return wave.Fingerprint(Canonicalize(e))
}

func rewrite(e wave.Expr) wave.Expr {
	switch n := e.(type) {
	case *wave.Constant, *wave.TimeVar, *wave.Primitive:
		return e
	case *wave.Sum:
		return rewriteSum(n.Children)
	case *wave.Product:
		return rewriteProduct(n.Children)
	case *wave.Scale:
		return rewriteScale(rewrite(n.Expr), n.Factor)
	case *wave.Shift:
		child := rewrite(n.Expr)
		if n.Offset == 0 {
			return child
		}
		return shifted(child, n.Offset)
	case *wave.Window:
		return rewriteWindow(rewrite(n.Expr), n.Start, n.Stop)
	case *wave.Convolve:
		operand := rewrite(n.Expr)
		kernel := rewrite(n.Kernel)
		// A declared kernel rate must survive so the compiler can still
		// reject a mismatched domain; only rate-agnostic kernels fold.
		if n.Rate == 0 && isZero(operand) {
			return wave.Zero()
		}
		return &wave.Convolve{Expr: operand, Kernel: kernel, Rate: n.Rate}
	case *wave.Filter:
		operand := rewrite(n.Expr)
		if n.Rate == 0 {
			if isZero(operand) {
				return wave.Zero()
			}
			if len(n.FeedForward) == 1 && n.FeedForward[0] == 1 && len(n.FeedBack) == 0 {
				return operand
			}
		}
		return &wave.Filter{
			Expr:        operand,
			FeedForward: n.FeedForward,
			FeedBack:    n.FeedBack,
			Rate:        n.Rate,
		}
	default:
		return e
	}
}

// rewriteSum flattens, folds constants, merges like terms into scales,
// drops zero terms and sorts what remains. A coefficient shared by every
// surviving term is factored out into one surrounding scale, so the
// distributed and factored spellings of k*(a+b) meet in the same tree.
func rewriteSum(children []wave.Expr) wave.Expr {
	type entry struct {
		core  wave.Expr
		coeff float64
	}
	var order []uint64
	terms := make(map[uint64]*entry)
	constant := 0.0

	var add func(e wave.Expr)
	add = func(e wave.Expr) {
		switch c := e.(type) {
		case *wave.Constant:
			constant += c.Value
			return
		case *wave.Sum:
			for _, cc := range c.Children {
				add(cc)
			}
			return
		case *wave.Scale:
			// A scaled sum spreads its factor over the terms so they can
			// merge with sibling terms.
			if s, ok := c.Expr.(*wave.Sum); ok {
				for _, cc := range s.Children {
					add(rewriteScale(cc, c.Factor))
				}
				return
			}
		}
		coeff := 1.0
		core := e
		if s, ok := e.(*wave.Scale); ok {
			coeff = s.Factor
			core = s.Expr
		}
		fp := wave.Fingerprint(core)
		if t, ok := terms[fp]; ok {
			t.coeff += coeff
			return
		}
		terms[fp] = &entry{core: core, coeff: coeff}
		order = append(order, fp)
	}

	for _, c := range children {
		add(rewrite(c))
	}

	live := make([]*entry, 0, len(order))
	for _, fp := range order {
		if t := terms[fp]; t.coeff != 0 {
			live = append(live, t)
		}
	}

	// Factoring a shared coefficient strictly shrinks the tree, and the
	// constant term divides through, so 2a+2b converges with 2*(a+b).
	if len(live) >= 2 && live[0].coeff != 1 {
		k := live[0].coeff
		shared := true
		for _, t := range live[1:] {
			if t.coeff != k {
				shared = false
				break
			}
		}
		if shared {
			inner := make([]wave.Expr, 0, len(live)+1)
			if constant != 0 {
				inner = append(inner, wave.Const(constant/k))
			}
			for _, t := range live {
				inner = append(inner, t.core)
			}
			return rewriteScale(rewriteSum(inner), k)
		}
	}

	out := make([]wave.Expr, 0, len(live)+1)
	if constant != 0 {
		out = append(out, wave.Const(constant))
	}
	for _, t := range live {
		if t.coeff == 1 {
			out = append(out, t.core)
			continue
		}
		out = append(out, rewriteScale(t.core, t.coeff))
	}

	switch len(out) {
	case 0:
		return wave.Zero()
	case 1:
		return out[0]
	}
	sort.SliceStable(out, func(i, j int) bool { return Compare(out[i], out[j]) < 0 })
	return &wave.Sum{Children: out}
}

// rewriteProduct flattens, pulls all scalar factors out into a single
// leading coefficient, short-circuits on zero and sorts the remaining
// factors. A nonunit coefficient is carried as a Scale around the
// product, which keeps products coefficient-free inside.
func rewriteProduct(children []wave.Expr) wave.Expr {
	coeff := 1.0
	var factors []wave.Expr

	var mul func(e wave.Expr)
	mul = func(e wave.Expr) {
		switch c := e.(type) {
		case *wave.Constant:
			coeff *= c.Value
		case *wave.Scale:
			coeff *= c.Factor
			mul(c.Expr)
		case *wave.Product:
			for _, cc := range c.Children {
				mul(cc)
			}
		default:
			factors = append(factors, e)
		}
	}

	for _, c := range children {
		mul(rewrite(c))
	}

	if coeff == 0 {
		return wave.Zero()
	}
	switch len(factors) {
	case 0:
		return wave.Const(coeff)
	case 1:
		return rewriteScale(factors[0], coeff)
	}
	sort.SliceStable(factors, func(i, j int) bool { return Compare(factors[i], factors[j]) < 0 })
	return rewriteScale(&wave.Product{Children: factors}, coeff)
}

// rewriteScale applies a scalar factor to an already-canonical child.
// Distribution over a sum happens only when every term absorbs the
// factor without adding a node, so scaling never blows an expression up.
func rewriteScale(child wave.Expr, k float64) wave.Expr {
	if k == 0 {
		return wave.Zero()
	}
	if k == 1 {
		return child
	}
	switch c := child.(type) {
	case *wave.Constant:
		return wave.Const(k * c.Value)
	case *wave.Scale:
		return rewriteScale(c.Expr, k*c.Factor)
	case *wave.Sum:
		if sumAbsorbsScale(c) {
			scaled := make([]wave.Expr, len(c.Children))
			for i, cc := range c.Children {
				scaled[i] = rewriteScale(cc, k)
			}
			return rewriteSum(scaled)
		}
	}
	return &wave.Scale{Expr: child, Factor: k}
}

// sumAbsorbsScale reports whether every term of the sum folds a scalar
// factor in place (constants and already-scaled terms do; bare terms
// would each grow by a node).
func sumAbsorbsScale(s *wave.Sum) bool {
	for _, c := range s.Children {
		switch c.(type) {
		case *wave.Constant, *wave.Scale:
		default:
			return false
		}
	}
	return true
}

// shifted delays an already-canonical child by dt (nonzero). Shifts
// distribute over sums, products, scales and windows, compose
// additively, and fold into the translation parameter of primitives that
// have one. What cannot fold (sin, cos, exp, convolutions, filters)
// keeps an explicit Shift node for the compiler's shifted-domain path.
func shifted(child wave.Expr, dt float64) wave.Expr {
	switch c := child.(type) {
	case *wave.Constant:
		return child
	case *wave.TimeVar:
		// t delayed by dt is t - dt.
		return rewriteSum([]wave.Expr{wave.Const(-dt), wave.T()})
	case *wave.Primitive:
		if p := c.Translated(dt); p != nil {
			return p
		}
		return &wave.Shift{Expr: child, Offset: dt}
	case *wave.Sum:
		moved := make([]wave.Expr, len(c.Children))
		for i, cc := range c.Children {
			moved[i] = shifted(cc, dt)
		}
		return rewriteSum(moved)
	case *wave.Product:
		moved := make([]wave.Expr, len(c.Children))
		for i, cc := range c.Children {
			moved[i] = shifted(cc, dt)
		}
		return rewriteProduct(moved)
	case *wave.Scale:
		return rewriteScale(shifted(c.Expr, dt), c.Factor)
	case *wave.Window:
		return rewriteWindow(shifted(c.Expr, dt), c.Start+dt, c.Stop+dt)
	case *wave.Shift:
		combined := c.Offset + dt
		if combined == 0 {
			return c.Expr
		}
		return shifted(c.Expr, combined)
	default: // Convolve, Filter
		return &wave.Shift{Expr: child, Offset: dt}
	}
}

// rewriteWindow restricts an already-canonical child to [start, stop).
// Nested windows intersect; empty windows and windowed zeros vanish.
func rewriteWindow(child wave.Expr, start, stop float64) wave.Expr {
	if start >= stop || isZero(child) {
		return wave.Zero()
	}
	if w, ok := child.(*wave.Window); ok {
		if w.Start > start {
			start = w.Start
		}
		if w.Stop < stop {
			stop = w.Stop
		}
		return rewriteWindow(w.Expr, start, stop)
	}
	return &wave.Window{Expr: child, Start: start, Stop: stop}
}

func isZero(e wave.Expr) bool {
	c, ok := e.(*wave.Constant)
	return ok && c.Value == 0
}
