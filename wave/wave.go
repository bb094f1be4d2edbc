// Package wave defines the symbolic representation of control-pulse
// waveforms: an immutable algebraic expression tree over the free time
// variable t. Expressions are built from analytic primitives (gaussian,
// square, sin, ...) and combinators (sum, product, shift, scale, window,
// convolution, filtering), and are later lowered to dense sample buffers
// by the sampler package.
//
// Trees are finite, acyclic and side-effect-free: evaluating the same
// tree over the same time domain always yields the same samples. Callers
// must treat every node as immutable after construction; sub-trees may be
// freely shared between expressions.
package wave

// Kind identifies the variant of an expression node. The set of kinds is
// closed; the simplifier and sampler match over it exhaustively, so adding
// a kind is a compile-time-visible change in every consumer.
type Kind int

const (
	KindConstant Kind = iota
	KindTimeVar
	KindPrimitive
	KindSum
	KindProduct
	KindShift
	KindScale
	KindWindow
	KindConvolve
	KindFilter
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindTimeVar:
		return "timevar"
	case KindPrimitive:
		return "primitive"
	case KindSum:
		return "sum"
	case KindProduct:
		return "product"
	case KindShift:
		return "shift"
	case KindScale:
		return "scale"
	case KindWindow:
		return "window"
	case KindConvolve:
		return "convolve"
	case KindFilter:
		return "filter"
	default:
		return "unknown"
	}
}

// Expr is a node in a waveform expression tree.
type Expr interface {
	// Kind returns the variant tag of this node.
	Kind() Kind
}

// Constant is a waveform with the same value at every time.
type Constant struct {
	Value float64
}

// TimeVar is the free variable t: the waveform whose value at time t is t.
type TimeVar struct{}

// Sum is the pointwise sum of its children.
type Sum struct {
	Children []Expr
}

// Product is the pointwise product of its children.
type Product struct {
	Children []Expr
}

// Shift delays its operand: the value at time t is the operand's value at
// t - Offset. A positive offset moves features later in time.
type Shift struct {
	Expr   Expr
	Offset float64
}

// Scale multiplies its operand by a scalar factor.
type Scale struct {
	Expr   Expr
	Factor float64
}

// Window passes its operand through on [Start, Stop) and is zero
// elsewhere. The start boundary is inclusive, the stop boundary exclusive.
type Window struct {
	Expr  Expr
	Start float64
	Stop  float64
}

// Convolve is the continuous convolution of Expr with Kernel,
// approximated discretely at compile time. Rate, when nonzero, is the
// sample rate the kernel was designed for; compiling over a domain with a
// different rate is a rate-mismatch error rather than a silent resample.
type Convolve struct {
	Expr   Expr
	Kernel Expr
	Rate   float64
}

// Filter applies a discrete filter to its operand over the sampled grid.
// FeedForward holds the b coefficients (b0, b1, ...); FeedBack holds the
// a coefficients past a0 (a1, a2, ..., with a0 fixed at 1). An empty
// FeedBack makes the filter FIR. Rate, when nonzero, is the rate the
// coefficients were designed for, checked like Convolve.Rate.
type Filter struct {
	Expr        Expr
	FeedForward []float64
	FeedBack    []float64
	Rate        float64
}

func (*Constant) Kind() Kind  { return KindConstant }
func (*TimeVar) Kind() Kind   { return KindTimeVar }
func (*Primitive) Kind() Kind { return KindPrimitive }
func (*Sum) Kind() Kind       { return KindSum }
func (*Product) Kind() Kind   { return KindProduct }
func (*Shift) Kind() Kind     { return KindShift }
func (*Scale) Kind() Kind     { return KindScale }
func (*Window) Kind() Kind    { return KindWindow }
func (*Convolve) Kind() Kind  { return KindConvolve }
func (*Filter) Kind() Kind    { return KindFilter }

// Zero returns the constant-zero waveform.
func Zero() *Constant { return &Constant{Value: 0} }

// One returns the constant-one waveform.
func One() *Constant { return &Constant{Value: 1} }

// Const returns a constant waveform with the given value.
func Const(v float64) *Constant { return &Constant{Value: v} }

// T returns the free time variable.
func T() *TimeVar { return &TimeVar{} }

// Add returns the pointwise sum of the given waveforms.
func Add(children ...Expr) *Sum { return &Sum{Children: children} }

// Mul returns the pointwise product of the given waveforms.
func Mul(children ...Expr) *Product { return &Product{Children: children} }

// Shifted delays e by dt.
func Shifted(e Expr, dt float64) *Shift { return &Shift{Expr: e, Offset: dt} }

// Scaled multiplies e by the scalar k.
func Scaled(e Expr, k float64) *Scale { return &Scale{Expr: e, Factor: k} }

// Windowed restricts e to [start, stop), zero elsewhere.
func Windowed(e Expr, start, stop float64) *Window {
	return &Window{Expr: e, Start: start, Stop: stop}
}

// Convolved returns the convolution of e with kernel, with no declared
// kernel rate (the kernel is sampled at whatever rate the domain uses).
func Convolved(e, kernel Expr) *Convolve {
	return &Convolve{Expr: e, Kernel: kernel}
}

// FIR applies a feed-forward filter with coefficients b to e.
func FIR(e Expr, b ...float64) *Filter {
	return &Filter{Expr: e, FeedForward: b}
}

// IIR applies a recursive filter to e. b are the feed-forward
// coefficients, a the feedback coefficients past a0 (a0 is fixed at 1).
func IIR(e Expr, b, a []float64) *Filter {
	return &Filter{Expr: e, FeedForward: b, FeedBack: a}
}

// Children returns the direct operand expressions of e, in order.
// Leaf nodes return nil.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Sum:
		return n.Children
	case *Product:
		return n.Children
	case *Shift:
		return []Expr{n.Expr}
	case *Scale:
		return []Expr{n.Expr}
	case *Window:
		return []Expr{n.Expr}
	case *Convolve:
		return []Expr{n.Expr, n.Kernel}
	case *Filter:
		return []Expr{n.Expr}
	default:
		return nil
	}
}

// NodeCount returns the total number of nodes in the tree rooted at e.
func NodeCount(e Expr) int {
	count := 1
	for _, c := range Children(e) {
		count += NodeCount(c)
	}
	return count
}

// Depth returns the height of the tree rooted at e. A leaf has depth 1.
func Depth(e Expr) int {
	max := 0
	for _, c := range Children(e) {
		if d := Depth(c); d > max {
			max = d
		}
	}
	return max + 1
}

// Equal reports whether two expression trees are structurally identical:
// same shape, same kinds, bit-equal numeric parameters. It does not
// consider algebraic equivalence; canonicalize both sides first to compare
// waveforms up to algebra.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *Constant:
		return x.Value == b.(*Constant).Value
	case *TimeVar:
		return true
	case *Primitive:
		y := b.(*Primitive)
		return x.Name == y.Name && floatsEqual(x.Args, y.Args)
	case *Sum:
		return childrenEqual(x.Children, b.(*Sum).Children)
	case *Product:
		return childrenEqual(x.Children, b.(*Product).Children)
	case *Shift:
		y := b.(*Shift)
		return x.Offset == y.Offset && Equal(x.Expr, y.Expr)
	case *Scale:
		y := b.(*Scale)
		return x.Factor == y.Factor && Equal(x.Expr, y.Expr)
	case *Window:
		y := b.(*Window)
		return x.Start == y.Start && x.Stop == y.Stop && Equal(x.Expr, y.Expr)
	case *Convolve:
		y := b.(*Convolve)
		return x.Rate == y.Rate && Equal(x.Expr, y.Expr) && Equal(x.Kernel, y.Kernel)
	case *Filter:
		y := b.(*Filter)
		return x.Rate == y.Rate &&
			floatsEqual(x.FeedForward, y.FeedForward) &&
			floatsEqual(x.FeedBack, y.FeedBack) &&
			Equal(x.Expr, y.Expr)
	default:
		return false
	}
}

func childrenEqual(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
