package wave

import "math"

// PrimitiveName identifies an analytic waveform primitive. Primitive
// names double as the function names of the textual grammar.
type PrimitiveName string

const (
	// Gaussian takes (width, center): width is the full width at half
	// maximum, center the position of the peak.
	Gaussian PrimitiveName = "gaussian"
	// Square takes (start, stop): 1 on [start, stop), 0 elsewhere.
	Square PrimitiveName = "square"
	// CosPulse takes (width, center): a single raised-cosine (Hann)
	// lobe of the given width centered at center, zero outside it.
	CosPulse PrimitiveName = "cospulse"
	// Sin takes (freq, phase): sin(2*pi*freq*t + phase), freq in Hz.
	Sin PrimitiveName = "sin"
	// Cos takes (freq, phase): cos(2*pi*freq*t + phase), freq in Hz.
	Cos PrimitiveName = "cos"
	// Exp takes (alpha): exp(alpha*t). Negative alpha decays.
	Exp PrimitiveName = "exp"
	// Sinc takes (bandwidth, center): sin(pi*bw*(t-c)) / (pi*bw*(t-c)),
	// with the removable singularity at t = c evaluating to 1.
	Sinc PrimitiveName = "sinc"
	// Step takes (edge): 0 before the edge, 1 from the edge on.
	Step PrimitiveName = "step"
)

// Primitive is an analytic waveform sampled in closed form by the
// compiler. Args are the numeric parameters for the named primitive.
type Primitive struct {
	Name PrimitiveName
	Args []float64
}

// PrimitiveArity maps each primitive name to its required argument count.
// The grammar uses it to validate calls before constructing nodes.
var PrimitiveArity = map[PrimitiveName]int{
	Gaussian: 2,
	Square:   2,
	CosPulse: 2,
	Sin:      2,
	Cos:      2,
	Exp:      1,
	Sinc:     2,
	Step:     1,
}

// NewGaussian returns a Gaussian pulse with the given full width at half
// maximum, peaking at center with unit amplitude.
func NewGaussian(width, center float64) *Primitive {
	return &Primitive{Name: Gaussian, Args: []float64{width, center}}
}

// NewSquare returns a unit rectangle on [start, stop).
func NewSquare(start, stop float64) *Primitive {
	return &Primitive{Name: Square, Args: []float64{start, stop}}
}

// NewCosPulse returns a raised-cosine pulse of the given width centered
// at center.
func NewCosPulse(width, center float64) *Primitive {
	return &Primitive{Name: CosPulse, Args: []float64{width, center}}
}

// NewSin returns sin(2*pi*freq*t + phase).
func NewSin(freq, phase float64) *Primitive {
	return &Primitive{Name: Sin, Args: []float64{freq, phase}}
}

// NewCos returns cos(2*pi*freq*t + phase).
func NewCos(freq, phase float64) *Primitive {
	return &Primitive{Name: Cos, Args: []float64{freq, phase}}
}

// NewExp returns exp(alpha*t).
func NewExp(alpha float64) *Primitive {
	return &Primitive{Name: Exp, Args: []float64{alpha}}
}

// NewSinc returns the normalized sinc of the given bandwidth centered at
// center.
func NewSinc(bandwidth, center float64) *Primitive {
	return &Primitive{Name: Sinc, Args: []float64{bandwidth, center}}
}

// NewStep returns the unit step rising at edge.
func NewStep(edge float64) *Primitive {
	return &Primitive{Name: Step, Args: []float64{edge}}
}

// fwhmToSigma converts a full width at half maximum to a Gaussian
// standard deviation: FWHM = 2*sqrt(2*ln 2) * sigma.
var fwhmToSigma = 1 / (2 * math.Sqrt(2*math.Ln2))

// Eval evaluates the primitive's analytic formula at time t.
func (p *Primitive) Eval(t float64) float64 {
	switch p.Name {
	case Gaussian:
		sigma := p.Args[0] * fwhmToSigma
		if sigma == 0 {
			return 0
		}
		x := (t - p.Args[1]) / sigma
		return math.Exp(-0.5 * x * x)
	case Square:
		if t >= p.Args[0] && t < p.Args[1] {
			return 1
		}
		return 0
	case CosPulse:
		width, center := p.Args[0], p.Args[1]
		if width == 0 {
			return 0
		}
		x := (t - center) / width
		if x < -0.5 || x >= 0.5 {
			return 0
		}
		return 0.5 * (1 + math.Cos(2*math.Pi*x))
	case Sin:
		return math.Sin(2*math.Pi*p.Args[0]*t + p.Args[1])
	case Cos:
		return math.Cos(2*math.Pi*p.Args[0]*t + p.Args[1])
	case Exp:
		return math.Exp(p.Args[0] * t)
	case Sinc:
		x := math.Pi * p.Args[0] * (t - p.Args[1])
		if x == 0 {
			return 1
		}
		return math.Sin(x) / x
	case Step:
		if t >= p.Args[0] {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Translated returns a copy of the primitive moved later in time by dt,
// or nil when the primitive has no pure-translation parameterization
// (sin, cos and exp shift through their phase or amplitude instead, which
// the simplifier leaves to the compiler's shifted-domain path).
func (p *Primitive) Translated(dt float64) *Primitive {
	switch p.Name {
	case Gaussian:
		return NewGaussian(p.Args[0], p.Args[1]+dt)
	case Square:
		return NewSquare(p.Args[0]+dt, p.Args[1]+dt)
	case CosPulse:
		return NewCosPulse(p.Args[0], p.Args[1]+dt)
	case Sinc:
		return NewSinc(p.Args[0], p.Args[1]+dt)
	case Step:
		return NewStep(p.Args[0] + dt)
	default:
		return nil
	}
}
