// Package sampler lowers canonical waveform expressions into dense
// numeric sample buffers over a concrete time domain. Primitives are
// sampled from their analytic formulas; combinators combine their
// children's buffers numerically. All arithmetic is float64 and values
// are never clipped: range checking belongs to whatever device driver
// consumes the buffer.
package sampler

import (
	"math"

	"github.com/pulsekit/go-pulse/wave"
)

// Domain is the concrete sampling grid: N samples starting at Start,
// spaced 1/Rate apart. A Domain is a value and is never mutated.
type Domain struct {
	Start float64
	Rate  float64
	N     int
}

// NewDomain validates and builds a sampling grid. A non-positive rate or
// sample count is a *wave.DomainError.
func NewDomain(start, rate float64, n int) (Domain, error) {
	if math.IsNaN(start) || math.IsInf(start, 0) {
		return Domain{}, &wave.DomainError{Start: start, Rate: rate, Length: n, Reason: "start must be finite"}
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Domain{}, &wave.DomainError{Start: start, Rate: rate, Length: n, Reason: "sample rate must be positive and finite"}
	}
	if n <= 0 {
		return Domain{}, &wave.DomainError{Start: start, Rate: rate, Length: n, Reason: "sample count must be positive"}
	}
	return Domain{Start: start, Rate: rate, N: n}, nil
}

// Time returns the timestamp of sample i.
func (d Domain) Time(i int) float64 {
	return d.Start + float64(i)/d.Rate
}

// Dt returns the sample spacing.
func (d Domain) Dt() float64 { return 1 / d.Rate }

// Shifted returns the same grid moved by dt.
func (d Domain) Shifted(dt float64) Domain {
	return Domain{Start: d.Start + dt, Rate: d.Rate, N: d.N}
}

// Times materializes the full timestamp grid.
func (d Domain) Times() []float64 {
	ts := make([]float64, d.N)
	for i := range ts {
		ts[i] = d.Time(i)
	}
	return ts
}

// Buffer is a compiled waveform: the sample values together with the
// domain that produced them. Buffers handed out by a shared cache are
// read-only; a caller that needs to mutate samples takes a Clone first.
type Buffer struct {
	Domain  Domain
	Samples []float64
}

// Clone returns a private mutable copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	samples := make([]float64, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{Domain: b.Domain, Samples: samples}
}
