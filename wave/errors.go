package wave

import (
	"errors"
	"fmt"
)

var (
	// ErrDomain marks invalid time-domain parameters.
	ErrDomain = errors.New("wave: invalid time domain")
	// ErrRateMismatch marks a kernel or coefficient set designed for a
	// different sample rate than the compile domain's.
	ErrRateMismatch = errors.New("wave: sample-rate mismatch")
	// ErrResourceLimit marks an expression exceeding the configured
	// size or depth bound.
	ErrResourceLimit = errors.New("wave: expression exceeds resource limit")
)

// DomainError reports invalid sampling parameters: a non-positive sample
// rate or a non-positive sample count.
type DomainError struct {
	Start  float64
	Rate   float64
	Length int
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("wave: invalid time domain (start=%g rate=%g length=%d): %s",
		e.Start, e.Rate, e.Length, e.Reason)
}

// Unwrap makes DomainError match ErrDomain under errors.Is.
func (e *DomainError) Unwrap() error { return ErrDomain }

// RateMismatchError reports a convolution kernel or filter coefficient
// set whose declared design rate conflicts with the compile domain's
// rate. Silent resampling is never attempted because it could mask
// aliasing.
type RateMismatchError struct {
	DeclaredRate float64
	DomainRate   float64
}

func (e *RateMismatchError) Error() string {
	return fmt.Sprintf("wave: kernel designed for rate %g applied at rate %g",
		e.DeclaredRate, e.DomainRate)
}

// Unwrap makes RateMismatchError match ErrRateMismatch under errors.Is.
func (e *RateMismatchError) Unwrap() error { return ErrRateMismatch }

// ResourceLimitError reports an expression rejected by the size/depth
// guard before compilation.
type ResourceLimitError struct {
	Nodes    int
	MaxNodes int
	Depth    int
	MaxDepth int
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("wave: expression too large (%d nodes, limit %d; depth %d, limit %d)",
		e.Nodes, e.MaxNodes, e.Depth, e.MaxDepth)
}

// Unwrap makes ResourceLimitError match ErrResourceLimit under errors.Is.
func (e *ResourceLimitError) Unwrap() error { return ErrResourceLimit }
