package canon

import (
	"strings"

	"github.com/pulsekit/go-pulse/wave"
)

// Compare imposes a total order over expression trees: node kind first,
// then operands recursively. Sorting flattened Sum/Product children with
// this order is what makes a+b and b+a canonicalize identically.
func Compare(a, b wave.Expr) int {
	if a.Kind() != b.Kind() {
		if a.Kind() < b.Kind() {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case *wave.Constant:
		return compareFloat(x.Value, b.(*wave.Constant).Value)
	case *wave.TimeVar:
		return 0
	case *wave.Primitive:
		y := b.(*wave.Primitive)
		if c := strings.Compare(string(x.Name), string(y.Name)); c != 0 {
			return c
		}
		return compareFloats(x.Args, y.Args)
	case *wave.Sum:
		return compareChildren(x.Children, b.(*wave.Sum).Children)
	case *wave.Product:
		return compareChildren(x.Children, b.(*wave.Product).Children)
	case *wave.Shift:
		y := b.(*wave.Shift)
		if c := Compare(x.Expr, y.Expr); c != 0 {
			return c
		}
		return compareFloat(x.Offset, y.Offset)
	case *wave.Scale:
		y := b.(*wave.Scale)
		if c := Compare(x.Expr, y.Expr); c != 0 {
			return c
		}
		return compareFloat(x.Factor, y.Factor)
	case *wave.Window:
		y := b.(*wave.Window)
		if c := Compare(x.Expr, y.Expr); c != 0 {
			return c
		}
		if c := compareFloat(x.Start, y.Start); c != 0 {
			return c
		}
		return compareFloat(x.Stop, y.Stop)
	case *wave.Convolve:
		y := b.(*wave.Convolve)
		if c := Compare(x.Expr, y.Expr); c != 0 {
			return c
		}
		if c := Compare(x.Kernel, y.Kernel); c != 0 {
			return c
		}
		return compareFloat(x.Rate, y.Rate)
	case *wave.Filter:
		y := b.(*wave.Filter)
		if c := Compare(x.Expr, y.Expr); c != 0 {
			return c
		}
		if c := compareFloats(x.FeedForward, y.FeedForward); c != 0 {
			return c
		}
		if c := compareFloats(x.FeedBack, y.FeedBack); c != 0 {
			return c
		}
		return compareFloat(x.Rate, y.Rate)
	default:
		return 0
	}
}

func compareChildren(a, b []wave.Expr) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b []float64) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if c := compareFloat(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
