package wave

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a structural hash of the expression tree. Two
// structurally equal trees (wave.Equal) always hash identically, so the
// fingerprint of a canonical form is stable under the simplifier's
// canonical ordering and can serve as a cache key component.
func Fingerprint(e Expr) uint64 {
	h := xxhash.New()
	hashExpr(h, e)
	return h.Sum64()
}

// FingerprintString renders a fingerprint as a fixed-width hex string,
// suitable for persistence keys and log fields.
func FingerprintString(e Expr) string {
	return fmt.Sprintf("%016x", Fingerprint(e))
}

func hashExpr(h *xxhash.Digest, e Expr) {
	writeByte(h, byte(e.Kind()))
	switch n := e.(type) {
	case *Constant:
		writeFloat(h, n.Value)
	case *TimeVar:
	case *Primitive:
		_, _ = h.WriteString(string(n.Name))
		writeByte(h, 0)
		writeFloats(h, n.Args)
	case *Sum:
		writeLen(h, len(n.Children))
		for _, c := range n.Children {
			hashExpr(h, c)
		}
	case *Product:
		writeLen(h, len(n.Children))
		for _, c := range n.Children {
			hashExpr(h, c)
		}
	case *Shift:
		writeFloat(h, n.Offset)
		hashExpr(h, n.Expr)
	case *Scale:
		writeFloat(h, n.Factor)
		hashExpr(h, n.Expr)
	case *Window:
		writeFloat(h, n.Start)
		writeFloat(h, n.Stop)
		hashExpr(h, n.Expr)
	case *Convolve:
		writeFloat(h, n.Rate)
		hashExpr(h, n.Expr)
		hashExpr(h, n.Kernel)
	case *Filter:
		writeFloat(h, n.Rate)
		writeFloats(h, n.FeedForward)
		writeFloats(h, n.FeedBack)
		hashExpr(h, n.Expr)
	}
	writeByte(h, 0) // node separator
}

func writeByte(h *xxhash.Digest, b byte) {
	_, _ = h.Write([]byte{b})
}

func writeFloat(h *xxhash.Digest, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, _ = h.Write(buf[:])
}

func writeFloats(h *xxhash.Digest, vs []float64) {
	writeLen(h, len(vs))
	for _, v := range vs {
		writeFloat(h, v)
	}
}

func writeLen(h *xxhash.Digest, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	_, _ = h.Write(buf[:])
}
