package wave

import (
	"strconv"
	"strings"
)

// Format renders the expression in the textual waveform grammar. The
// output parses back (dsl.Parse) to a structurally equal tree, which is
// what lets external collaborators persist waveforms as text; nested
// sums and products are parenthesized so their grouping survives the
// round trip. The one attribute the grammar does not carry is a declared
// design rate on a Filter node; declared rates on Convolve round-trip
// through conv's optional third argument.
func Format(e Expr) string {
	var b strings.Builder
	formatExpr(&b, e)
	return b.String()
}

func formatExpr(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Constant:
		formatFloat(b, n.Value)
	case *TimeVar:
		b.WriteString("t")
	case *Primitive:
		b.WriteString(string(n.Name))
		b.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			formatFloat(b, a)
		}
		b.WriteString(")")
	case *Sum:
		for i, c := range n.Children {
			if i == 0 {
				formatGrouped(b, c, KindSum)
				continue
			}
			if neg, ok := negatedTerm(c); ok {
				b.WriteString(" - ")
				formatGrouped(b, neg, KindSum)
				continue
			}
			b.WriteString(" + ")
			formatGrouped(b, c, KindSum)
		}
	case *Product:
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(" * ")
			}
			if c.Kind() == KindSum || c.Kind() == KindProduct {
				b.WriteString("(")
				formatExpr(b, c)
				b.WriteString(")")
			} else {
				formatExpr(b, c)
			}
		}
	case *Shift:
		b.WriteString("shift(")
		formatExpr(b, n.Expr)
		b.WriteString(", ")
		formatFloat(b, n.Offset)
		b.WriteString(")")
	case *Scale:
		b.WriteString("scale(")
		formatExpr(b, n.Expr)
		b.WriteString(", ")
		formatFloat(b, n.Factor)
		b.WriteString(")")
	case *Window:
		b.WriteString("window(")
		formatExpr(b, n.Expr)
		b.WriteString(", ")
		formatFloat(b, n.Start)
		b.WriteString(", ")
		formatFloat(b, n.Stop)
		b.WriteString(")")
	case *Convolve:
		b.WriteString("conv(")
		formatExpr(b, n.Expr)
		b.WriteString(", ")
		formatExpr(b, n.Kernel)
		if n.Rate != 0 {
			b.WriteString(", ")
			formatFloat(b, n.Rate)
		}
		b.WriteString(")")
	case *Filter:
		b.WriteString("filter(")
		formatExpr(b, n.Expr)
		for _, c := range n.FeedForward {
			b.WriteString(", ")
			formatFloat(b, c)
		}
		if len(n.FeedBack) > 0 {
			b.WriteString(";")
			for i, c := range n.FeedBack {
				if i > 0 {
					b.WriteString(",")
				}
				b.WriteString(" ")
				formatFloat(b, c)
			}
		}
		b.WriteString(")")
	}
}

// formatGrouped parenthesizes an operand of the given kind, so a sum
// nested directly inside a sum re-parses with its original grouping
// instead of flattening into the left-associative default.
func formatGrouped(b *strings.Builder, e Expr, parent Kind) {
	if e.Kind() == parent {
		b.WriteString("(")
		formatExpr(b, e)
		b.WriteString(")")
		return
	}
	formatExpr(b, e)
}

// negatedTerm recognizes terms that read better subtracted: a negative
// constant, or a scale by -1.
func negatedTerm(e Expr) (Expr, bool) {
	switch n := e.(type) {
	case *Constant:
		if n.Value < 0 {
			return &Constant{Value: -n.Value}, true
		}
	case *Scale:
		if n.Factor == -1 {
			return n.Expr, true
		}
	}
	return nil, false
}

func formatFloat(b *strings.Builder, v float64) {
	b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}
