package canon

import (
	"testing"

	"github.com/pulsekit/go-pulse/dsl"
	"github.com/pulsekit/go-pulse/wave"
)

func parse(t *testing.T, input string) wave.Expr {
	t.Helper()
	expr, err := dsl.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return expr
}

func TestConstantFolding(t *testing.T) {
	got := Canonicalize(parse(t, "1 + 2 * 3"))
	if !wave.Equal(got, wave.Const(7)) {
		t.Errorf("1 + 2*3: expected 7, got %s", wave.Format(got))
	}

	got = Canonicalize(parse(t, "2 * (3 + 4) - 14"))
	if !wave.Equal(got, wave.Zero()) {
		t.Errorf("expected 0, got %s", wave.Format(got))
	}
}

func TestIdempotence(t *testing.T) {
	inputs := []string{
		"gaussian(1, 0) * shift(square(-1, 1), 0.5)",
		"t + t + 2 * t",
		"shift(sin(2, 0) + t, 1.5)",
		"2 * (3 + scale(t, 4))",
		"2 * t + 2 * gaussian(1, 0)",
		"window(window(t, 0, 2), 1, 3)",
		"conv(gaussian(1, 0), sinc(2, 0), 100) - filter(t, 0.5, 0.5)",
	}
	for _, in := range inputs {
		once := Canonicalize(parse(t, in))
		twice := Canonicalize(once)
		if !wave.Equal(once, twice) {
			t.Errorf("canonicalizing %q twice changed the tree:\n  once:  %s\n  twice: %s",
				in, wave.Format(once), wave.Format(twice))
		}
	}
}

func TestCommutativity(t *testing.T) {
	pairs := [][2]string{
		{"t + gaussian(1, 0)", "gaussian(1, 0) + t"},
		{"t * gaussian(1, 0)", "gaussian(1, 0) * t"},
		{"(t + 1) + sin(2, 0)", "sin(2, 0) + (1 + t)"},
		{"t * (gaussian(1, 0) * sin(2, 0))", "(sin(2, 0) * t) * gaussian(1, 0)"},
	}
	for _, p := range pairs {
		if !Equal(parse(t, p[0]), parse(t, p[1])) {
			t.Errorf("%q and %q should canonicalize identically", p[0], p[1])
		}
	}
}

func TestLikeTermMerging(t *testing.T) {
	got := Canonicalize(parse(t, "gaussian(1, 0) + gaussian(1, 0)"))
	want := wave.Scaled(wave.NewGaussian(1, 0), 2)
	if !wave.Equal(got, want) {
		t.Errorf("expected merged scale, got %s", wave.Format(got))
	}

	// Coefficients that cancel drop the term entirely.
	got = Canonicalize(parse(t, "t + gaussian(1, 0) - gaussian(1, 0)"))
	if !wave.Equal(got, wave.T()) {
		t.Errorf("expected t, got %s", wave.Format(got))
	}
}

func TestIdentityAndZeroElision(t *testing.T) {
	cases := []struct {
		in   string
		want wave.Expr
	}{
		{"t + 0", wave.T()},
		{"0 * gaussian(1, 0)", wave.Zero()},
		{"t * 1", wave.T()},
		{"scale(t, 1)", wave.T()},
		{"shift(t, 0)", wave.T()},
		{"filter(t, 1)", wave.T()},
		{"conv(0, gaussian(1, 0))", wave.Zero()},
		{"window(0, 0, 1)", wave.Zero()},
	}
	for _, c := range cases {
		got := Canonicalize(parse(t, c.in))
		if !wave.Equal(got, c.want) {
			t.Errorf("%q: expected %s, got %s", c.in, wave.Format(c.want), wave.Format(got))
		}
	}
}

func TestShiftComposition(t *testing.T) {
	a := parse(t, "shift(shift(sin(1, 0), 2), 3)")
	b := parse(t, "shift(sin(1, 0), 5)")
	if !Equal(a, b) {
		t.Error("consecutive shifts should compose additively")
	}

	// Opposite shifts cancel.
	if !Equal(parse(t, "shift(shift(sin(1, 0), 2), -2)"), parse(t, "sin(1, 0)")) {
		t.Error("opposite shifts should cancel")
	}
}

func TestShiftPushdown(t *testing.T) {
	// Translatable primitives absorb the shift into their parameters.
	got := Canonicalize(parse(t, "shift(square(-1, 1), 0.5)"))
	if !wave.Equal(got, wave.NewSquare(-0.5, 1.5)) {
		t.Errorf("expected square(-0.5, 1.5), got %s", wave.Format(got))
	}

	got = Canonicalize(parse(t, "shift(gaussian(1, 0), 2)"))
	if !wave.Equal(got, wave.NewGaussian(1, 2)) {
		t.Errorf("expected gaussian(1, 2), got %s", wave.Format(got))
	}

	// Periodic primitives keep an explicit shift node.
	got = Canonicalize(parse(t, "shift(sin(2, 0), 1)"))
	if _, ok := got.(*wave.Shift); !ok {
		t.Errorf("sin should keep its shift, got %s", wave.Format(got))
	}

	// Shifts distribute through sums, reaching each term.
	a := parse(t, "shift(square(-1, 1) + gaussian(1, 0), 0.5)")
	b := parse(t, "square(-0.5, 1.5) + gaussian(1, 0.5)")
	if !Equal(a, b) {
		t.Error("shift should distribute over sum terms")
	}

	// Windows travel with the shift.
	a = parse(t, "shift(window(t, 0, 1), 2)")
	b = parse(t, "window(t - 2, 2, 3)")
	if !Equal(a, b) {
		t.Error("shifting a window should move its bounds")
	}
}

func TestScaleDistribution(t *testing.T) {
	// Every term absorbs the factor, so the scale distributes.
	got := Canonicalize(parse(t, "2 * (3 + scale(t, 4))"))
	want := &wave.Sum{Children: []wave.Expr{wave.Const(6), wave.Scaled(wave.T(), 8)}}
	if !wave.Equal(got, want) {
		t.Errorf("expected 6 + scale(t, 8), got %s", wave.Format(got))
	}

	// Bare terms would grow, so the scale stays outside.
	got = Canonicalize(parse(t, "2 * (t + gaussian(1, 0))"))
	s, ok := got.(*wave.Scale)
	if !ok || s.Factor != 2 {
		t.Fatalf("expected outer scale by 2, got %s", wave.Format(got))
	}
	if _, ok := s.Expr.(*wave.Sum); !ok {
		t.Errorf("expected scale around the sum, got %s", wave.Format(got))
	}
}

func TestCommonFactorExtraction(t *testing.T) {
	// Distributed and factored spellings of the same waveform must meet in
	// one canonical tree.
	a := parse(t, "2 * (t + gaussian(1, 0))")
	b := parse(t, "2 * t + 2 * gaussian(1, 0)")
	if !Equal(a, b) {
		t.Error("2*(a+b) and 2a+2b should canonicalize identically")
	}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("2*(a+b) and 2a+2b should share a fingerprint")
	}

	got := Canonicalize(b)
	s, ok := got.(*wave.Scale)
	if !ok || s.Factor != 2 {
		t.Fatalf("expected a single outer scale, got %s", wave.Format(got))
	}
	inner, ok := s.Expr.(*wave.Sum)
	if !ok || len(inner.Children) != 2 {
		t.Fatalf("expected a coefficient-free inner sum, got %s", wave.Format(got))
	}

	// The constant term divides through.
	if !Equal(parse(t, "2 * (3 + t + gaussian(1, 0))"), parse(t, "6 + 2*t + 2*gaussian(1, 0)")) {
		t.Error("the constant term should factor with the rest")
	}

	// Negated sums are a shared coefficient of -1.
	if !Equal(parse(t, "-(t + gaussian(1, 0))"), parse(t, "-t - gaussian(1, 0)")) {
		t.Error("negation should distribute and refactor identically")
	}

	// A scaled sum used as a term spreads over its siblings and merges.
	if !Equal(parse(t, "t + 2 * (t + gaussian(1, 0))"), parse(t, "3*t + 2*gaussian(1, 0)")) {
		t.Error("a scaled sum term should merge with sibling terms")
	}

	// Mixed coefficients stay a plain sum.
	got = Canonicalize(parse(t, "2*t + 3*gaussian(1, 0)"))
	if _, ok := got.(*wave.Sum); !ok {
		t.Errorf("mixed coefficients should stay a sum, got %s", wave.Format(got))
	}
}

func TestWindowIntersection(t *testing.T) {
	got := Canonicalize(parse(t, "window(window(t, 0, 2), 1, 3)"))
	w, ok := got.(*wave.Window)
	if !ok || w.Start != 1 || w.Stop != 2 {
		t.Fatalf("expected window [1,2), got %s", wave.Format(got))
	}

	// Disjoint windows leave nothing.
	got = Canonicalize(parse(t, "window(window(t, 0, 1), 2, 3)"))
	if !wave.Equal(got, wave.Zero()) {
		t.Errorf("disjoint windows should vanish, got %s", wave.Format(got))
	}

	// Degenerate bounds vanish outright.
	got = Canonicalize(parse(t, "window(t, 2, 1)"))
	if !wave.Equal(got, wave.Zero()) {
		t.Errorf("empty window should vanish, got %s", wave.Format(got))
	}
}

func TestDeclaredRateSurvivesRewrites(t *testing.T) {
	// A declared kernel rate must reach the compiler even when the operand
	// folds to zero, so mismatches stay detectable.
	got := Canonicalize(parse(t, "conv(0 * t, gaussian(1, 0), 100)"))
	cv, ok := got.(*wave.Convolve)
	if !ok || cv.Rate != 100 {
		t.Errorf("expected conv with rate 100, got %s", wave.Format(got))
	}

	got = Canonicalize(&wave.Filter{
		Expr: wave.T(), FeedForward: []float64{1}, Rate: 50,
	})
	f, ok := got.(*wave.Filter)
	if !ok || f.Rate != 50 {
		t.Errorf("expected rated identity filter to survive, got %s", wave.Format(got))
	}
}

func TestCanonicalFingerprint(t *testing.T) {
	a := parse(t, "gaussian(1, 0) + t")
	b := parse(t, "t + gaussian(1, 0)")
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("same waveform must share a canonical fingerprint")
	}
	if Fingerprint(a) == Fingerprint(parse(t, "t + gaussian(2, 0)")) {
		t.Error("different waveforms should fingerprint differently")
	}
}

func TestCompareTotalOrder(t *testing.T) {
	exprs := []wave.Expr{
		wave.Const(1),
		wave.T(),
		wave.NewGaussian(1, 0),
		wave.Scaled(wave.T(), 2),
		wave.Windowed(wave.T(), 0, 1),
	}
	for i, a := range exprs {
		if Compare(a, a) != 0 {
			t.Errorf("Compare(%s, itself) != 0", wave.Format(a))
		}
		for j, b := range exprs {
			if i == j {
				continue
			}
			if Compare(a, b) == 0 {
				t.Errorf("distinct %s and %s compare equal", wave.Format(a), wave.Format(b))
			}
			if Compare(a, b) != -Compare(b, a) {
				t.Errorf("Compare(%s, %s) is not antisymmetric", wave.Format(a), wave.Format(b))
			}
		}
	}
}
