package fixed

import (
	"math"
	"testing"
)

func checkWithin(t *testing.T, name string, got Value, want float64, tol Value) {
	t.Helper()
	diff := math.Abs(got.Float() - want)
	if diff > tol.Float() {
		t.Fatalf("%s: got %v, want %v (diff %v, tol %v)", name, got.Float(), want, diff, tol.Float())
	}
}

func TestSinAgainstReference(t *testing.T) {
	for _, deg := range []float64{-720, -180, -90, -45, -1, 0, 1, 30, 45, 90, 135, 180, 270, 360, 3600} {
		rad := deg * math.Pi / 180
		got := Sin(FromFloat(rad))
		checkWithin(t, "sin", got, math.Sin(rad), ToleranceSin)
	}
}

func TestSinHalfPiEncoding(t *testing.T) {
	// 0x18000 is the coarse pi/2 encoding fixture programs use; the
	// result must land within tolerance of 1.0 (0x10000).
	got := Sin(FromRaw(0x00018000))
	if d := int64(got) - int64(One); d > 0x200 || d < -0x200 {
		t.Fatalf("sin(0x18000) = %#x, want within 0x200 of %#x", got.Raw(), One.Raw())
	}
}

func TestCosAgainstReference(t *testing.T) {
	for _, deg := range []float64{-360, -90, 0, 60, 90, 120, 180, 359} {
		rad := deg * math.Pi / 180
		checkWithin(t, "cos", Cos(FromFloat(rad)), math.Cos(rad), ToleranceCos)
	}
}

func TestTanAgainstReference(t *testing.T) {
	for _, deg := range []float64{-60, -45, 0, 30, 45, 60} {
		rad := deg * math.Pi / 180
		checkWithin(t, "tan", Tan(FromFloat(rad)), math.Tan(rad), ToleranceTan)
	}
}

func TestSqrtAgainstReference(t *testing.T) {
	for _, f := range []float64{0.0001, 0.25, 1, 2, 100, 10000, 32767} {
		checkWithin(t, "sqrt", Sqrt(FromFloat(f)), math.Sqrt(f), ToleranceSqrt)
	}
	if got := Sqrt(FromFloat(-4)); got != 0 {
		t.Fatalf("sqrt(-4) = %v, want 0", got.Float())
	}
}

func TestInvSqrt(t *testing.T) {
	checkWithin(t, "invsqrt", InvSqrt(FromFloat(4)), 0.5, ToleranceSqrt)
	if got := InvSqrt(0); got != MaxValue {
		t.Fatalf("invsqrt(0) = %#x, want MaxValue", got.Raw())
	}
}

func TestExpAgainstReference(t *testing.T) {
	for _, f := range []float64{-8, -2, -0.5, 0, 0.5, 1, 2, 2.77} {
		checkWithin(t, "exp", Exp(FromFloat(f)), math.Exp(f), ToleranceExp)
	}
	if got := Exp(FromFloat(20)); got != MaxValue {
		t.Fatalf("exp(20) = %#x, want MaxValue", got.Raw())
	}
	if got := Exp(FromFloat(-20)); got != 0 {
		t.Fatalf("exp(-20) = %v, want 0", got.Float())
	}
}

func TestLogAgainstReference(t *testing.T) {
	for _, f := range []float64{0.001, 0.5, 1, 2, math.E, 100, 30000} {
		checkWithin(t, "log", Log(FromFloat(f)), math.Log(f), ToleranceLog)
	}
	if got := Log(0); got != MinValue {
		t.Fatalf("log(0) = %#x, want MinValue", got.Raw())
	}
	if got := Log(FromFloat(-1)); got != MinValue {
		t.Fatalf("log(-1) = %#x, want MinValue", got.Raw())
	}
}

func TestPowAgainstReference(t *testing.T) {
	cases := [][2]float64{{2, 3}, {2, 0.5}, {10, 2}, {1.5, -2}, {4, 1.5}}
	for _, c := range cases {
		checkWithin(t, "pow", Pow(FromFloat(c[0]), FromFloat(c[1])), math.Pow(c[0], c[1]), TolerancePow)
	}
	if got := Pow(FromFloat(-2), FromFloat(2)); got != 0 {
		t.Fatalf("pow(-2, 2) = %v, want 0", got.Float())
	}
}

func TestAtanAgainstReference(t *testing.T) {
	for _, f := range []float64{-100, -2, -1, -0.3, 0, 0.3, 1, 2, 100} {
		checkWithin(t, "atan", Atan(FromFloat(f)), math.Atan(f), ToleranceAtan)
	}
}

func TestAtan2Quadrants(t *testing.T) {
	cases := [][2]float64{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}, {1, 0}, {-1, 0}, {0, -1}, {0, 1}}
	for _, c := range cases {
		checkWithin(t, "atan2", Atan2(FromFloat(c[0]), FromFloat(c[1])), math.Atan2(c[0], c[1]), ToleranceAtan)
	}
	if got := Atan2(0, 0); got != 0 {
		t.Fatalf("atan2(0,0) = %v, want 0", got.Float())
	}
}

func TestHyperbolics(t *testing.T) {
	for _, f := range []float64{-3, -1, 0, 0.5, 1, 3} {
		checkWithin(t, "sinh", Sinh(FromFloat(f)), math.Sinh(f), ToleranceSinh)
		checkWithin(t, "cosh", Cosh(FromFloat(f)), math.Cosh(f), ToleranceCosh)
	}
}
