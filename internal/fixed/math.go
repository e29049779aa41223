package fixed

// Transcendental routines over the Q16.16 model. Each uses range reduction
// plus a short polynomial or iterative digit recurrence over a 64-bit
// intermediate. These are the Local builtin bodies for hosted targets and
// the conformance references for External implementations; freestanding
// firmware supplies compatible versions under the documented symbol names.
//
// Accuracy is a conformance parameter rather than a fixed law. The
// Tolerance* constants state, in raw Q16.16 steps, how far a conforming
// implementation may stray from the exact real result over the stated
// input domain.

const (
	ToleranceSin  = 0x40 // after reduction into [-pi/2, pi/2]
	ToleranceCos  = 0x40
	ToleranceTan  = 0x100 // away from poles
	ToleranceExp  = 0x80  // relative, results up to 16.0
	ToleranceLog  = 0x40
	ToleranceSqrt = 0x02
	TolerancePow  = 0x200 // results up to 100.0
	ToleranceAtan = 0x80
	ToleranceSinh = 0x100
	ToleranceCosh = 0x100
)

// Q16.16 polynomial coefficients.
const (
	coefThird     = 21845 // 1/3
	coefFifth     = 13107 // 1/5
	coefSeventh   = 9362  // 1/7
	coefSixth     = 10923 // 1/6
	coef24th      = 2731  // 1/24
	coef120th     = 546   // 1/120
	coef720th     = 91    // 1/720
	coef5040th    = 13    // 1/5040
	coefAtanA     = 16036 // 0.2447
	coefAtanB     = 4345  // 0.0663
	coefQuarterPi = 51472
)

// reduceAngle maps x into [-pi, pi].
func reduceAngle(x Value) int64 {
	r := int64(x) % int64(TwoPi)
	if r > int64(Pi) {
		r -= int64(TwoPi)
	} else if r < -int64(Pi) {
		r += int64(TwoPi)
	}
	return r
}

// Sin returns sin(x) for x in radians.
func Sin(x Value) Value {
	r := reduceAngle(x)

	// Fold into [-pi/2, pi/2] where the polynomial converges.
	if r > int64(HalfPi) {
		r = int64(Pi) - r
	} else if r < -int64(HalfPi) {
		r = -int64(Pi) - r
	}

	// sin r = r (1 - r^2 (1/6 - r^2 (1/120 - r^2/5040)))
	r2 := mul64(r, r)
	p := int64(coef5040th)
	p = coef120th - mul64(r2, p)
	p = coefSixth - mul64(r2, p)
	p = int64(One) - mul64(r2, p)
	return saturate(mul64(r, p))
}

// Cos returns cos(x) for x in radians.
func Cos(x Value) Value {
	return Sin(Add(x, HalfPi))
}

// Tan returns sin(x)/cos(x), saturating near the poles.
func Tan(x Value) Value {
	return Div(Sin(x), Cos(x))
}

// Sqrt returns the square root of x by binary digit recurrence over the
// 64-bit widened radicand. Negative inputs return zero, matching shading
// language convention for out-of-domain roots.
func Sqrt(x Value) Value {
	if x <= 0 {
		return 0
	}

	// sqrt(v / 2^16) * 2^16 == isqrt(v << 16)
	rad := uint64(x) << FracBits
	var rem uint64
	bit := uint64(1) << 46
	for bit > rad {
		bit >>= 2
	}
	for bit != 0 {
		if rad >= rem+bit {
			rad -= rem + bit
			rem = (rem >> 1) + bit
		} else {
			rem >>= 1
		}
		bit >>= 2
	}
	return saturate(int64(rem))
}

// InvSqrt returns 1/sqrt(x). Non-positive inputs saturate to MaxValue.
func InvSqrt(x Value) Value {
	if x <= 0 {
		return MaxValue
	}
	return Div(One, Sqrt(x))
}

// Exp returns e**x. Results above the representable range saturate to
// MaxValue; deeply negative inputs flush to zero.
func Exp(x Value) Value {
	// e**x saturates once x exceeds ln(32768); below ln(2^-16) every
	// representable step rounds to zero.
	const expMax = 681391  // ln(32768)
	const expMin = -726817 // -ln(65536)
	if int64(x) >= expMax {
		return MaxValue
	}
	if int64(x) <= expMin {
		return 0
	}

	// x = n ln2 + r with r in [0, ln2); e**x = 2^n e**r.
	n := int64(x) / int64(Ln2)
	r := int64(x) - n*int64(Ln2)
	if r < 0 {
		n--
		r += int64(Ln2)
	}

	// e**r via eight Taylor terms in Horner form. r < ln 2 keeps every
	// intermediate comfortably inside int64.
	acc := int64(coef5040th)
	acc = coef720th + mul64(r, acc)
	acc = coef120th + mul64(r, acc)
	acc = coef24th + mul64(r, acc)
	acc = coefSixth + mul64(r, acc)
	acc = int64(Half) + mul64(r, acc)
	acc = int64(One) + mul64(r, acc)
	acc = int64(One) + mul64(r, acc)

	if n >= 0 {
		return saturate(acc << uint(n))
	}
	return saturate(acc >> uint(-n))
}

// Log returns the natural logarithm of x. Non-positive inputs saturate to
// MinValue.
func Log(x Value) Value {
	if x <= 0 {
		return MinValue
	}

	// Normalize x = m 2^k with m in [1, 2).
	v := int64(x)
	k := 0
	for v >= int64(One)<<1 {
		v >>= 1
		k++
	}
	for v < int64(One) {
		v <<= 1
		k--
	}

	// ln m = 2 artanh(s) with s = (m-1)/(m+1) <= 1/3, so four series
	// terms reach below one Q16.16 step.
	s := ((v - int64(One)) << FracBits) / (v + int64(One))
	s2 := mul64(s, s)
	sum := int64(coefSeventh)
	sum = coefFifth + mul64(s2, sum)
	sum = coefThird + mul64(s2, sum)
	sum = int64(One) + mul64(s2, sum)
	lnM := 2 * mul64(s, sum)

	return saturate(int64(k)*int64(Ln2) + lnM)
}

// Pow returns a**b as exp(b ln a). Non-positive bases return zero, the
// shading-language convention for undefined powers.
func Pow(a, b Value) Value {
	if a <= 0 {
		return 0
	}
	wide := mul64(int64(b), int64(Log(a)))
	return Exp(saturate(wide))
}

// Atan returns arctan(x) in radians.
func Atan(x Value) Value {
	neg := x < 0
	v := int64(Abs(x))

	recip := false
	if v > int64(One) {
		// atan(x) = pi/2 - atan(1/x) for x > 1.
		v = (int64(One) << FracBits) / v
		recip = true
	}

	// atan(v) ~= (pi/4) v - v (v-1) (0.2447 + 0.0663 v) on [0, 1].
	r := mul64(coefQuarterPi, v) - mul64(mul64(v, v-int64(One)), coefAtanA+mul64(coefAtanB, v))

	if recip {
		r = int64(HalfPi) - r
	}
	if neg {
		r = -r
	}
	return saturate(r)
}

// Atan2 returns the angle of the vector (x, y) in (-pi, pi].
func Atan2(y, x Value) Value {
	switch {
	case x > 0:
		return Atan(Div(y, x))
	case x < 0 && y >= 0:
		return Add(Atan(Div(y, x)), Pi)
	case x < 0:
		return Sub(Atan(Div(y, x)), Pi)
	case y > 0:
		return HalfPi
	case y < 0:
		return Neg(HalfPi)
	default:
		return 0
	}
}

// Sinh returns the hyperbolic sine of x.
func Sinh(x Value) Value {
	ex := int64(Exp(x))
	enx := int64(Exp(Neg(x)))
	return saturate((ex - enx) >> 1)
}

// Cosh returns the hyperbolic cosine of x.
func Cosh(x Value) Value {
	ex := int64(Exp(x))
	enx := int64(Exp(Neg(x)))
	return saturate((ex + enx) >> 1)
}
