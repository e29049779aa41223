// Package fixed implements the Q16.16 fixed-point value model used by the
// shading-language backend. All arithmetic is defined over a 32-bit signed
// integer carrying 16 integer and 16 fractional bits; products and quotients
// widen to 64 bits internally so no fractional scale is lost.
package fixed

import "math"

// Value is a Q16.16 fixed-point number stored in a signed 32-bit integer.
type Value int32

const (
	// FracBits is the number of fractional bits in a Value.
	FracBits = 16

	// MinValue and MaxValue bound every persisted Value. Saturating
	// operations clamp to these.
	MinValue Value = math.MinInt32
	MaxValue Value = math.MaxInt32

	Zero Value = 0
	One  Value = 1 << FracBits
	Half Value = 1 << (FracBits - 1)

	// Pi and friends rounded to the nearest Q16.16 step.
	Pi     Value = 205887 // 3.14159265...
	HalfPi Value = 102944
	TwoPi  Value = 411775
	Ln2    Value = 45426 // 0.69314718...
	E      Value = 178145
)

// FromInt converts an integer to Q16.16, saturating at the representable
// bounds.
func FromInt(i int) Value {
	return saturate(int64(i) << FracBits)
}

// FromFloat converts a float64 to Q16.16 with round-to-nearest, saturating
// at the representable bounds. NaN converts to zero.
func FromFloat(f float64) Value {
	if math.IsNaN(f) {
		return 0
	}
	scaled := f * (1 << FracBits)
	if scaled >= float64(MaxValue) {
		return MaxValue
	}
	if scaled <= float64(MinValue) {
		return MinValue
	}
	return Value(math.RoundToEven(scaled))
}

// FromRaw reinterprets a raw 32-bit pattern as a Value.
func FromRaw(raw int32) Value {
	return Value(raw)
}

// Raw returns the underlying 32-bit pattern.
func (v Value) Raw() int32 {
	return int32(v)
}

// Float converts v to the nearest float64.
func (v Value) Float() float64 {
	return float64(v) / (1 << FracBits)
}

// Int truncates v toward zero.
func (v Value) Int() int {
	if v < 0 {
		return -int(-int64(v) >> FracBits)
	}
	return int(v >> FracBits)
}

// Add returns a+b with saturation (precise mode).
func Add(a, b Value) Value {
	return saturate(int64(a) + int64(b))
}

// AddWrap returns a+b with two's-complement wrap (fast-math mode).
func AddWrap(a, b Value) Value {
	return Value(int32(a) + int32(b))
}

// Sub returns a-b with saturation (precise mode).
func Sub(a, b Value) Value {
	return saturate(int64(a) - int64(b))
}

// SubWrap returns a-b with two's-complement wrap (fast-math mode).
func SubWrap(a, b Value) Value {
	return Value(int32(a) - int32(b))
}

// Mul returns a*b. The product is formed in 64 bits, shifted right by the
// fractional width and saturated; fast-math never changes this path since a
// 32x32 fixed multiply cannot fit 32 bits without losing scale.
func Mul(a, b Value) Value {
	return saturate((int64(a) * int64(b)) >> FracBits)
}

// Div returns a/b over a 64-bit widened dividend, saturating the quotient.
// Division by zero saturates to the bound matching the dividend's sign;
// fixture programs must not trap at runtime.
func Div(a, b Value) Value {
	if b == 0 {
		if a < 0 {
			return MinValue
		}
		return MaxValue
	}
	return saturate((int64(a) << FracBits) / int64(b))
}

// Neg returns -a, saturating the single overflowing case (-MinValue).
func Neg(a Value) Value {
	return saturate(-int64(a))
}

// Abs returns |a|, saturating |MinValue| to MaxValue.
func Abs(a Value) Value {
	if a < 0 {
		return saturate(-int64(a))
	}
	return a
}

// Min returns the smaller of a and b.
func Min(a, b Value) Value {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Value) Value {
	if a > b {
		return a
	}
	return b
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi Value) Value {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FusedMulAdd returns a*b+c with the product kept at 64 bits and a single
// saturation at the end.
func FusedMulAdd(a, b, c Value) Value {
	wide := (int64(a) * int64(b)) >> FracBits
	return saturate(wide + int64(c))
}

func saturate(wide int64) Value {
	if wide > int64(MaxValue) {
		return MaxValue
	}
	if wide < int64(MinValue) {
		return MinValue
	}
	return Value(wide)
}

// mul64 multiplies two Q16.16 quantities held in int64 without saturation.
// Internal helper for the math routines, which keep intermediates wide.
func mul64(a, b int64) int64 {
	return (a * b) >> FracBits
}
