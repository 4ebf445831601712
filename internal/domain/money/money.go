// Package money implements fixed-scale monetary arithmetic.
//
// All amounts carry four fractional digits and are rounded half-up. Every
// operation re-normalizes its result to that scale before returning, so
// values flowing through aggregation pipelines never accumulate stray
// precision.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every amount carries.
const Scale = 4

// ErrDivisionByZero is returned by Div when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// Normalize rounds d half-up to the fixed scale.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// valueOf treats a nil operand as zero.
func valueOf(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}

	return *d
}

// Add returns a + b. Nil operands count as zero.
func Add(a, b *decimal.Decimal) decimal.Decimal {
	return Normalize(valueOf(a).Add(valueOf(b)))
}

// Sub returns a - b. Nil operands count as zero.
func Sub(a, b *decimal.Decimal) decimal.Decimal {
	return Normalize(valueOf(a).Sub(valueOf(b)))
}

// Mul returns a * b. A nil operand yields zero rather than an error so
// aggregation over sparse data stays total.
func Mul(a, b *decimal.Decimal) decimal.Decimal {
	if a == nil || b == nil {
		return Normalize(decimal.Zero)
	}

	return Normalize(a.Mul(*b))
}

// Div returns a / b. A nil operand yields zero; a zero divisor returns
// ErrDivisionByZero.
func Div(a, b *decimal.Decimal) (decimal.Decimal, error) {
	if a == nil || b == nil {
		return Normalize(decimal.Zero), nil
	}

	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}

	return Normalize(a.Div(*b)), nil
}

// Abs returns |a|. A nil operand counts as zero.
func Abs(a *decimal.Decimal) decimal.Decimal {
	return Normalize(valueOf(a).Abs())
}

// Max returns the larger of a and b. Nil operands count as zero.
func Max(a, b *decimal.Decimal) decimal.Decimal {
	return Normalize(decimal.Max(valueOf(a), valueOf(b)))
}

// Min returns the smaller of a and b. Nil operands count as zero.
func Min(a, b *decimal.Decimal) decimal.Decimal {
	return Normalize(decimal.Min(valueOf(a), valueOf(b)))
}

// Parse converts a decimal string to a normalized amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}

	return Normalize(d), nil
}

// Format renders d at the full fixed scale. No scientific notation, no
// trailing-zero stripping: 5 formats as "5.0000".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
