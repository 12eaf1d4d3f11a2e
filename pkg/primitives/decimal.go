// Package primitives provides the numeric and temporal types shared across
// every layer of the options-analytics library. All financial calculations
// use decimal arithmetic to prevent floating-point precision errors; binary
// float is used only as an intermediate inside pricing formulas and is
// rounded back to decimal at the boundary.
package primitives

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrNonPositive indicates an attempt to construct a Positive from a
	// negative numeric value.
	ErrNonPositive = errors.New("value must be non-negative")
	// ErrDivisionByZero indicates attempted division by zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidDecimal indicates an invalid decimal string.
	ErrInvalidDecimal = errors.New("invalid decimal value")
	// ErrNegationForbidden indicates an attempt to negate a Positive value.
	ErrNegationForbidden = errors.New("Positive values cannot be negated")
)

// epsilon is the absolute tolerance used by Positive.Equal, scaled by the
// magnitude of the compared values.
const epsilon = 1e-9

// Decimal wraps shopspring/decimal.Decimal for signed precise arithmetic.
// Used for quantities that may legitimately go negative (drift, rho,
// theta, risk-free rate).
type Decimal struct {
	value decimal.Decimal
}

// NewDecimal creates a Decimal from an int64 value.
func NewDecimal(value int64) Decimal {
	return Decimal{value: decimal.NewFromInt(value)}
}

// NewDecimalFromFloat creates a Decimal from a float64 value.
// Use sparingly; prefer NewDecimalFromString for external data.
func NewDecimalFromFloat(value float64) Decimal {
	return Decimal{value: decimal.NewFromFloat(value)}
}

// NewDecimalFromString parses a decimal from its text form.
func NewDecimalFromString(value string) (Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %s", ErrInvalidDecimal, err)
	}
	return Decimal{value: d}, nil
}

// MustDecimalFromString parses a decimal, panicking on error. Only use for
// known-valid constants in tests or initialization.
func MustDecimalFromString(value string) Decimal {
	d, err := NewDecimalFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroDecimal returns a Decimal representing zero.
func ZeroDecimal() Decimal { return Decimal{value: decimal.Zero} }

// OneDecimal returns a Decimal representing one.
func OneDecimal() Decimal { return Decimal{value: decimal.NewFromInt(1)} }

func (d Decimal) Add(other Decimal) Decimal { return Decimal{value: d.value.Add(other.value)} }
func (d Decimal) Sub(other Decimal) Decimal { return Decimal{value: d.value.Sub(other.value)} }
func (d Decimal) Mul(other Decimal) Decimal { return Decimal{value: d.value.Mul(other.value)} }

// Div returns d/other, failing on division by zero.
func (d Decimal) Div(other Decimal) (Decimal, error) {
	if other.value.IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	return Decimal{value: d.value.Div(other.value)}, nil
}

func (d Decimal) Neg() Decimal         { return Decimal{value: d.value.Neg()} }
func (d Decimal) Abs() Decimal         { return Decimal{value: d.value.Abs()} }
func (d Decimal) IsZero() bool         { return d.value.IsZero() }
func (d Decimal) IsNegative() bool     { return d.value.IsNegative() }
func (d Decimal) IsPositive() bool     { return d.value.IsPositive() }
func (d Decimal) GreaterThan(o Decimal) bool { return d.value.GreaterThan(o.value) }
func (d Decimal) LessThan(o Decimal) bool    { return d.value.LessThan(o.value) }
func (d Decimal) Equal(o Decimal) bool       { return d.value.Equal(o.value) }

// Float64 returns the float64 representation. Use only for pricing
// intermediates or display, never to accumulate money.
func (d Decimal) Float64() float64 {
	f, _ := d.value.Float64()
	return f
}

func (d Decimal) String() string { return d.value.String() }

// Raw exposes the underlying shopspring/decimal.Decimal for callers that
// need the full decimal API.
func (d Decimal) Raw() decimal.Decimal { return d.value }

// Positive is a decimal value with the invariant value >= 0. It underlies
// every price, strike, premium, quantity, volatility and fee in the
// library. The zero value is NOT valid; always construct through New,
// NewFromDecimal, or the Must variants.
type Positive struct {
	value decimal.Decimal
}

// New constructs a Positive from a float64, failing with ErrNonPositive
// when value is negative.
func New(value float64) (Positive, error) {
	if value < 0 {
		return Positive{}, fmt.Errorf("%w: got %v", ErrNonPositive, value)
	}
	return Positive{value: decimal.NewFromFloat(value)}, nil
}

// NewFromDecimal constructs a Positive from a Decimal, failing with
// ErrNonPositive when the value is negative.
func NewFromDecimal(value Decimal) (Positive, error) {
	if value.IsNegative() {
		return Positive{}, fmt.Errorf("%w: got %s", ErrNonPositive, value.String())
	}
	return Positive{value: value.value}, nil
}

// Must panics if value is negative. Only use for literal constants.
func Must(value float64) Positive {
	p, err := New(value)
	if err != nil {
		panic(err)
	}
	return p
}

// Pos is shorthand for Must, mirroring the reference implementation's
// pos! literal-construction macro.
func Pos(value float64) Positive { return Must(value) }

// Zero returns a Positive representing zero.
func Zero() Positive { return Positive{value: decimal.Zero} }

// One returns a Positive representing one.
func One() Positive { return Positive{value: decimal.NewFromInt(1)} }

// Infinity returns a sentinel Positive used for uncapped max-profit/loss
// results.
func Infinity() Positive { return Positive{value: decimal.NewFromFloat(math.MaxFloat64)} }

// IsInfinity reports whether p is the Infinity sentinel.
func (p Positive) IsInfinity() bool { return p.value.Equal(Infinity().value) }

// ToDecimal returns the signed Decimal equivalent.
func (p Positive) ToDecimal() Decimal { return Decimal{value: p.value} }

// ToFloat64 returns the float64 representation.
func (p Positive) ToFloat64() float64 {
	f, _ := p.value.Float64()
	return f
}

func (p Positive) String() string { return p.value.String() }

// Add returns p+other; the result is always Positive since both operands
// are non-negative.
func (p Positive) Add(other Positive) Positive {
	return Positive{value: p.value.Add(other.value)}
}

// Sub returns p-other, failing with ErrNonPositive if the result would be
// negative.
func (p Positive) Sub(other Positive) (Positive, error) {
	result := p.value.Sub(other.value)
	if result.IsNegative() {
		return Positive{}, fmt.Errorf("%w: %s - %s", ErrNonPositive, p, other)
	}
	return Positive{value: result}, nil
}

// SubDecimal returns p-other as a (possibly negative) Decimal.
func (p Positive) SubDecimal(other Decimal) Decimal {
	return Decimal{value: p.value.Sub(other.value)}
}

// Mul returns p*other.
func (p Positive) Mul(other Positive) Positive {
	return Positive{value: p.value.Mul(other.value)}
}

// MulDecimal returns p*other as a signed Decimal (other may be negative).
func (p Positive) MulDecimal(other Decimal) Decimal {
	return Decimal{value: p.value.Mul(other.value)}
}

// Div returns p/other, failing on division by zero.
func (p Positive) Div(other Positive) (Positive, error) {
	if other.value.IsZero() {
		return Positive{}, ErrDivisionByZero
	}
	return Positive{value: p.value.Div(other.value)}, nil
}

// DivDecimal returns p/other as a signed Decimal, failing on division by
// zero.
func (p Positive) DivDecimal(other Decimal) (Decimal, error) {
	if other.IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	return Decimal{value: p.value.Div(other.value)}, nil
}

// Neg always fails: negating a Positive is a programmer error by
// construction.
func (p Positive) Neg() (Decimal, error) {
	return Decimal{}, ErrNegationForbidden
}

func (p Positive) IsZero() bool { return p.value.IsZero() }

func (p Positive) GreaterThan(other Positive) bool { return p.value.GreaterThan(other.value) }
func (p Positive) LessThan(other Positive) bool    { return p.value.LessThan(other.value) }
func (p Positive) GreaterThanOrEqual(other Positive) bool {
	return p.value.GreaterThanOrEqual(other.value)
}
func (p Positive) LessThanOrEqual(other Positive) bool {
	return p.value.LessThanOrEqual(other.value)
}

// Equal compares within an absolute epsilon tolerance scaled by the larger
// operand's magnitude.
func (p Positive) Equal(other Positive) bool {
	diff := p.value.Sub(other.value).Abs()
	scale := p.value.Abs()
	if other.value.Abs().GreaterThan(scale) {
		scale = other.value.Abs()
	}
	tol := decimal.NewFromFloat(epsilon).Mul(scale.Add(decimal.NewFromInt(1)))
	return diff.LessThanOrEqual(tol)
}

func (p Positive) Max(other Positive) Positive {
	if p.value.GreaterThan(other.value) {
		return p
	}
	return other
}

func (p Positive) Min(other Positive) Positive {
	if p.value.LessThan(other.value) {
		return p
	}
	return other
}

func (p Positive) Floor() Positive { return Positive{value: p.value.Floor()} }
func (p Positive) Round() Positive { return Positive{value: p.value.Round(0)} }

func (p Positive) RoundTo(places int32) Positive {
	return Positive{value: p.value.Round(places)}
}

// Sqrt returns the square root of p. Panics only if p is somehow negative,
// which the invariant precludes.
func (p Positive) Sqrt() Positive {
	f := p.ToFloat64()
	return Positive{value: decimal.NewFromFloat(math.Sqrt(f))}
}

// Ln returns the natural logarithm of p as a signed Decimal: ln of a value
// in (0,1) is negative, so the result cannot be represented as a Positive.
func (p Positive) Ln() Decimal {
	f := p.ToFloat64()
	return Decimal{value: decimal.NewFromFloat(math.Log(f))}
}

// Exp returns e^p.
func (p Positive) Exp() Positive {
	f := p.ToFloat64()
	return Positive{value: decimal.NewFromFloat(math.Exp(f))}
}

// PowInt returns p^n for integer n.
func (p Positive) PowInt(n int64) Positive {
	f := p.ToFloat64()
	return Positive{value: decimal.NewFromFloat(math.Pow(f, float64(n)))}
}

// PowDecimal returns p^exp for a Decimal exponent.
func (p Positive) PowDecimal(exp Decimal) Positive {
	f := p.ToFloat64()
	e := exp.Float64()
	return Positive{value: decimal.NewFromFloat(math.Pow(f, e))}
}

// MarshalJSON encodes the Positive as a plain decimal number, never a
// quoted string.
func (p Positive) MarshalJSON() ([]byte, error) {
	return []byte(p.value.String()), nil
}

// UnmarshalJSON decodes a numeric JSON value, rejecting negative inputs.
func (p *Positive) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDecimal, err)
	}
	if d.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrNonPositive, d.String())
	}
	p.value = d
	return nil
}
