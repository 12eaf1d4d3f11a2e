// Package options defines the vocabulary shared by every pricing and
// strategy layer: option style, side, Greeks, and the single-leg Option
// contract itself.
package options

import (
	"errors"
	"fmt"

	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// OptionType identifies the exercise style of the contract. Only
// European options are modeled; American-style early exercise is out of
// scope.
type OptionType string

// OptionTypeEuropean is the only supported OptionType.
const OptionTypeEuropean OptionType = "European"

// OptionStyle distinguishes a call from a put.
type OptionStyle string

const (
	Call OptionStyle = "Call"
	Put  OptionStyle = "Put"
)

// Side indicates whether a leg is bought (Long) or sold (Short).
type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// Sign returns +1 for Long, -1 for Short, used to flip payoff/Greeks signs.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

var (
	// ErrInvalidStrike indicates a non-positive strike price.
	ErrInvalidStrike = errors.New("strike price must be positive")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidVolatility indicates a non-positive implied volatility.
	ErrInvalidVolatility = errors.New("implied volatility must be positive")
	// ErrInvalidOptionType indicates an unsupported option type.
	ErrInvalidOptionType = errors.New("only European options are supported")
	// ErrInvalidOptionStyle indicates neither Call nor Put was given.
	ErrInvalidOptionStyle = errors.New("option style must be Call or Put")
	// ErrInvalidSide indicates neither Long nor Short was given.
	ErrInvalidSide = errors.New("side must be Long or Short")
)

// Greeks holds the first-order (and gamma, second-order) risk
// sensitivities of an option position.
type Greeks struct {
	Delta primitives.Decimal
	Gamma primitives.Decimal
	Vega  primitives.Decimal
	Theta primitives.Decimal
	Rho   primitives.Decimal
}

// Option is the single-leg contract tuple: side, style, strike,
// expiration, implied volatility, quantity and the market context needed
// to price it.
//
// Option is value-typed and immutable except through the explicit With*
// setters, which return a modified copy; it owns no other entities.
type Option struct {
	optionType        OptionType
	side              Side
	style             OptionStyle
	underlyingSymbol  string
	strike            primitives.Positive
	expiration        primitives.ExpirationDate
	impliedVolatility primitives.Positive
	quantity          primitives.Positive
	underlyingPrice   primitives.Positive
	riskFreeRate      primitives.Decimal
	dividendYield     primitives.Positive
}

// NewOption validates and constructs an Option. strike, quantity and
// impliedVolatility must all be strictly positive.
func NewOption(
	side Side,
	style OptionStyle,
	underlyingSymbol string,
	strike primitives.Positive,
	expiration primitives.ExpirationDate,
	impliedVolatility primitives.Positive,
	quantity primitives.Positive,
	underlyingPrice primitives.Positive,
	riskFreeRate primitives.Decimal,
	dividendYield primitives.Positive,
) (Option, error) {
	if side != Long && side != Short {
		return Option{}, ErrInvalidSide
	}
	if style != Call && style != Put {
		return Option{}, ErrInvalidOptionStyle
	}
	if strike.IsZero() {
		return Option{}, fmt.Errorf("%w: strike is zero", ErrInvalidStrike)
	}
	if quantity.IsZero() {
		return Option{}, fmt.Errorf("%w: quantity is zero", ErrInvalidQuantity)
	}
	if impliedVolatility.IsZero() {
		return Option{}, fmt.Errorf("%w: implied volatility is zero", ErrInvalidVolatility)
	}
	return Option{
		optionType:        OptionTypeEuropean,
		side:              side,
		style:             style,
		underlyingSymbol:  underlyingSymbol,
		strike:            strike,
		expiration:        expiration,
		impliedVolatility: impliedVolatility,
		quantity:          quantity,
		underlyingPrice:   underlyingPrice,
		riskFreeRate:      riskFreeRate,
		dividendYield:     dividendYield,
	}, nil
}

func (o Option) OptionType() OptionType                    { return o.optionType }
func (o Option) Side() Side                                { return o.side }
func (o Option) Style() OptionStyle                        { return o.style }
func (o Option) UnderlyingSymbol() string                  { return o.underlyingSymbol }
func (o Option) Strike() primitives.Positive               { return o.strike }
func (o Option) Expiration() primitives.ExpirationDate     { return o.expiration }
func (o Option) ImpliedVolatility() primitives.Positive     { return o.impliedVolatility }
func (o Option) Quantity() primitives.Positive              { return o.quantity }
func (o Option) UnderlyingPrice() primitives.Positive        { return o.underlyingPrice }
func (o Option) RiskFreeRate() primitives.Decimal            { return o.riskFreeRate }
func (o Option) DividendYield() primitives.Positive          { return o.dividendYield }

// WithUnderlyingPrice returns a copy of o repriced against a new
// underlying price.
func (o Option) WithUnderlyingPrice(price primitives.Positive) Option {
	o.underlyingPrice = price
	return o
}

// WithImpliedVolatility returns a copy of o with a new implied volatility.
func (o Option) WithImpliedVolatility(iv primitives.Positive) Option {
	o.impliedVolatility = iv
	return o
}

// WithExpiration returns a copy of o with a new expiration.
func (o Option) WithExpiration(exp primitives.ExpirationDate) Option {
	o.expiration = exp
	return o
}

// WithStrike returns a copy of o with a new strike, used when rolling a
// leg to a different strike.
func (o Option) WithStrike(strike primitives.Positive) Option {
	o.strike = strike
	return o
}

// WithQuantity returns a copy of o with a new quantity, used by the
// delta-neutrality solver's buy/sell adjustments.
func (o Option) WithQuantity(qty primitives.Positive) Option {
	o.quantity = qty
	return o
}

// WithSide returns a copy of o with a new side.
func (o Option) WithSide(side Side) Option {
	o.side = side
	return o
}

// Intrinsic returns the intrinsic payoff per contract at the given spot:
// max(S-K,0) for calls, max(K-S,0) for puts. Unsigned by side or quantity.
func (o Option) Intrinsic(spot primitives.Positive) primitives.Positive {
	var diff primitives.Decimal
	if o.style == Call {
		diff = spot.ToDecimal().Sub(o.strike.ToDecimal())
	} else {
		diff = o.strike.ToDecimal().Sub(spot.ToDecimal())
	}
	if diff.IsNegative() {
		return primitives.Zero()
	}
	p, _ := primitives.NewFromDecimal(diff)
	return p
}
