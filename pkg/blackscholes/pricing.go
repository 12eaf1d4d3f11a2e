// Package blackscholes implements the European option pricing kernel:
// the Black-Scholes-Merton price with continuous dividend yield and its
// closed-form Greeks.
package blackscholes

import (
	"errors"
	"math"

	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// ErrNegativeTime indicates pricing was requested with an already-expired
// option via a path that demands a positive time to expiry.
var ErrNegativeTime = errors.New("time to expiration is negative")

// d1d2 returns the Black-Scholes d1 and d2 terms, plus sigma*sqrt(T) and
// sqrt(T) for callers that need them (Greeks share this computation).
func d1d2(s, k, r, q, sigma, t float64) (d1, d2, sigmaSqrtT, sqrtT float64) {
	sqrtT = math.Sqrt(t)
	sigmaSqrtT = sigma * sqrtT
	d1 = (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / sigmaSqrtT
	d2 = d1 - sigmaSqrtT
	return
}

// cumulativeNormal approximates the standard normal CDF N(x) via the
// Abramowitz-Stegun formula (error <= 7.5e-8).
func cumulativeNormal(x float64) float64 {
	const (
		a1 = 0.31938153
		a2 = -0.356563782
		a3 = 1.781477937
		a4 = -1.821255978
		a5 = 1.330274429
	)
	k := 1.0 / (1.0 + 0.2316419*math.Abs(x))
	w := ((((a5*k+a4)*k+a3)*k+a2)*k + a1) * k
	phi := standardNormal(x)
	if x >= 0 {
		return 1.0 - phi*w
	}
	return phi * w
}

// standardNormal is the standard normal PDF phi(x).
func standardNormal(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// Price returns the Black-Scholes-Merton fair value of opt, signed by side
// and scaled by quantity. When T<=0 or volatility is zero the price
// collapses to the intrinsic payoff.
func Price(opt options.Option) primitives.Decimal {
	now := primitives.Now()
	t := opt.Expiration().ToYearFraction(now)

	if t <= 0 {
		return signedIntrinsic(opt)
	}

	s := opt.UnderlyingPrice().ToFloat64()
	k := opt.Strike().ToFloat64()
	sigma := opt.ImpliedVolatility().ToFloat64()
	r := opt.RiskFreeRate().Float64()
	q := opt.DividendYield().ToFloat64()

	if sigma == 0 {
		return signedIntrinsic(opt)
	}

	d1, d2, sigmaSqrtT, _ := d1d2(s, k, r, q, sigma, t)
	if sigmaSqrtT == 0 {
		return signedIntrinsic(opt)
	}

	var price float64
	switch opt.Style() {
	case options.Call:
		price = s*math.Exp(-q*t)*cumulativeNormal(d1) - k*math.Exp(-r*t)*cumulativeNormal(d2)
	default: // Put, by put-call parity
		price = k*math.Exp(-r*t)*cumulativeNormal(-d2) - s*math.Exp(-q*t)*cumulativeNormal(-d1)
	}
	if price < 0 {
		price = 0
	}

	signed := price * opt.Side().Sign() * opt.Quantity().ToFloat64()
	return primitives.NewDecimalFromFloat(signed)
}

// signedIntrinsic returns the intrinsic payoff signed by side and scaled
// by quantity.
func signedIntrinsic(opt options.Option) primitives.Decimal {
	intrinsic := opt.Intrinsic(opt.UnderlyingPrice())
	return intrinsic.Mul(opt.Quantity()).MulDecimal(primitives.NewDecimalFromFloat(opt.Side().Sign()))
}

// Greeks returns delta, gamma, vega, theta and rho for opt, signed by side
// and scaled by quantity. At expiration (T<=0) or zero volatility, delta
// takes its boundary value (0 or +-1 times quantity/sign) and all other
// Greeks are zero.
func Greeks(opt options.Option) options.Greeks {
	now := primitives.Now()
	t := opt.Expiration().ToYearFraction(now)
	sign := opt.Side().Sign()
	qty := opt.Quantity().ToFloat64()

	s := opt.UnderlyingPrice().ToFloat64()
	k := opt.Strike().ToFloat64()
	sigma := opt.ImpliedVolatility().ToFloat64()
	r := opt.RiskFreeRate().Float64()
	q := opt.DividendYield().ToFloat64()

	if t <= 0 || sigma == 0 {
		delta := 0.0
		if opt.Style() == options.Call && s > k {
			delta = math.Exp(-q * t)
		} else if opt.Style() == options.Put && s < k {
			delta = -math.Exp(-q * t)
		}
		return options.Greeks{
			Delta: primitives.NewDecimalFromFloat(delta * sign * qty),
			Gamma: primitives.ZeroDecimal(),
			Vega:  primitives.ZeroDecimal(),
			Theta: primitives.ZeroDecimal(),
			Rho:   primitives.ZeroDecimal(),
		}
	}

	d1, d2, _, sqrtT := d1d2(s, k, r, q, sigma, t)
	discQ := math.Exp(-q * t)
	discR := math.Exp(-r * t)

	var delta, rho float64
	if opt.Style() == options.Call {
		delta = discQ * cumulativeNormal(d1)
		rho = k * t * discR * cumulativeNormal(d2) / 100
	} else {
		delta = discQ * (cumulativeNormal(d1) - 1)
		rho = -k * t * discR * cumulativeNormal(-d2) / 100
	}

	gamma := discQ * standardNormal(d1) / (s * sigma * sqrtT)
	vega := s * discQ * standardNormal(d1) * sqrtT / 100

	term1 := -(s * discQ * standardNormal(d1) * sigma) / (2 * sqrtT)
	term2 := q * s * discQ
	var theta float64
	if opt.Style() == options.Call {
		theta = term1 + term2*cumulativeNormal(d1) - r*k*discR*cumulativeNormal(d2)
	} else {
		theta = term1 - term2*cumulativeNormal(-d1) + r*k*discR*cumulativeNormal(-d2)
	}
	// Express theta per day, the convention most callers expect.
	theta /= 365

	return options.Greeks{
		Delta: primitives.NewDecimalFromFloat(delta * sign * qty),
		Gamma: primitives.NewDecimalFromFloat(gamma * sign * qty),
		Vega:  primitives.NewDecimalFromFloat(vega * sign * qty),
		Theta: primitives.NewDecimalFromFloat(theta * sign * qty),
		Rho:   primitives.NewDecimalFromFloat(rho * sign * qty),
	}
}

// CumulativeNormal exposes the standard normal CDF for callers outside
// this package that need it for consistent probability calculations
// (pkg/probability).
func CumulativeNormal(x float64) float64 { return cumulativeNormal(x) }
