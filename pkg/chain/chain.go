// Package chain builds and queries strike-indexed snapshots of option
// quotes for a single underlying at a single instant.
package chain

import (
	"errors"
	"sort"

	"github.com/johnayoung/go-options-analytics/pkg/blackscholes"
	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// ErrInvalidBuild indicates BuildParams could not produce a usable chain.
var ErrInvalidBuild = errors.New("invalid chain build parameters")

// OptionData holds one strike's quotes: bid/ask for both call and put,
// their Greeks, and the shared implied volatility used to derive them.
type OptionData struct {
	Strike            primitives.Positive
	CallBid           primitives.Positive
	CallAsk           primitives.Positive
	PutBid            primitives.Positive
	PutAsk            primitives.Positive
	ImpliedVolatility primitives.Positive
	DeltaCall         primitives.Decimal
	DeltaPut          primitives.Decimal
	Gamma             primitives.Decimal
	Volume            int64
}

// BuildParams configures the synthetic chain build_chain constructs: a
// symmetric strike ladder of `Size` strikes spaced by `ChainSize` around
// `UnderlyingPrice`, with an optional volatility smile slope.
type BuildParams struct {
	Symbol            string
	UnderlyingPrice   primitives.Positive
	RiskFreeRate      primitives.Decimal
	DividendYield     primitives.Positive
	Expiration        primitives.ExpirationDate
	ImpliedVolatility primitives.Positive
	Size              int
	ChainSize         primitives.Positive
	SmileSlope        primitives.Decimal
	Spread            primitives.Decimal
}

// OptionChain is a strike-sorted snapshot of quotes for one underlying.
type OptionChain struct {
	symbol          string
	underlyingPrice primitives.Positive
	riskFreeRate    primitives.Decimal
	dividendYield   primitives.Positive
	expiration      primitives.ExpirationDate
	data            []OptionData
	buildParams     BuildParams
}

// BuildChain constructs a synthetic OptionChain from params: `Size` strikes
// spaced by `ChainSize`, centered on `UnderlyingPrice`, with mid prices
// derived from Black-Scholes and an optional quadratic volatility smile
// (IV rises by `SmileSlope` times the square of the strike-step offset
// from the center).
func BuildChain(params BuildParams) (OptionChain, error) {
	if params.Size <= 0 {
		return OptionChain{}, errors.New("chain size must be positive")
	}
	if params.ChainSize.IsZero() {
		return OptionChain{}, errors.New("chain strike spacing must be positive")
	}

	half := params.Size / 2
	data := make([]OptionData, 0, params.Size)

	for i := -half; i < params.Size-half; i++ {
		offset := params.ChainSize.ToFloat64() * float64(i)
		strikeF := params.UnderlyingPrice.ToFloat64() + offset
		if strikeF <= 0 {
			continue
		}
		strike := primitives.Must(strikeF)

		ivF := params.ImpliedVolatility.ToFloat64() + params.SmileSlope.Float64()*float64(i)*float64(i)
		if ivF <= 0 {
			ivF = params.ImpliedVolatility.ToFloat64()
		}
		iv := primitives.Must(ivF)

		call, err := options.NewOption(options.Long, options.Call, params.Symbol, strike, params.Expiration, iv, primitives.One(), params.UnderlyingPrice, params.RiskFreeRate, params.DividendYield)
		if err != nil {
			return OptionChain{}, err
		}
		put, err := options.NewOption(options.Long, options.Put, params.Symbol, strike, params.Expiration, iv, primitives.One(), params.UnderlyingPrice, params.RiskFreeRate, params.DividendYield)
		if err != nil {
			return OptionChain{}, err
		}

		callMid := blackscholes.Price(call).Float64()
		putMid := blackscholes.Price(put).Float64()
		spread := params.Spread.Float64()
		if spread <= 0 {
			spread = 0.05
		}

		callGreeks := blackscholes.Greeks(call)
		putGreeks := blackscholes.Greeks(put)

		data = append(data, OptionData{
			Strike:            strike,
			CallBid:           primitives.Must(maxFloat(0, callMid-spread/2)),
			CallAsk:           primitives.Must(callMid + spread/2),
			PutBid:            primitives.Must(maxFloat(0, putMid-spread/2)),
			PutAsk:            primitives.Must(putMid + spread/2),
			ImpliedVolatility: iv,
			DeltaCall:         callGreeks.Delta,
			DeltaPut:          putGreeks.Delta,
			Gamma:             callGreeks.Gamma,
		})
	}

	sort.Slice(data, func(i, j int) bool { return data[i].Strike.LessThan(data[j].Strike) })

	return OptionChain{
		symbol:          params.Symbol,
		underlyingPrice: params.UnderlyingPrice,
		riskFreeRate:    params.RiskFreeRate,
		dividendYield:   params.DividendYield,
		expiration:      params.Expiration,
		data:            data,
		buildParams:     params,
	}, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func (c OptionChain) Symbol() string                        { return c.symbol }
func (c OptionChain) UnderlyingPrice() primitives.Positive   { return c.underlyingPrice }
func (c OptionChain) RiskFreeRate() primitives.Decimal       { return c.riskFreeRate }
func (c OptionChain) DividendYield() primitives.Positive     { return c.dividendYield }
func (c OptionChain) Expiration() primitives.ExpirationDate  { return c.expiration }
func (c OptionChain) Data() []OptionData                     { return c.data }

// ToBuildParams reconstructs the BuildParams that would regenerate this
// chain, used by the walk generator to rebuild a chain at a new spot/IV/
// expiration each step.
func (c OptionChain) ToBuildParams() BuildParams {
	return c.buildParams
}

// WithUnderlyingPrice returns build params repriced at a new spot.
func (p BuildParams) WithUnderlyingPrice(price primitives.Positive) BuildParams {
	p.UnderlyingPrice = price
	return p
}

// WithImpliedVolatility returns build params with a new base IV.
func (p BuildParams) WithImpliedVolatility(iv primitives.Positive) BuildParams {
	p.ImpliedVolatility = iv
	return p
}

// WithExpiration returns build params with a new expiration.
func (p BuildParams) WithExpiration(exp primitives.ExpirationDate) BuildParams {
	p.Expiration = exp
	return p
}

// UpdateExpirationDate rewrites the chain's common expiry and rebuilds the
// quotes under it.
func (c OptionChain) UpdateExpirationDate(exp primitives.ExpirationDate) (OptionChain, error) {
	return BuildChain(c.buildParams.WithExpiration(exp))
}

// AtmStrike returns the strike closest to the chain's underlying price.
func (c OptionChain) AtmStrike() (primitives.Positive, error) {
	if len(c.data) == 0 {
		return primitives.Positive{}, ErrInvalidBuild
	}
	best := c.data[0]
	bestDist := best.Strike.SubDecimal(c.underlyingPrice.ToDecimal()).Abs()
	for _, d := range c.data[1:] {
		dist := d.Strike.SubDecimal(c.underlyingPrice.ToDecimal()).Abs()
		if dist.LessThan(bestDist) {
			best, bestDist = d, dist
		}
	}
	return best.Strike, nil
}

// GetSingleIter enumerates each strike's OptionData once, in ascending
// strike order, for single-leg optimization scans.
func (c OptionChain) GetSingleIter() []OptionData {
	out := make([]OptionData, len(c.data))
	copy(out, c.data)
	return out
}

// StrikePair is a (put, call) combination drawn from the chain, used by
// two-leg optimization scans (strangles, spreads).
type StrikePair struct {
	Put  OptionData
	Call OptionData
}

// GetDoubleIter enumerates every ordered (put, call) pair with
// put.Strike < call.Strike, in ascending put-strike then call-strike
// order.
func (c OptionChain) GetDoubleIter() []StrikePair {
	var pairs []StrikePair
	for i, put := range c.data {
		for _, call := range c.data[i+1:] {
			pairs = append(pairs, StrikePair{Put: put, Call: call})
		}
	}
	return pairs
}
