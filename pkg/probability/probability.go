// Package probability integrates a log-normal price-at-expiration density
// over profit/loss ranges to score a strategy's probability of profit,
// probability of loss, and expected value. It does not compute the
// probability of reaching max profit or max loss.
package probability

import (
	"errors"
	"math"

	"github.com/johnayoung/go-options-analytics/pkg/blackscholes"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
	"github.com/johnayoung/go-options-analytics/pkg/strategy"
)

// ErrInvalidRange indicates a ProfitLossRange was built with bounds out of
// order.
var ErrInvalidRange = errors.New("profit/loss range bounds must be ordered when both present")

// VolatilityAdjustment widens the assumed volatility used to model the
// underlying's terminal distribution: effective sigma = base + stdDev.
type VolatilityAdjustment struct {
	Base   float64
	StdDev float64
}

// Effective returns the adjusted volatility.
func (v VolatilityAdjustment) Effective() float64 { return v.Base + v.StdDev }

// PriceTrend shifts the assumed drift mu and attenuates the shift by
// confidence in [0,1]: mu' = mu + driftRate*confidence.
type PriceTrend struct {
	DriftRate  float64
	Confidence float64
}

// ProfitLossRange is a half-open or fully-bounded price interval at
// expiration with an associated probability mass, filled in by
// CalculateProbability.
type ProfitLossRange struct {
	LowerBound  *primitives.Positive
	UpperBound  *primitives.Positive
	Probability primitives.Positive
}

// NewProfitLossRange validates that lower < upper when both are present.
func NewProfitLossRange(lower, upper *primitives.Positive) (ProfitLossRange, error) {
	if lower != nil && upper != nil && !lower.LessThan(*upper) {
		return ProfitLossRange{}, ErrInvalidRange
	}
	return ProfitLossRange{LowerBound: lower, UpperBound: upper}, nil
}

// CalculateProbability fills in r.Probability assuming the underlying's
// terminal price is log-normal: ln(S_T/S0) ~ N((mu - sigma^2/2)*T,
// sigma^2*T), where mu defaults to riskFreeRate (optionally shifted by
// trend) and sigma is the strategy-averaged implied volatility
// (optionally widened by volAdj).
func CalculateProbability(
	r ProfitLossRange,
	spot primitives.Positive,
	avgIV float64,
	volAdj *VolatilityAdjustment,
	trend *PriceTrend,
	expirationYears float64,
	riskFreeRate float64,
) (ProfitLossRange, error) {
	sigma := avgIV
	if volAdj != nil {
		sigma = volAdj.Effective()
	}
	mu := riskFreeRate
	if trend != nil {
		mu += trend.DriftRate * trend.Confidence
	}

	meanLog := (mu - 0.5*sigma*sigma) * expirationYears
	sd := sigma * math.Sqrt(expirationYears)

	zHi := math.Inf(1)
	if r.UpperBound != nil {
		zHi = (math.Log(r.UpperBound.ToFloat64()/spot.ToFloat64()) - meanLog) / sd
	}
	zLo := math.Inf(-1)
	if r.LowerBound != nil {
		zLo = (math.Log(r.LowerBound.ToFloat64()/spot.ToFloat64()) - meanLog) / sd
	}

	prob := normalCDF(zHi) - normalCDF(zLo)
	if prob < 0 {
		prob = 0
	}
	p, err := primitives.New(prob)
	if err != nil {
		return ProfitLossRange{}, err
	}
	r.Probability = p
	return r, nil
}

func normalCDF(z float64) float64 {
	if math.IsInf(z, 1) {
		return 1
	}
	if math.IsInf(z, -1) {
		return 0
	}
	return blackscholes.CumulativeNormal(z)
}

// AverageImpliedVolatility is the arithmetic mean of every leg's implied
// volatility, the sigma CalculateProbability uses absent an explicit
// VolatilityAdjustment.
func AverageImpliedVolatility(s strategy.Strategy) float64 {
	legs := s.GetPositions()
	if len(legs) == 0 {
		return 0
	}
	total := 0.0
	for _, leg := range legs {
		total += leg.Option().ImpliedVolatility().ToFloat64()
	}
	return total / float64(len(legs))
}

// GetProfitRanges returns the price ranges, bounded by the strategy's
// break-even points, where its P&L at expiration is non-negative.
func GetProfitRanges(s strategy.Strategy) ([]ProfitLossRange, error) {
	return rangesWherePositive(s, true)
}

// GetLossRanges returns the complementary ranges where P&L is negative.
func GetLossRanges(s strategy.Strategy) ([]ProfitLossRange, error) {
	return rangesWherePositive(s, false)
}

func rangesWherePositive(s strategy.Strategy, profit bool) ([]ProfitLossRange, error) {
	be := s.GetBreakEvenPoints()
	bounds := make([]*primitives.Positive, 0, len(be)+2)
	bounds = append(bounds, nil)
	for i := range be {
		b := be[i]
		bounds = append(bounds, &b)
	}
	bounds = append(bounds, nil)

	var out []ProfitLossRange
	for i := 0; i < len(bounds)-1; i++ {
		lower, upper := bounds[i], bounds[i+1]
		mid, ok := midpoint(lower, upper)
		if !ok {
			continue
		}
		pnl, err := s.ProfitAt(mid)
		if err != nil {
			return nil, err
		}
		if (profit && !pnl.IsNegative()) || (!profit && pnl.IsNegative()) {
			r, err := NewProfitLossRange(lower, upper)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// midpoint picks a representative test price within (lower, upper),
// falling back to an offset from whichever bound is present when one
// side is unbounded.
func midpoint(lower, upper *primitives.Positive) (primitives.Positive, bool) {
	switch {
	case lower != nil && upper != nil:
		return primitives.Must((lower.ToFloat64() + upper.ToFloat64()) / 2), true
	case lower != nil:
		return primitives.Must(lower.ToFloat64() * 1.1), true
	case upper != nil:
		return primitives.Must(upper.ToFloat64() * 0.9), true
	default:
		return primitives.Positive{}, false
	}
}

// ProbabilityOfProfit sums Probability over every profit range.
func ProbabilityOfProfit(
	s strategy.Strategy,
	spot primitives.Positive,
	volAdj *VolatilityAdjustment,
	trend *PriceTrend,
	expirationYears, riskFreeRate float64,
) (primitives.Positive, error) {
	ranges, err := GetProfitRanges(s)
	if err != nil {
		return primitives.Positive{}, err
	}
	avgIV := AverageImpliedVolatility(s)
	total := primitives.Zero()
	for _, r := range ranges {
		computed, err := CalculateProbability(r, spot, avgIV, volAdj, trend, expirationYears, riskFreeRate)
		if err != nil {
			return primitives.Positive{}, err
		}
		total = total.Add(computed.Probability)
	}
	return total, nil
}

// AnalyzedProbabilities bundles the headline probability/risk figures a
// caller typically wants for a strategy.
type AnalyzedProbabilities struct {
	ProbabilityOfProfit primitives.Positive
	ProbabilityOfLoss   primitives.Positive
	BreakEvenPoints     []primitives.Positive
	ExpectedValue       primitives.Decimal
	MaxProfit           primitives.Positive
	MaxLoss             primitives.Positive
	RiskRewardRatio     primitives.Decimal
}

// AnalyzeProbabilities bundles PoP, PoLoss, break-evens, expected value
// and the risk/reward ratio for s.
func AnalyzeProbabilities(
	s strategy.Strategy,
	spot primitives.Positive,
	volAdj *VolatilityAdjustment,
	trend *PriceTrend,
	expirationYears, riskFreeRate float64,
) (AnalyzedProbabilities, error) {
	pop, err := ProbabilityOfProfit(s, spot, volAdj, trend, expirationYears, riskFreeRate)
	if err != nil {
		return AnalyzedProbabilities{}, err
	}
	ev, err := ExpectedValue(s, spot, volAdj, trend, expirationYears, riskFreeRate)
	if err != nil {
		return AnalyzedProbabilities{}, err
	}
	maxProfit, err := s.GetMaxProfit()
	if err != nil {
		return AnalyzedProbabilities{}, err
	}
	maxLoss, err := s.GetMaxLoss()
	if err != nil {
		return AnalyzedProbabilities{}, err
	}
	poLoss, err := primitives.New(1 - pop.ToFloat64())
	if err != nil {
		poLoss = primitives.Zero()
	}

	var riskReward primitives.Decimal
	if maxLoss.IsZero() {
		riskReward = primitives.NewDecimalFromFloat(math.Inf(1))
	} else {
		riskReward, err = maxProfit.DivDecimal(maxLoss.ToDecimal())
		if err != nil {
			return AnalyzedProbabilities{}, err
		}
	}

	return AnalyzedProbabilities{
		ProbabilityOfProfit: pop,
		ProbabilityOfLoss:   poLoss,
		BreakEvenPoints:     s.GetBreakEvenPoints(),
		ExpectedValue:       ev,
		MaxProfit:           maxProfit,
		MaxLoss:             maxLoss,
		RiskRewardRatio:     riskReward,
	}, nil
}

// ExpectedValue sums midpoint-P&L times probability over every range
// (profit and loss) and floors the total at zero; individual negative
// contributions are summed as they are.
func ExpectedValue(
	s strategy.Strategy,
	spot primitives.Positive,
	volAdj *VolatilityAdjustment,
	trend *PriceTrend,
	expirationYears, riskFreeRate float64,
) (primitives.Decimal, error) {
	be := s.GetBreakEvenPoints()
	bounds := make([]*primitives.Positive, 0, len(be)+2)
	bounds = append(bounds, nil)
	for i := range be {
		b := be[i]
		bounds = append(bounds, &b)
	}
	bounds = append(bounds, nil)

	avgIV := AverageImpliedVolatility(s)
	total := primitives.ZeroDecimal()
	for i := 0; i < len(bounds)-1; i++ {
		lower, upper := bounds[i], bounds[i+1]
		mid, ok := midpoint(lower, upper)
		if !ok {
			continue
		}
		pnl, err := s.ProfitAt(mid)
		if err != nil {
			return primitives.Decimal{}, err
		}
		r, err := NewProfitLossRange(lower, upper)
		if err != nil {
			return primitives.Decimal{}, err
		}
		computed, err := CalculateProbability(r, spot, avgIV, volAdj, trend, expirationYears, riskFreeRate)
		if err != nil {
			return primitives.Decimal{}, err
		}
		contribution := pnl.Mul(computed.Probability.ToDecimal())
		total = total.Add(contribution)
	}
	if total.IsNegative() {
		return primitives.ZeroDecimal(), nil
	}
	return total, nil
}
