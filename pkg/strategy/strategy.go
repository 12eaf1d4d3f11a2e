// Package strategy composes Option legs into named multi-leg strategies:
// spreads, straddles, strangles, butterflies, condors and single-leg
// positions, with break-even derivation, P&L and profit/loss scoring.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/position"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// Type tags the named composition a Strategy represents.
type Type string

const (
	LongCall  Type = "LongCall"
	LongPut   Type = "LongPut"
	ShortCall Type = "ShortCall"
	ShortPut  Type = "ShortPut"

	BullCallSpread       Type = "BullCallSpread"
	BearCallSpread       Type = "BearCallSpread"
	BullPutSpread        Type = "BullPutSpread"
	BearPutSpread        Type = "BearPutSpread"
	LongButterflySpread  Type = "LongButterflySpread"
	ShortButterflySpread Type = "ShortButterflySpread"
	IronCondor           Type = "IronCondor"
	IronButterfly        Type = "IronButterfly"
	LongStraddle         Type = "LongStraddle"
	ShortStraddle        Type = "ShortStraddle"
	LongStrangle         Type = "LongStrangle"
	ShortStrangle        Type = "ShortStrangle"
	PoorMansCoveredCall  Type = "PoorMansCoveredCall"
	CallButterfly        Type = "CallButterfly"
	Custom               Type = "Custom"
)

// OperationError is returned by constructors and mutators when the
// supplied legs don't satisfy a strategy's structural contract.
type OperationError struct {
	Operation string
	Reason    string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

var (
	// ErrLegNotFound indicates get_position found no leg matching the
	// requested style/side/strike.
	ErrLegNotFound = errors.New("no matching leg in strategy")
	// ErrWrongDirection indicates roll_in/roll_out was asked to move a
	// strike the opposite way from what the operation implies.
	ErrWrongDirection = errors.New("roll direction does not move strike as requested")
)

// Strategy is a named composition of Positions sharing a common
// underlying and expiry. Legs are replaced wholesale on mutation; break
// evens are recomputed after every mutation rather than cached silently.
type Strategy struct {
	strategyType Type
	symbol       string
	legs         []position.Position
	breakEven    []primitives.Positive
}

// NewStrategy validates legs against strategyType's structural invariants
// and constructs the Strategy, deriving its initial break-even points.
func NewStrategy(strategyType Type, symbol string, legs []position.Position) (Strategy, error) {
	if err := validate(strategyType, legs); err != nil {
		return Strategy{}, err
	}
	s := Strategy{strategyType: strategyType, symbol: symbol, legs: append([]position.Position(nil), legs...)}
	s.breakEven = computeBreakEven(s)
	return s, nil
}

// GetStrategy reconstructs a Strategy from a raw position list, inferring
// strategyType from leg count and style/side composition. Ambiguous
// shapes (multiple valid types for the same leg count) resolve to the
// first candidate type that validates.
func GetStrategy(symbol string, legs []position.Position) (Strategy, error) {
	for _, t := range candidatesFor(len(legs)) {
		if err := validate(t, legs); err == nil {
			return NewStrategy(t, symbol, legs)
		}
	}
	return Strategy{}, &OperationError{Operation: "get_strategy", Reason: "no known strategy shape matches the supplied legs"}
}

func candidatesFor(n int) []Type {
	switch n {
	case 1:
		return []Type{LongCall, LongPut, ShortCall, ShortPut}
	case 2:
		return []Type{LongStrangle, ShortStrangle, LongStraddle, ShortStraddle, BullCallSpread, BearCallSpread, BullPutSpread, BearPutSpread, PoorMansCoveredCall}
	case 3:
		return []Type{LongButterflySpread, ShortButterflySpread, CallButterfly}
	case 4:
		return []Type{IronCondor, IronButterfly}
	default:
		return []Type{Custom}
	}
}

func (s Strategy) Type() Type                        { return s.strategyType }
func (s Strategy) Symbol() string                    { return s.symbol }
func (s Strategy) GetPositions() []position.Position { return append([]position.Position(nil), s.legs...) }
func (s Strategy) GetBreakEvenPoints() []primitives.Positive {
	return append([]primitives.Positive(nil), s.breakEven...)
}

// GetPosition returns the unique leg matching style/side/strike.
func (s Strategy) GetPosition(style options.OptionStyle, side options.Side, strike primitives.Positive) (position.Position, error) {
	for _, leg := range s.legs {
		o := leg.Option()
		if o.Style() == style && o.Side() == side && o.Strike().Equal(strike) {
			return leg, nil
		}
	}
	return position.Position{}, fmt.Errorf("%w: style=%s side=%s strike=%s", ErrLegNotFound, style, side, strike)
}

// GetPositionUnique returns the single leg matching style/side, failing if
// zero or more than one leg matches.
func (s Strategy) GetPositionUnique(style options.OptionStyle, side options.Side) (position.Position, error) {
	var found *position.Position
	for i := range s.legs {
		o := s.legs[i].Option()
		if o.Style() == style && o.Side() == side {
			if found != nil {
				return position.Position{}, fmt.Errorf("%w: multiple legs match style=%s side=%s", ErrLegNotFound, style, side)
			}
			found = &s.legs[i]
		}
	}
	if found == nil {
		return position.Position{}, fmt.Errorf("%w: style=%s side=%s", ErrLegNotFound, style, side)
	}
	return *found, nil
}

// ModifyPosition replaces the leg with the same style/side as newLeg,
// rejecting a side that strategyType's invariants forbid, and recomputes
// break-even points.
func (s Strategy) ModifyPosition(newLeg position.Position) (Strategy, error) {
	o := newLeg.Option()
	idx := -1
	for i, leg := range s.legs {
		lo := leg.Option()
		if lo.Style() == o.Style() && lo.Side() == o.Side() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Strategy{}, fmt.Errorf("%w: no existing leg with style=%s side=%s to modify", ErrLegNotFound, o.Style(), o.Side())
	}
	legs := append([]position.Position(nil), s.legs...)
	legs[idx] = newLeg
	if err := validate(s.strategyType, legs); err != nil {
		return Strategy{}, err
	}
	out := s
	out.legs = legs
	out.breakEven = computeBreakEven(out)
	return out, nil
}

// ReplacePosition swaps the leg at strike/style/side for newLeg outright,
// without requiring the replaced leg's side to match newLeg's (used by
// RollIn/RollOut, which may also change strike).
func (s Strategy) ReplacePosition(style options.OptionStyle, side options.Side, strike primitives.Positive, newLeg position.Position) (Strategy, error) {
	idx := -1
	for i, leg := range s.legs {
		lo := leg.Option()
		if lo.Style() == style && lo.Side() == side && lo.Strike().Equal(strike) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Strategy{}, fmt.Errorf("%w: style=%s side=%s strike=%s", ErrLegNotFound, style, side, strike)
	}
	legs := append([]position.Position(nil), s.legs...)
	legs[idx] = newLeg
	if err := validate(s.strategyType, legs); err != nil {
		return Strategy{}, err
	}
	out := s
	out.legs = legs
	out.breakEven = computeBreakEven(out)
	return out, nil
}

// RollIn replaces the leg matching style/side with one at a strike moved
// toward the money (closer to the underlying price), rejecting a
// newStrike that moves away from the money instead.
func (s Strategy) RollIn(style options.OptionStyle, side options.Side, newStrike primitives.Positive) (Strategy, error) {
	return roll(s, style, side, newStrike, true)
}

// RollOut replaces the leg matching style/side with one at a strike moved
// away from the money, rejecting a newStrike that moves toward it.
func (s Strategy) RollOut(style options.OptionStyle, side options.Side, newStrike primitives.Positive) (Strategy, error) {
	return roll(s, style, side, newStrike, false)
}

func roll(s Strategy, style options.OptionStyle, side options.Side, newStrike primitives.Positive, in bool) (Strategy, error) {
	leg, err := s.GetPositionUnique(style, side)
	if err != nil {
		return Strategy{}, err
	}
	o := leg.Option()
	underlying := o.UnderlyingPrice()
	oldDist := o.Strike().SubDecimal(underlying.ToDecimal()).Abs()
	newDist := newStrike.SubDecimal(underlying.ToDecimal()).Abs()
	movesIn := newDist.LessThan(oldDist)
	if movesIn != in {
		return Strategy{}, fmt.Errorf("%w: strike %s to %s", ErrWrongDirection, o.Strike(), newStrike)
	}
	newOpt := o.WithStrike(newStrike)
	newLeg := position.NewPosition(newOpt, leg.Entry())
	return s.ReplacePosition(style, side, o.Strike(), newLeg)
}

// payoffPoint is one sample of ProfitAt at a spot where the strategy's
// expiration P&L can change slope (a leg's strike, or the domain floor
// spot=0).
type payoffPoint struct {
	spot   float64
	profit float64
}

// payoffKinks returns the strategy's P&L sampled at spot=0 and at every
// distinct leg strike, in ascending order. Between consecutive kinks the
// expiration payoff of a sum of European option legs is exactly linear (each
// leg's intrinsic value is itself piecewise-linear with its only kink at its
// own strike), so this fully characterizes the function: its break-evens,
// finite extrema, and unbounded tail are all recoverable from these points
// plus tailSlope.
func payoffKinks(s Strategy) ([]payoffPoint, error) {
	seen := make(map[string]bool, len(s.legs))
	var strikes []float64
	for _, leg := range s.legs {
		k := leg.Option().Strike()
		key := k.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		strikes = append(strikes, k.ToFloat64())
	}
	sort.Float64s(strikes)

	xs := append([]float64{0}, strikes...)
	points := make([]payoffPoint, len(xs))
	for i, x := range xs {
		spot, err := primitives.New(x)
		if err != nil {
			return nil, err
		}
		profit, err := s.ProfitAt(spot)
		if err != nil {
			return nil, err
		}
		points[i] = payoffPoint{spot: x, profit: profit.Float64()}
	}
	return points, nil
}

// tailSlope is the rate of change of ProfitAt per unit of underlying price
// above the strategy's highest strike. Above every leg's strike, a put's
// intrinsic value is flat (it contributes 0 slope) and a call's is linear
// with slope sign(side)*quantity, so the tail slope is exactly the signed,
// quantity-weighted sum over call legs; no probing or numerical derivative
// is needed.
func tailSlope(s Strategy) float64 {
	slope := 0.0
	for _, leg := range s.legs {
		o := leg.Option()
		if o.Style() == options.Call {
			slope += o.Side().Sign() * o.Quantity().ToFloat64()
		}
	}
	return slope
}

const payoffZeroTolerance = 1e-9

func computeBreakEven(s Strategy) []primitives.Positive {
	be := genericBreakEven(s)
	sort.Slice(be, func(i, j int) bool { return be[i].LessThan(be[j]) })
	return be
}

// genericBreakEven finds every spot where the strategy's expiration P&L is
// zero by walking payoffKinks' linear segments (interpolating any sign
// change within a segment, since the payoff is exactly linear there) and
// checking whether the unbounded tail beyond the highest strike crosses
// zero. This replaces separate per-type break-even formulas: the payoff of
// any composition of European legs is piecewise-linear with kinks only at
// strikes, so one sign-change walk handles single legs, strangles,
// straddles, spreads, condors and butterflies alike, and naturally yields
// the correct break-even *count* for each (one for a vertical spread, two
// for a strangle/straddle/condor/butterfly) instead of a fixed two.
func genericBreakEven(s Strategy) []primitives.Positive {
	points, err := payoffKinks(s)
	if err != nil {
		return nil
	}

	isZero := func(y float64) bool { return math.Abs(y) < payoffZeroTolerance }

	var out []primitives.Positive
	for i := 0; i < len(points); i++ {
		if isZero(points[i].profit) {
			out = append(out, primitives.Must(points[i].spot))
			continue
		}
		if i == len(points)-1 {
			continue
		}
		y2 := points[i+1].profit
		if isZero(y2) {
			continue // picked up as points[i+1] on the next iteration
		}
		y1, x1, x2 := points[i].profit, points[i].spot, points[i+1].spot
		if (y1 < 0) != (y2 < 0) {
			t := -y1 / (y2 - y1)
			out = append(out, primitives.Must(x1+t*(x2-x1)))
		}
	}

	last := points[len(points)-1]
	if slope := tailSlope(s); slope != 0 && !isZero(last.profit) && (last.profit < 0) != (slope < 0) {
		dist := -last.profit / slope
		if dist > 0 {
			out = append(out, primitives.Must(last.spot+dist))
		}
	}
	return out
}

// ProfitAt returns the strategy's total P&L at expiration if the
// underlying settles at spot: the sum of each leg's intrinsic payoff,
// signed by side, plus the cost basis recorded at entry.
func (s Strategy) ProfitAt(spot primitives.Positive) (primitives.Decimal, error) {
	total := primitives.ZeroDecimal()
	for _, leg := range s.legs {
		o := leg.Option()
		intrinsic := o.Intrinsic(spot)
		sign := o.Side().Sign()
		payoff := intrinsic.MulDecimal(primitives.NewDecimalFromFloat(sign)).Mul(o.Quantity().ToDecimal())
		cost, err := leg.TotalCost()
		if err != nil {
			return primitives.Decimal{}, err
		}
		total = total.Add(payoff).Add(cost)
	}
	return total, nil
}

// GetMaxProfit returns the strategy's maximum possible profit, or
// primitives.Infinity() when uncapped (the tail above the highest strike
// has a positive slope). The capped case is the maximum of ProfitAt over
// every payoffKinks breakpoint: since ProfitAt is piecewise-linear with
// kinks only at strikes, its extrema over a bounded region always land on
// a breakpoint, so this single scan reproduces the per-type closed forms
// (width-minus-debit for a capped vertical, net credit for a condor or
// butterfly, premium received for a naked short) without special-casing
// each strategy Type.
func (s Strategy) GetMaxProfit() (primitives.Positive, error) {
	if tailSlope(s) > 0 {
		return primitives.Infinity(), nil
	}
	points, err := payoffKinks(s)
	if err != nil {
		return primitives.Positive{}, err
	}
	best := points[0].profit
	for _, p := range points[1:] {
		if p.profit > best {
			best = p.profit
		}
	}
	if best < 0 {
		return primitives.Positive{}, &OperationError{Operation: "get_max_profit", Reason: "strategy has no profitable region"}
	}
	return primitives.Must(best), nil
}

// GetMaxLoss returns the strategy's maximum possible loss, or
// primitives.Infinity() when uncapped (the tail above the highest strike
// has a negative slope). The capped case is the minimum of ProfitAt over
// every payoffKinks breakpoint, negated; see GetMaxProfit for why a
// breakpoint scan reproduces the per-type closed forms (debit paid for a
// capped vertical, wing-width-minus-credit for a condor or butterfly).
func (s Strategy) GetMaxLoss() (primitives.Positive, error) {
	if tailSlope(s) < 0 {
		return primitives.Infinity(), nil
	}
	points, err := payoffKinks(s)
	if err != nil {
		return primitives.Positive{}, err
	}
	worst := points[0].profit
	for _, p := range points[1:] {
		if p.profit < worst {
			worst = p.profit
		}
	}
	if worst > 0 {
		worst = 0
	}
	return primitives.Must(-worst), nil
}

// GetProfitRatio is a dimensionless score (max profit / max loss) used by
// find_optimal's Ratio criterion; returns a large sentinel when loss is
// zero.
func (s Strategy) GetProfitRatio() (primitives.Decimal, error) {
	profit, err := s.GetMaxProfit()
	if err != nil {
		return primitives.Decimal{}, err
	}
	loss, err := s.GetMaxLoss()
	if err != nil {
		return primitives.Decimal{}, err
	}
	if loss.IsZero() {
		return primitives.NewDecimalFromFloat(1e9), nil
	}
	return profit.DivDecimal(loss.ToDecimal())
}

// GetProfitArea approximates the area under the profit region of the P&L
// curve between break-even points, a dimensionless score used by
// find_optimal's Area criterion: profit-at-midpoint times break-even
// width.
func (s Strategy) GetProfitArea() (primitives.Decimal, error) {
	if len(s.breakEven) < 2 {
		return primitives.ZeroDecimal(), nil
	}
	lo, hi := s.breakEven[0], s.breakEven[len(s.breakEven)-1]
	width := hi.SubDecimal(lo.ToDecimal())
	midF := (lo.ToFloat64() + hi.ToFloat64()) / 2
	mid := primitives.Must(midF)
	profitAtMid, err := s.ProfitAt(mid)
	if err != nil {
		return primitives.Decimal{}, err
	}
	return profitAtMid.Mul(width), nil
}

// GetBestRangeToShow returns an inclusive price grid spanning the
// strategy's break-even points (padded by one step on each side) at the
// given step size, for plotting callers.
func (s Strategy) GetBestRangeToShow(step primitives.Positive) ([]primitives.Positive, error) {
	if len(s.breakEven) == 0 {
		return nil, &OperationError{Operation: "get_best_range_to_show", Reason: "strategy has no break-even points"}
	}
	lo := s.breakEven[0]
	hi := s.breakEven[len(s.breakEven)-1]
	loAdj, err := lo.Sub(step)
	if err != nil {
		loAdj = primitives.Zero()
	}
	hiAdj := hi.Add(step)

	var grid []primitives.Positive
	for p := loAdj; p.LessThanOrEqual(hiAdj); p = p.Add(step) {
		grid = append(grid, p)
	}
	return grid, nil
}
