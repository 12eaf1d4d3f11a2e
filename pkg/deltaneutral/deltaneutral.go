// Package deltaneutral computes the per-leg adjustments that return a
// multi-leg strategy to (approximately) zero net delta.
package deltaneutral

import (
	"github.com/johnayoung/go-options-analytics/pkg/blackscholes"
	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/position"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
	"github.com/johnayoung/go-options-analytics/pkg/strategy"
)

// tolerance is the |net_delta| threshold below which no adjustment is
// proposed.
var tolerance = primitives.NewDecimalFromFloat(1e-6)

// Action filters which kind of adjustment apply_delta_adjustments should
// apply when multiple are proposed.
type Action int

const (
	ActionNone Action = iota
	ActionBuy
	ActionSell
)

// AdjustmentKind discriminates a single proposed adjustment.
type AdjustmentKind int

const (
	Buy AdjustmentKind = iota
	Sell
)

// Adjustment proposes changing the quantity of one leg (identified by
// style/side/strike) by Quantity contracts to reduce net delta.
type Adjustment struct {
	Kind     AdjustmentKind
	Quantity primitives.Positive
	Strike   primitives.Positive
	Style    options.OptionStyle
	Side     options.Side
}

// SameSize pairs two adjustments of equal magnitude, used when two legs
// must move together to preserve a strategy's shape (e.g. both wings of a
// butterfly).
type SameSize struct {
	A, B Adjustment
}

// NetDelta returns the sum of every leg's signed delta.
func NetDelta(s strategy.Strategy) primitives.Decimal {
	total := primitives.ZeroDecimal()
	for _, leg := range s.GetPositions() {
		g := blackscholes.Greeks(leg.Option())
		total = total.Add(g.Delta)
	}
	return total
}

// PerLegDeltas returns each leg's signed delta, in the same order as
// strategy.GetPositions().
func PerLegDeltas(s strategy.Strategy) []primitives.Decimal {
	legs := s.GetPositions()
	out := make([]primitives.Decimal, len(legs))
	for i, leg := range legs {
		out[i] = blackscholes.Greeks(leg.Option()).Delta
	}
	return out
}

// Propose computes net_delta and, if it exceeds tolerance, one Adjustment
// per leg following the sign rule: for net_delta > 0, a leg with positive
// per-contract delta is sold (reducing positive delta) while a leg with
// negative per-contract delta is bought (adding negative delta); the
// rule is symmetric for net_delta < 0. Returns an empty slice when
// |net_delta| <= tolerance.
func Propose(s strategy.Strategy) ([]Adjustment, error) {
	net := NetDelta(s)
	if net.Abs().LessThan(tolerance) || net.Abs().Equal(tolerance) {
		return nil, nil
	}

	legs := s.GetPositions()
	adjustments := make([]Adjustment, 0, len(legs))
	for _, leg := range legs {
		o := leg.Option()
		perContract, err := blackscholes.Greeks(o).Delta.Div(o.Quantity().ToDecimal())
		if err != nil || perContract.IsZero() {
			continue
		}

		var kind AdjustmentKind
		if net.IsPositive() {
			if perContract.IsPositive() {
				kind = Sell
			} else {
				kind = Buy
			}
		} else {
			if perContract.IsPositive() {
				kind = Buy
			} else {
				kind = Sell
			}
		}

		qtyDecimal, err := net.Div(perContract)
		if err != nil {
			continue
		}
		qty, err := primitives.NewFromDecimal(qtyDecimal.Abs())
		if err != nil {
			continue
		}

		adjustments = append(adjustments, Adjustment{
			Kind:     kind,
			Quantity: qty,
			Strike:   o.Strike(),
			Style:    o.Style(),
			Side:     o.Side(),
		})
	}
	return adjustments, nil
}

// wingPairStyle reports the style/side a butterfly's two wing legs share,
// the only strategy shape whose structural invariant (body quantity equals
// the sum of the wings) ties two legs together tightly enough that
// delta-neutral rebalancing must move them in lockstep.
func wingPairStyle(s strategy.Strategy) (options.OptionStyle, options.Side, bool) {
	switch s.Type() {
	case strategy.LongButterflySpread, strategy.CallButterfly:
		return options.Call, options.Long, true
	case strategy.ShortButterflySpread:
		return options.Call, options.Short, true
	default:
		return "", "", false
	}
}

// ProposePaired behaves like Propose, except that for butterfly strategies
// it folds the two wing legs' adjustments into a single SameSize pair
// (equal-magnitude, same kind) rather than two independent Adjustments,
// preserving the butterfly's body-equals-sum-of-wings invariant under
// rebalancing. Non-butterfly strategies return every adjustment in single
// with paired always empty.
func ProposePaired(s strategy.Strategy) (single []Adjustment, paired []SameSize, err error) {
	adjustments, err := Propose(s)
	if err != nil || len(adjustments) == 0 {
		return adjustments, nil, err
	}

	wingStyle, wingSide, isButterfly := wingPairStyle(s)
	if !isButterfly {
		return adjustments, nil, nil
	}

	var wings []Adjustment
	for _, adj := range adjustments {
		if adj.Style == wingStyle && adj.Side == wingSide {
			wings = append(wings, adj)
			continue
		}
		single = append(single, adj)
	}
	if len(wings) == 2 {
		// Both wings move by one shared quantity, sized so that together
		// they offset the net delta: qA*qB/(qA+qB).
		shared, divErr := wings[0].Quantity.Mul(wings[1].Quantity).Div(wings[0].Quantity.Add(wings[1].Quantity))
		if divErr == nil {
			wings[0].Quantity, wings[1].Quantity = shared, shared
		}
		paired = append(paired, SameSize{A: wings[0], B: wings[1]})
	} else {
		single = append(single, wings...)
	}
	return single, paired, nil
}

// ApplySameSize applies both adjustments of every SameSize pair, subject to
// filter exactly as Apply does for single adjustments.
func ApplySameSize(s strategy.Strategy, pairs []SameSize, filter Action) (strategy.Strategy, error) {
	out := s
	for _, pair := range pairs {
		var err error
		out, err = Apply(out, []Adjustment{pair.A, pair.B}, filter)
		if err != nil {
			return strategy.Strategy{}, err
		}
	}
	return out, nil
}

// Apply mutates strategyIn by adding (Buy) or removing (Sell) Quantity
// contracts of each adjustment whose Kind matches filter (ActionNone
// applies every proposed adjustment), then recomputes break-even points.
// Each adjustment Propose returns offsets the whole net delta on its own,
// so Apply stops as soon as the net delta is within tolerance of zero;
// later adjustments are then left unapplied.
func Apply(s strategy.Strategy, adjustments []Adjustment, filter Action) (strategy.Strategy, error) {
	out := s
	for _, adj := range adjustments {
		if !NetDelta(out).Abs().GreaterThan(tolerance) {
			break
		}
		if filter == ActionBuy && adj.Kind != Buy {
			continue
		}
		if filter == ActionSell && adj.Kind != Sell {
			continue
		}

		leg, err := out.GetPosition(adj.Style, adj.Side, adj.Strike)
		if err != nil {
			continue
		}
		o := leg.Option()

		var newQty primitives.Positive
		switch adj.Kind {
		case Buy:
			newQty = o.Quantity().Add(adj.Quantity)
		case Sell:
			newQty, err = o.Quantity().Sub(adj.Quantity)
			if err != nil {
				newQty = primitives.Zero()
			}
		}

		newOpt := o.WithQuantity(newQty)
		newLeg := position.NewPosition(newOpt, leg.Entry())

		out, err = out.ReplacePosition(adj.Style, adj.Side, adj.Strike, newLeg)
		if err != nil {
			return strategy.Strategy{}, err
		}
	}
	return out, nil
}
