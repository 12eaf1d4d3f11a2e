package strategy

import (
	"fmt"
	"sort"

	"github.com/johnayoung/go-options-analytics/pkg/chain"
	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/position"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// SideKind discriminates the seven geometric filters find_optimal's chain
// scan accepts.
type SideKind int

const (
	Upper SideKind = iota
	Lower
	Center
	All
	Range
	DeltaRange
	Deltable
)

func (k SideKind) String() string {
	names := [...]string{"Upper", "Lower", "Center", "All", "Range", "DeltaRange", "Deltable"}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// FindOptimalSide selects which region of a chain's strikes filter_combinations
// considers. Range/DeltaRange/Deltable carry the bounds their kind needs; the
// other variants are bare tags.
type FindOptimalSide struct {
	kind     SideKind
	lo, hi   primitives.Positive
	deltaLo  primitives.Decimal
	deltaHi  primitives.Decimal
	delta    primitives.Decimal
}

func NewUpperSide() FindOptimalSide  { return FindOptimalSide{kind: Upper} }
func NewLowerSide() FindOptimalSide  { return FindOptimalSide{kind: Lower} }
func NewCenterSide() FindOptimalSide { return FindOptimalSide{kind: Center} }
func NewAllSides() FindOptimalSide   { return FindOptimalSide{kind: All} }

// NewRangeSide restricts candidates to strikes within [lo, hi] inclusive.
func NewRangeSide(lo, hi primitives.Positive) FindOptimalSide {
	return FindOptimalSide{kind: Range, lo: lo, hi: hi}
}

// NewDeltaRangeSide restricts candidates to legs whose (signed) delta falls
// within [min, max].
func NewDeltaRangeSide(min, max primitives.Decimal) FindOptimalSide {
	return FindOptimalSide{kind: DeltaRange, deltaLo: min, deltaHi: max}
}

// NewDeltableSide restricts candidates to legs whose delta magnitude is
// within 0.05 of target.
func NewDeltableSide(target primitives.Decimal) FindOptimalSide {
	return FindOptimalSide{kind: Deltable, delta: target}
}

func (f FindOptimalSide) Kind() SideKind { return f.kind }

// matches reports whether data's strike/delta (read for the requested leg
// style) satisfies f, given the chain it was drawn from.
func (f FindOptimalSide) matches(ch chain.OptionChain, data chain.OptionData, style options.OptionStyle) bool {
	deltaFor := func() primitives.Decimal {
		if style == options.Put {
			return data.DeltaPut
		}
		return data.DeltaCall
	}

	switch f.kind {
	case All:
		return true
	case Upper:
		return data.Strike.GreaterThan(ch.UnderlyingPrice())
	case Lower:
		return data.Strike.LessThan(ch.UnderlyingPrice())
	case Center:
		rows := ch.Data()
		if len(rows) == 0 {
			return false
		}
		step := chainStep(rows)
		band := ch.UnderlyingPrice().Add(step)
		lowBand, err := ch.UnderlyingPrice().Sub(step)
		if err != nil {
			lowBand = primitives.Zero()
		}
		return data.Strike.GreaterThanOrEqual(lowBand) && data.Strike.LessThanOrEqual(band)
	case Range:
		return data.Strike.GreaterThanOrEqual(f.lo) && data.Strike.LessThanOrEqual(f.hi)
	case DeltaRange:
		d := deltaFor()
		return (d.GreaterThan(f.deltaLo) || d.Equal(f.deltaLo)) && (d.LessThan(f.deltaHi) || d.Equal(f.deltaHi))
	case Deltable:
		d := deltaFor().Abs()
		diff := d.Sub(f.delta.Abs()).Abs()
		return diff.LessThan(primitives.NewDecimalFromFloat(0.05))
	default:
		return false
	}
}

// chainStep estimates the strike spacing from a strike-sorted chain's first
// two rows, used by the Center filter's band width.
func chainStep(rows []chain.OptionData) primitives.Positive {
	if len(rows) < 2 {
		return primitives.Must(1)
	}
	diff := rows[1].Strike.SubDecimal(rows[0].Strike.ToDecimal()).Abs()
	p, err := primitives.NewFromDecimal(diff)
	if err != nil || p.IsZero() {
		return primitives.Must(1)
	}
	return p
}

// legCount returns the number of strikes a strategyType's create_strategy
// call expects, in ascending-strike order.
func legCount(t Type) (int, error) {
	switch t {
	case LongCall, LongPut, ShortCall, ShortPut:
		return 1, nil
	case LongStrangle, ShortStrangle, BullCallSpread, BearCallSpread, BullPutSpread, BearPutSpread, PoorMansCoveredCall:
		return 2, nil
	case LongStraddle, ShortStraddle:
		return 1, nil // single shared strike
	case LongButterflySpread, ShortButterflySpread, CallButterfly:
		return 3, nil
	case IronCondor:
		return 4, nil
	case IronButterfly:
		return 3, nil // wings + shared mid strike
	default:
		return 0, fmt.Errorf("strategy type %q has no known optimization shape", t)
	}
}

// FilterCombinations enumerates candidate strike combinations from ch for
// strategyType, keeping only those whose strikes satisfy side. Each
// returned combination is ordered ascending by strike and has exactly the
// leg count strategyType's create_strategy call expects.
func FilterCombinations(ch chain.OptionChain, strategyType Type, side FindOptimalSide) ([][]chain.OptionData, error) {
	n, err := legCount(strategyType)
	if err != nil {
		return nil, err
	}
	rows := ch.GetSingleIter()
	if len(rows) < n {
		return nil, nil
	}

	var out [][]chain.OptionData
	var combo func(start int, acc []chain.OptionData)
	combo = func(start int, acc []chain.OptionData) {
		if len(acc) == n {
			picked := append([]chain.OptionData(nil), acc...)
			if combinationMatches(ch, strategyType, picked, side) {
				out = append(out, picked)
			}
			return
		}
		for i := start; i < len(rows); i++ {
			combo(i+1, append(acc, rows[i]))
		}
	}
	combo(0, nil)
	return out, nil
}

// combinationMatches applies side to every strike in picked against the
// leg style that stylesFor would assign it.
func combinationMatches(ch chain.OptionChain, strategyType Type, picked []chain.OptionData, side FindOptimalSide) bool {
	styles := stylesFor(strategyType, len(picked))
	for i, data := range picked {
		if !side.matches(ch, data, styles[i]) {
			return false
		}
	}
	return true
}

// stylesFor returns, for each ascending-strike slot a strategyType's
// create_strategy call fills, the option style (Call/Put) priced from that
// chain row.
func stylesFor(t Type, n int) []options.OptionStyle {
	switch t {
	case LongCall, ShortCall, BullCallSpread, BearCallSpread, LongButterflySpread, ShortButterflySpread, CallButterfly, PoorMansCoveredCall:
		styles := make([]options.OptionStyle, n)
		for i := range styles {
			styles[i] = options.Call
		}
		return styles
	case LongPut, ShortPut, BullPutSpread, BearPutSpread:
		styles := make([]options.OptionStyle, n)
		for i := range styles {
			styles[i] = options.Put
		}
		return styles
	case LongStrangle, ShortStrangle, LongStraddle, ShortStraddle:
		return []options.OptionStyle{options.Put, options.Call}
	case IronCondor:
		return []options.OptionStyle{options.Put, options.Put, options.Call, options.Call}
	case IronButterfly:
		return []options.OptionStyle{options.Put, options.Put, options.Call}
	default:
		styles := make([]options.OptionStyle, n)
		for i := range styles {
			styles[i] = options.Call
		}
		return styles
	}
}

// legTemplate is one leg's style/side and the strike-slot index (into the
// ascending strikes/rows slice create_strategy receives) it is priced from.
type legTemplate struct {
	style     options.OptionStyle
	side      options.Side
	strikeIdx int
}

// templatesFor returns the leg templates create_strategy materializes for
// strategyType, in the order Position legs should be constructed.
func templatesFor(t Type) ([]legTemplate, error) {
	switch t {
	case LongCall:
		return []legTemplate{{options.Call, options.Long, 0}}, nil
	case LongPut:
		return []legTemplate{{options.Put, options.Long, 0}}, nil
	case ShortCall:
		return []legTemplate{{options.Call, options.Short, 0}}, nil
	case ShortPut:
		return []legTemplate{{options.Put, options.Short, 0}}, nil

	case LongStrangle:
		return []legTemplate{{options.Put, options.Long, 0}, {options.Call, options.Long, 1}}, nil
	case ShortStrangle:
		return []legTemplate{{options.Put, options.Short, 0}, {options.Call, options.Short, 1}}, nil
	case LongStraddle:
		return []legTemplate{{options.Put, options.Long, 0}, {options.Call, options.Long, 0}}, nil
	case ShortStraddle:
		return []legTemplate{{options.Put, options.Short, 0}, {options.Call, options.Short, 0}}, nil

	case BullCallSpread:
		return []legTemplate{{options.Call, options.Long, 0}, {options.Call, options.Short, 1}}, nil
	case BearCallSpread:
		return []legTemplate{{options.Call, options.Short, 0}, {options.Call, options.Long, 1}}, nil
	case BullPutSpread:
		return []legTemplate{{options.Put, options.Long, 0}, {options.Put, options.Short, 1}}, nil
	case BearPutSpread:
		return []legTemplate{{options.Put, options.Short, 0}, {options.Put, options.Long, 1}}, nil
	case PoorMansCoveredCall:
		return []legTemplate{{options.Call, options.Long, 0}, {options.Call, options.Short, 1}}, nil

	case LongButterflySpread, CallButterfly:
		return []legTemplate{{options.Call, options.Long, 0}, {options.Call, options.Short, 1}, {options.Call, options.Long, 2}}, nil
	case ShortButterflySpread:
		return []legTemplate{{options.Call, options.Short, 0}, {options.Call, options.Long, 1}, {options.Call, options.Short, 2}}, nil

	case IronCondor:
		return []legTemplate{
			{options.Put, options.Long, 0}, {options.Put, options.Short, 1},
			{options.Call, options.Short, 2}, {options.Call, options.Long, 3},
		}, nil
	case IronButterfly:
		return []legTemplate{
			{options.Put, options.Long, 0}, {options.Put, options.Short, 1},
			{options.Call, options.Short, 1}, {options.Call, options.Long, 2},
		}, nil

	default:
		return nil, fmt.Errorf("strategy type %q has no known create_strategy template", t)
	}
}

// CreateStrategy materializes strategyType from rows, an ascending-strike
// slice of chain quotes of the length legCount(strategyType) expects, using
// the chain's bid/ask as each leg's entry premium (Long legs pay ask, Short
// legs receive bid) and the chain's per-strike implied volatility.
func CreateStrategy(
	strategyType Type,
	symbol string,
	ch chain.OptionChain,
	rows []chain.OptionData,
	quantity primitives.Positive,
	fees primitives.Positive,
	at primitives.Time,
) (Strategy, error) {
	want, err := legCount(strategyType)
	if err != nil {
		return Strategy{}, err
	}
	if len(rows) != want {
		return Strategy{}, &OperationError{Operation: "create_strategy", Reason: fmt.Sprintf("%s requires %d strikes, got %d", strategyType, want, len(rows))}
	}
	sorted := append([]chain.OptionData(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Strike.LessThan(sorted[j].Strike) })

	templates, err := templatesFor(strategyType)
	if err != nil {
		return Strategy{}, err
	}

	isButterflyBody := func(t legTemplate, idx int) bool {
		switch strategyType {
		case LongButterflySpread, CallButterfly, ShortButterflySpread:
			return idx == 1
		default:
			return false
		}
	}

	legs := make([]position.Position, 0, len(templates))
	for i, t := range templates {
		if t.strikeIdx >= len(sorted) {
			return Strategy{}, &OperationError{Operation: "create_strategy", Reason: "template strike index out of range"}
		}
		row := sorted[t.strikeIdx]

		var premium primitives.Positive
		iv := row.ImpliedVolatility
		if t.style == options.Call {
			if t.side == options.Long {
				premium = row.CallAsk
			} else {
				premium = row.CallBid
			}
		} else {
			if t.side == options.Long {
				premium = row.PutAsk
			} else {
				premium = row.PutBid
			}
		}

		qty := quantity
		if isButterflyBody(t, i) {
			qty = quantity.Add(quantity)
		}

		opt, err := options.NewOption(t.side, t.style, symbol, row.Strike, ch.Expiration(), iv, qty, ch.UnderlyingPrice(), ch.RiskFreeRate(), ch.DividendYield())
		if err != nil {
			return Strategy{}, err
		}
		tAt := at
		txn := position.NewTransaction(
			position.StatusOpen, &tAt, t.side, t.style, qty, premium, fees, nil, nil, nil,
		)
		legs = append(legs, position.NewPosition(opt, txn))
	}

	return NewStrategy(strategyType, symbol, legs)
}

// OptimizationCriteria selects the scoring function find_optimal maximizes.
type OptimizationCriteria int

const (
	Area OptimizationCriteria = iota
	Ratio
)

func (c OptimizationCriteria) String() string {
	if c == Ratio {
		return "Ratio"
	}
	return "Area"
}

func score(s Strategy, criteria OptimizationCriteria) (primitives.Decimal, error) {
	if criteria == Ratio {
		return s.GetProfitRatio()
	}
	return s.GetProfitArea()
}

// FindOptimal scans filter_combinations(ch, s.Type(), side) for the
// highest-scoring candidate under criteria, using s's existing quantity
// and fee convention (read from its first leg), and returns the winner in
// place of s. It panics if no candidate strike combination both exists and
// validates against s.Type()'s invariants, surfacing a pathological chain
// to the caller immediately rather than returning a zero Strategy.
func (s Strategy) FindOptimal(ch chain.OptionChain, side FindOptimalSide, criteria OptimizationCriteria) Strategy {
	if len(s.legs) == 0 {
		panic("find_optimal: strategy has no legs to infer quantity/fees from")
	}
	quantity := s.legs[0].Option().Quantity()
	fees := s.legs[0].Entry().Fees()
	at := primitives.Now()

	combos, err := FilterCombinations(ch, s.strategyType, side)
	if err != nil {
		panic(fmt.Sprintf("find_optimal: %v", err))
	}

	var best Strategy
	var bestScore primitives.Decimal
	found := false

	for _, combo := range combos {
		candidate, err := CreateStrategy(s.strategyType, s.symbol, ch, combo, quantity, fees, at)
		if err != nil {
			continue
		}
		sc, err := score(candidate, criteria)
		if err != nil {
			continue
		}
		if !found || sc.GreaterThan(bestScore) {
			best, bestScore, found = candidate, sc, true
		}
	}

	if !found {
		panic("find_optimal: no valid candidate strategy found in chain")
	}
	return best
}
