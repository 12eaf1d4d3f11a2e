package strategy

import (
	"fmt"
	"sort"

	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/position"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// validate checks legs against strategyType's structural invariants:
// count, style mix, side mix, strike ordering and a common expiry.
func validate(strategyType Type, legs []position.Position) error {
	op := "get_strategy"

	if err := commonExpiry(legs); err != nil {
		return &OperationError{Operation: op, Reason: err.Error()}
	}

	switch strategyType {
	case LongCall:
		return single(legs, options.Call, options.Long)
	case LongPut:
		return single(legs, options.Put, options.Long)
	case ShortCall:
		return single(legs, options.Call, options.Short)
	case ShortPut:
		return single(legs, options.Put, options.Short)

	case ShortStrangle:
		return strangle(legs, options.Short)
	case LongStrangle:
		return strangle(legs, options.Long)

	case ShortStraddle:
		return straddle(legs, options.Short)
	case LongStraddle:
		return straddle(legs, options.Long)

	case BullCallSpread:
		return verticalSpread(legs, options.Call, options.Long, options.Short, true)
	case BearCallSpread:
		return verticalSpread(legs, options.Call, options.Short, options.Long, true)
	case BullPutSpread:
		return verticalSpread(legs, options.Put, options.Short, options.Long, false)
	case BearPutSpread:
		return verticalSpread(legs, options.Put, options.Long, options.Short, false)

	case LongButterflySpread:
		return butterfly(legs, options.Long)
	case ShortButterflySpread:
		return butterfly(legs, options.Short)
	case CallButterfly:
		return callButterfly(legs)

	case IronCondor:
		return ironCondor(legs)
	case IronButterfly:
		return ironButterfly(legs)

	case PoorMansCoveredCall:
		return poorMansCoveredCall(legs)

	case Custom:
		if len(legs) == 0 {
			return &OperationError{Operation: op, Reason: "custom strategy requires at least one leg"}
		}
		return nil

	default:
		return &OperationError{Operation: op, Reason: fmt.Sprintf("unknown strategy type %q", strategyType)}
	}
}

func commonExpiry(legs []position.Position) error {
	if len(legs) == 0 {
		return fmt.Errorf("strategy requires at least one leg")
	}
	first := legs[0].Option().Expiration()
	for _, leg := range legs[1:] {
		if leg.Option().Expiration().String() != first.String() {
			return fmt.Errorf("all legs must share a common expiration")
		}
	}
	return nil
}

func single(legs []position.Position, style options.OptionStyle, side options.Side) error {
	if len(legs) != 1 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("%s/%s requires exactly 1 leg, got %d", style, side, len(legs))}
	}
	o := legs[0].Option()
	if o.Style() != style || o.Side() != side {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("expected %s/%s leg, got %s/%s", style, side, o.Style(), o.Side())}
	}
	return nil
}

func strangle(legs []position.Position, side options.Side) error {
	if len(legs) != 2 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("strangle requires exactly 2 legs, got %d", len(legs))}
	}
	call, put, err := requireCallPut(legs, side)
	if err != nil {
		return err
	}
	if !call.Option().Strike().GreaterThan(put.Option().Strike()) {
		return &OperationError{Operation: "get_strategy", Reason: "strangle requires call_strike > put_strike"}
	}
	return nil
}

func straddle(legs []position.Position, side options.Side) error {
	if len(legs) != 2 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("straddle requires exactly 2 legs, got %d", len(legs))}
	}
	call, put, err := requireCallPut(legs, side)
	if err != nil {
		return err
	}
	if !call.Option().Strike().Equal(put.Option().Strike()) {
		return &OperationError{Operation: "get_strategy", Reason: "straddle requires identical call/put strikes"}
	}
	return nil
}

func requireCallPut(legs []position.Position, side options.Side) (call, put position.Position, err error) {
	var haveCall, havePut bool
	for _, leg := range legs {
		o := leg.Option()
		if o.Side() != side {
			return position.Position{}, position.Position{}, &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("all legs must be %s", side)}
		}
		switch o.Style() {
		case options.Call:
			call, haveCall = leg, true
		case options.Put:
			put, havePut = leg, true
		}
	}
	if !haveCall || !havePut {
		return position.Position{}, position.Position{}, &OperationError{Operation: "get_strategy", Reason: "requires exactly one call leg and one put leg"}
	}
	return call, put, nil
}

// verticalSpread validates a two-leg same-style spread: with ascending
// true, lowerSide holds the lower strike and upperSide the higher strike;
// with ascending false the two are swapped, so upperSide holds the lower
// strike (the put spreads pass false).
func verticalSpread(legs []position.Position, style options.OptionStyle, lowerSide, upperSide options.Side, ascending bool) error {
	if len(legs) != 2 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("vertical spread requires exactly 2 legs, got %d", len(legs))}
	}
	for _, leg := range legs {
		if leg.Option().Style() != style {
			return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("all legs must be %s", style)}
		}
	}
	a, b := legs[0], legs[1]
	lower, upper := a, b
	if a.Option().Strike().GreaterThan(b.Option().Strike()) {
		lower, upper = b, a
	}
	wantLowerSide := lowerSide
	wantUpperSide := upperSide
	if !ascending {
		wantLowerSide, wantUpperSide = upperSide, lowerSide
	}
	if lower.Option().Side() != wantLowerSide || upper.Option().Side() != wantUpperSide {
		return &OperationError{Operation: "get_strategy", Reason: "leg sides do not match the spread's direction"}
	}
	if lower.Option().Strike().Equal(upper.Option().Strike()) {
		return &OperationError{Operation: "get_strategy", Reason: "vertical spread requires two distinct strikes"}
	}
	return nil
}

func butterfly(legs []position.Position, wingSide options.Side) error {
	if len(legs) != 3 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("butterfly requires exactly 3 legs, got %d", len(legs))}
	}
	bodySide := options.Short
	if wingSide == options.Short {
		bodySide = options.Long
	}
	var wings, body int
	for _, leg := range legs {
		if leg.Option().Side() == wingSide {
			wings++
		} else if leg.Option().Side() == bodySide {
			body++
		} else {
			return &OperationError{Operation: "get_strategy", Reason: "butterfly legs must be all wingSide or bodySide"}
		}
	}
	if wings != 2 || body != 1 {
		return &OperationError{Operation: "get_strategy", Reason: "butterfly requires 2 wing legs and 1 body leg"}
	}
	strikes := strikesOf(legs)
	if !(strikes[0].LessThan(strikes[1]) && strikes[1].LessThan(strikes[2])) {
		return &OperationError{Operation: "get_strategy", Reason: "butterfly requires three strictly ascending strikes"}
	}
	bodyQty := bodyLegQty(legs, bodySide)
	wing1, wing2 := wingQtys(legs, wingSide)
	if !bodyQty.Equal(wing1.Add(wing2)) {
		return &OperationError{Operation: "get_strategy", Reason: "butterfly body quantity must equal the sum of its wings"}
	}
	return nil
}

func callButterfly(legs []position.Position) error {
	if err := butterfly(legs, options.Long); err != nil {
		return err
	}
	for _, leg := range legs {
		if leg.Option().Style() != options.Call {
			return &OperationError{Operation: "get_strategy", Reason: "call butterfly requires all call legs"}
		}
	}
	return nil
}

func ironCondor(legs []position.Position) error {
	if len(legs) != 4 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("iron condor requires exactly 4 legs, got %d", len(legs))}
	}
	var putLong, putShort, callShort, callLong *position.Position
	for i := range legs {
		o := legs[i].Option()
		switch {
		case o.Style() == options.Put && o.Side() == options.Long:
			putLong = &legs[i]
		case o.Style() == options.Put && o.Side() == options.Short:
			putShort = &legs[i]
		case o.Style() == options.Call && o.Side() == options.Short:
			callShort = &legs[i]
		case o.Style() == options.Call && o.Side() == options.Long:
			callLong = &legs[i]
		}
	}
	if putLong == nil || putShort == nil || callShort == nil || callLong == nil {
		return &OperationError{Operation: "get_strategy", Reason: "iron condor requires long put, short put, short call, long call legs"}
	}
	if !(putLong.Option().Strike().LessThan(putShort.Option().Strike()) &&
		putShort.Option().Strike().LessThan(callShort.Option().Strike()) &&
		callShort.Option().Strike().LessThan(callLong.Option().Strike())) {
		return &OperationError{Operation: "get_strategy", Reason: "iron condor requires put_long < put_short < call_short < call_long"}
	}
	return nil
}

func ironButterfly(legs []position.Position) error {
	if len(legs) != 4 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("iron butterfly requires exactly 4 legs, got %d", len(legs))}
	}
	var putLong, putShort, callShort, callLong *position.Position
	for i := range legs {
		o := legs[i].Option()
		switch {
		case o.Style() == options.Put && o.Side() == options.Long:
			putLong = &legs[i]
		case o.Style() == options.Put && o.Side() == options.Short:
			putShort = &legs[i]
		case o.Style() == options.Call && o.Side() == options.Short:
			callShort = &legs[i]
		case o.Style() == options.Call && o.Side() == options.Long:
			callLong = &legs[i]
		}
	}
	if putLong == nil || putShort == nil || callShort == nil || callLong == nil {
		return &OperationError{Operation: "get_strategy", Reason: "iron butterfly requires long put, short put, short call, long call legs"}
	}
	if !putShort.Option().Strike().Equal(callShort.Option().Strike()) {
		return &OperationError{Operation: "get_strategy", Reason: "iron butterfly requires identical short put/call strikes"}
	}
	if !(putLong.Option().Strike().LessThan(putShort.Option().Strike()) &&
		callShort.Option().Strike().LessThan(callLong.Option().Strike())) {
		return &OperationError{Operation: "get_strategy", Reason: "iron butterfly wings must straddle the short strike"}
	}
	return nil
}

func poorMansCoveredCall(legs []position.Position) error {
	if len(legs) != 2 {
		return &OperationError{Operation: "get_strategy", Reason: fmt.Sprintf("poor man's covered call requires exactly 2 legs, got %d", len(legs))}
	}
	var longLeap, shortCall *position.Position
	for i := range legs {
		o := legs[i].Option()
		if o.Style() != options.Call {
			return &OperationError{Operation: "get_strategy", Reason: "poor man's covered call requires both legs to be calls"}
		}
		if o.Side() == options.Long {
			longLeap = &legs[i]
		} else {
			shortCall = &legs[i]
		}
	}
	if longLeap == nil || shortCall == nil {
		return &OperationError{Operation: "get_strategy", Reason: "poor man's covered call requires one long call and one short call"}
	}
	if !longLeap.Option().Strike().LessThan(shortCall.Option().Strike()) {
		return &OperationError{Operation: "get_strategy", Reason: "poor man's covered call requires the long call's strike below the short call's"}
	}
	return nil
}

func strikesOf(legs []position.Position) []primitives.Positive {
	strikes := make([]primitives.Positive, len(legs))
	for i, leg := range legs {
		strikes[i] = leg.Option().Strike()
	}
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].LessThan(strikes[j]) })
	return strikes
}

func bodyLegQty(legs []position.Position, bodySide options.Side) primitives.Positive {
	for _, leg := range legs {
		if leg.Option().Side() == bodySide {
			return leg.Option().Quantity()
		}
	}
	return primitives.Zero()
}

func wingQtys(legs []position.Position, wingSide options.Side) (primitives.Positive, primitives.Positive) {
	var found []primitives.Positive
	for _, leg := range legs {
		if leg.Option().Side() == wingSide {
			found = append(found, leg.Option().Quantity())
		}
	}
	if len(found) < 2 {
		return primitives.Zero(), primitives.Zero()
	}
	return found[0], found[1]
}
