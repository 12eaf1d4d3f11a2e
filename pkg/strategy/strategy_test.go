package strategy_test

import (
	"math"
	"testing"

	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/position"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
	"github.com/johnayoung/go-options-analytics/pkg/strategy"
)

// leg builds a Position for a given style/side/strike. combinedFee stands
// in for open_fee+close_fee summed into the single Transaction fee field
// this module's Position model carries (see pkg/position.Transaction).
func leg(t *testing.T, style options.OptionStyle, side options.Side, strike, iv, spot, qty, premium, combinedFee, r, q float64) position.Position {
	t.Helper()
	opt, err := options.NewOption(
		side, style, "TEST",
		primitives.Must(strike),
		primitives.NewExpirationDays(primitives.Must(30)),
		primitives.Must(iv),
		primitives.Must(qty),
		primitives.Must(spot),
		primitives.NewDecimalFromFloat(r),
		primitives.Must(q),
	)
	if err != nil {
		t.Fatalf("NewOption: %v", err)
	}
	entry := position.NewTransaction(
		position.StatusOpen, nil, side, style,
		primitives.Must(qty), primitives.Must(premium), primitives.Must(combinedFee),
		nil, nil, nil,
	)
	return position.NewPosition(opt, entry)
}

// TestShortStrangleBreakEven reproduces spec.md scenario 1.
func TestShortStrangleBreakEven(t *testing.T) {
	call := leg(t, options.Call, options.Short, 155, 0.19, 150, 100, 2, 0.2, 0.01, 0.02)
	put := leg(t, options.Put, options.Short, 145, 0.22, 150, 100, 1.5, 0.2, 0.01, 0.02)

	strat, err := strategy.NewStrategy(strategy.ShortStrangle, "TEST", []position.Position{call, put})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	be := strat.GetBreakEvenPoints()
	if len(be) != 2 {
		t.Fatalf("expected 2 break-even points, got %d", len(be))
	}
	if math.Abs(be[0].ToFloat64()-141.9) > 1e-6 {
		t.Errorf("BE_lo: got %v, want 141.9", be[0])
	}
	if math.Abs(be[1].ToFloat64()-158.1) > 1e-6 {
		t.Errorf("BE_hi: got %v, want 158.1", be[1])
	}

	profit, err := strat.ProfitAt(primitives.Must(150))
	if err != nil {
		t.Fatalf("ProfitAt: %v", err)
	}
	if math.Abs(profit.Float64()-310) > 1e-6 {
		t.Errorf("profit_at(150): got %v, want 310", profit)
	}

	maxProfit, err := strat.GetMaxProfit()
	if err != nil {
		t.Fatalf("GetMaxProfit: %v", err)
	}
	if math.Abs(maxProfit.ToFloat64()-310) > 1e-6 {
		t.Errorf("max_profit: got %v, want 310", maxProfit)
	}

	maxLoss, err := strat.GetMaxLoss()
	if err != nil {
		t.Fatalf("GetMaxLoss: %v", err)
	}
	if !maxLoss.IsInfinity() {
		t.Errorf("expected max_loss Infinity, got %v", maxLoss)
	}
}

// TestLongStrangleMaxLoss reproduces spec.md scenario 2.
func TestLongStrangleMaxLoss(t *testing.T) {
	call := leg(t, options.Call, options.Long, 160, 0.25, 150, 10, 5, 1.0, 0.01, 0.02)
	put := leg(t, options.Put, options.Long, 140, 0.25, 150, 10, 5, 1.0, 0.01, 0.02)

	strat, err := strategy.NewStrategy(strategy.LongStrangle, "TEST", []position.Position{call, put})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	be := strat.GetBreakEvenPoints()
	if len(be) != 2 {
		t.Fatalf("expected 2 break-even points, got %d", len(be))
	}
	if math.Abs(be[0].ToFloat64()-128) > 1e-6 {
		t.Errorf("BE_lo: got %v, want 128", be[0])
	}
	if math.Abs(be[1].ToFloat64()-172) > 1e-6 {
		t.Errorf("BE_hi: got %v, want 172", be[1])
	}

	maxProfit, err := strat.GetMaxProfit()
	if err != nil {
		t.Fatalf("GetMaxProfit: %v", err)
	}
	if !maxProfit.IsInfinity() {
		t.Errorf("expected max_profit Infinity, got %v", maxProfit)
	}

	maxLoss, err := strat.GetMaxLoss()
	if err != nil {
		t.Fatalf("GetMaxLoss: %v", err)
	}
	if math.Abs(maxLoss.ToFloat64()-120) > 1e-6 {
		t.Errorf("max_loss: got %v, want 120", maxLoss)
	}
}

// TestShortStraddlePnLAtStrike reproduces spec.md scenario 3.
func TestShortStraddlePnLAtStrike(t *testing.T) {
	call := leg(t, options.Call, options.Short, 150, 0.20, 150, 100, 2, 0.2, 0.01, 0.02)
	put := leg(t, options.Put, options.Short, 150, 0.20, 150, 100, 1.5, 0.2, 0.01, 0.02)

	strat, err := strategy.NewStrategy(strategy.ShortStraddle, "TEST", []position.Position{call, put})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	profit, err := strat.ProfitAt(primitives.Must(150))
	if err != nil {
		t.Fatalf("ProfitAt: %v", err)
	}
	if math.Abs(profit.Float64()-310) > 1e-6 {
		t.Errorf("profit_at(150): got %v, want 310", profit)
	}

	be := strat.GetBreakEvenPoints()
	if len(be) != 2 {
		t.Fatalf("expected 2 break-even points, got %d", len(be))
	}
	if math.Abs(be[0].ToFloat64()-146.9) > 1e-6 {
		t.Errorf("BE_lo: got %v, want 146.9", be[0])
	}
	if math.Abs(be[1].ToFloat64()-153.1) > 1e-6 {
		t.Errorf("BE_hi: got %v, want 153.1", be[1])
	}
}

func TestGetStrategyInfersShapeFromRawPositions(t *testing.T) {
	call := leg(t, options.Call, options.Short, 155, 0.19, 150, 100, 2, 0.2, 0.01, 0.02)
	put := leg(t, options.Put, options.Short, 145, 0.22, 150, 100, 1.5, 0.2, 0.01, 0.02)

	strat, err := strategy.GetStrategy("TEST", []position.Position{call, put})
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}
	if strat.Type() != strategy.ShortStrangle {
		t.Errorf("expected inferred type ShortStrangle, got %s", strat.Type())
	}
}

func TestGetStrategyRejectsEmptyLegs(t *testing.T) {
	_, err := strategy.GetStrategy("TEST", nil)
	if err == nil {
		t.Fatal("expected error for a strategy with no legs")
	}
}

// TestModifyPositionRecomputesBreakEven covers testable property #3: after
// modify_position, break-even points stay sorted ascending with the
// expected count.
func TestModifyPositionRecomputesBreakEven(t *testing.T) {
	call := leg(t, options.Call, options.Short, 155, 0.19, 150, 100, 2, 0.2, 0.01, 0.02)
	put := leg(t, options.Put, options.Short, 145, 0.22, 150, 100, 1.5, 0.2, 0.01, 0.02)
	strat, err := strategy.NewStrategy(strategy.ShortStrangle, "TEST", []position.Position{call, put})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	newCall := leg(t, options.Call, options.Short, 160, 0.19, 150, 100, 3, 0.2, 0.01, 0.02)
	updated, err := strat.ModifyPosition(newCall)
	if err != nil {
		t.Fatalf("ModifyPosition: %v", err)
	}

	be := updated.GetBreakEvenPoints()
	if len(be) != 2 {
		t.Fatalf("expected 2 break-even points after modify, got %d", len(be))
	}
	if !be[0].LessThan(be[1]) {
		t.Errorf("break-even points not ascending: %v, %v", be[0], be[1])
	}
}

func TestShortStrangleRequiresCallStrikeAboveputStrike(t *testing.T) {
	call := leg(t, options.Call, options.Short, 140, 0.19, 150, 100, 2, 0.2, 0.01, 0.02)
	put := leg(t, options.Put, options.Short, 145, 0.22, 150, 100, 1.5, 0.2, 0.01, 0.02)
	if _, err := strategy.NewStrategy(strategy.ShortStrangle, "TEST", []position.Position{call, put}); err == nil {
		t.Fatal("expected error when call strike is below put strike")
	}
}

func TestIronCondorRequiresStrictStrikeOrdering(t *testing.T) {
	putLong := leg(t, options.Put, options.Long, 140, 0.2, 150, 1, 0.5, 0.1, 0.01, 0)
	putShort := leg(t, options.Put, options.Short, 145, 0.2, 150, 1, 1.0, 0.1, 0.01, 0)
	callShort := leg(t, options.Call, options.Short, 155, 0.2, 150, 1, 1.0, 0.1, 0.01, 0)
	callLong := leg(t, options.Call, options.Long, 160, 0.2, 150, 1, 0.5, 0.1, 0.01, 0)

	strat, err := strategy.NewStrategy(strategy.IronCondor, "TEST", []position.Position{putLong, putShort, callShort, callLong})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}
	if len(strat.GetPositions()) != 4 {
		t.Errorf("expected 4 legs, got %d", len(strat.GetPositions()))
	}

	// Swap short put and short call strikes so the ordering breaks.
	badShort := leg(t, options.Call, options.Short, 142, 0.2, 150, 1, 1.0, 0.1, 0.01, 0)
	if _, err := strategy.NewStrategy(strategy.IronCondor, "TEST", []position.Position{putLong, putShort, badShort, callLong}); err == nil {
		t.Fatal("expected error for broken strike ordering")
	}

	// Inner short strikes offset by the net credit per contract: the wings
	// are 5 wide on both sides and the legs net a 0.6 credit, so the true
	// break-evens sit just inside the short strikes, not around the median
	// strike.
	be := strat.GetBreakEvenPoints()
	assertPositives(t, "break-even", be, 144.4, 155.6)

	maxProfit, err := strat.GetMaxProfit()
	if err != nil {
		t.Fatalf("GetMaxProfit: %v", err)
	}
	if math.Abs(maxProfit.ToFloat64()-0.6) > 1e-6 {
		t.Errorf("max_profit: got %v, want 0.6", maxProfit)
	}

	maxLoss, err := strat.GetMaxLoss()
	if err != nil {
		t.Fatalf("GetMaxLoss: %v", err)
	}
	if math.Abs(maxLoss.ToFloat64()-4.4) > 1e-6 {
		t.Errorf("max_loss: got %v, want 4.4 (wing width 5 minus 0.6 credit)", maxLoss)
	}
}

// assertPositives checks be has exactly len(want) entries matching want,
// in order.
func assertPositives(t *testing.T, label string, be []primitives.Positive, want ...float64) {
	t.Helper()
	if len(be) != len(want) {
		t.Fatalf("%s: expected %d points, got %d (%v)", label, len(want), len(be), be)
	}
	for i, w := range want {
		if math.Abs(be[i].ToFloat64()-w) > 1e-6 {
			t.Errorf("%s[%d]: got %v, want %v", label, i, be[i], w)
		}
	}
}

// TestVerticalSpreadsHaveOneBreakEven covers testable property #3 for the
// first-class spread types: a vertical spread's P&L crosses zero exactly
// once, not twice.
func TestVerticalSpreadsHaveOneBreakEven(t *testing.T) {
	cases := []struct {
		name         string
		strategyType strategy.Type
		legs         func(t *testing.T) []position.Position
		breakEven    float64
		maxProfit    float64
		maxLoss      float64
	}{
		{
			name:         "BullCallSpread",
			strategyType: strategy.BullCallSpread,
			legs: func(t *testing.T) []position.Position {
				return []position.Position{
					leg(t, options.Call, options.Long, 100, 0.2, 105, 1, 5, 0.2, 0.01, 0),
					leg(t, options.Call, options.Short, 110, 0.2, 105, 1, 2, 0.2, 0.01, 0),
				}
			},
			breakEven: 103.4,
			maxProfit: 6.6,
			maxLoss:   3.4,
		},
		{
			name:         "BearCallSpread",
			strategyType: strategy.BearCallSpread,
			legs: func(t *testing.T) []position.Position {
				return []position.Position{
					leg(t, options.Call, options.Short, 100, 0.2, 105, 1, 5, 0.2, 0.01, 0),
					leg(t, options.Call, options.Long, 110, 0.2, 105, 1, 2, 0.2, 0.01, 0),
				}
			},
			breakEven: 102.6,
			maxProfit: 2.6,
			maxLoss:   7.4,
		},
		{
			name:         "BullPutSpread",
			strategyType: strategy.BullPutSpread,
			legs: func(t *testing.T) []position.Position {
				return []position.Position{
					leg(t, options.Put, options.Long, 100, 0.2, 105, 1, 2, 0.2, 0.01, 0),
					leg(t, options.Put, options.Short, 110, 0.2, 105, 1, 5, 0.2, 0.01, 0),
				}
			},
			breakEven: 107.4,
			maxProfit: 2.6,
			maxLoss:   7.4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			strat, err := strategy.NewStrategy(tc.strategyType, "TEST", tc.legs(t))
			if err != nil {
				t.Fatalf("NewStrategy: %v", err)
			}

			assertPositives(t, "break-even", strat.GetBreakEvenPoints(), tc.breakEven)

			maxProfit, err := strat.GetMaxProfit()
			if err != nil {
				t.Fatalf("GetMaxProfit: %v", err)
			}
			if math.Abs(maxProfit.ToFloat64()-tc.maxProfit) > 1e-6 {
				t.Errorf("max_profit: got %v, want %v", maxProfit, tc.maxProfit)
			}

			maxLoss, err := strat.GetMaxLoss()
			if err != nil {
				t.Fatalf("GetMaxLoss: %v", err)
			}
			if math.Abs(maxLoss.ToFloat64()-tc.maxLoss) > 1e-6 {
				t.Errorf("max_loss: got %v, want %v", maxLoss, tc.maxLoss)
			}
		})
	}
}

// TestLongButterflySpreadBreakEvens covers a three-leg, two-break-even
// shape: two wings offset by the net debit around the body strike.
func TestLongButterflySpreadBreakEvens(t *testing.T) {
	wingLow := leg(t, options.Call, options.Long, 90, 0.2, 100, 1, 12, 0.2, 0.01, 0)
	body := leg(t, options.Call, options.Short, 100, 0.2, 100, 2, 6, 0.2, 0.01, 0)
	wingHigh := leg(t, options.Call, options.Long, 110, 0.2, 100, 1, 2, 0.2, 0.01, 0)

	strat, err := strategy.NewStrategy(strategy.LongButterflySpread, "TEST", []position.Position{wingLow, body, wingHigh})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	assertPositives(t, "break-even", strat.GetBreakEvenPoints(), 92.8, 107.2)

	maxProfit, err := strat.GetMaxProfit()
	if err != nil {
		t.Fatalf("GetMaxProfit: %v", err)
	}
	if math.Abs(maxProfit.ToFloat64()-7.2) > 1e-6 {
		t.Errorf("max_profit: got %v, want 7.2", maxProfit)
	}

	maxLoss, err := strat.GetMaxLoss()
	if err != nil {
		t.Fatalf("GetMaxLoss: %v", err)
	}
	if math.Abs(maxLoss.ToFloat64()-2.8) > 1e-6 {
		t.Errorf("max_loss: got %v, want 2.8 (the net debit paid)", maxLoss)
	}
}

// TestIronButterflyBreakEvens covers the defined-risk four-leg shape whose
// max loss is the wing width minus the net credit, not the credit itself.
func TestIronButterflyBreakEvens(t *testing.T) {
	putLong := leg(t, options.Put, options.Long, 90, 0.2, 100, 1, 1, 0.1, 0.01, 0)
	putShort := leg(t, options.Put, options.Short, 100, 0.2, 100, 1, 5, 0.1, 0.01, 0)
	callShort := leg(t, options.Call, options.Short, 100, 0.2, 100, 1, 5, 0.1, 0.01, 0)
	callLong := leg(t, options.Call, options.Long, 110, 0.2, 100, 1, 1, 0.1, 0.01, 0)

	strat, err := strategy.NewStrategy(strategy.IronButterfly, "TEST", []position.Position{putLong, putShort, callShort, callLong})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	assertPositives(t, "break-even", strat.GetBreakEvenPoints(), 92.4, 107.6)

	maxProfit, err := strat.GetMaxProfit()
	if err != nil {
		t.Fatalf("GetMaxProfit: %v", err)
	}
	if math.Abs(maxProfit.ToFloat64()-7.6) > 1e-6 {
		t.Errorf("max_profit: got %v, want 7.6 (the net credit)", maxProfit)
	}

	maxLoss, err := strat.GetMaxLoss()
	if err != nil {
		t.Fatalf("GetMaxLoss: %v", err)
	}
	if math.Abs(maxLoss.ToFloat64()-2.4) > 1e-6 {
		t.Errorf("max_loss: got %v, want 2.4 (wing width 10 minus 7.6 credit)", maxLoss)
	}
}

func TestRollOutRejectsMoveTowardTheMoney(t *testing.T) {
	call := leg(t, options.Call, options.Short, 155, 0.19, 150, 100, 2, 0.2, 0.01, 0.02)
	put := leg(t, options.Put, options.Short, 145, 0.22, 150, 100, 1.5, 0.2, 0.01, 0.02)
	strat, err := strategy.NewStrategy(strategy.ShortStrangle, "TEST", []position.Position{call, put})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}
	if _, err := strat.RollOut(options.Call, options.Short, primitives.Must(151)); err == nil {
		t.Fatal("expected RollOut to reject a strike moving toward the money")
	}
	if _, err := strat.RollIn(options.Call, options.Short, primitives.Must(152)); err != nil {
		t.Errorf("RollIn toward the money should succeed: %v", err)
	}
}
