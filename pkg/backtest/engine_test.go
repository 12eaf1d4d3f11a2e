package backtest_test

import (
	"context"
	"testing"

	"github.com/johnayoung/go-options-analytics/pkg/backtest"
	"github.com/johnayoung/go-options-analytics/pkg/chain"
	"github.com/johnayoung/go-options-analytics/pkg/exitpolicy"
	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/position"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
	"github.com/johnayoung/go-options-analytics/pkg/strategy"
	"github.com/johnayoung/go-options-analytics/pkg/walk"
)

func shortStrangleLeg(t *testing.T, style options.OptionStyle, strike float64) position.Position {
	t.Helper()
	iv := primitives.Must(0.20)
	if style == options.Call {
		iv = primitives.Must(0.19)
	}
	opt, err := options.NewOption(
		options.Short, style, "TEST", primitives.Must(strike),
		primitives.NewExpirationDays(primitives.Must(30)),
		iv, primitives.Must(100), primitives.Must(150),
		primitives.NewDecimalFromFloat(0.01), primitives.Must(0.02),
	)
	if err != nil {
		t.Fatalf("NewOption: %v", err)
	}
	premium := primitives.Must(2)
	if style == options.Put {
		premium = primitives.Must(1.5)
	}
	entry := position.NewTransaction(
		position.StatusOpen, nil, options.Short, style,
		primitives.Must(100), premium, primitives.Must(0.1),
		nil, nil, nil,
	)
	return position.NewPosition(opt, entry)
}

func newTestChain(t *testing.T) chain.OptionChain {
	t.Helper()
	params := chain.BuildParams{
		Symbol:            "TEST",
		UnderlyingPrice:   primitives.Must(150),
		RiskFreeRate:      primitives.NewDecimalFromFloat(0.01),
		DividendYield:     primitives.Must(0.02),
		Expiration:        primitives.NewExpirationDays(primitives.Must(30)),
		ImpliedVolatility: primitives.Must(0.20),
		Size:              11,
		ChainSize:         primitives.Must(5),
	}
	c, err := chain.BuildChain(params)
	if err != nil {
		t.Fatalf("BuildChain: %v", err)
	}
	return c
}

func TestEngineRunWithProfitOrLossPolicy(t *testing.T) {
	callLeg := shortStrangleLeg(t, options.Call, 155)
	putLeg := shortStrangleLeg(t, options.Put, 145)

	strat, err := strategy.GetStrategy("TEST", []position.Position{callLeg, putLeg})
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}

	initChain := newTestChain(t)
	params := walk.WalkParams[chain.OptionChain]{
		Size:      5,
		InitStep:  walk.Step[chain.OptionChain]{X: initChain.Expiration(), Y: initChain},
		InitPrice: initChain.UnderlyingPrice(),
		Timeframe: primitives.TFDay,
		WalkType:  walk.GeometricBrownian,
		Seed:      42,
		GeometricBrownian: walk.GeometricBrownianParams{
			DT: 1.0 / 365, Drift: 0.0, Vol: 0.20,
		},
	}

	policy := exitpolicy.ProfitOrLoss(0.5, 0.5)

	engine := backtest.NewEngineWithDefaults()
	result, err := engine.Run(context.Background(), strat, params, policy)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if len(result.ValueHistory) == 0 {
		t.Fatal("expected non-empty value history")
	}
	if len(result.ValueHistory) > params.Size {
		t.Errorf("expected at most %d steps, got %d", params.Size, len(result.ValueHistory))
	}

	summary := result.Summary()
	if summary == "" {
		t.Error("expected non-empty summary")
	}

	runResult := result.ToRunResult()
	if runResult.HoldingPeriod != len(result.ValueHistory) {
		t.Errorf("expected holding period %d, got %d", len(result.ValueHistory), runResult.HoldingPeriod)
	}
}

func TestEngineRunValidatesEmptyStrategy(t *testing.T) {
	empty := strategy.Strategy{}
	initChain := newTestChain(t)
	params := walk.WalkParams[chain.OptionChain]{
		Size:      3,
		InitStep:  walk.Step[chain.OptionChain]{X: initChain.Expiration(), Y: initChain},
		InitPrice: initChain.UnderlyingPrice(),
		Timeframe: primitives.TFDay,
		WalkType:  walk.GeometricBrownian,
		Seed:      1,
		GeometricBrownian: walk.GeometricBrownianParams{
			DT: 1.0 / 365, Drift: 0, Vol: 0.2,
		},
	}

	engine := backtest.NewEngineWithDefaults()
	_, err := engine.Run(context.Background(), empty, params, exitpolicy.ProfitTarget(0.5))
	if err == nil {
		t.Fatal("expected error for strategy with no positions")
	}
}

func TestEngineRunRespectsContextCancellation(t *testing.T) {
	callLeg := shortStrangleLeg(t, options.Call, 155)
	putLeg := shortStrangleLeg(t, options.Put, 145)
	strat, err := strategy.GetStrategy("TEST", []position.Position{callLeg, putLeg})
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}

	initChain := newTestChain(t)
	params := walk.WalkParams[chain.OptionChain]{
		Size:      20,
		InitStep:  walk.Step[chain.OptionChain]{X: initChain.Expiration(), Y: initChain},
		InitPrice: initChain.UnderlyingPrice(),
		Timeframe: primitives.TFDay,
		WalkType:  walk.GeometricBrownian,
		Seed:      7,
		GeometricBrownian: walk.GeometricBrownianParams{
			DT: 1.0 / 365, Drift: 0, Vol: 0.2,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := backtest.NewEngineWithDefaults()
	result, err := engine.Run(ctx, strat, params, exitpolicy.ProfitTarget(0.99))
	if err == nil {
		t.Fatal("expected error due to cancellation")
	}
	if result != nil {
		t.Errorf("expected nil result on cancellation, got %v", result)
	}
}
