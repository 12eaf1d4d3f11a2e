package strategy_test

import (
	"testing"

	"github.com/johnayoung/go-options-analytics/pkg/chain"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
	"github.com/johnayoung/go-options-analytics/pkg/strategy"
)

func testChain(t *testing.T) chain.OptionChain {
	t.Helper()
	c, err := chain.BuildChain(chain.BuildParams{
		Symbol:            "TEST",
		UnderlyingPrice:   primitives.Must(150),
		RiskFreeRate:      primitives.NewDecimalFromFloat(0.01),
		DividendYield:     primitives.Must(0.02),
		Expiration:        primitives.NewExpirationDays(primitives.Must(30)),
		ImpliedVolatility: primitives.Must(0.20),
		Size:              15,
		ChainSize:         primitives.Must(5),
	})
	if err != nil {
		t.Fatalf("BuildChain: %v", err)
	}
	return c
}

func TestFilterCombinationsShortStrangleReturnsOrderedPairs(t *testing.T) {
	c := testChain(t)
	combos, err := strategy.FilterCombinations(c, strategy.ShortStrangle, strategy.NewAllSides())
	if err != nil {
		t.Fatalf("FilterCombinations: %v", err)
	}
	if len(combos) == 0 {
		t.Fatal("expected at least one candidate combination")
	}
	for _, combo := range combos {
		if len(combo) != 2 {
			t.Fatalf("expected 2-strike combinations, got %d", len(combo))
		}
		if !combo[0].Strike.LessThan(combo[1].Strike) {
			t.Errorf("expected ascending strikes, got %s >= %s", combo[0].Strike, combo[1].Strike)
		}
	}
}

func TestFilterCombinationsUpperSideOnlyAboveUnderlying(t *testing.T) {
	c := testChain(t)
	combos, err := strategy.FilterCombinations(c, strategy.ShortCall, strategy.NewUpperSide())
	if err != nil {
		t.Fatalf("FilterCombinations: %v", err)
	}
	if len(combos) == 0 {
		t.Fatal("expected at least one candidate above the underlying")
	}
	for _, combo := range combos {
		if !combo[0].Strike.GreaterThan(c.UnderlyingPrice()) {
			t.Errorf("Upper filter admitted a strike at or below the underlying: %s", combo[0].Strike)
		}
	}
}

func TestCreateStrategyShortStrangleValidates(t *testing.T) {
	c := testChain(t)
	combos, err := strategy.FilterCombinations(c, strategy.ShortStrangle, strategy.NewAllSides())
	if err != nil {
		t.Fatalf("FilterCombinations: %v", err)
	}
	if len(combos) == 0 {
		t.Fatal("expected at least one candidate combination")
	}

	s, err := strategy.CreateStrategy(strategy.ShortStrangle, "TEST", c, combos[0], primitives.Must(1), primitives.Must(0.1), primitives.Now())
	if err != nil {
		t.Fatalf("CreateStrategy: %v", err)
	}
	if s.Type() != strategy.ShortStrangle {
		t.Errorf("expected ShortStrangle, got %s", s.Type())
	}
	if len(s.GetPositions()) != 2 {
		t.Errorf("expected 2 legs, got %d", len(s.GetPositions()))
	}
}

func TestCreateStrategyRejectsWrongStrikeCount(t *testing.T) {
	c := testChain(t)
	rows := c.GetSingleIter()
	if _, err := strategy.CreateStrategy(strategy.ShortStrangle, "TEST", c, rows[:1], primitives.Must(1), primitives.Must(0.1), primitives.Now()); err == nil {
		t.Fatal("expected an error when strike count does not match the strategy's shape")
	}
}

func TestFindOptimalMaximizesProfitArea(t *testing.T) {
	c := testChain(t)
	seed, err := strategy.CreateStrategy(strategy.ShortStrangle, "TEST", c, c.GetSingleIter()[:2], primitives.Must(1), primitives.Must(0.1), primitives.Now())
	if err != nil {
		t.Fatalf("CreateStrategy: %v", err)
	}

	best := seed.FindOptimal(c, strategy.NewAllSides(), strategy.Area)
	if best.Type() != strategy.ShortStrangle {
		t.Errorf("expected ShortStrangle, got %s", best.Type())
	}

	bestArea, err := best.GetProfitArea()
	if err != nil {
		t.Fatalf("GetProfitArea: %v", err)
	}

	combos, err := strategy.FilterCombinations(c, strategy.ShortStrangle, strategy.NewAllSides())
	if err != nil {
		t.Fatalf("FilterCombinations: %v", err)
	}
	for _, combo := range combos {
		candidate, err := strategy.CreateStrategy(strategy.ShortStrangle, "TEST", c, combo, primitives.Must(1), primitives.Must(0.1), primitives.Now())
		if err != nil {
			continue
		}
		area, err := candidate.GetProfitArea()
		if err != nil {
			continue
		}
		if area.GreaterThan(bestArea) {
			t.Errorf("FindOptimal did not return the maximal-area candidate: found %s > chosen %s", area, bestArea)
		}
	}
}

func TestFindOptimalPanicsWithNoLegs(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected FindOptimal to panic on a strategy with no legs")
		}
	}()
	var zero strategy.Strategy
	c := testChain(t)
	zero.FindOptimal(c, strategy.NewAllSides(), strategy.Area)
}
