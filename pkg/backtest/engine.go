// Package backtest replays a single strategy against one simulated (or
// historical) underlying path, checking an exit policy at every step and
// reporting performance metrics over the strategy's mark-to-market value.
// It is mechanism-agnostic in the sense that it only depends on the
// option-strategy contract in pkg/strategy, pkg/walk and pkg/exitpolicy.
package backtest

import (
	"context"
	"fmt"

	"github.com/johnayoung/go-options-analytics/pkg/chain"
	"github.com/johnayoung/go-options-analytics/pkg/exitpolicy"
	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
	"github.com/johnayoung/go-options-analytics/pkg/strategy"
	"github.com/johnayoung/go-options-analytics/pkg/walk"
)

// Engine replays a walked option-chain path against a strategy, evaluating
// an exit policy at every step and stopping the run the first time it
// fires (or at path exhaustion, recorded as an expiry).
//
// Thread Safety: Engine is not thread-safe. Each backtest should run in a
// single goroutine; use separate Engine instances for concurrent runs.
type Engine struct {
	config Config
}

// Config contains backtest engine configuration options.
type Config struct {
	// EnableDetailedLogging is carried in Config but Run does not read it;
	// the engine writes no log output.
	EnableDetailedLogging bool
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{EnableDetailedLogging: false}
}

// NewEngine creates a new backtest engine with the provided configuration.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// NewEngineWithDefaults creates a new backtest engine with default
// configuration.
func NewEngineWithDefaults() *Engine {
	return NewEngine(DefaultConfig())
}

// Run walks path (via walk.GenerateOptionChain's params) one step at a
// time, repricing strat's legs against each step's chain and checking
// policy. It stops at the first step the policy fires on, or after
// exhausting the path (recorded as an expiry). Context cancellation is
// checked between steps.
func (e *Engine) Run(
	ctx context.Context,
	strat strategy.Strategy,
	params walk.WalkParams[chain.OptionChain],
	policy exitpolicy.ExitPolicy,
) (*Result, error) {
	if len(strat.GetPositions()) == 0 {
		return nil, fmt.Errorf("strategy has no positions")
	}

	steps, err := walk.GenerateOptionChain(params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate path: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("path generation produced no steps")
	}

	initialPremium := netEntryPremium(strat)

	valueHistory := make([]ValuePoint, 0, len(steps))
	var finalStep walk.Step[chain.OptionChain]
	var fired exitpolicy.ExitPolicy
	var triggered bool

	for i, step := range steps {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("backtest cancelled: %w", ctx.Err())
		default:
		}

		value, err := e.markToMarket(strat, step.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to mark position at step %d: %w", i, err)
		}
		valueHistory = append(valueHistory, ValuePoint{Step: i, Value: value})
		finalStep = step

		spot := step.Y.UnderlyingPrice()
		delta := netDelta(strat, step.Y)
		daysLeft := step.X.Days(primitives.Time{})

		in := exitpolicy.Inputs{
			InitialPremium:  initialPremium,
			CurrentPremium:  value,
			Step:            i,
			DaysLeft:        int(daysLeft.ToFloat64()),
			UnderlyingPrice: spot.ToDecimal(),
			Delta:           delta,
			IsLong:          isNetLong(strat),
		}
		if f, ok := exitpolicy.Check(policy, in); ok {
			fired = f
			triggered = true
			break
		}
	}

	result := &Result{
		InitialPremium: initialPremium,
		FinalValue:     valueHistory[len(valueHistory)-1].Value,
		ValueHistory:   valueHistory,
		Strategy:       strat,
		Triggered:      triggered,
		ExitReason:     fired,
		FinalStep:      finalStep,
	}
	if err := result.calculateMetrics(); err != nil {
		return nil, fmt.Errorf("failed to calculate performance metrics: %w", err)
	}
	return result, nil
}

// markToMarket sums the current Black-Scholes value of every leg of strat
// repriced under the chain step's implied volatility and underlying price.
func (e *Engine) markToMarket(strat strategy.Strategy, c chain.OptionChain) (primitives.Decimal, error) {
	total := primitives.ZeroDecimal()
	for _, leg := range strat.GetPositions() {
		opt := leg.Option()
		iv, err := impliedVolatilityAt(c, opt.Strike())
		if err != nil {
			iv = opt.ImpliedVolatility()
		}
		repriced := opt.WithUnderlyingPrice(c.UnderlyingPrice()).WithImpliedVolatility(iv).WithExpiration(c.Expiration())
		unrealized, err := leg.UnrealizedPnL(repriced)
		if err != nil {
			return primitives.Decimal{}, err
		}
		total = total.Add(unrealized)
	}
	return total, nil
}

func impliedVolatilityAt(c chain.OptionChain, strike primitives.Positive) (primitives.Positive, error) {
	for _, d := range c.Data() {
		if d.Strike.Equal(strike) {
			return d.ImpliedVolatility, nil
		}
	}
	return primitives.Positive{}, fmt.Errorf("strike %s not found in chain", strike)
}

func netEntryPremium(strat strategy.Strategy) primitives.Decimal {
	total := primitives.ZeroDecimal()
	for _, leg := range strat.GetPositions() {
		pnl, err := leg.Entry().PnL()
		if err != nil {
			continue
		}
		total = total.Add(*pnl.Realized)
	}
	return total
}

func netDelta(strat strategy.Strategy, c chain.OptionChain) primitives.Decimal {
	total := primitives.ZeroDecimal()
	for _, leg := range strat.GetPositions() {
		opt := leg.Option()
		for _, d := range c.Data() {
			if d.Strike.Equal(opt.Strike()) {
				if opt.Style() == options.Call {
					total = total.Add(d.DeltaCall)
				} else {
					total = total.Add(d.DeltaPut)
				}
				break
			}
		}
	}
	return total
}

func isNetLong(strat strategy.Strategy) bool {
	net := 0.0
	for _, leg := range strat.GetPositions() {
		opt := leg.Option()
		net += opt.Side().Sign() * opt.Quantity().ToFloat64()
	}
	return net >= 0
}
