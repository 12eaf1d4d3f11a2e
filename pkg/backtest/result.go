package backtest

import (
	"fmt"
	"math"

	"github.com/johnayoung/go-options-analytics/pkg/chain"
	"github.com/johnayoung/go-options-analytics/pkg/exitpolicy"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
	"github.com/johnayoung/go-options-analytics/pkg/simulation"
	"github.com/johnayoung/go-options-analytics/pkg/strategy"
	"github.com/johnayoung/go-options-analytics/pkg/walk"
)

// Result contains the outcome of one backtest run: the step-by-step
// mark-to-market value of the strategy, whether (and why) the exit policy
// fired, and derived performance metrics over the value series.
//
// All metrics use precise decimal arithmetic to avoid floating-point
// errors in the financial figures; Sharpe and drawdown use float64
// internally since they are ratios, not money.
type Result struct {
	// InitialPremium is the net premium the strategy opened with (negative
	// for a net debit, positive for a net credit).
	InitialPremium primitives.Decimal

	// FinalValue is the strategy's unrealized P&L at the last step.
	FinalValue primitives.Decimal

	// ValueHistory tracks the strategy's mark-to-market P&L at every step.
	ValueHistory []ValuePoint

	// Strategy is the strategy state the backtest was run against.
	Strategy strategy.Strategy

	// Triggered reports whether the exit policy fired before the path was
	// exhausted.
	Triggered bool

	// ExitReason is the leaf (or synthetic And) that fired, zero-value if
	// Triggered is false.
	ExitReason exitpolicy.ExitPolicy

	// FinalStep is the last chain step the run reached.
	FinalStep walk.Step[chain.OptionChain]

	// Calculated metrics (populated by calculateMetrics).
	TotalReturn primitives.Decimal
	Sharpe      primitives.Decimal
	MaxDrawdown primitives.Decimal
}

// ValuePoint is the strategy's mark-to-market P&L at one step.
type ValuePoint struct {
	Step  int
	Value primitives.Decimal
}

// calculateMetrics computes derived performance metrics from the backtest
// run. Called automatically by Engine.Run after the path is exhausted or
// the exit policy fires.
//
// Calculated metrics:
//   - TotalReturn: (FinalValue - InitialPremium) / |InitialPremium|
//   - Sharpe: mean(step returns) / stddev(step returns) * sqrt(number of
//     step returns), assumes 0 risk-free rate
//   - MaxDrawdown: largest peak-to-trough decline in mark-to-market value,
//     as a fraction of the running peak; peaks at or below zero are not
//     counted
func (r *Result) calculateMetrics() error {
	if len(r.ValueHistory) == 0 {
		return fmt.Errorf("empty value history")
	}

	base := r.InitialPremium.Abs()
	if base.IsZero() {
		r.TotalReturn = primitives.ZeroDecimal()
	} else {
		ret, err := r.FinalValue.Sub(r.InitialPremium).Div(base)
		if err != nil {
			return fmt.Errorf("failed to calculate total return: %w", err)
		}
		r.TotalReturn = ret
	}

	if err := r.calculateSharpe(); err != nil {
		return fmt.Errorf("failed to calculate Sharpe ratio: %w", err)
	}
	if err := r.calculateMaxDrawdown(); err != nil {
		return fmt.Errorf("failed to calculate max drawdown: %w", err)
	}
	return nil
}

func (r *Result) calculateSharpe() error {
	if len(r.ValueHistory) < 2 {
		r.Sharpe = primitives.ZeroDecimal()
		return nil
	}

	returns := make([]float64, 0, len(r.ValueHistory)-1)
	for i := 1; i < len(r.ValueHistory); i++ {
		returns = append(returns, r.ValueHistory[i].Value.Float64()-r.ValueHistory[i-1].Value.Float64())
	}

	mean, stdDev := simulation.PnLMeanStdDev(returns)
	if stdDev == 0 {
		r.Sharpe = primitives.ZeroDecimal()
		return nil
	}
	r.Sharpe = primitives.NewDecimalFromFloat(mean / stdDev * math.Sqrt(float64(len(returns))))
	return nil
}

func (r *Result) calculateMaxDrawdown() error {
	maxDrawdown := 0.0
	peak := r.ValueHistory[0].Value.Float64()
	for _, p := range r.ValueHistory[1:] {
		v := p.Value.Float64()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}
	r.MaxDrawdown = primitives.NewDecimalFromFloat(maxDrawdown)
	return nil
}

// ToRunResult converts this single backtest into a simulation.RunResult
// suitable for folding into a simulation.Aggregator across many runs.
func (r *Result) ToRunResult() simulation.RunResult {
	return simulation.RunResult{
		Premium:       r.InitialPremium.Abs(),
		PnL:           r.FinalValue,
		HoldingPeriod: len(r.ValueHistory),
		ExitReason:    r.ExitReason,
		Expired:       !r.Triggered,
	}
}

// Summary returns a human-readable summary of the backtest result.
func (r *Result) Summary() string {
	totalRetPct := r.TotalReturn.Mul(primitives.NewDecimal(100))
	maxDDPct := r.MaxDrawdown.Mul(primitives.NewDecimal(100))

	reason := "path exhausted"
	if r.Triggered {
		reason = r.ExitReason.String()
	}

	return fmt.Sprintf(
		"Backtest Result:\n"+
			"  Initial Premium: %s\n"+
			"  Final Value: %s\n"+
			"  Total Return: %.2f%%\n"+
			"  Sharpe Ratio: %.2f\n"+
			"  Max Drawdown: %.2f%%\n"+
			"  Exit: %s\n"+
			"  Steps: %d",
		r.InitialPremium.String(),
		r.FinalValue.String(),
		totalRetPct.Float64(),
		r.Sharpe.Float64(),
		maxDDPct.Float64(),
		reason,
		len(r.ValueHistory),
	)
}
