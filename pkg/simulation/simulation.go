// Package simulation aggregates the outcomes of many simulated strategy
// runs (one path generation + exit-policy evaluation each) into summary
// statistics.
package simulation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/johnayoung/go-options-analytics/pkg/exitpolicy"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// RunResult is the outcome of one simulated trade.
type RunResult struct {
	Premium       primitives.Decimal
	PnL           primitives.Decimal
	HoldingPeriod int
	ExitReason    exitpolicy.ExitPolicy
	Expired       bool
}

// SimulationResult summarizes many RunResults: counts of how each run
// closed, the spread of premiums paid, total and average P&L, average
// holding period, and a histogram of which exit-policy leaf fired.
type SimulationResult struct {
	SimulationCount     int
	MaxPremium          primitives.Decimal
	MinPremium          primitives.Decimal
	AvgPremium          primitives.Decimal
	HitTakeProfit       int
	HitStopLoss         int
	Expired             int
	TotalPnL            primitives.Decimal
	AvgPnL              primitives.Decimal
	PnLStdDev           float64
	AvgHoldingPeriod    float64
	ExitReasonHistogram map[string]int
}

// Aggregator accumulates RunResults one at a time via Welford's algorithm,
// so a simulation of arbitrary length never has to hold every run in
// memory at once.
type Aggregator struct {
	count               int
	maxPremium          primitives.Decimal
	minPremium          primitives.Decimal
	premiumMean         float64
	pnlTotal            primitives.Decimal
	pnlMean             float64
	pnlM2               float64
	holdingPeriodMean   float64
	hitTakeProfit       int
	hitStopLoss         int
	expired             int
	exitReasonHistogram map[string]int
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{exitReasonHistogram: make(map[string]int)}
}

// Add folds one run's outcome into the running statistics.
func (a *Aggregator) Add(r RunResult) {
	a.count++
	n := float64(a.count)

	premium := r.Premium.Float64()
	if a.count == 1 {
		a.maxPremium = r.Premium
		a.minPremium = r.Premium
	} else {
		if r.Premium.GreaterThan(a.maxPremium) {
			a.maxPremium = r.Premium
		}
		if r.Premium.LessThan(a.minPremium) {
			a.minPremium = r.Premium
		}
	}
	a.premiumMean += (premium - a.premiumMean) / n

	pnl := r.PnL.Float64()
	delta := pnl - a.pnlMean
	a.pnlMean += delta / n
	delta2 := pnl - a.pnlMean
	a.pnlM2 += delta * delta2
	a.pnlTotal = a.pnlTotal.Add(r.PnL)

	a.holdingPeriodMean += (float64(r.HoldingPeriod) - a.holdingPeriodMean) / n

	if r.Expired {
		a.expired++
	}
	switch classifyExit(r) {
	case takeProfitClass:
		a.hitTakeProfit++
	case stopLossClass:
		a.hitStopLoss++
	}
	a.exitReasonHistogram[r.ExitReason.Kind().String()]++
}

type exitClass int

const (
	otherClass exitClass = iota
	takeProfitClass
	stopLossClass
)

// classifyExit maps an ExitPolicy leaf onto take-profit/stop-loss/other
// for the headline hit counters; And/Or and time/delta-based exits fall
// under "other" and are still visible in ExitReasonHistogram.
func classifyExit(r RunResult) exitClass {
	switch r.ExitReason.Kind() {
	case exitpolicy.ProfitPercent, exitpolicy.MinPrice:
		return takeProfitClass
	case exitpolicy.LossPercent, exitpolicy.MaxPrice:
		return stopLossClass
	default:
		return otherClass
	}
}

// Result finalizes the running statistics into a SimulationResult. The
// standard deviation of P&L is computed from the Welford accumulator
// (M2/(n-1)). A caller holding the raw samples can compare these figures
// with PnLMeanStdDev's gonum/stat batch mean and standard deviation.
func (a *Aggregator) Result() SimulationResult {
	var stdDev float64
	if a.count > 1 {
		variance := a.pnlM2 / float64(a.count-1)
		if variance > 0 {
			stdDev = math.Sqrt(variance)
		}
	}
	return SimulationResult{
		SimulationCount:     a.count,
		MaxPremium:          a.maxPremium,
		MinPremium:          a.minPremium,
		AvgPremium:          primitives.NewDecimalFromFloat(a.premiumMean),
		HitTakeProfit:       a.hitTakeProfit,
		HitStopLoss:         a.hitStopLoss,
		Expired:             a.expired,
		TotalPnL:            a.pnlTotal,
		AvgPnL:              primitives.NewDecimalFromFloat(a.pnlMean),
		PnLStdDev:           stdDev,
		AvgHoldingPeriod:    a.holdingPeriodMean,
		ExitReasonHistogram: a.exitReasonHistogram,
	}
}

// Aggregate is a convenience wrapper folding a batch of RunResults
// through an Aggregator in one call.
func Aggregate(results []RunResult) SimulationResult {
	agg := NewAggregator()
	for _, r := range results {
		agg.Add(r)
	}
	return agg.Result()
}

// PnLMeanStdDev computes the mean and sample standard deviation of a
// batch of P&L outcomes directly via gonum/stat, useful when a caller
// already has every run's P&L in memory and wants a cross-check against
// the incremental Aggregator.
func PnLMeanStdDev(pnls []float64) (mean, stdDev float64) {
	if len(pnls) == 0 {
		return 0, 0
	}
	mean = stat.Mean(pnls, nil)
	if len(pnls) < 2 {
		return mean, 0
	}
	stdDev = stat.StdDev(pnls, nil)
	return mean, stdDev
}
