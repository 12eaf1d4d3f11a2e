// Package exitpolicy evaluates composable exit conditions over a
// simulated position's current premium, elapsed steps, and underlying
// price.
package exitpolicy

import (
	"fmt"

	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// Kind discriminates the leaf/combinator variants of an ExitPolicy.
type Kind int

const (
	ProfitPercent Kind = iota
	LossPercent
	FixedPrice
	MinPrice
	MaxPrice
	TimeSteps
	DaysToExpiration
	DeltaThreshold
	UnderlyingPrice
	UnderlyingBelow
	UnderlyingAbove
	Expiration
	And
	Or
)

func (k Kind) String() string {
	names := [...]string{
		"ProfitPercent", "LossPercent", "FixedPrice", "MinPrice", "MaxPrice",
		"TimeSteps", "DaysToExpiration", "DeltaThreshold", "UnderlyingPrice",
		"UnderlyingBelow", "UnderlyingAbove", "Expiration", "And", "Or",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// ExitPolicy is a composable condition tree. Atomic leaves carry a single
// threshold value; And/Or combinators carry a slice of child policies.
type ExitPolicy struct {
	kind     Kind
	value    primitives.Decimal
	intValue int
	children []ExitPolicy
}

func leaf(kind Kind, value primitives.Decimal) ExitPolicy { return ExitPolicy{kind: kind, value: value} }

func NewProfitPercent(p primitives.Decimal) ExitPolicy      { return leaf(ProfitPercent, p) }
func NewLossPercent(p primitives.Decimal) ExitPolicy        { return leaf(LossPercent, p) }
func NewFixedPrice(x primitives.Decimal) ExitPolicy         { return leaf(FixedPrice, x) }
func NewMinPrice(x primitives.Decimal) ExitPolicy           { return leaf(MinPrice, x) }
func NewMaxPrice(x primitives.Decimal) ExitPolicy           { return leaf(MaxPrice, x) }
func NewDeltaThreshold(x primitives.Decimal) ExitPolicy     { return leaf(DeltaThreshold, x) }
func NewUnderlyingPrice(x primitives.Decimal) ExitPolicy    { return leaf(UnderlyingPrice, x) }
func NewUnderlyingBelow(x primitives.Decimal) ExitPolicy    { return leaf(UnderlyingBelow, x) }
func NewUnderlyingAbove(x primitives.Decimal) ExitPolicy    { return leaf(UnderlyingAbove, x) }
func NewExpiration() ExitPolicy                             { return ExitPolicy{kind: Expiration} }

func NewTimeSteps(n int) ExitPolicy         { return ExitPolicy{kind: TimeSteps, intValue: n} }
func NewDaysToExpiration(d int) ExitPolicy  { return ExitPolicy{kind: DaysToExpiration, intValue: d} }

func NewAnd(children ...ExitPolicy) ExitPolicy { return ExitPolicy{kind: And, children: children} }
func NewOr(children ...ExitPolicy) ExitPolicy  { return ExitPolicy{kind: Or, children: children} }

// ProfitTarget builds the common "close at p% profit" leaf.
func ProfitTarget(p float64) ExitPolicy {
	return NewProfitPercent(primitives.NewDecimalFromFloat(p))
}

// StopLoss builds the common "close at p% loss" leaf.
func StopLoss(p float64) ExitPolicy {
	return NewLossPercent(primitives.NewDecimalFromFloat(p))
}

// ProfitOrLoss combines a profit target and a stop loss under Or: whichever
// triggers first wins.
func ProfitOrLoss(profitPct, lossPct float64) ExitPolicy {
	return NewOr(ProfitTarget(profitPct), StopLoss(lossPct))
}

// ProfitOrTime combines a profit target with a maximum holding period.
func ProfitOrTime(profitPct float64, maxSteps int) ExitPolicy {
	return NewOr(ProfitTarget(profitPct), NewTimeSteps(maxSteps))
}

// Kind returns the policy's discriminant.
func (e ExitPolicy) Kind() Kind { return e.kind }

// IsComposite reports whether e is an And/Or combinator.
func (e ExitPolicy) IsComposite() bool { return e.kind == And || e.kind == Or }

// ConditionCount returns the number of atomic leaves reachable from e,
// counting each leaf once and recursing through combinators.
func (e ExitPolicy) ConditionCount() int {
	if !e.IsComposite() {
		return 1
	}
	total := 0
	for _, c := range e.children {
		total += c.ConditionCount()
	}
	return total
}

func (e ExitPolicy) String() string {
	if !e.IsComposite() {
		switch e.kind {
		case TimeSteps, DaysToExpiration:
			return fmt.Sprintf("%s(%d)", e.kind, e.intValue)
		case Expiration:
			return "Expiration"
		default:
			return fmt.Sprintf("%s(%s)", e.kind, e.value.String())
		}
	}
	sep := " AND "
	if e.kind == Or {
		sep = " OR "
	}
	s := "("
	for i, c := range e.children {
		if i > 0 {
			s += sep
		}
		s += c.String()
	}
	return s + ")"
}

// Inputs bundles the current state check_exit_policy evaluates against.
type Inputs struct {
	InitialPremium  primitives.Decimal
	CurrentPremium  primitives.Decimal
	Step            int
	DaysLeft        int
	UnderlyingPrice primitives.Decimal
	Delta           primitives.Decimal
	IsLong          bool
}

// fixedTolerance is the absolute tolerance FixedPrice uses for equality.
var fixedTolerance = primitives.NewDecimalFromFloat(0.01)

// Check evaluates policy against in, returning the triggered leaf (which,
// for And, is a synthetic And node over the triggered children; for Or, is
// whichever single child fired first) or false if nothing triggered.
func Check(policy ExitPolicy, in Inputs) (ExitPolicy, bool) {
	switch policy.kind {
	case ProfitPercent:
		threshold := in.InitialPremium.Mul(primitives.OneDecimal().Add(policy.value))
		if in.IsLong {
			if in.CurrentPremium.GreaterThan(threshold) || in.CurrentPremium.Equal(threshold) {
				return policy, true
			}
			return ExitPolicy{}, false
		}
		threshold = in.InitialPremium.Mul(primitives.OneDecimal().Sub(policy.value))
		if in.CurrentPremium.LessThan(threshold) || in.CurrentPremium.Equal(threshold) {
			return policy, true
		}
		return ExitPolicy{}, false

	case LossPercent:
		if in.IsLong {
			threshold := in.InitialPremium.Mul(primitives.OneDecimal().Sub(policy.value))
			if in.CurrentPremium.LessThan(threshold) || in.CurrentPremium.Equal(threshold) {
				return policy, true
			}
			return ExitPolicy{}, false
		}
		threshold := in.InitialPremium.Mul(primitives.OneDecimal().Add(policy.value))
		if in.CurrentPremium.GreaterThan(threshold) || in.CurrentPremium.Equal(threshold) {
			return policy, true
		}
		return ExitPolicy{}, false

	case FixedPrice:
		diff := in.CurrentPremium.Sub(policy.value).Abs()
		if diff.LessThan(fixedTolerance) {
			return policy, true
		}
		return ExitPolicy{}, false

	case MinPrice:
		if in.CurrentPremium.LessThan(policy.value) || in.CurrentPremium.Equal(policy.value) {
			return policy, true
		}
		return ExitPolicy{}, false

	case MaxPrice:
		if in.CurrentPremium.GreaterThan(policy.value) || in.CurrentPremium.Equal(policy.value) {
			return policy, true
		}
		return ExitPolicy{}, false

	case TimeSteps:
		if in.Step >= policy.intValue {
			return policy, true
		}
		return ExitPolicy{}, false

	case DaysToExpiration:
		if in.DaysLeft <= policy.intValue {
			return policy, true
		}
		return ExitPolicy{}, false

	case DeltaThreshold:
		if in.Delta.Abs().GreaterThan(policy.value) || in.Delta.Abs().Equal(policy.value) {
			return policy, true
		}
		return ExitPolicy{}, false

	case UnderlyingPrice:
		if in.UnderlyingPrice.Equal(policy.value) {
			return policy, true
		}
		return ExitPolicy{}, false

	case UnderlyingBelow:
		if in.UnderlyingPrice.LessThan(policy.value) {
			return policy, true
		}
		return ExitPolicy{}, false

	case UnderlyingAbove:
		if in.UnderlyingPrice.GreaterThan(policy.value) {
			return policy, true
		}
		return ExitPolicy{}, false

	case Expiration:
		// Handled by the generator at step end, never here.
		return ExitPolicy{}, false

	case And:
		triggered := make([]ExitPolicy, 0, len(policy.children))
		for _, c := range policy.children {
			leaf, ok := Check(c, in)
			if !ok {
				return ExitPolicy{}, false
			}
			triggered = append(triggered, leaf)
		}
		return NewAnd(triggered...), true

	case Or:
		for _, c := range policy.children {
			if leaf, ok := Check(c, in); ok {
				return leaf, true
			}
		}
		return ExitPolicy{}, false

	default:
		return ExitPolicy{}, false
	}
}
