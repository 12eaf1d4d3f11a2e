package position

import (
	"github.com/johnayoung/go-options-analytics/pkg/blackscholes"
	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// Position pairs an Option leg with the entry transaction that opened it.
// Implementations are immutable snapshots: modifying a position produces a
// new Position rather than mutating the existing one.
type Position struct {
	option options.Option
	entry  Transaction
}

// NewPosition pairs opt with its opening transaction. The transaction's
// side and style must match the option's.
func NewPosition(opt options.Option, entry Transaction) Position {
	return Position{option: opt, entry: entry}
}

func (p Position) Option() options.Option { return p.option }
func (p Position) Entry() Transaction     { return p.entry }

// TotalCost returns the signed cash flow of opening this position: premium
// plus fees paid (negative) for a long leg, premium less fees received
// (positive) for a short leg.
func (p Position) TotalCost() (primitives.Decimal, error) {
	pnl, err := p.entry.PnL()
	if err != nil {
		return primitives.Decimal{}, err
	}
	return *pnl.Realized, nil
}

// MarkValue reprices the leg against repriced (the same option with updated
// underlying price, implied volatility and/or expiration) and returns its
// current signed mark-to-market value.
func (p Position) MarkValue(repriced options.Option) primitives.Decimal {
	return blackscholes.Price(repriced)
}

// UnrealizedPnL returns the difference between the leg's current mark
// value (via repriced) and the cash flow recorded at entry: positive means
// the position is ahead, negative means it is behind.
func (p Position) UnrealizedPnL(repriced options.Option) (primitives.Decimal, error) {
	cost, err := p.TotalCost()
	if err != nil {
		return primitives.Decimal{}, err
	}
	return p.MarkValue(repriced).Add(cost), nil
}
