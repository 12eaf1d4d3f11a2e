// Package position holds an open or closed options leg and its realized
// profit-and-loss accounting.
package position

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// TransactionStatus tracks the lifecycle of a transaction from creation to
// completion.
type TransactionStatus string

const (
	// StatusOpen is active and has not been closed or settled.
	StatusOpen TransactionStatus = "Open"
	// StatusClosed was manually closed before expiration.
	StatusClosed TransactionStatus = "Closed"
	// StatusExpired reached its expiration date unexercised.
	StatusExpired TransactionStatus = "Expired"
	// StatusExercised converted into a position in the underlying.
	StatusExercised TransactionStatus = "Exercised"
	// StatusAssigned means the counterparty exercised against a short.
	StatusAssigned TransactionStatus = "Assigned"
)

// ErrUnsupportedOptionType indicates a transaction references a non-European
// option; only European-style contracts are priced by this library.
var ErrUnsupportedOptionType = errors.New("unsupported option type in transaction")

// PnL is the profit-and-loss outcome of a transaction: Realized is set once
// the transaction has a determined cash impact; Unrealized is reserved for
// mark-to-market figures computed elsewhere (Position.UnrealizedPnL).
type PnL struct {
	Realized   *primitives.Decimal
	Unrealized *primitives.Decimal
	Premium    primitives.Positive
	Fees       primitives.Positive
	ComputedAt primitives.Time
}

// Transaction records a single execution: the side, style and quantity
// traded, the premium and fees involved, and the market context (days to
// expiration, implied volatility, underlying price) at execution time.
type Transaction struct {
	id                string
	status            TransactionStatus
	dateTime          *primitives.Time
	optionType        options.OptionType
	side              options.Side
	optionStyle       options.OptionStyle
	quantity          primitives.Positive
	premium           primitives.Positive
	fees              primitives.Positive
	underlyingPrice   *primitives.Positive
	daysToExpiration  *primitives.Positive
	impliedVolatility *primitives.Positive
}

// NewTransaction constructs a Transaction with a fresh synthetic ID.
func NewTransaction(
	status TransactionStatus,
	dateTime *primitives.Time,
	side options.Side,
	optionStyle options.OptionStyle,
	quantity primitives.Positive,
	premium primitives.Positive,
	fees primitives.Positive,
	underlyingPrice *primitives.Positive,
	daysToExpiration *primitives.Positive,
	impliedVolatility *primitives.Positive,
) Transaction {
	return Transaction{
		id:                uuid.NewString(),
		status:            status,
		dateTime:          dateTime,
		optionType:        options.OptionTypeEuropean,
		side:              side,
		optionStyle:       optionStyle,
		quantity:          quantity,
		premium:           premium,
		fees:              fees,
		underlyingPrice:   underlyingPrice,
		daysToExpiration:  daysToExpiration,
		impliedVolatility: impliedVolatility,
	}
}

func (t Transaction) ID() string                    { return t.id }
func (t Transaction) Status() TransactionStatus      { return t.status }
func (t Transaction) Side() options.Side             { return t.side }
func (t Transaction) OptionStyle() options.OptionStyle { return t.optionStyle }
func (t Transaction) Quantity() primitives.Positive  { return t.quantity }
func (t Transaction) Premium() primitives.Positive   { return t.premium }
func (t Transaction) Fees() primitives.Positive      { return t.fees }

// UpdateDaysToExpiration returns a copy of t with a new days-to-expiration
// value, used as a position ages across simulation steps.
func (t Transaction) UpdateDaysToExpiration(days primitives.Positive) Transaction {
	t.daysToExpiration = &days
	return t
}

// PnL computes the realized profit and loss for t based on its current
// status: an Open transaction realizes the cost (Long) or credit (Short) of
// entry; a Closed/Expired/Exercised/Assigned transaction realizes the
// inverse at exit.
func (t Transaction) PnL() (PnL, error) {
	if t.optionType != options.OptionTypeEuropean {
		return PnL{}, ErrUnsupportedOptionType
	}

	costBasis := t.premium.Add(t.fees).ToDecimal()
	netOfFees := t.premium.SubDecimal(t.fees.ToDecimal())

	var realized primitives.Decimal
	switch t.status {
	case StatusOpen:
		switch t.side {
		case options.Long:
			realized = costBasis.Neg().Mul(t.quantity.ToDecimal())
		case options.Short:
			realized = netOfFees.Mul(t.quantity.ToDecimal())
		}
	case StatusClosed, StatusExpired, StatusExercised, StatusAssigned:
		switch t.side {
		case options.Short:
			realized = costBasis.Neg().Mul(t.quantity.ToDecimal())
		case options.Long:
			realized = netOfFees.Mul(t.quantity.ToDecimal())
		}
	default:
		return PnL{}, fmt.Errorf("transaction %s: unknown status %q", t.id, t.status)
	}

	now := primitives.Now()
	return PnL{
		Realized:   &realized,
		Unrealized: nil,
		Premium:    t.premium,
		Fees:       t.fees,
		ComputedAt: now,
	}, nil
}
