package position_test

import (
	"math"
	"testing"

	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/position"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// TestTransactionRoundTripLongCall reproduces spec.md scenario 4: open a
// long call at premium=5, fees=1, qty=1 (realized -6); close at
// premium=12, fees=1 (realized +11); net +5.
func TestTransactionRoundTripLongCall(t *testing.T) {
	open := position.NewTransaction(
		position.StatusOpen, nil, options.Long, options.Call,
		primitives.Must(1), primitives.Must(5), primitives.Must(1),
		nil, nil, nil,
	)
	openPnL, err := open.PnL()
	if err != nil {
		t.Fatalf("open.PnL: %v", err)
	}
	if got := openPnL.Realized.Float64(); math.Abs(got-(-6)) > 1e-9 {
		t.Errorf("open realized: got %v, want -6", got)
	}

	closeTx := position.NewTransaction(
		position.StatusClosed, nil, options.Long, options.Call,
		primitives.Must(1), primitives.Must(12), primitives.Must(1),
		nil, nil, nil,
	)
	closePnL, err := closeTx.PnL()
	if err != nil {
		t.Fatalf("close.PnL: %v", err)
	}
	if got := closePnL.Realized.Float64(); math.Abs(got-11) > 1e-9 {
		t.Errorf("close realized: got %v, want 11", got)
	}

	net := openPnL.Realized.Add(*closePnL.Realized)
	if math.Abs(net.Float64()-5) > 1e-9 {
		t.Errorf("net P&L: got %v, want 5", net)
	}
}

func TestTransactionShortOpenCreditsPremium(t *testing.T) {
	tx := position.NewTransaction(
		position.StatusOpen, nil, options.Short, options.Put,
		primitives.Must(100), primitives.Must(1.5), primitives.Must(0.1),
		nil, nil, nil,
	)
	pnl, err := tx.PnL()
	if err != nil {
		t.Fatalf("PnL: %v", err)
	}
	expected := (1.5 - 0.1) * 100
	if got := pnl.Realized.Float64(); math.Abs(got-expected) > 1e-9 {
		t.Errorf("short open realized: got %v, want %v", got, expected)
	}
}

func TestTransactionUnknownStatusErrors(t *testing.T) {
	tx := position.NewTransaction(
		position.TransactionStatus("Bogus"), nil, options.Long, options.Call,
		primitives.Must(1), primitives.Must(1), primitives.Must(0),
		nil, nil, nil,
	)
	if _, err := tx.PnL(); err == nil {
		t.Fatal("expected error for unknown transaction status")
	}
}

func TestUpdateDaysToExpirationReturnsCopy(t *testing.T) {
	tx := position.NewTransaction(
		position.StatusOpen, nil, options.Long, options.Call,
		primitives.Must(1), primitives.Must(1), primitives.Must(0),
		nil, nil, nil,
	)
	updated := tx.UpdateDaysToExpiration(primitives.Must(10))
	if updated.ID() != tx.ID() {
		t.Error("expected UpdateDaysToExpiration to preserve identity")
	}
}
