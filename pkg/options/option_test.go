package options_test

import (
	"errors"
	"testing"

	"github.com/johnayoung/go-options-analytics/pkg/options"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

func validOptionArgs() (options.Side, options.OptionStyle, string, primitives.Positive, primitives.ExpirationDate, primitives.Positive, primitives.Positive, primitives.Positive, primitives.Decimal, primitives.Positive) {
	return options.Long, options.Call, "TEST",
		primitives.Must(100),
		primitives.NewExpirationDays(primitives.Must(30)),
		primitives.Must(0.2),
		primitives.Must(1),
		primitives.Must(100),
		primitives.NewDecimalFromFloat(0.01),
		primitives.Must(0.0)
}

func TestNewOptionValid(t *testing.T) {
	side, style, sym, strike, exp, iv, qty, spot, r, q := validOptionArgs()
	opt, err := options.NewOption(side, style, sym, strike, exp, iv, qty, spot, r, q)
	if err != nil {
		t.Fatalf("NewOption: %v", err)
	}
	if opt.Strike().ToFloat64() != 100 {
		t.Errorf("expected strike 100, got %v", opt.Strike())
	}
}

func TestNewOptionRejectsZeroStrike(t *testing.T) {
	side, style, sym, _, exp, iv, qty, spot, r, q := validOptionArgs()
	_, err := options.NewOption(side, style, sym, primitives.Zero(), exp, iv, qty, spot, r, q)
	if !errors.Is(err, options.ErrInvalidStrike) {
		t.Fatalf("expected ErrInvalidStrike, got %v", err)
	}
}

func TestNewOptionRejectsZeroQuantity(t *testing.T) {
	side, style, sym, strike, exp, iv, _, spot, r, q := validOptionArgs()
	_, err := options.NewOption(side, style, sym, strike, exp, iv, primitives.Zero(), spot, r, q)
	if !errors.Is(err, options.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestNewOptionRejectsZeroVolatility(t *testing.T) {
	side, style, sym, strike, exp, _, qty, spot, r, q := validOptionArgs()
	_, err := options.NewOption(side, style, sym, strike, exp, primitives.Zero(), qty, spot, r, q)
	if !errors.Is(err, options.ErrInvalidVolatility) {
		t.Fatalf("expected ErrInvalidVolatility, got %v", err)
	}
}

func TestNewOptionRejectsInvalidSide(t *testing.T) {
	_, style, sym, strike, exp, iv, qty, spot, r, q := validOptionArgs()
	_, err := options.NewOption("Sideways", style, sym, strike, exp, iv, qty, spot, r, q)
	if !errors.Is(err, options.ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestSideSign(t *testing.T) {
	if options.Long.Sign() != 1 {
		t.Error("Long.Sign() should be 1")
	}
	if options.Short.Sign() != -1 {
		t.Error("Short.Sign() should be -1")
	}
}

func TestWithSettersReturnCopies(t *testing.T) {
	side, style, sym, strike, exp, iv, qty, spot, r, q := validOptionArgs()
	opt, err := options.NewOption(side, style, sym, strike, exp, iv, qty, spot, r, q)
	if err != nil {
		t.Fatalf("NewOption: %v", err)
	}
	repriced := opt.WithUnderlyingPrice(primitives.Must(120))
	if opt.UnderlyingPrice().ToFloat64() != 100 {
		t.Error("original option mutated by WithUnderlyingPrice")
	}
	if repriced.UnderlyingPrice().ToFloat64() != 120 {
		t.Error("repriced copy did not take the new underlying price")
	}
}

func TestIntrinsicCallAndPut(t *testing.T) {
	side, _, sym, strike, exp, iv, qty, spot, r, q := validOptionArgs()
	call, _ := options.NewOption(side, options.Call, sym, strike, exp, iv, qty, spot, r, q)
	put, _ := options.NewOption(side, options.Put, sym, strike, exp, iv, qty, spot, r, q)

	itm := primitives.Must(110)
	otm := primitives.Must(90)

	if v := call.Intrinsic(itm); !v.Equal(primitives.Must(10)) {
		t.Errorf("call intrinsic at 110 (K=100): got %s", v)
	}
	if v := call.Intrinsic(otm); !v.IsZero() {
		t.Errorf("call intrinsic at 90 (K=100): got %s, want 0", v)
	}
	if v := put.Intrinsic(otm); !v.Equal(primitives.Must(10)) {
		t.Errorf("put intrinsic at 90 (K=100): got %s", v)
	}
	if v := put.Intrinsic(itm); !v.IsZero() {
		t.Errorf("put intrinsic at 110 (K=100): got %s, want 0", v)
	}
}
