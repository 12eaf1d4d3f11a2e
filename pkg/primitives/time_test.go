package primitives_test

import (
	"testing"

	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

func TestExpirationDaysYearFraction(t *testing.T) {
	exp := primitives.NewExpirationDays(primitives.Must(365))
	if yf := exp.ToYearFraction(primitives.Now()); yf < 0.999 || yf > 1.001 {
		t.Errorf("expected ~1 year, got %v", yf)
	}
}

func TestExpirationDaysNextDecrementsByTimeframe(t *testing.T) {
	exp := primitives.NewExpirationDays(primitives.Must(30))
	next, err := exp.Next(primitives.TFDay)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := next.Days(primitives.Time{}); !got.Equal(primitives.Must(29)) {
		t.Errorf("expected 29 days remaining, got %s", got)
	}
}

func TestExpirationNextFailsWhenNegative(t *testing.T) {
	exp := primitives.NewExpirationDays(primitives.Must(0.5))
	if _, err := exp.Next(primitives.TFDay); err == nil {
		t.Fatal("expected error advancing past zero days remaining")
	}
}

func TestExpirationPreviousIsInverseOfNext(t *testing.T) {
	exp := primitives.NewExpirationDays(primitives.Must(30))
	next, err := exp.Next(primitives.TFDay)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	back, err := next.Previous(primitives.TFDay)
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if !back.Days(primitives.Time{}).Equal(exp.Days(primitives.Time{})) {
		t.Errorf("Previous(Next(x)) != x: got %s, want %s",
			back.Days(primitives.Time{}), exp.Days(primitives.Time{}))
	}
}

func TestExpirationInstantYearFraction(t *testing.T) {
	now := primitives.Now()
	future := now.Add(primitives.Days(365))
	exp := primitives.NewExpirationInstant(future)
	if yf := exp.ToYearFraction(now); yf < 0.99 || yf > 1.01 {
		t.Errorf("expected ~1 year, got %v", yf)
	}
}

func TestTimeFrameAnnualFraction(t *testing.T) {
	if af := primitives.TFYear.AnnualFraction(); af < 0.999 || af > 1.001 {
		t.Errorf("expected year fraction ~1, got %v", af)
	}
	if af := primitives.TFDay.AnnualFraction(); af*365 < 0.99 || af*365 > 1.01 {
		t.Errorf("expected day fraction ~1/365, got %v", af)
	}
}

func TestDurationArithmetic(t *testing.T) {
	a := primitives.Days(5)
	b := primitives.Days(3)
	if sum := a.Add(b); sum.Hours() != 192 {
		t.Errorf("expected 192 hours, got %v", sum.Hours())
	}
	diff := a.Sub(b)
	if diff.Hours() != 48 {
		t.Errorf("expected 48 hours, got %v", diff.Hours())
	}
}
