package primitives

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDuration indicates an invalid duration value
	ErrInvalidDuration = errors.New("invalid duration")
)

// Time wraps time.Time for temporal operations in the framework.
// Provides a consistent interface for time-based calculations.
type Time struct {
	value time.Time
}

// NewTime creates a Time from a time.Time value.
func NewTime(t time.Time) Time {
	return Time{value: t}
}

// Now returns the current time.
func Now() Time {
	return Time{value: time.Now()}
}

// Unix creates a Time from Unix timestamp (seconds since epoch).
func Unix(sec int64, nsec int64) Time {
	return Time{value: time.Unix(sec, nsec)}
}

// Add returns the time t+d.
func (t Time) Add(d Duration) Time {
	return Time{value: t.value.Add(d.value)}
}

// Sub returns the duration t-u.
func (t Time) Sub(u Time) Duration {
	return Duration{value: t.value.Sub(u.value)}
}

// Before reports whether the time instant t is before u.
func (t Time) Before(u Time) bool {
	return t.value.Before(u.value)
}

// After reports whether the time instant t is after u.
func (t Time) After(u Time) bool {
	return t.value.After(u.value)
}

// Equal reports whether t and u represent the same time instant.
func (t Time) Equal(u Time) bool {
	return t.value.Equal(u.value)
}

// Unix returns t as a Unix time, the number of seconds elapsed
// since January 1, 1970 UTC.
func (t Time) Unix() int64 {
	return t.value.Unix()
}

// UnixNano returns t as a Unix time, the number of nanoseconds elapsed
// since January 1, 1970 UTC.
func (t Time) UnixNano() int64 {
	return t.value.UnixNano()
}

// String returns the string representation of the Time.
func (t Time) String() string {
	return t.value.String()
}

// Format returns a textual representation of the time value formatted
// according to the layout defined by the argument.
func (t Time) Format(layout string) string {
	return t.value.Format(layout)
}

// Time returns the underlying time.Time value.
func (t Time) Time() time.Time {
	return t.value
}

// MarshalJSON encodes the Time in RFC3339 form.
func (t Time) MarshalJSON() ([]byte, error) { return json.Marshal(t.value) }

// UnmarshalJSON decodes an RFC3339 timestamp.
func (t *Time) UnmarshalJSON(data []byte) error { return json.Unmarshal(data, &t.value) }

// Duration wraps time.Duration for temporal durations in the framework.
type Duration struct {
	value time.Duration
}

// NewDuration creates a Duration from a time.Duration value.
func NewDuration(d time.Duration) Duration {
	return Duration{value: d}
}

// Seconds creates a Duration from seconds.
func Seconds(sec int64) Duration {
	return Duration{value: time.Duration(sec) * time.Second}
}

// Minutes creates a Duration from minutes.
func Minutes(min int64) Duration {
	return Duration{value: time.Duration(min) * time.Minute}
}

// Hours creates a Duration from hours.
func Hours(hr int64) Duration {
	return Duration{value: time.Duration(hr) * time.Hour}
}

// Days creates a Duration from days (24-hour periods).
func Days(days int64) Duration {
	return Duration{value: time.Duration(days) * 24 * time.Hour}
}

// Add returns the duration d+other.
func (d Duration) Add(other Duration) Duration {
	return Duration{value: d.value + other.value}
}

// Sub returns the duration d-other.
func (d Duration) Sub(other Duration) Duration {
	return Duration{value: d.value - other.value}
}

// Mul returns the duration d*factor.
func (d Duration) Mul(factor int64) Duration {
	return Duration{value: d.value * time.Duration(factor)}
}

// Div returns the duration d/divisor.
// Returns error if dividing by zero.
func (d Duration) Div(divisor int64) (Duration, error) {
	if divisor == 0 {
		return Duration{}, ErrDivisionByZero
	}
	return Duration{value: d.value / time.Duration(divisor)}, nil
}

// IsZero reports whether d represents the zero duration.
func (d Duration) IsZero() bool {
	return d.value == 0
}

// Abs returns the absolute value of d.
func (d Duration) Abs() Duration {
	if d.value < 0 {
		return Duration{value: -d.value}
	}
	return d
}

// Seconds returns the duration as a floating point number of seconds.
func (d Duration) Seconds() float64 {
	return d.value.Seconds()
}

// Minutes returns the duration as a floating point number of minutes.
func (d Duration) Minutes() float64 {
	return d.value.Minutes()
}

// Hours returns the duration as a floating point number of hours.
func (d Duration) Hours() float64 {
	return d.value.Hours()
}

// String returns the string representation of the Duration.
func (d Duration) String() string {
	return d.value.String()
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return d.value
}

// GreaterThan returns true if d > other.
func (d Duration) GreaterThan(other Duration) bool {
	return d.value > other.value
}

// LessThan returns true if d < other.
func (d Duration) LessThan(other Duration) bool {
	return d.value < other.value
}

// Equal returns true if d == other.
func (d Duration) Equal(other Duration) bool {
	return d.value == other.value
}

// FractionalDays creates a Duration from a (possibly fractional) number of
// days, used where Days(int64) is too coarse (ExpirationDate arithmetic).
func FractionalDays(days float64) Duration {
	return Duration{value: time.Duration(days * 24 * float64(time.Hour))}
}

// TimeFrame is the unit of one step in a price-path walk.
type TimeFrame int

const (
	Microsecond TimeFrame = iota
	Millisecond
	TFSecond
	TFMinute
	TFHour
	TFDay
	TFWeek
	TFMonth
	TFYear
)

// durationOf returns the time.Duration equivalent to one unit of tf.
// Month is 30 days and Year 365 days; Year matches the annualization
// elsewhere in the library (ExpirationDate.ToYearFraction).
func (tf TimeFrame) durationOf() time.Duration {
	switch tf {
	case Microsecond:
		return time.Microsecond
	case Millisecond:
		return time.Millisecond
	case TFSecond:
		return time.Second
	case TFMinute:
		return time.Minute
	case TFHour:
		return time.Hour
	case TFDay:
		return 24 * time.Hour
	case TFWeek:
		return 7 * 24 * time.Hour
	case TFMonth:
		return 30 * 24 * time.Hour
	case TFYear:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (tf TimeFrame) String() string {
	switch tf {
	case Microsecond:
		return "Microsecond"
	case Millisecond:
		return "Millisecond"
	case TFSecond:
		return "Second"
	case TFMinute:
		return "Minute"
	case TFHour:
		return "Hour"
	case TFDay:
		return "Day"
	case TFWeek:
		return "Week"
	case TFMonth:
		return "Month"
	case TFYear:
		return "Year"
	default:
		return "Unknown"
	}
}

// AnnualFraction returns how much of a year one unit of tf represents,
// used to rescale a sample volatility measured on this timeframe to an
// annualized figure.
func (tf TimeFrame) AnnualFraction() float64 {
	return tf.durationOf().Hours() / (365 * 24)
}

// ExpirationDate is either an absolute instant or a non-negative number of
// days until expiration (fractional allowed).
type ExpirationDate struct {
	instant *Time
	days    *Positive
}

// NewExpirationInstant builds an ExpirationDate anchored to an absolute
// instant.
func NewExpirationInstant(t Time) ExpirationDate {
	return ExpirationDate{instant: &t}
}

// NewExpirationDays builds an ExpirationDate from a non-negative number of
// days.
func NewExpirationDays(days Positive) ExpirationDate {
	return ExpirationDate{days: &days}
}

// IsDays reports whether this ExpirationDate was constructed from a days
// count rather than an absolute instant.
func (e ExpirationDate) IsDays() bool { return e.days != nil }

// ToYearFraction returns T, the time to expiry expressed in years. For an
// absolute instant, it is measured against the provided reference time.
func (e ExpirationDate) ToYearFraction(reference Time) float64 {
	if e.days != nil {
		return e.days.ToFloat64() / 365.0
	}
	if e.instant != nil {
		d := e.instant.Sub(reference)
		return d.Hours() / (365 * 24)
	}
	return 0
}

// Days returns the remaining days, measured against reference when this
// ExpirationDate is instant-based.
func (e ExpirationDate) Days(reference Time) Positive {
	if e.days != nil {
		return *e.days
	}
	if e.instant != nil {
		d := e.instant.Sub(reference)
		days := d.Hours() / 24
		if days < 0 {
			days = 0
		}
		return Must(days)
	}
	return Zero()
}

// Datetime returns the absolute instant this ExpirationDate resolves to,
// given a reference "now" for days-based values.
func (e ExpirationDate) Datetime(reference Time) Time {
	if e.instant != nil {
		return *e.instant
	}
	if e.days != nil {
		return reference.Add(FractionalDays(e.days.ToFloat64()))
	}
	return reference
}

// Next advances the expiration by one unit of tf. For a days-based
// expiration the day count is decremented by the timeframe's fraction of
// a day; for instant-based expirations the anchor instant is unaffected
// (the remaining time-to-expiry shrinks implicitly as the reference "now"
// advances).
func (e ExpirationDate) Next(tf TimeFrame) (ExpirationDate, error) {
	if e.days != nil {
		stepDays := tf.durationOf().Hours() / 24
		remaining := e.days.ToFloat64() - stepDays
		if remaining < 0 {
			return ExpirationDate{}, fmt.Errorf("expiration would go negative")
		}
		days := Must(remaining)
		return ExpirationDate{days: &days}, nil
	}
	return e, nil
}

// Previous rewinds the expiration by one unit of tf, the inverse of Next.
func (e ExpirationDate) Previous(tf TimeFrame) (ExpirationDate, error) {
	if e.days != nil {
		stepDays := tf.durationOf().Hours() / 24
		days := Must(e.days.ToFloat64() + stepDays)
		return ExpirationDate{days: &days}, nil
	}
	return e, nil
}

func (e ExpirationDate) String() string {
	if e.days != nil {
		return fmt.Sprintf("%s days", e.days.String())
	}
	if e.instant != nil {
		return e.instant.String()
	}
	return "unset"
}

// MarshalJSON encodes an ExpirationDate as {"days": n} or an ISO-8601
// string.
func (e ExpirationDate) MarshalJSON() ([]byte, error) {
	if e.days != nil {
		return json.Marshal(struct {
			Days Positive `json:"days"`
		}{Days: *e.days})
	}
	if e.instant != nil {
		return json.Marshal(e.instant.value)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes either shape.
func (e *ExpirationDate) UnmarshalJSON(data []byte) error {
	var daysForm struct {
		Days *Positive `json:"days"`
	}
	if err := json.Unmarshal(data, &daysForm); err == nil && daysForm.Days != nil {
		e.days = daysForm.Days
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("expiration_date: %w", err)
	}
	tt := NewTime(t)
	e.instant = &tt
	return nil
}
