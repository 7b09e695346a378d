/*
Package calendar provides the date arithmetic the coverage engine depends on.

PURPOSE:
  The policy contract is written in terms of month anniversaries of the
  effective date ("within six months", "the seventh month", "one year term").
  This package owns that arithmetic: a day-granularity Date value, month
  anniversaries with end-of-month clipping, and a three-way ordering.

ANNIVERSARY SEMANTICS:
  Anniversary(d, n) is the date n calendar months after d. When the source
  day does not exist in the target month, the day is clipped to the last
  valid day of that month:

    Anniversary(2023-01-31, 1) = 2023-02-28
    Anniversary(2024-01-31, 1) = 2024-02-29
    Anniversary(2023-08-31, 6) = 2024-02-29

  Note this differs from time.AddDate, which rolls the overflow into the
  next month (Jan 31 + 1 month = Mar 3). Contract deadlines never roll
  forward into a later month.

SEE ALSO:
  - coverage/activity.go: wellness and term deadlines built on Anniversary
  - coverage/evaluate.go: claim-timing windows built on AddDays/Anniversary
*/
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned for malformed or out-of-range calendar input.
var ErrInvalidDate = errors.New("invalid calendar date")

// InvalidDateError carries the rejected input.
type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid calendar date: %s", e.Input)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// =============================================================================
// DATE - Day-granularity calendar value
// =============================================================================

// Date is a calendar day in UTC. The zero value is "no date" (see IsZero),
// used for optional facts such as a wellness visit not yet recorded.
type Date struct {
	Time time.Time
}

// NewDate builds a Date, rejecting days that do not exist in the given month
// (e.g. February 30).
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, &InvalidDateError{Input: fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)}
	}
	return Date{Time: t}, nil
}

// MustDate is NewDate for static dates; panics on invalid input.
func MustDate(year int, month time.Month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse reads a Date from ISO "2006-01-02" form.
func Parse(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return Date{}, &InvalidDateError{Input: s}
	}
	return Date{Time: t}, nil
}

func (d Date) IsZero() bool   { return d.Time.IsZero() }
func (d Date) String() string { return d.Time.Format("2006-01-02") }

func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// ORDERING
// =============================================================================

// Ordering is the result of comparing two dates.
type Ordering int

const (
	Before Ordering = iota - 1
	Same
	After
)

func (o Ordering) String() string {
	switch o {
	case Before:
		return "before"
	case Same:
		return "same"
	default:
		return "after"
	}
}

// Compare orders a relative to b at day granularity.
func Compare(a, b Date) Ordering {
	at, bt := a.normalize(), b.normalize()
	switch {
	case at.Before(bt):
		return Before
	case at.After(bt):
		return After
	default:
		return Same
	}
}

func (d Date) Before(other Date) bool        { return Compare(d, other) == Before }
func (d Date) Equal(other Date) bool         { return Compare(d, other) == Same }
func (d Date) After(other Date) bool         { return Compare(d, other) == After }
func (d Date) BeforeOrEqual(other Date) bool { return Compare(d, other) != After }
func (d Date) AfterOrEqual(other Date) bool  { return Compare(d, other) != Before }

// =============================================================================
// ARITHMETIC
// =============================================================================

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.normalize().AddDate(0, 0, n)}
}

// Anniversary returns the date n months after d, clipping the day to the
// last valid day of the target month. Total for n >= 0.
func Anniversary(d Date, n int) Date {
	year, month, day := d.Year(), d.Month(), d.Day()

	totalMonths := int(month) - 1 + n
	targetYear := year + totalMonths/12
	targetMonth := time.Month(totalMonths%12 + 1)

	if last := daysIn(targetYear, targetMonth); day > last {
		day = last
	}
	return Date{Time: time.Date(targetYear, targetMonth, day, 0, 0, 0, 0, time.UTC)}
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetween returns the whole days from one date to another (negative when
// to precedes from).
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}
