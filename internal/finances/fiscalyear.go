package finances

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("finances: not found")
	ErrInvalidInput = errors.New("finances: invalid input")
	ErrLocked       = errors.New("finances: fiscal year is locked")
)

// FiscalYear is an accounting period, by convention 1 July to 30 June.
// Locked years are read-only for plan edits.
type FiscalYear struct {
	ID        string
	Code      string
	Label     string
	Start     time.Time
	End       time.Time
	Active    bool
	Locked    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AutoEnd returns one year minus one day after start, safe across leap years.
func AutoEnd(start time.Time) time.Time {
	next := start.AddDate(1, 0, 0)
	return next.AddDate(0, 0, -1)
}

// FiscalYearCode renders the stored German-style code, e.g. WJ24_25.
func FiscalYearCode(start, end time.Time) string {
	return fmt.Sprintf("WJ%02d_%02d", start.Year()%100, end.Year()%100)
}

// NewFiscalYear fills End and Code when absent and validates date order.
func NewFiscalYear(start, end time.Time, label string) (*FiscalYear, error) {
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start is required", ErrInvalidInput)
	}
	if end.IsZero() {
		end = AutoEnd(start)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	return &FiscalYear{
		Code:  FiscalYearCode(start, end),
		Label: label,
		Start: start,
		End:   end,
	}, nil
}

// Contains reports whether the date falls inside the year (inclusive).
func (fy *FiscalYear) Contains(d time.Time) bool {
	return !d.Before(fy.Start) && !d.After(fy.End)
}
