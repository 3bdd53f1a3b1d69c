package employees

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("employees: not found")
	ErrInvalidInput = errors.New("employees: invalid input")
)

// SheetTypeKey is the hankosign scope under which timesheets sign.
const SheetTypeKey = "employees.timesheet"

// Employee is a paid staff member with a weekly hour commitment. The
// running saldo is a minute account: positive is credit, negative deficit.
type Employee struct {
	ID            string
	PersonID      string
	WeeklyMinutes int
	SaldoMinutes  int
	Start         time.Time
	End           time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DailyExpectedMinutes spreads the weekly commitment over a 5-day week.
func (e *Employee) DailyExpectedMinutes() int {
	if e.WeeklyMinutes <= 0 {
		return 0
	}
	return e.WeeklyMinutes / 5
}

// Entry kinds. Work counts toward worked minutes; leave and sick are
// credited.
const (
	EntryWork  = "WORK"
	EntryLeave = "LEAVE"
	EntrySick  = "SICK"
	EntryOther = "OTHER"
)

// TimeEntry is one day's booking on a sheet. Minutes are stored directly,
// no break tracking.
type TimeEntry struct {
	ID        string
	SheetID   string
	Date      time.Time
	Kind      string
	Minutes   int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSheet is one employee's month. The opening saldo is snapshotted at
// creation; aggregates are recomputed from entries. Status is a cache of
// SheetStatus over the signature snapshot.
type TimeSheet struct {
	ID         string
	EmployeeID string
	Year       int
	Month      time.Month

	OpeningSaldoMinutes int
	ExpectedMinutes     int
	WorkedMinutes       int
	CreditMinutes       int
	ClosingSaldoMinutes int

	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TypeKey implements hankosign.Target.
func (t *TimeSheet) TypeKey() string { return SheetTypeKey }

// PrimaryKey implements hankosign.Target.
func (t *TimeSheet) PrimaryKey() string { return t.ID }

// NewTimeSheet snapshots the employee's saldo and the month's expectation.
func NewTimeSheet(e *Employee, year int, month time.Month, holidays map[time.Time]bool) (*TimeSheet, error) {
	if year < 2000 || year > 9999 {
		return nil, fmt.Errorf("%w: year out of range", ErrInvalidInput)
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month out of range", ErrInvalidInput)
	}
	ts := &TimeSheet{
		EmployeeID:          e.ID,
		Year:                year,
		Month:               month,
		OpeningSaldoMinutes: e.SaldoMinutes,
		ExpectedMinutes:     ExpectedMinutes(e, year, month, holidays),
	}
	ts.ClosingSaldoMinutes = ts.OpeningSaldoMinutes - ts.ExpectedMinutes
	return ts, nil
}

// ExpectedMinutes counts Monday to Friday working days of the month, minus
// public holidays, times the daily commitment.
func ExpectedMinutes(e *Employee, year int, month time.Month, holidays map[time.Time]bool) int {
	daily := e.DailyExpectedMinutes()
	if daily <= 0 {
		return 0
	}
	workdays := 0
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Month() == month {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday && !holidays[d] {
			workdays++
		}
		d = d.AddDate(0, 0, 1)
	}
	return workdays * daily
}

// Recompute refreshes worked, credit and closing aggregates from entries.
func (t *TimeSheet) Recompute(entries []*TimeEntry) {
	worked, credit := 0, 0
	for _, e := range entries {
		switch e.Kind {
		case EntryWork:
			worked += e.Minutes
		case EntryLeave, EntrySick:
			credit += e.Minutes
		}
	}
	t.WorkedMinutes = worked
	t.CreditMinutes = credit
	t.ClosingSaldoMinutes = t.OpeningSaldoMinutes + worked + credit - t.ExpectedMinutes
}

// MinutesToHHMM formats a minute count as H:MM, handling negatives.
func MinutesToHHMM(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%d:%02d", sign, minutes/60, minutes%60)
}
