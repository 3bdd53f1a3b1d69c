package assembly

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("assembly: not found")
	ErrInvalidInput = errors.New("assembly: invalid input")
)

// SessionTypeKey is the hankosign scope under which sessions sign.
const SessionTypeKey = "assembly.session"

// Session kinds, regular and extraordinary.
const (
	SessionRegular       = "or"
	SessionExtraordinary = "ao"
)

// Term is a legislative period, usually two years.
type Term struct {
	ID        string
	Code      string
	Label     string
	Start     time.Time
	End       time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TermCode renders the stored code, e.g. HV25_27.
func TermCode(start, end time.Time) string {
	return fmt.Sprintf("HV%02d_%02d", start.Year()%100, end.Year()%100)
}

// NewTerm fills End (+2 years) and Code when absent and validates order.
func NewTerm(start, end time.Time, label string) (*Term, error) {
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start is required", ErrInvalidInput)
	}
	if end.IsZero() {
		end = start.AddDate(2, 0, 0)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end precedes start", ErrInvalidInput)
	}
	return &Term{Code: TermCode(start, end), Label: label, Start: start, End: end}, nil
}

// Contains reports whether the date falls inside the term (inclusive).
func (t *Term) Contains(d time.Time) bool {
	return !d.Before(t.Start) && !d.After(t.End)
}

// Session is one assembly meeting. The code carries the term code, the
// roman session ordinal and the session type, e.g. HV25_27_II:or.
type Session struct {
	ID        string
	TermID    string
	Code      string
	Type      string
	Date      time.Time
	Location  string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TypeKey implements hankosign.Target.
func (s *Session) TypeKey() string { return SessionTypeKey }

// PrimaryKey implements hankosign.Target.
func (s *Session) PrimaryKey() string { return s.ID }

// NewSession numbers the session within its term. ordinal is the 1-based
// count of sessions in the term including this one.
func NewSession(term *Term, ordinal int, kind string, date time.Time) (*Session, error) {
	if kind != SessionRegular && kind != SessionExtraordinary {
		return nil, fmt.Errorf("%w: unknown session type %q", ErrInvalidInput, kind)
	}
	if !term.Contains(date) {
		return nil, fmt.Errorf("%w: session date outside term %s", ErrInvalidInput, term.Code)
	}
	roman, err := Roman(ordinal)
	if err != nil {
		return nil, err
	}
	return &Session{
		TermID: term.ID,
		Code:   fmt.Sprintf("%s_%s:%s", term.Code, roman, kind),
		Type:   kind,
		Date:   date,
	}, nil
}

var romanVals = []struct {
	v int
	s string
}{
	{50, "L"}, {40, "XL"}, {10, "X"}, {9, "IX"},
	{5, "V"}, {4, "IV"}, {1, "I"},
}

// Roman converts 1 through 50 to roman numerals.
func Roman(n int) (string, error) {
	if n < 1 || n > 50 {
		return "", fmt.Errorf("%w: roman numerals supported for 1-50, got %d", ErrInvalidInput, n)
	}
	out := ""
	for _, rv := range romanVals {
		for n >= rv.v {
			out += rv.s
			n -= rv.v
		}
	}
	return out, nil
}
