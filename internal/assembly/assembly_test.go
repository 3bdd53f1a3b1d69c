package assembly

import (
	"errors"
	"testing"
	"time"

	"hankosign.org/internal/hankosign"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRoman(t *testing.T) {
	cases := map[int]string{
		1: "I", 4: "IV", 9: "IX", 14: "XIV",
		40: "XL", 49: "XLIX", 50: "L",
	}
	for in, want := range cases {
		got, err := Roman(in)
		if err != nil {
			t.Fatalf("Roman(%d): %v", in, err)
		}
		if got != want {
			t.Errorf("Roman(%d) = %q, want %q", in, got, want)
		}
	}
	if _, err := Roman(0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Roman(0) err = %v", err)
	}
	if _, err := Roman(51); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Roman(51) err = %v", err)
	}
}

func TestNewTerm(t *testing.T) {
	term, err := NewTerm(day(2025, time.July, 1), time.Time{}, "2025-2027")
	if err != nil {
		t.Fatalf("NewTerm: %v", err)
	}
	if term.Code != "HV25_27" {
		t.Fatalf("code = %q", term.Code)
	}
	if !term.End.Equal(day(2027, time.July, 1)) {
		t.Fatalf("auto end = %v", term.End)
	}
	if _, err := NewTerm(day(2025, time.July, 1), day(2024, time.July, 1), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("inverted term err = %v", err)
	}
}

func TestNewSessionCodes(t *testing.T) {
	term, _ := NewTerm(day(2025, time.July, 1), time.Time{}, "")
	term.ID = "t1"

	s, err := NewSession(term, 1, SessionRegular, day(2025, time.October, 10))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Code != "HV25_27_I:or" {
		t.Fatalf("code = %q", s.Code)
	}

	s, err = NewSession(term, 2, SessionExtraordinary, day(2025, time.November, 3))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Code != "HV25_27_II:ao" {
		t.Fatalf("code = %q", s.Code)
	}

	if _, err := NewSession(term, 3, "xx", day(2025, time.November, 3)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad type err = %v", err)
	}
	if _, err := NewSession(term, 3, SessionRegular, day(2030, time.January, 1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("out-of-term date err = %v", err)
	}
}

func TestSessionStatusReducer(t *testing.T) {
	required := []string{"CHAIR"}
	base := day(2025, time.October, 10)
	sig := func(verb hankosign.Verb, stage string, offset time.Duration) *hankosign.Signature {
		return &hankosign.Signature{Verb: verb, Stage: stage, At: base.Add(offset)}
	}

	var sigs []*hankosign.Signature
	status := func() string { return SessionStatus(hankosign.BuildSnapshot(sigs, required)) }

	if status() != SessionDraft {
		t.Fatalf("empty history: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbSubmit, "", 0))
	if status() != SessionSubmitted {
		t.Fatalf("after submit: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbWithdraw, "", time.Hour))
	if status() != SessionDraft {
		t.Fatalf("after withdraw: %s", status())
	}

	sigs = append(sigs,
		sig(hankosign.VerbSubmit, "", 2*time.Hour),
		sig(hankosign.VerbApprove, "CHAIR", 3*time.Hour),
	)
	if status() != SessionApproved {
		t.Fatalf("after chair approval: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbVerify, "CHAIR", 4*time.Hour))
	if status() != SessionVerified {
		t.Fatalf("after verification: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbReject, "", 5*time.Hour))
	if status() != SessionRejected {
		t.Fatalf("after reject: %s", status())
	}
}
