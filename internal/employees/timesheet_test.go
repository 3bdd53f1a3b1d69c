package employees

import (
	"testing"
	"time"

	"hankosign.org/internal/hankosign"
)

func TestExpectedMinutes(t *testing.T) {
	e := &Employee{ID: "e1", WeeklyMinutes: 20 * 60} // 20 h/week, 240 min/day

	// January 2025 has 23 weekdays.
	if got := ExpectedMinutes(e, 2025, time.January, nil); got != 23*240 {
		t.Fatalf("ExpectedMinutes = %d, want %d", got, 23*240)
	}

	// New Year's Day and Epiphany fall on weekdays in January 2025.
	hols := map[time.Time]bool{
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC): true,
		time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC): true,
	}
	if got := ExpectedMinutes(e, 2025, time.January, hols); got != 21*240 {
		t.Fatalf("ExpectedMinutes with holidays = %d, want %d", got, 21*240)
	}

	if got := ExpectedMinutes(&Employee{}, 2025, time.January, nil); got != 0 {
		t.Fatalf("zero commitment should expect 0, got %d", got)
	}
}

func TestNewTimeSheetSnapshotsSaldo(t *testing.T) {
	e := &Employee{ID: "e1", WeeklyMinutes: 20 * 60, SaldoMinutes: 90}
	ts, err := NewTimeSheet(e, 2025, time.January, nil)
	if err != nil {
		t.Fatalf("NewTimeSheet: %v", err)
	}
	if ts.OpeningSaldoMinutes != 90 {
		t.Fatalf("opening saldo = %d", ts.OpeningSaldoMinutes)
	}
	if ts.ClosingSaldoMinutes != 90-ts.ExpectedMinutes {
		t.Fatalf("closing saldo = %d", ts.ClosingSaldoMinutes)
	}

	if _, err := NewTimeSheet(e, 2025, 13, nil); err == nil {
		t.Fatal("month 13 should be rejected")
	}
}

func TestRecompute(t *testing.T) {
	ts := &TimeSheet{OpeningSaldoMinutes: 60, ExpectedMinutes: 4800}
	ts.Recompute([]*TimeEntry{
		{Kind: EntryWork, Minutes: 3000},
		{Kind: EntryWork, Minutes: 1200},
		{Kind: EntryLeave, Minutes: 480},
		{Kind: EntrySick, Minutes: 240},
		{Kind: EntryOther, Minutes: 999},
	})
	if ts.WorkedMinutes != 4200 {
		t.Fatalf("worked = %d", ts.WorkedMinutes)
	}
	if ts.CreditMinutes != 720 {
		t.Fatalf("credit = %d", ts.CreditMinutes)
	}
	if want := 60 + 4200 + 720 - 4800; ts.ClosingSaldoMinutes != want {
		t.Fatalf("closing = %d, want %d", ts.ClosingSaldoMinutes, want)
	}
}

func TestMinutesToHHMM(t *testing.T) {
	cases := map[int]string{
		0:    "0:00",
		75:   "1:15",
		-90:  "-1:30",
		1440: "24:00",
	}
	for in, want := range cases {
		if got := MinutesToHHMM(in); got != want {
			t.Errorf("MinutesToHHMM(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSheetStatusReducer(t *testing.T) {
	required := []string{"WIREF", "CHAIR"}
	base := time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)
	sig := func(verb hankosign.Verb, stage string, offset time.Duration) *hankosign.Signature {
		return &hankosign.Signature{Verb: verb, Stage: stage, At: base.Add(offset)}
	}

	var sigs []*hankosign.Signature
	status := func() string { return SheetStatus(hankosign.BuildSnapshot(sigs, required)) }

	if status() != SheetDraft {
		t.Fatalf("empty history: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbSubmit, "", 0))
	if status() != SheetSubmitted {
		t.Fatalf("after submit: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbApprove, "WIREF", time.Hour))
	if status() != SheetApprovedWiref {
		t.Fatalf("after first tier: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbApprove, "CHAIR", 2*time.Hour))
	if status() != SheetApproved {
		t.Fatalf("after second tier: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbReject, "", 3*time.Hour))
	if status() != SheetRejected {
		t.Fatalf("after reject: %s", status())
	}
}

func TestEditableFollowsLock(t *testing.T) {
	if !Editable(hankosign.BuildSnapshot(nil, nil)) {
		t.Fatal("fresh sheet should be editable")
	}
	snap := hankosign.BuildSnapshot([]*hankosign.Signature{
		{Verb: hankosign.VerbSubmit, At: time.Now()},
	}, nil)
	if Editable(snap) {
		t.Fatal("submitted sheet should be locked")
	}
}
