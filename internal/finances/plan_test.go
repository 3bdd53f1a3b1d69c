package finances

import (
	"errors"
	"testing"
	"time"

	"hankosign.org/internal/hankosign"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testYear(t *testing.T) *FiscalYear {
	t.Helper()
	fy, err := NewFiscalYear(day(2024, time.July, 1), time.Time{}, "")
	if err != nil {
		t.Fatalf("NewFiscalYear: %v", err)
	}
	fy.ID = "fy1"
	return fy
}

func TestFiscalYearCodeAndAutoEnd(t *testing.T) {
	fy := testYear(t)
	if fy.Code != "WJ24_25" {
		t.Fatalf("code = %q, want WJ24_25", fy.Code)
	}
	if !fy.End.Equal(day(2025, time.June, 30)) {
		t.Fatalf("auto end = %v, want 2025-06-30", fy.End)
	}
	if !fy.Contains(day(2025, time.January, 15)) {
		t.Fatal("mid-year date should be contained")
	}
	if fy.Contains(day(2025, time.July, 1)) {
		t.Fatal("day after end should not be contained")
	}

	leap, err := NewFiscalYear(day(2024, time.February, 29), time.Time{}, "")
	if err != nil {
		t.Fatalf("NewFiscalYear leap: %v", err)
	}
	if leap.End.Before(day(2025, time.February, 27)) {
		t.Fatalf("leap-day auto end unexpectedly early: %v", leap.End)
	}
}

func TestNextPlanCode(t *testing.T) {
	if got := NextPlanCode("WJ24_25", 0); got != "WJ24_25-00001" {
		t.Fatalf("got %q", got)
	}
	if got := NextPlanCode("WJ24_25", 41); got != "WJ24_25-00042" {
		t.Fatalf("got %q", got)
	}
}

func TestIBANValidation(t *testing.T) {
	fy := testYear(t)
	plan := func(iban string) *PaymentPlan {
		return &PaymentPlan{PersonRoleID: "pr1", FiscalYearID: fy.ID, MonthlyAmount: 50000, IBAN: iban}
	}

	if err := plan("AT026000000001349870").Validate(fy); err != nil {
		t.Fatalf("valid IBAN rejected: %v", err)
	}
	if err := plan("AT036000000001349870").Validate(fy); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad checksum accepted: %v", err)
	}
	if err := plan("XX").Validate(fy); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("malformed IBAN accepted: %v", err)
	}

	p := plan("at02 6000 0000 0134 9870")
	if err := p.Validate(fy); err != nil {
		t.Fatalf("spaced lowercase IBAN rejected: %v", err)
	}
	if p.IBAN != "AT026000000001349870" {
		t.Fatalf("IBAN not normalized: %q", p.IBAN)
	}
}

func TestMaskIBAN(t *testing.T) {
	got := MaskIBAN("AT026000000001349870")
	if got != "AT0260**********9870" {
		t.Fatalf("got %q", got)
	}
}

func TestValidateForSubmit(t *testing.T) {
	fy := testYear(t)
	p := &PaymentPlan{PersonRoleID: "pr1", FiscalYearID: fy.ID, MonthlyAmount: 50000}
	if err := p.Validate(fy); err != nil {
		t.Fatalf("draft validation should pass: %v", err)
	}
	if err := p.ValidateForSubmit(fy); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("submit validation should demand banking fields, got %v", err)
	}

	p.PayeeName = "Sven Varszegi"
	p.Address = "Teststrasse 1, 4040 Linz"
	p.Reference = "Funktionsgebuehr"
	p.CostCenter = "101"
	p.IBAN = "AT026000000001349870"
	p.BIC = "BAWAATWW"
	if err := p.ValidateForSubmit(fy); err != nil {
		t.Fatalf("complete plan rejected: %v", err)
	}
}

func TestResolvedWindowClampsAndNormalizes(t *testing.T) {
	fy := testYear(t)

	// No overrides: full fiscal year.
	p := &PaymentPlan{FiscalYearID: fy.ID}
	start, end := p.ResolvedWindow(fy)
	if !start.Equal(fy.Start) || !end.Equal(fy.End) {
		t.Fatalf("default window = %v..%v", start, end)
	}

	// End on the 1st reads as previous day.
	p = &PaymentPlan{PayStart: day(2024, time.October, 1), PayEnd: day(2025, time.May, 1)}
	_, end = p.ResolvedWindow(fy)
	if !end.Equal(day(2025, time.April, 30)) {
		t.Fatalf("end = %v, want 2025-04-30", end)
	}

	// Overrides outside the year clamp to it.
	p = &PaymentPlan{PayStart: day(2024, time.January, 1), PayEnd: day(2026, time.January, 15)}
	start, end = p.ResolvedWindow(fy)
	if !start.Equal(fy.Start) || !end.Equal(fy.End) {
		t.Fatalf("clamped window = %v..%v", start, end)
	}
}

func TestMonthsBreakdownAndRecommendedTotal(t *testing.T) {
	fy := testYear(t)

	// Full year: 12 whole months.
	p := &PaymentPlan{MonthlyAmount: 50000}
	shares := p.MonthsBreakdown(fy)
	if len(shares) != 12 {
		t.Fatalf("len(shares) = %d, want 12", len(shares))
	}
	if shares[0].Year != 2024 || shares[0].Month != time.July || shares[0].Days != 31 {
		t.Fatalf("first share = %+v", shares[0])
	}

	// Mid-month start: 16 days of January.
	p = &PaymentPlan{MonthlyAmount: 30000, PayStart: day(2025, time.January, 16), PayEnd: day(2025, time.January, 31)}
	shares = p.MonthsBreakdown(fy)
	if len(shares) != 1 {
		t.Fatalf("len(shares) = %d, want 1", len(shares))
	}
	if shares[0].Days != 16 || shares[0].MonthDays != 31 {
		t.Fatalf("share = %+v", shares[0])
	}
	// 300.00 * 16/30 = 160.00
	if got := p.RecommendedTotal(fy); got != 16000 {
		t.Fatalf("RecommendedTotal = %d, want 16000", got)
	}

	// Override wins.
	override := int64(12345)
	p.TotalOverride = &override
	if got := p.EffectiveTotal(fy); got != 12345 {
		t.Fatalf("EffectiveTotal = %d, want override", got)
	}
}

func TestPlanStatusReducer(t *testing.T) {
	required := []string{"WIREF", "CHAIR"}
	at := day(2024, time.August, 1)
	now := day(2024, time.December, 1)
	payEnd := day(2025, time.June, 30)

	sig := func(verb hankosign.Verb, stage string, offset time.Duration) *hankosign.Signature {
		return &hankosign.Signature{Verb: verb, Stage: stage, At: at.Add(offset)}
	}

	var sigs []*hankosign.Signature
	status := func() string {
		return PlanStatus(hankosign.BuildSnapshot(sigs, required), payEnd, now)
	}

	if status() != PlanDraft {
		t.Fatalf("no signatures: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbSubmit, "WIREF", 0))
	if status() != PlanPending {
		t.Fatalf("after submit: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbWithdraw, "WIREF", time.Hour))
	if status() != PlanDraft {
		t.Fatalf("after withdraw: %s", status())
	}

	sigs = append(sigs,
		sig(hankosign.VerbSubmit, "WIREF", 2*time.Hour),
		sig(hankosign.VerbApprove, "WIREF", 3*time.Hour),
	)
	if status() != PlanPending {
		t.Fatalf("one approval: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbApprove, "CHAIR", 4*time.Hour))
	if status() != PlanPending {
		t.Fatalf("approved without verify: %s", status())
	}

	sigs = append(sigs, sig(hankosign.VerbVerify, "WIREF", 5*time.Hour))
	if status() != PlanActive {
		t.Fatalf("fully approved and verified: %s", status())
	}

	// Past the window end the same snapshot reads finished.
	late := day(2025, time.August, 1)
	if got := PlanStatus(hankosign.BuildSnapshot(sigs, required), payEnd, late); got != PlanFinished {
		t.Fatalf("past window end: %s", got)
	}

	// Rejection is terminal regardless of approvals.
	sigs = append(sigs, sig(hankosign.VerbReject, "", 6*time.Hour))
	if status() != PlanCancelled {
		t.Fatalf("after reject: %s", status())
	}
}

func TestPlanEditable(t *testing.T) {
	fy := testYear(t)
	snap := hankosign.BuildSnapshot(nil, []string{"WIREF"})
	if !PlanEditable(snap, fy) {
		t.Fatal("draft plan should be editable")
	}

	locked := hankosign.BuildSnapshot([]*hankosign.Signature{
		{Verb: hankosign.VerbSubmit, At: day(2024, time.August, 1)},
	}, []string{"WIREF"})
	if PlanEditable(locked, fy) {
		t.Fatal("submitted plan should be read-only")
	}

	fy.Locked = true
	if PlanEditable(snap, fy) {
		t.Fatal("locked fiscal year should freeze plans")
	}
}
