package hankosign

import "testing"

func TestParseVerb(t *testing.T) {
	if v, ok := ParseVerb(" approve "); !ok || v != VerbApprove {
		t.Fatalf("ParseVerb(approve) = %q, %v", v, ok)
	}
	if _, ok := ParseVerb("FROB"); ok {
		t.Fatal("unknown verb accepted")
	}
}

func TestActionCodeRoundTrip(t *testing.T) {
	cases := []struct {
		key  ActionKey
		code string
	}{
		{ActionKey{Verb: VerbApprove, Stage: "WIREF", Scope: "finances.paymentplan"}, "APPROVE:WIREF@finances.paymentplan"},
		{ActionKey{Verb: VerbSubmit, Stage: "", Scope: "employees.timesheet"}, "SUBMIT:-@employees.timesheet"},
	}
	for _, c := range cases {
		if got := c.key.Code(); got != c.code {
			t.Errorf("Code() = %q, want %q", got, c.code)
		}
		parsed, err := ParseActionCode(c.code)
		if err != nil {
			t.Errorf("ParseActionCode(%q): %v", c.code, err)
			continue
		}
		if parsed != c.key {
			t.Errorf("ParseActionCode(%q) = %+v, want %+v", c.code, parsed, c.key)
		}
	}
}

func TestParseActionCodeNormalizes(t *testing.T) {
	key, err := ParseActionCode("approve:wiref@Finances.PaymentPlan")
	if err != nil {
		t.Fatalf("ParseActionCode: %v", err)
	}
	want := ActionKey{Verb: VerbApprove, Stage: "WIREF", Scope: "finances.paymentplan"}
	if key != want {
		t.Fatalf("got %+v, want %+v", key, want)
	}
}

func TestParseActionCodeErrors(t *testing.T) {
	for _, code := range []string{
		"",
		"APPROVE",
		"APPROVE@scope",
		"APPROVE:WIREF",
		"FROB:-@scope",
		"APPROVE:-@",
	} {
		if _, err := ParseActionCode(code); err == nil {
			t.Errorf("ParseActionCode(%q) accepted", code)
		}
	}
}
