package hankosign

import (
	"reflect"
	"testing"
	"time"
)

var snapBase = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func snapSig(verb Verb, stage string, offset time.Duration) *Signature {
	return &Signature{Verb: verb, Stage: stage, At: snapBase.Add(offset)}
}

func TestBuildSnapshotSubmitWithdrawOrdering(t *testing.T) {
	sigs := []*Signature{
		snapSig(VerbSubmit, "", 0),
		snapSig(VerbWithdraw, "", time.Hour),
	}
	snap := BuildSnapshot(sigs, nil)
	if snap.Submitted {
		t.Fatal("withdraw after submit should clear submitted")
	}
	if snap.Locked {
		t.Fatal("withdrawn target should be unlocked")
	}

	sigs = append(sigs, snapSig(VerbSubmit, "", 2*time.Hour))
	snap = BuildSnapshot(sigs, nil)
	if !snap.Submitted {
		t.Fatal("re-submit after withdraw should set submitted")
	}
	if !snap.Locked {
		t.Fatal("submitted target should be locked")
	}
}

func TestBuildSnapshotLockUnlock(t *testing.T) {
	sigs := []*Signature{snapSig(VerbLock, "", 0)}
	snap := BuildSnapshot(sigs, nil)
	if !snap.ExplicitLocked || !snap.Locked {
		t.Fatal("LOCK should set explicit lock")
	}

	sigs = append(sigs, snapSig(VerbUnlock, "", time.Hour))
	snap = BuildSnapshot(sigs, nil)
	if snap.ExplicitLocked || snap.Locked {
		t.Fatal("UNLOCK after LOCK should release the lock")
	}
}

func TestBuildSnapshotFinalRequiresAllStages(t *testing.T) {
	required := []string{"WIREF", "CHAIR"}
	sigs := []*Signature{
		snapSig(VerbSubmit, "", 0),
		snapSig(VerbApprove, "WIREF", time.Hour),
	}
	snap := BuildSnapshot(sigs, required)
	if snap.Final {
		t.Fatal("one of two required stages should not be final")
	}
	if _, ok := snap.Approved["WIREF"]; !ok {
		t.Fatal("WIREF approval missing from stage set")
	}

	sigs = append(sigs, snapSig(VerbApprove, "CHAIR", 2*time.Hour))
	snap = BuildSnapshot(sigs, required)
	if !snap.Final {
		t.Fatal("all required stages approved should be final")
	}
	if !snap.Locked {
		t.Fatal("final target should be locked")
	}
}

func TestBuildSnapshotEmptyStageApprovalsIgnored(t *testing.T) {
	snap := BuildSnapshot([]*Signature{snapSig(VerbApprove, "", 0)}, []string{"WIREF"})
	if len(snap.Approved) != 0 {
		t.Fatal("stage-less approvals must not enter the stage set")
	}
	if snap.Final {
		t.Fatal("must not be final without the required stage")
	}
}

func TestBuildSnapshotStagelessVerify(t *testing.T) {
	sigs := []*Signature{
		snapSig(VerbSubmit, "", 0),
		snapSig(VerbVerify, "", time.Hour),
	}
	snap := BuildSnapshot(sigs, nil)
	if len(snap.Verified) != 0 {
		t.Fatalf("stage-less verify must not populate stage set: %v", snap.Verified)
	}
	if !snap.VerifiedAny {
		t.Fatal("stage-less verify should set VerifiedAny")
	}

	snap = BuildSnapshot([]*Signature{snapSig(VerbVerify, "BANK", 0)}, nil)
	if _, ok := snap.Verified["BANK"]; !ok {
		t.Fatalf("staged verify missing from stage set: %v", snap.Verified)
	}
	if !snap.VerifiedAny {
		t.Fatal("staged verify should also set VerifiedAny")
	}
}

func TestBuildSnapshotRejectAfterApprove(t *testing.T) {
	sigs := []*Signature{
		snapSig(VerbSubmit, "", 0),
		snapSig(VerbApprove, "WIREF", time.Hour),
		snapSig(VerbApprove, "CHAIR", 2*time.Hour),
		snapSig(VerbReject, "", 3*time.Hour),
	}
	snap := BuildSnapshot(sigs, []string{"WIREF", "CHAIR"})
	if !snap.Rejected || !snap.Final {
		t.Fatal("reject should be terminal")
	}
	if st := StatusOf(snap); st.Code != "rejected" {
		t.Fatalf("status = %q, approvals must not mask rejection", st.Code)
	}
	// The audit trail keeps the approvals.
	if len(snap.Approved) != 2 {
		t.Fatalf("approved set = %v", snap.Approved)
	}
}

func TestBuildSnapshotDeterminism(t *testing.T) {
	sigs := []*Signature{
		snapSig(VerbSubmit, "", 0),
		snapSig(VerbApprove, "WIREF", time.Hour),
		snapSig(VerbVerify, "WIREF", 2*time.Hour),
	}
	required := []string{"WIREF"}
	a := BuildSnapshot(sigs, required)
	b := BuildSnapshot(sigs, required)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("snapshots differ: %+v vs %+v", a, b)
	}
}

func TestStatusOfPrecedence(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
		code string
	}{
		{"draft", BuildSnapshot(nil, nil), "draft"},
		{"submitted", BuildSnapshot([]*Signature{snapSig(VerbSubmit, "", 0)}, nil), "submitted"},
		{"tier1", BuildSnapshot([]*Signature{
			snapSig(VerbSubmit, "", 0),
			snapSig(VerbApprove, "WIREF", time.Hour),
		}, []string{"WIREF", "CHAIR"}), "approved-tier1"},
		{"approved", BuildSnapshot([]*Signature{
			snapSig(VerbApprove, "WIREF", 0),
			snapSig(VerbApprove, "CHAIR", time.Hour),
		}, []string{"WIREF", "CHAIR"}), "approved"},
		{"rejected", BuildSnapshot([]*Signature{
			snapSig(VerbApprove, "WIREF", 0),
			snapSig(VerbReject, "", time.Hour),
		}, []string{"WIREF"}), "rejected"},
	}
	for _, c := range cases {
		if got := StatusOf(c.snap); got.Code != c.code {
			t.Errorf("%s: status = %q, want %q", c.name, got.Code, c.code)
		}
	}
}
