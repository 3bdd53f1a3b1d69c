package hankosign

import "context"

// BuildSnapshot folds a target's signature history into its derived
// workflow state. Pure: same history and required set always yield the
// same snapshot.
//
//   - submitted: last SUBMIT is after last WITHDRAW (any stage)
//   - approved/verified: stage sets observed for APPROVE / VERIFY;
//     VerifiedAny additionally tracks stage-less VERIFY signatures
//   - rejected: any REJECT signature exists; terminal for display
//   - required: configured APPROVE stages for the target type
//   - final: required non-empty and fully approved, or rejected
//   - locked: explicit LOCK (without later UNLOCK), or submitted, or any
//     approval, or final
func BuildSnapshot(sigs []*Signature, required []string) Snapshot {
	snap := Snapshot{
		Approved: make(map[string]struct{}),
		Verified: make(map[string]struct{}),
		Required: make(map[string]struct{}),
	}
	for _, st := range required {
		snap.Required[st] = struct{}{}
	}

	var lastSubmit, lastWithdraw, lastLock, lastUnlock *Signature
	for _, sig := range sigs {
		switch sig.Verb {
		case VerbSubmit:
			if lastSubmit == nil || sig.At.After(lastSubmit.At) {
				lastSubmit = sig
			}
		case VerbWithdraw:
			if lastWithdraw == nil || sig.At.After(lastWithdraw.At) {
				lastWithdraw = sig
			}
		case VerbLock:
			if lastLock == nil || sig.At.After(lastLock.At) {
				lastLock = sig
			}
		case VerbUnlock:
			if lastUnlock == nil || sig.At.After(lastUnlock.At) {
				lastUnlock = sig
			}
		case VerbApprove:
			if sig.Stage != "" {
				snap.Approved[sig.Stage] = struct{}{}
			}
		case VerbVerify:
			snap.VerifiedAny = true
			if sig.Stage != "" {
				snap.Verified[sig.Stage] = struct{}{}
			}
		case VerbReject:
			snap.Rejected = true
		}
	}

	snap.Submitted = lastSubmit != nil && (lastWithdraw == nil || lastSubmit.At.After(lastWithdraw.At))
	snap.ExplicitLocked = lastLock != nil && (lastUnlock == nil || lastLock.At.After(lastUnlock.At))

	if len(snap.Required) > 0 {
		snap.Final = true
		for st := range snap.Required {
			if _, ok := snap.Approved[st]; !ok {
				snap.Final = false
				break
			}
		}
	}
	if snap.Rejected {
		snap.Final = true
	}
	snap.Locked = snap.ExplicitLocked || snap.Submitted || len(snap.Approved) > 0 || snap.Final

	return snap
}

// StatusOf maps a snapshot to a single discrete UI status. Precedence:
// rejected > fully approved > partially approved > submitted > draft.
// Rejection always wins regardless of approvals present; the audit trail
// is never erased, display shows the most severe terminal state.
func StatusOf(snap Snapshot) Status {
	switch {
	case snap.Rejected:
		return Status{Code: "rejected", Label: "Rejected"}
	case len(snap.Required) > 0 && snap.Final:
		return Status{Code: "approved", Label: "Approved"}
	case len(snap.Approved) > 0:
		return Status{Code: "approved-tier1", Label: "Partially approved"}
	case snap.Submitted:
		return Status{Code: "submitted", Label: "Submitted"}
	default:
		return Status{Code: "draft", Label: "Draft"}
	}
}

// StateSnapshot loads a target's signature history and required approval
// configuration and folds them into a snapshot.
func (s *Service) StateSnapshot(ctx context.Context, target Target) (Snapshot, error) {
	sigs, err := s.store.Signatures(ctx).ListByTarget(ctx, target.TypeKey(), target.PrimaryKey())
	if err != nil {
		return Snapshot{}, err
	}
	required, err := s.store.Actions(ctx).ApproveStages(ctx, target.TypeKey())
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(sigs, required), nil
}

// ObjectStatus derives the generic display status for a target.
func (s *Service) ObjectStatus(ctx context.Context, target Target) (Status, error) {
	snap, err := s.StateSnapshot(ctx, target)
	if err != nil {
		return Status{}, err
	}
	return StatusOf(snap), nil
}
