package finances

import (
	"time"

	"hankosign.org/internal/hankosign"
)

// Plan lifecycle states derived from the signature snapshot.
const (
	PlanDraft     = "DRAFT"
	PlanPending   = "PENDING"
	PlanActive    = "ACTIVE"
	PlanFinished  = "FINISHED"
	PlanCancelled = "CANCELLED"
)

// PlanStatus folds the signature snapshot and the pay window into the plan
// lifecycle state. A plan needs every required approval plus a banking
// verification to become active; past its window end it counts as finished.
// The status column on the plan row is a cache of this value.
func PlanStatus(snap hankosign.Snapshot, payEnd time.Time, now time.Time) string {
	if snap.Rejected {
		return PlanCancelled
	}
	if snap.Final && snap.VerifiedAny {
		if !payEnd.IsZero() && now.After(payEnd.AddDate(0, 0, 1)) {
			return PlanFinished
		}
		return PlanActive
	}
	if snap.Submitted {
		return PlanPending
	}
	return PlanDraft
}

// PlanEditable reports whether the plan row accepts edits. Locked fiscal
// years freeze their plans regardless of signature state.
func PlanEditable(snap hankosign.Snapshot, fy *FiscalYear) bool {
	if fy != nil && fy.Locked {
		return false
	}
	return !snap.Locked
}
