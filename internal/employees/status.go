package employees

import "hankosign.org/internal/hankosign"

// Sheet workflow states derived from the signature snapshot. Approval runs
// in two tiers, financial officer first, then chair.
const (
	SheetDraft         = "DRAFT"
	SheetSubmitted     = "SUBMITTED"
	SheetApprovedWiref = "APPROVED-WIREF"
	SheetApproved      = "APPROVED"
	SheetRejected      = "REJECTED"
)

// SheetStatus folds the signature snapshot into the sheet workflow state.
func SheetStatus(snap hankosign.Snapshot) string {
	if snap.Rejected {
		return SheetRejected
	}
	if !snap.Submitted {
		return SheetDraft
	}
	if _, ok := snap.Approved["WIREF"]; !ok {
		return SheetSubmitted
	}
	if _, ok := snap.Approved["CHAIR"]; !ok {
		return SheetApprovedWiref
	}
	return SheetApproved
}

// Editable reports whether entries may still be changed. Any lock, which
// includes submission and approvals, freezes the sheet.
func Editable(snap hankosign.Snapshot) bool {
	return !snap.Locked
}
