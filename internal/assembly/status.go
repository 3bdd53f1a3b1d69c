package assembly

import "hankosign.org/internal/hankosign"

// Session workflow states derived from the signature snapshot. Verified
// means the minutes went out to the supervising bodies.
const (
	SessionDraft     = "DRAFT"
	SessionSubmitted = "SUBMITTED"
	SessionApproved  = "APPROVED"
	SessionVerified  = "VERIFIED"
	SessionRejected  = "REJECTED"
)

// SessionStatus folds the signature snapshot into the session workflow
// state. The chair approval gates the approved tier; any verification,
// staged or not, counts as sent out.
func SessionStatus(snap hankosign.Snapshot) string {
	if snap.Rejected {
		return SessionRejected
	}
	if !snap.Submitted {
		return SessionDraft
	}
	if _, ok := snap.Approved["CHAIR"]; !ok {
		return SessionSubmitted
	}
	if !snap.VerifiedAny {
		return SessionApproved
	}
	return SessionVerified
}
