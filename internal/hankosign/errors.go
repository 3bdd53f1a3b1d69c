package hankosign

import "errors"

var (
	ErrNotFound      = errors.New("hankosign: not found")
	ErrAlreadyExists = errors.New("hankosign: already exists")
	ErrInvalidInput  = errors.New("hankosign: invalid input")
	ErrDenied        = errors.New("hankosign: permission denied")
)

// Denial reasons shown to users. CanAct returns them in Decision.Reason;
// RecordSignature wraps them in a DeniedError.
const (
	ReasonUnknownAction    = "Unknown action."
	ReasonNoSignatory      = "No active signatory is linked to your account."
	ReasonNotVerified      = "Your signatory is not verified (specimen missing)."
	ReasonNotAuthorized    = "You are not authorized to perform this action."
	ReasonDistinctSigner   = "A different signatory is required for this stage."
	ReasonAlreadyPerformed = "This action has already been performed."
)

// DeniedError is the single error type raised by the write path for every
// authorization failure. errors.Is(err, ErrDenied) matches it.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "hankosign: " + e.Reason }

func (e *DeniedError) Is(target error) bool { return target == ErrDenied }

// Denied wraps a reason string into a DeniedError.
func Denied(reason string) error { return &DeniedError{Reason: reason} }

// DenialReason extracts the user-facing reason from an error, if it is a
// denial. Returns "" otherwise.
func DenialReason(err error) string {
	var de *DeniedError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
