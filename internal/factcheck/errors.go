package factcheck

import (
	"errors"

	"github.com/ppiankov/truthpost/internal/consensus"
	"github.com/ppiankov/truthpost/internal/store"
)

var (
	// ErrNotFound is returned when no claim has the requested id
	ErrNotFound = store.ErrNotFound

	// ErrAlreadyResolved is returned when a claim already carries a verdict
	ErrAlreadyResolved = store.ErrAlreadyResolved

	// ErrInvalidVerdict is returned when the agreed judgment is not a valid
	// verdict document. The claim stays pending.
	ErrInvalidVerdict = errors.New("invalid verdict")

	// ErrInvalidSubmission is returned by ValidateSubmission
	ErrInvalidSubmission = errors.New("invalid submission")
)

// IsRetryable reports whether a resolution failure left nothing committed
// and may succeed on another attempt.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrInvalidVerdict) {
		return false
	}
	return errors.Is(err, consensus.ErrAgreementFailure)
}
