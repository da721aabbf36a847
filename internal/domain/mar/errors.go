package mar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clinicore/clinicore/internal/domain/safety"
)

// ErrNotFound is returned when a dose does not exist.
var ErrNotFound = errors.New("dose not found")

// BlockedBySafetyError is returned when the verifier reports blockers and no
// override was approved.
type BlockedBySafetyError struct {
	Blockers []safety.Blocker
}

func (e *BlockedBySafetyError) Error() string {
	codes := make([]string, len(e.Blockers))
	for i, b := range e.Blockers {
		codes[i] = b.Code
	}
	return fmt.Sprintf("administration blocked by safety check: %s", strings.Join(codes, ", "))
}

// RightsNotVerifiedError is returned when the five-rights attestation is
// incomplete.
type RightsNotVerifiedError struct {
	Missing []string
}

func (e *RightsNotVerifiedError) Error() string {
	return fmt.Sprintf("five rights not verified: %s", strings.Join(e.Missing, ", "))
}

// AlreadyFinalizedError is returned when a terminal transition is attempted on
// a dose that already left the scheduled state. Status carries the state that
// won.
type AlreadyFinalizedError struct {
	Status Status
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("dose already finalized as %s", e.Status)
}

// InvalidReasonError is returned for a hold reason outside the closed enum or
// an empty refusal reason.
type InvalidReasonError struct {
	Reason string
}

func (e *InvalidReasonError) Error() string {
	if e.Reason == "" {
		return "reason is required"
	}
	return fmt.Sprintf("invalid reason: %s", e.Reason)
}
