package handover

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("handover not found")

	// ErrFinalized rejects any mutation of an acknowledged handover.
	ErrFinalized = errors.New("handover already acknowledged")
)

// IncompleteReviewError rejects acknowledgment while any patient remains
// unreviewed. It carries the counts so the caller can show progress.
type IncompleteReviewError struct {
	Reviewed int
	Total    int
}

func (e *IncompleteReviewError) Error() string {
	return fmt.Sprintf("cannot acknowledge: %d of %d patients reviewed", e.Reviewed, e.Total)
}

// WrongStateError rejects a transition from a state that does not allow it.
type WrongStateError struct {
	Status Status
	Action string
}

func (e *WrongStateError) Error() string {
	return fmt.Sprintf("cannot %s a %s handover", e.Action, e.Status)
}
