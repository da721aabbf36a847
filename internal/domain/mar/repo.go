package mar

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduleFilter narrows ListByAdmission.
type ScheduleFilter struct {
	Date   *time.Time // doses scheduled on this calendar day (UTC)
	Status Status     // zero value means any
}

// Repository persists dose schedules. The Mark* methods are compare-and-set:
// they finalize the dose only if it is still scheduled and report whether the
// caller won the transition. A false return with nil error means another
// writer finalized first.
type Repository interface {
	Create(ctx context.Context, d *DoseSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoseSchedule, error)
	ListByAdmission(ctx context.Context, admissionID uuid.UUID, filter ScheduleFilter, limit, offset int) ([]*DoseSchedule, int, error)
	ListOverdue(ctx context.Context, admissionID uuid.UUID, now time.Time) ([]*DoseSchedule, error)
	// ListSweepCandidates returns scheduled non-PRN doses whose late window
	// edge has passed, across all admissions.
	ListSweepCandidates(ctx context.Context, now time.Time, limit int) ([]*DoseSchedule, error)
	// NextMARSequence allocates the next value of the MAR number sequence.
	// Concurrent callers never see the same value.
	NextMARSequence(ctx context.Context) (int64, error)

	MarkGiven(ctx context.Context, d *DoseSchedule) (bool, error)
	MarkHeld(ctx context.Context, id uuid.UUID, reason, details, by string) (bool, error)
	MarkRefused(ctx context.Context, id uuid.UUID, reason, by string) (bool, error)
	MarkMissed(ctx context.Context, id uuid.UUID) (bool, error)
}
