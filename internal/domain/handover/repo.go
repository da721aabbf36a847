package handover

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists handovers, their patient reviews, and clarifications.
// State transitions are compare-and-set on the current status; the won
// result is false when another writer moved the handover first.
type Repository interface {
	Create(ctx context.Context, h *Handover, reviews []*PatientReview) error
	GetByID(ctx context.Context, id uuid.UUID) (*Handover, error)
	ListByWard(ctx context.Context, ward string, limit, offset int) ([]*Handover, int, error)

	ListReviews(ctx context.Context, handoverID uuid.UUID) ([]*PatientReview, error)
	// SetReviewed flips one patient's reviewed flag in either direction. The
	// write only lands when the entry exists and is not already in the
	// requested state.
	SetReviewed(ctx context.Context, handoverID, patientID uuid.UUID, by string, reviewed bool, at time.Time) (bool, error)
	ReviewProgress(ctx context.Context, handoverID uuid.UUID) (Progress, error)

	Submit(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// Acknowledge finalizes the handover only while it is submitted and
	// every patient review is complete. Both predicates live in the same
	// statement so a concurrent unreview or acknowledgment cannot slip in.
	Acknowledge(ctx context.Context, id uuid.UUID, by, notes string, at time.Time) (bool, error)

	AddClarification(ctx context.Context, c *Clarification) error
	ListClarifications(ctx context.Context, handoverID uuid.UUID) ([]*Clarification, error)
	GetClarification(ctx context.Context, id uuid.UUID) (*Clarification, error)
	AnswerClarification(ctx context.Context, id uuid.UUID, answer, by string, at time.Time) (bool, error)
}
