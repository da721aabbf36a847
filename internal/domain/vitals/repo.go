package vitals

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists vital sign readings.
type Repository interface {
	Create(ctx context.Context, r *VitalReading) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalReading, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalReading, int, error)
	ListByAdmission(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalReading, int, error)
}
