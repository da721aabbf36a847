package vitals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/notify"
)

// Alerter enqueues clinical alerts without blocking.
type Alerter interface {
	Enqueue(req notify.Request)
}

type Service struct {
	repo       Repository
	thresholds Thresholds
	alerts     Alerter
	// Recipient for critical vitals pages, typically the on-call pool.
	criticalRecipient string
}

func NewService(repo Repository, thresholds Thresholds, alerts Alerter, criticalRecipient string) *Service {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Service{
		repo:              repo,
		thresholds:        thresholds,
		alerts:            alerts,
		criticalRecipient: criticalRecipient,
	}
}

// Evaluate classifies a reading without persisting anything. The live entry
// form calls this on every change; Record applies the identical table, so a
// value flagged on screen is flagged the same way when saved.
func (s *Service) Evaluate(r *VitalReading) Classification {
	return s.thresholds.Evaluate(r)
}

// Record validates, classifies, and persists a reading, and pages the on-call
// recipient when any parameter is critical.
func (s *Service) Record(ctx context.Context, r *VitalReading) error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.RecordedBy == "" {
		return fmt.Errorf("recorded_by is required")
	}
	if !r.HasMeasurement() {
		return fmt.Errorf("at least one vital sign value is required")
	}
	for _, m := range r.measured() {
		if m.value != nil && *m.value < 0 {
			return fmt.Errorf("%s must not be negative", m.name)
		}
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	cls := s.thresholds.Evaluate(r)
	r.IsAbnormal = cls.IsAbnormal()
	r.IsCritical = cls.IsCritical()
	r.FlaggedParams = nil
	for _, fl := range cls.Flags {
		r.FlaggedParams = append(r.FlaggedParams, fl.Parameter)
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return err
	}

	if r.IsCritical && s.alerts != nil {
		s.alerts.Enqueue(notify.Request{
			TemplateID: "critical-vitals",
			Data: map[string]string{
				"patient_id":  r.PatientID.String(),
				"recorded_at": r.RecordedAt.Format(time.RFC3339),
				"parameters":  strings.Join(r.FlaggedParams, ", "),
			},
			Recipient: s.criticalRecipient,
		})
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*VitalReading, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalReading, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByAdmission(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalReading, int, error) {
	return s.repo.ListByAdmission(ctx, admissionID, limit, offset)
}
