package mar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/safety"
	"github.com/clinicore/clinicore/internal/platform/notify"
)

// Alerter enqueues clinical alerts without blocking.
type Alerter interface {
	Enqueue(req notify.Request)
}

// Config carries the scheduling policy knobs.
type Config struct {
	GraceBefore time.Duration
	GraceAfter  time.Duration
	// Recipient for hold and refusal notifications.
	PhysicianRecipient string
}

type Service struct {
	repo     Repository
	verifier *safety.Verifier
	provider safety.ContextProvider
	alerts   Alerter
	cfg      Config
	now      func() time.Time
}

func NewService(repo Repository, verifier *safety.Verifier, provider safety.ContextProvider, alerts Alerter, cfg Config) *Service {
	if cfg.GraceBefore == 0 {
		cfg.GraceBefore = 30 * time.Minute
	}
	if cfg.GraceAfter == 0 {
		cfg.GraceAfter = 30 * time.Minute
	}
	return &Service{
		repo:     repo,
		verifier: verifier,
		provider: provider,
		alerts:   alerts,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateScheduleRequest turns one dispense line into MAR entries, one per
// scheduled time.
type CreateScheduleRequest struct {
	PatientID       uuid.UUID   `json:"patient_id"`
	AdmissionID     uuid.UUID   `json:"admission_id"`
	OrderID         uuid.UUID   `json:"order_id"`
	DispenseID      *uuid.UUID  `json:"dispense_id,omitempty"`
	MedicationID    uuid.UUID   `json:"medication_id"`
	MedicationName  string      `json:"medication_name"`
	MedicationClass string      `json:"medication_class,omitempty"`
	Controlled      bool        `json:"controlled"`
	Dose            string      `json:"dose"`
	Route           string      `json:"route"`
	IsPRN           bool        `json:"is_prn"`
	PRNReason       string      `json:"prn_reason,omitempty"`
	BatchNumber     string      `json:"batch_number,omitempty"`
	BatchExpiry     *time.Time  `json:"batch_expiry,omitempty"`
	ScheduledTimes  []time.Time `json:"scheduled_times"`
}

// CreateSchedule validates the request and creates one scheduled dose per
// time point, stamping MAR numbers and due windows.
func (s *Service) CreateSchedule(ctx context.Context, req CreateScheduleRequest) ([]*DoseSchedule, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.AdmissionID == uuid.Nil {
		return nil, fmt.Errorf("admission_id is required")
	}
	if req.MedicationID == uuid.Nil || req.MedicationName == "" {
		return nil, fmt.Errorf("medication is required")
	}
	if req.Dose == "" {
		return nil, fmt.Errorf("dose is required")
	}
	if !validRoutes[req.Route] {
		return nil, fmt.Errorf("invalid route: %s", req.Route)
	}
	if len(req.ScheduledTimes) == 0 {
		return nil, fmt.Errorf("at least one scheduled time is required")
	}
	if req.IsPRN && req.PRNReason == "" {
		return nil, fmt.Errorf("prn_reason is required for PRN medications")
	}

	var created []*DoseSchedule
	for _, at := range req.ScheduledTimes {
		seq, err := s.repo.NextMARSequence(ctx)
		if err != nil {
			return created, fmt.Errorf("allocate mar number: %w", err)
		}
		d := &DoseSchedule{
			MARNumber:       marNumber(s.now(), seq),
			PatientID:       req.PatientID,
			AdmissionID:     req.AdmissionID,
			OrderID:         req.OrderID,
			DispenseID:      req.DispenseID,
			MedicationID:    req.MedicationID,
			MedicationName:  req.MedicationName,
			MedicationClass: req.MedicationClass,
			Controlled:      req.Controlled,
			Dose:            req.Dose,
			Route:           req.Route,
			IsPRN:           req.IsPRN,
			PRNReason:       req.PRNReason,
			BatchNumber:     req.BatchNumber,
			BatchExpiry:     req.BatchExpiry,
			ScheduledTime:   at.UTC(),
			WindowEarly:     at.UTC().Add(-s.cfg.GraceBefore),
			WindowLate:      at.UTC().Add(s.cfg.GraceAfter),
			Status:          StatusScheduled,
		}
		if err := s.repo.Create(ctx, d); err != nil {
			return created, fmt.Errorf("create dose at %s: %w", at.Format(time.RFC3339), err)
		}
		created = append(created, d)
	}
	return created, nil
}

// marNumber builds the display identifier, e.g. MAR20260828000042.
func marNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("MAR%s%06d", now.UTC().Format("20060102"), seq)
}

func (s *Service) GetDose(ctx context.Context, id uuid.UUID) (*DoseSchedule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetSchedule(ctx context.Context, admissionID uuid.UUID, filter ScheduleFilter, limit, offset int) ([]*DoseSchedule, int, error) {
	return s.repo.ListByAdmission(ctx, admissionID, filter, limit, offset)
}

// ListOverdue returns scheduled doses past their late window edge. This is a
// read-side predicate; it does not depend on the sweep having run.
func (s *Service) ListOverdue(ctx context.Context, admissionID uuid.UUID) ([]*DoseSchedule, error) {
	return s.repo.ListOverdue(ctx, admissionID, s.now())
}

// SafetyCheck builds a fresh patient snapshot and runs the verifier for one
// dose. The UI calls this before showing the administration form; Administer
// re-runs it, so a stale screen can never bypass a new blocker.
func (s *Service) SafetyCheck(ctx context.Context, doseID uuid.UUID) (*safety.Verdict, error) {
	d, err := s.repo.GetByID(ctx, doseID)
	if err != nil {
		return nil, err
	}
	return s.verdictFor(ctx, d, d.Route)
}

func (s *Service) verdictFor(ctx context.Context, d *DoseSchedule, attemptedRoute string) (*safety.Verdict, error) {
	pctx, err := s.provider.PatientContext(ctx, d.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient context: %w", err)
	}
	verdict := s.verifier.Verify(safety.DoseCheck{
		OrderID:         d.OrderID,
		MedicationID:    d.MedicationID,
		MedicationName:  d.MedicationName,
		MedicationClass: d.MedicationClass,
		Route:           attemptedRoute,
		ScheduledRoute:  d.Route,
		ScheduledTime:   d.ScheduledTime,
		WindowEarly:     d.WindowEarly,
		WindowLate:      d.WindowLate,
		Now:             s.now(),
	}, *pctx)
	return &verdict, nil
}

// AdministerRequest is the bedside administration payload.
type AdministerRequest struct {
	Rights        RightsCheck     `json:"rights"`
	Route         string          `json:"route,omitempty"` // defaults to the scheduled route
	Site          string          `json:"site,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	WitnessID     string          `json:"witness_id,omitempty"`
	VitalsAtAdmin *VitalsSnapshot `json:"vitals_at_admin,omitempty"`
	// Override acknowledges advisory warnings. It has no effect on blockers.
	Override *SafetyOverride `json:"override,omitempty"`
}

// Administer records a given dose. Ordering is deliberate: state check, then
// rights, then safety, then the compare-and-set write. The CAS is the real
// guard; the earlier read just produces a better error without burning a
// safety check on a finalized dose.
func (s *Service) Administer(ctx context.Context, doseID uuid.UUID, req AdministerRequest, userID string) (*DoseSchedule, error) {
	d, err := s.repo.GetByID(ctx, doseID)
	if err != nil {
		return nil, err
	}
	if d.Terminal() {
		return nil, &AlreadyFinalizedError{Status: d.Status}
	}

	if missing := req.Rights.Missing(); len(missing) > 0 {
		return nil, &RightsNotVerifiedError{Missing: missing}
	}

	route := req.Route
	if route == "" {
		route = d.Route
	}
	verdict, err := s.verdictFor(ctx, d, route)
	if err != nil {
		return nil, err
	}
	// Blockers always refuse. The override exists only to record that a
	// physician saw and accepted the advisory warnings.
	if !verdict.Safe {
		return nil, &BlockedBySafetyError{Blockers: verdict.Blockers}
	}

	if d.Controlled && req.WitnessID == "" {
		return nil, fmt.Errorf("witness is required for controlled medications")
	}
	if parenteralRoutes[route] && req.Site == "" {
		return nil, fmt.Errorf("injection site is required for %s route", route)
	}

	adminTime := s.now()
	rights := req.Rights
	d.AdministeredTime = &adminTime
	d.AdministeredBy = userID
	d.WitnessedBy = req.WitnessID
	d.Site = req.Site
	d.Notes = req.Notes
	d.VitalsAtAdmin = req.VitalsAtAdmin
	d.VerifiedRights = &rights
	d.SafetyWarnings = verdict.Warnings
	d.SafetyOverride = req.Override

	won, err := s.repo.MarkGiven(ctx, d)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.finalizedError(ctx, doseID)
	}
	d.Status = StatusGiven
	return d, nil
}

// Hold finalizes the dose as held. Reason comes from the institutional enum.
func (s *Service) Hold(ctx context.Context, doseID uuid.UUID, reason, details, userID string) (*DoseSchedule, error) {
	if !validHoldReasons[reason] {
		return nil, &InvalidReasonError{Reason: reason}
	}
	d, err := s.repo.GetByID(ctx, doseID)
	if err != nil {
		return nil, err
	}
	if d.Terminal() {
		return nil, &AlreadyFinalizedError{Status: d.Status}
	}

	won, err := s.repo.MarkHeld(ctx, doseID, reason, details, userID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.finalizedError(ctx, doseID)
	}
	d.Status = StatusHeld
	d.HoldReason = reason
	d.HoldDetails = details
	d.FinalizedBy = userID

	if s.alerts != nil {
		s.alerts.Enqueue(notify.Request{
			TemplateID: "dose-held",
			Data: map[string]string{
				"patient_id":     d.PatientID.String(),
				"medication":     d.MedicationName,
				"scheduled_time": d.ScheduledTime.Format(time.RFC3339),
				"nurse":          userID,
				"reason":         reason,
				"details":        details,
			},
			Recipient: s.cfg.PhysicianRecipient,
		})
	}
	return d, nil
}

// Refuse finalizes the dose as refused by the patient.
func (s *Service) Refuse(ctx context.Context, doseID uuid.UUID, reason, userID string) (*DoseSchedule, error) {
	if reason == "" {
		return nil, &InvalidReasonError{}
	}
	d, err := s.repo.GetByID(ctx, doseID)
	if err != nil {
		return nil, err
	}
	if d.Terminal() {
		return nil, &AlreadyFinalizedError{Status: d.Status}
	}

	won, err := s.repo.MarkRefused(ctx, doseID, reason, userID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.finalizedError(ctx, doseID)
	}
	d.Status = StatusRefused
	d.RefusalReason = reason
	d.FinalizedBy = userID

	if s.alerts != nil {
		s.alerts.Enqueue(notify.Request{
			TemplateID: "dose-refused",
			Data: map[string]string{
				"patient_id":     d.PatientID.String(),
				"medication":     d.MedicationName,
				"scheduled_time": d.ScheduledTime.Format(time.RFC3339),
				"reason":         reason,
			},
			Recipient: s.cfg.PhysicianRecipient,
		})
	}
	return d, nil
}

// Supersede creates a replacement scheduled dose for one that ended missed,
// held, or refused. The original record is never rewritten.
func (s *Service) Supersede(ctx context.Context, doseID uuid.UUID, scheduledTime time.Time) (*DoseSchedule, error) {
	orig, err := s.repo.GetByID(ctx, doseID)
	if err != nil {
		return nil, err
	}
	if !orig.Terminal() {
		return nil, fmt.Errorf("dose is still scheduled; supersede applies to finalized doses")
	}
	if orig.Status == StatusGiven {
		return nil, fmt.Errorf("cannot supersede a given dose")
	}

	seq, err := s.repo.NextMARSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate mar number: %w", err)
	}

	at := scheduledTime.UTC()
	origID := orig.ID
	d := &DoseSchedule{
		MARNumber:       marNumber(s.now(), seq),
		PatientID:       orig.PatientID,
		AdmissionID:     orig.AdmissionID,
		OrderID:         orig.OrderID,
		DispenseID:      orig.DispenseID,
		MedicationID:    orig.MedicationID,
		MedicationName:  orig.MedicationName,
		MedicationClass: orig.MedicationClass,
		Controlled:      orig.Controlled,
		Dose:            orig.Dose,
		Route:           orig.Route,
		BatchNumber:     orig.BatchNumber,
		BatchExpiry:     orig.BatchExpiry,
		ScheduledTime:   at,
		WindowEarly:     at.Add(-s.cfg.GraceBefore),
		WindowLate:      at.Add(s.cfg.GraceAfter),
		Status:          StatusScheduled,
		SupersedesID:    &origID,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// finalizedError reloads the dose after a lost compare-and-set so the error
// names the state that won.
func (s *Service) finalizedError(ctx context.Context, doseID uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, doseID)
	if err != nil {
		return &AlreadyFinalizedError{}
	}
	return &AlreadyFinalizedError{Status: d.Status}
}
