package handover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// PatientEntry is one patient on a new handover with the outgoing nurse's
// summary.
type PatientEntry struct {
	PatientID uuid.UUID `json:"patient_id"`
	Summary   string    `json:"summary"`
}

type CreateRequest struct {
	Ward          string         `json:"ward"`
	OutgoingNurse string         `json:"outgoing_nurse"`
	IncomingNurse string         `json:"incoming_nurse"`
	ShiftStart    time.Time      `json:"shift_start"`
	ShiftEnd      time.Time      `json:"shift_end"`
	Patients      []PatientEntry `json:"patients"`
}

// HandoverDetail bundles the handover with its reviews and clarifications
// for the read side.
type HandoverDetail struct {
	*Handover
	Patients       []*PatientReview `json:"patients"`
	Clarifications []*Clarification `json:"clarifications"`
	Progress       Progress         `json:"progress"`
}

// Create opens a draft handover covering the given patients. Every patient
// needs a summary before the draft can be submitted, so empty summaries are
// rejected up front.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Handover, error) {
	if req.Ward == "" {
		return nil, fmt.Errorf("ward is required")
	}
	if req.OutgoingNurse == "" || req.IncomingNurse == "" {
		return nil, fmt.Errorf("outgoing and incoming nurses are required")
	}
	if req.OutgoingNurse == req.IncomingNurse {
		return nil, fmt.Errorf("outgoing and incoming nurses must differ")
	}
	if len(req.Patients) == 0 {
		return nil, fmt.Errorf("at least one patient is required")
	}
	seen := make(map[uuid.UUID]bool, len(req.Patients))
	reviews := make([]*PatientReview, 0, len(req.Patients))
	for _, p := range req.Patients {
		if p.PatientID == uuid.Nil {
			return nil, fmt.Errorf("patient_id is required for every entry")
		}
		if seen[p.PatientID] {
			return nil, fmt.Errorf("duplicate patient %s", p.PatientID)
		}
		if p.Summary == "" {
			return nil, fmt.Errorf("summary is required for patient %s", p.PatientID)
		}
		seen[p.PatientID] = true
		reviews = append(reviews, &PatientReview{PatientID: p.PatientID, Summary: p.Summary})
	}

	h := &Handover{
		Ward:          req.Ward,
		OutgoingNurse: req.OutgoingNurse,
		IncomingNurse: req.IncomingNurse,
		ShiftStart:    req.ShiftStart.UTC(),
		ShiftEnd:      req.ShiftEnd.UTC(),
		Status:        StatusDraft,
	}
	if err := s.repo.Create(ctx, h, reviews); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*HandoverDetail, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	clars, err := s.repo.ListClarifications(ctx, id)
	if err != nil {
		return nil, err
	}
	progress := Progress{Total: len(reviews)}
	for _, r := range reviews {
		if r.Reviewed {
			progress.Reviewed++
		}
	}
	return &HandoverDetail{Handover: h, Patients: reviews, Clarifications: clars, Progress: progress}, nil
}

func (s *Service) ListByWard(ctx context.Context, ward string, limit, offset int) ([]*Handover, int, error) {
	return s.repo.ListByWard(ctx, ward, limit, offset)
}

// Submit moves a draft to submitted, opening it for the incoming nurse's
// review.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (*Handover, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.Finalized() {
		return nil, ErrFinalized
	}
	won, err := s.repo.Submit(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.wrongState(ctx, id, "submit")
	}
	return s.repo.GetByID(ctx, id)
}

// ReviewPatient sets one patient's reviewed flag. The incoming nurse checks
// entries as they work through the list and can uncheck one to come back to
// it; both directions only apply while the handover is submitted. Repeating
// the current state is a no-op, not an error.
func (s *Service) ReviewPatient(ctx context.Context, handoverID, patientID uuid.UUID, userID string, reviewed bool) (*PatientReview, error) {
	h, err := s.repo.GetByID(ctx, handoverID)
	if err != nil {
		return nil, err
	}
	if h.Finalized() {
		return nil, ErrFinalized
	}
	if h.Status != StatusSubmitted {
		return nil, &WrongStateError{Status: h.Status, Action: "review"}
	}

	if _, err := s.repo.SetReviewed(ctx, handoverID, patientID, userID, reviewed, s.now()); err != nil {
		return nil, err
	}
	// A lost write means the entry was already in the requested state or the
	// patient is not on this handover. Reload to tell them apart and return
	// the current entry either way.
	reviews, err := s.repo.ListReviews(ctx, handoverID)
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		if r.PatientID == patientID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("patient %s is not on this handover", patientID)
}

// RequestClarification appends a question to the handover. Allowed in draft
// and submitted states; an acknowledged handover is closed to questions.
func (s *Service) RequestClarification(ctx context.Context, handoverID uuid.UUID, patientID *uuid.UUID, question, userID string) (*Clarification, error) {
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	h, err := s.repo.GetByID(ctx, handoverID)
	if err != nil {
		return nil, err
	}
	if h.Finalized() {
		return nil, ErrFinalized
	}

	c := &Clarification{
		HandoverID: handoverID,
		PatientID:  patientID,
		Question:   question,
		AskedBy:    userID,
		AskedAt:    s.now(),
	}
	if err := s.repo.AddClarification(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AnswerClarification records the outgoing nurse's answer. Answers are
// write-once.
func (s *Service) AnswerClarification(ctx context.Context, clarificationID uuid.UUID, answer, userID string) (*Clarification, error) {
	if answer == "" {
		return nil, fmt.Errorf("answer is required")
	}
	c, err := s.repo.GetClarification(ctx, clarificationID)
	if err != nil {
		return nil, err
	}
	h, err := s.repo.GetByID(ctx, c.HandoverID)
	if err != nil {
		return nil, err
	}
	if h.Finalized() {
		return nil, ErrFinalized
	}

	won, err := s.repo.AnswerClarification(ctx, clarificationID, answer, userID, s.now())
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("clarification already answered")
	}
	return s.repo.GetClarification(ctx, clarificationID)
}

// Progress returns the review counts for the acknowledgment gate.
func (s *Service) Progress(ctx context.Context, handoverID uuid.UUID) (Progress, error) {
	if _, err := s.repo.GetByID(ctx, handoverID); err != nil {
		return Progress{}, err
	}
	return s.repo.ReviewProgress(ctx, handoverID)
}

// Acknowledge closes the handover. All-or-nothing: every patient must be
// reviewed, and the repository enforces the same predicate atomically so a
// race cannot acknowledge past an unreviewed patient.
func (s *Service) Acknowledge(ctx context.Context, handoverID uuid.UUID, userID, notes string) (*Handover, error) {
	h, err := s.repo.GetByID(ctx, handoverID)
	if err != nil {
		return nil, err
	}
	if h.Finalized() {
		return nil, ErrFinalized
	}
	if h.Status != StatusSubmitted {
		return nil, &WrongStateError{Status: h.Status, Action: "acknowledge"}
	}

	progress, err := s.repo.ReviewProgress(ctx, handoverID)
	if err != nil {
		return nil, err
	}
	if !progress.Complete() {
		return nil, &IncompleteReviewError{Reviewed: progress.Reviewed, Total: progress.Total}
	}

	won, err := s.repo.Acknowledge(ctx, handoverID, userID, notes, s.now())
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.wrongState(ctx, handoverID, "acknowledge")
	}
	return s.repo.GetByID(ctx, handoverID)
}

// wrongState reloads after a lost compare-and-set so the error names the
// state that won.
func (s *Service) wrongState(ctx context.Context, id uuid.UUID, action string) error {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return &WrongStateError{Action: action}
	}
	if h.Finalized() {
		return ErrFinalized
	}
	return &WrongStateError{Status: h.Status, Action: action}
}
