package handover

import (
	"time"

	"github.com/google/uuid"
)

// Status is the handover lifecycle state. draft belongs to the outgoing
// nurse, submitted hands it to the incoming nurse, acknowledged closes it.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusSubmitted    Status = "submitted"
	StatusAcknowledged Status = "acknowledged"
)

// Handover is one shift-change transfer of responsibility for a ward's
// patients from the outgoing nurse to the incoming nurse.
type Handover struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Ward          string    `db:"ward" json:"ward"`
	OutgoingNurse string    `db:"outgoing_nurse" json:"outgoing_nurse"`
	IncomingNurse string    `db:"incoming_nurse" json:"incoming_nurse"`
	ShiftStart    time.Time `db:"shift_start" json:"shift_start"`
	ShiftEnd      time.Time `db:"shift_end" json:"shift_end"`
	Status        Status    `db:"status" json:"status"`

	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`

	AcknowledgedBy      string     `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt      *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	AcknowledgmentNotes string     `db:"acknowledgment_notes" json:"acknowledgment_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Finalized reports whether the handover has been acknowledged and is
// therefore immutable.
func (h *Handover) Finalized() bool {
	return h.Status == StatusAcknowledged
}

// PatientReview is one patient's entry on a handover. The outgoing nurse
// writes the summary; the incoming nurse marks it reviewed.
type PatientReview struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	HandoverID uuid.UUID  `db:"handover_id" json:"handover_id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Summary    string     `db:"summary" json:"summary"`
	Reviewed   bool       `db:"reviewed" json:"reviewed"`
	ReviewedBy string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// Clarification is an append-only question and answer attached to a
// handover, optionally scoped to one patient.
type Clarification struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	HandoverID uuid.UUID  `db:"handover_id" json:"handover_id"`
	PatientID  *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Question   string     `db:"question" json:"question"`
	AskedBy    string     `db:"asked_by" json:"asked_by"`
	AskedAt    time.Time  `db:"asked_at" json:"asked_at"`
	Answer     string     `db:"answer" json:"answer,omitempty"`
	AnsweredBy string     `db:"answered_by" json:"answered_by,omitempty"`
	AnsweredAt *time.Time `db:"answered_at" json:"answered_at,omitempty"`
}

// Progress counts reviewed patients against the handover's total.
type Progress struct {
	Reviewed int `json:"reviewed"`
	Total    int `json:"total"`
}

// Complete reports whether every patient has been reviewed.
func (p Progress) Complete() bool {
	return p.Total > 0 && p.Reviewed == p.Total
}
