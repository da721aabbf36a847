package mar

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/safety"
)

// Status is the dose lifecycle state. scheduled is the only non-terminal
// state; every transition out of it is final.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusGiven     Status = "given"
	StatusHeld      Status = "held"
	StatusRefused   Status = "refused"
	StatusMissed    Status = "missed"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusGiven:     true,
	StatusHeld:      true,
	StatusRefused:   true,
	StatusMissed:    true,
}

var validRoutes = map[string]bool{
	"oral": true, "iv": true, "im": true, "sc": true, "topical": true,
	"inhalation": true, "sublingual": true, "rectal": true, "nasal": true,
	"ophthalmic": true, "otic": true, "other": true,
}

// parenteralRoutes require an injection site on administration.
var parenteralRoutes = map[string]bool{"iv": true, "im": true, "sc": true}

var validHoldReasons = map[string]bool{
	"npo":                   true,
	"patient_not_available": true,
	"vital_signs":           true,
	"lab_values":            true,
	"doctor_order":          true,
	"other":                 true,
}

// VitalsSnapshot is an optional set of vitals taken at administration time.
// Stored alongside the dose, not in the vitals trend.
type VitalsSnapshot struct {
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	Pulse            *float64 `json:"pulse,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
}

// DoseSchedule is one scheduled administration of one medication. Medication
// fields are denormalized from the order at schedule time so the MAR stays
// readable even if the order changes later.
type DoseSchedule struct {
	ID        uuid.UUID `db:"id" json:"id"`
	MARNumber string    `db:"mar_number" json:"mar_number"`

	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admission_id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	DispenseID  *uuid.UUID `db:"dispense_id" json:"dispense_id,omitempty"`

	MedicationID    uuid.UUID `db:"medication_id" json:"medication_id"`
	MedicationName  string    `db:"medication_name" json:"medication_name"`
	MedicationClass string    `db:"medication_class" json:"medication_class,omitempty"`
	Controlled      bool      `db:"controlled" json:"controlled"`

	Dose  string `db:"dose" json:"dose"`
	Route string `db:"route" json:"route"`

	IsPRN     bool   `db:"is_prn" json:"is_prn"`
	PRNReason string `db:"prn_reason" json:"prn_reason,omitempty"`

	// Batch traceability for recalls.
	BatchNumber string     `db:"batch_number" json:"batch_number,omitempty"`
	BatchExpiry *time.Time `db:"batch_expiry" json:"batch_expiry,omitempty"`

	ScheduledTime time.Time `db:"scheduled_time" json:"scheduled_time"`
	WindowEarly   time.Time `db:"window_early" json:"window_early"`
	WindowLate    time.Time `db:"window_late" json:"window_late"`

	Status Status `db:"status" json:"status"`

	AdministeredTime *time.Time      `db:"administered_time" json:"administered_time,omitempty"`
	AdministeredBy   string          `db:"administered_by" json:"administered_by,omitempty"`
	WitnessedBy      string          `db:"witnessed_by" json:"witnessed_by,omitempty"`
	Site             string          `db:"site" json:"site,omitempty"`
	Notes            string          `db:"notes" json:"notes,omitempty"`
	VitalsAtAdmin    *VitalsSnapshot `db:"vitals_at_admin" json:"vitals_at_admin,omitempty"`

	// The administration record keeps the rights attestation and the safety
	// warnings active at the moment the dose was given, so a given dose always
	// shows what the nurse saw and confirmed.
	VerifiedRights *RightsCheck     `db:"verified_rights" json:"verified_rights,omitempty"`
	SafetyWarnings []safety.Warning `db:"safety_warnings" json:"safety_warnings,omitempty"`
	SafetyOverride *SafetyOverride  `db:"safety_override" json:"safety_override,omitempty"`

	HoldReason    string `db:"hold_reason" json:"hold_reason,omitempty"`
	HoldDetails   string `db:"hold_details" json:"hold_details,omitempty"`
	RefusalReason string `db:"refusal_reason" json:"refusal_reason,omitempty"`
	FinalizedBy   string `db:"finalized_by" json:"finalized_by,omitempty"`

	// Set on a replacement dose created to correct a missed one.
	SupersedesID *uuid.UUID `db:"supersedes_id" json:"supersedes_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the dose has left the scheduled state.
func (d *DoseSchedule) Terminal() bool {
	return d.Status != StatusScheduled
}

// Due reports whether now falls inside the due window.
func (d *DoseSchedule) Due(now time.Time) bool {
	return !now.Before(d.WindowEarly) && !now.After(d.WindowLate)
}

// Overdue reports whether the dose is still scheduled past the late edge of
// its window. PRN doses are never overdue; they have no committed time.
func (d *DoseSchedule) Overdue(now time.Time) bool {
	return d.Status == StatusScheduled && !d.IsPRN && now.After(d.WindowLate)
}

// RightsCheck is the five-rights attestation the nurse completes at the
// bedside. All five must be confirmed before administration.
type RightsCheck struct {
	RightPatient bool `json:"rightPatient"`
	RightDrug    bool `json:"rightDrug"`
	RightDose    bool `json:"rightDose"`
	RightRoute   bool `json:"rightRoute"`
	RightTime    bool `json:"rightTime"`
}

// Missing returns the rights not yet confirmed, in display order.
func (r RightsCheck) Missing() []string {
	var missing []string
	if !r.RightPatient {
		missing = append(missing, "rightPatient")
	}
	if !r.RightDrug {
		missing = append(missing, "rightDrug")
	}
	if !r.RightDose {
		missing = append(missing, "rightDose")
	}
	if !r.RightRoute {
		missing = append(missing, "rightRoute")
	}
	if !r.RightTime {
		missing = append(missing, "rightTime")
	}
	return missing
}

// SafetyOverride records a physician's acknowledgment of advisory safety
// warnings at administration time. Blockers are never overridable; a blocked
// dose must be held or refused.
type SafetyOverride struct {
	ApprovedBy string `json:"approved_by"`
	Reason     string `json:"reason"`
}
