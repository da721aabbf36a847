package safety

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades warnings. Matches the interaction taxonomy used by the
// pharmacy catalogue so interaction warnings slot in without an API change.
type Severity string

const (
	SeverityMajor    Severity = "major"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// Blocker codes. A blocker means the dose must not be given.
const (
	BlockerAllergyMatch = "allergy_match"
	BlockerDoctorHold   = "doctor_hold"
)

// Warning codes. A warning is surfaced to the nurse but does not block.
const (
	WarnRouteMismatch     = "route_mismatch"
	WarnTimeOutsideWindow = "time_outside_window"
	WarnMinInterval       = "min_interval"
	WarnDuplicateClass    = "duplicate_class"
)

// Allergy is one active allergy on the patient record. Class is the allergen
// group ("penicillin", "sulfonamide") when known.
type Allergy struct {
	Substance string `json:"substance"`
	Class     string `json:"class,omitempty"`
}

// DoctorHold is an active physician stop order against a medication order.
type DoctorHold struct {
	OrderID  uuid.UUID `json:"order_id"`
	Reason   string    `json:"reason"`
	PlacedBy string    `json:"placed_by"`
	PlacedAt time.Time `json:"placed_at"`
}

// Administration is a prior given dose relevant to interval and duplicate
// therapy checks.
type Administration struct {
	MedicationID    uuid.UUID `json:"medication_id"`
	MedicationClass string    `json:"medication_class,omitempty"`
	AdministeredAt  time.Time `json:"administered_at"`
}

// PatientContext is the snapshot of patient state the verifier reads. It is
// assembled fresh for every check; verdicts are never cached.
type PatientContext struct {
	PatientID             uuid.UUID        `json:"patient_id"`
	Allergies             []Allergy        `json:"allergies,omitempty"`
	Holds                 []DoctorHold     `json:"holds,omitempty"`
	RecentAdministrations []Administration `json:"recent_administrations,omitempty"`
}

// Blocker is a hard stop.
type Blocker struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Warning is advisory.
type Warning struct {
	Code     string   `json:"code"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
}

// Verdict is the outcome of one safety check. Safe is true exactly when there
// are no blockers; warnings alone never make a dose unsafe.
type Verdict struct {
	Safe     bool      `json:"safe"`
	Blockers []Blocker `json:"blockers"`
	Warnings []Warning `json:"warnings"`
}
