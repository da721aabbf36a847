package safety

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DoseCheck describes the dose about to be given.
type DoseCheck struct {
	OrderID         uuid.UUID `json:"order_id"`
	MedicationID    uuid.UUID `json:"medication_id"`
	MedicationName  string    `json:"medication_name"`
	MedicationClass string    `json:"medication_class,omitempty"`
	Route           string    `json:"route"`
	ScheduledRoute  string    `json:"scheduled_route"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	WindowEarly     time.Time `json:"window_early"`
	WindowLate      time.Time `json:"window_late"`
	Now             time.Time `json:"-"`
}

// Verifier applies the pre-administration safety rules. It is stateless; the
// patient context is supplied per call so every check sees current data.
type Verifier struct {
	minDoseInterval time.Duration
}

func NewVerifier(minDoseInterval time.Duration) *Verifier {
	return &Verifier{minDoseInterval: minDoseInterval}
}

// Verify runs all rules and returns the verdict. Allergy matches and doctor
// holds block; everything else warns.
func (v *Verifier) Verify(check DoseCheck, pctx PatientContext) Verdict {
	verdict := Verdict{Blockers: []Blocker{}, Warnings: []Warning{}}
	now := check.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	for _, a := range pctx.Allergies {
		if allergyMatches(a, check) {
			verdict.Blockers = append(verdict.Blockers, Blocker{
				Code:   BlockerAllergyMatch,
				Detail: fmt.Sprintf("patient allergic to %s", a.Substance),
			})
		}
	}

	for _, h := range pctx.Holds {
		if h.OrderID == check.OrderID {
			verdict.Blockers = append(verdict.Blockers, Blocker{
				Code:   BlockerDoctorHold,
				Detail: fmt.Sprintf("order held by %s: %s", h.PlacedBy, h.Reason),
			})
		}
	}

	if check.Route != "" && check.ScheduledRoute != "" && !strings.EqualFold(check.Route, check.ScheduledRoute) {
		verdict.Warnings = append(verdict.Warnings, Warning{
			Code:     WarnRouteMismatch,
			Detail:   fmt.Sprintf("scheduled route %s, attempting %s", check.ScheduledRoute, check.Route),
			Severity: SeverityModerate,
		})
	}

	if !check.WindowEarly.IsZero() && (now.Before(check.WindowEarly) || now.After(check.WindowLate)) {
		verdict.Warnings = append(verdict.Warnings, Warning{
			Code:     WarnTimeOutsideWindow,
			Detail:   fmt.Sprintf("current time outside due window %s - %s", check.WindowEarly.Format(time.RFC3339), check.WindowLate.Format(time.RFC3339)),
			Severity: SeverityMinor,
		})
	}

	for _, adm := range pctx.RecentAdministrations {
		since := now.Sub(adm.AdministeredAt)
		if since < 0 || since >= v.minDoseInterval {
			continue
		}
		if adm.MedicationID == check.MedicationID {
			verdict.Warnings = append(verdict.Warnings, Warning{
				Code:     WarnMinInterval,
				Detail:   fmt.Sprintf("same medication given %s ago, minimum interval %s", since.Round(time.Minute), v.minDoseInterval),
				Severity: SeverityMajor,
			})
		} else if check.MedicationClass != "" && strings.EqualFold(adm.MedicationClass, check.MedicationClass) {
			verdict.Warnings = append(verdict.Warnings, Warning{
				Code:     WarnDuplicateClass,
				Detail:   fmt.Sprintf("another %s-class medication given %s ago", check.MedicationClass, since.Round(time.Minute)),
				Severity: SeverityModerate,
			})
		}
	}

	verdict.Safe = len(verdict.Blockers) == 0
	return verdict
}

// allergyMatches compares the recorded allergen against the medication name
// and class. A substance recorded as "penicillin" must block amoxicillin,
// whose class is penicillin, not just drugs literally named penicillin.
func allergyMatches(a Allergy, check DoseCheck) bool {
	sub := strings.ToLower(strings.TrimSpace(a.Substance))
	if sub == "" {
		return false
	}
	name := strings.ToLower(check.MedicationName)
	class := strings.ToLower(check.MedicationClass)
	if sub == name || (class != "" && sub == class) {
		return true
	}
	if a.Class != "" && class != "" && strings.EqualFold(a.Class, check.MedicationClass) {
		return true
	}
	return false
}
