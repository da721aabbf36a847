package safety

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func baseCheck() DoseCheck {
	scheduled := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	return DoseCheck{
		OrderID:         uuid.New(),
		MedicationID:    uuid.New(),
		MedicationName:  "Amoxicillin 500mg",
		MedicationClass: "penicillin",
		Route:           "oral",
		ScheduledRoute:  "oral",
		ScheduledTime:   scheduled,
		WindowEarly:     scheduled.Add(-30 * time.Minute),
		WindowLate:      scheduled.Add(30 * time.Minute),
		Now:             scheduled,
	}
}

func TestVerify_CleanContextIsSafe(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	verdict := v.Verify(baseCheck(), PatientContext{})
	if !verdict.Safe {
		t.Fatalf("expected safe verdict, got blockers %v", verdict.Blockers)
	}
	if len(verdict.Blockers) != 0 || len(verdict.Warnings) != 0 {
		t.Errorf("expected empty blockers and warnings, got %v / %v", verdict.Blockers, verdict.Warnings)
	}
}

func TestVerify_AllergyClassBlocks(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	// Recorded substance is the allergen group, the drug is a member of it.
	pctx := PatientContext{Allergies: []Allergy{{Substance: "Penicillin"}}}

	verdict := v.Verify(baseCheck(), pctx)
	if verdict.Safe {
		t.Fatal("expected unsafe verdict for penicillin allergy vs amoxicillin")
	}
	if len(verdict.Blockers) != 1 || verdict.Blockers[0].Code != BlockerAllergyMatch {
		t.Errorf("expected allergy_match blocker, got %v", verdict.Blockers)
	}
}

func TestVerify_AllergyNameBlocks(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	check := baseCheck()
	check.MedicationName = "aspirin"
	check.MedicationClass = "nsaid"
	pctx := PatientContext{Allergies: []Allergy{{Substance: "Aspirin"}}}

	verdict := v.Verify(check, pctx)
	if verdict.Safe {
		t.Fatal("expected unsafe verdict for exact name match")
	}
}

func TestVerify_UnrelatedAllergyDoesNotBlock(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	pctx := PatientContext{Allergies: []Allergy{{Substance: "latex"}}}

	verdict := v.Verify(baseCheck(), pctx)
	if !verdict.Safe {
		t.Fatalf("expected safe verdict, got %v", verdict.Blockers)
	}
}

func TestVerify_DoctorHoldBlocks(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	check := baseCheck()
	pctx := PatientContext{Holds: []DoctorHold{{
		OrderID:  check.OrderID,
		Reason:   "pending renal panel",
		PlacedBy: "dr.smith",
		PlacedAt: check.Now.Add(-time.Hour),
	}}}

	verdict := v.Verify(check, pctx)
	if verdict.Safe {
		t.Fatal("expected unsafe verdict for held order")
	}
	if verdict.Blockers[0].Code != BlockerDoctorHold {
		t.Errorf("expected doctor_hold blocker, got %s", verdict.Blockers[0].Code)
	}
}

func TestVerify_HoldOnOtherOrderDoesNotBlock(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	pctx := PatientContext{Holds: []DoctorHold{{OrderID: uuid.New(), Reason: "x", PlacedBy: "dr.smith"}}}

	verdict := v.Verify(baseCheck(), pctx)
	if !verdict.Safe {
		t.Fatalf("expected safe verdict, got %v", verdict.Blockers)
	}
}

func TestVerify_WarningsDoNotBlock(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	check := baseCheck()
	check.Route = "iv"
	check.Now = check.WindowLate.Add(time.Hour)

	verdict := v.Verify(check, PatientContext{})
	if !verdict.Safe {
		t.Fatalf("warnings must not make a dose unsafe: %v", verdict.Blockers)
	}
	codes := map[string]bool{}
	for _, w := range verdict.Warnings {
		codes[w.Code] = true
	}
	if !codes[WarnRouteMismatch] {
		t.Error("expected route_mismatch warning")
	}
	if !codes[WarnTimeOutsideWindow] {
		t.Error("expected time_outside_window warning")
	}
}

func TestVerify_MinIntervalWarning(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	check := baseCheck()
	pctx := PatientContext{RecentAdministrations: []Administration{{
		MedicationID:   check.MedicationID,
		AdministeredAt: check.Now.Add(-time.Hour),
	}}}

	verdict := v.Verify(check, pctx)
	if !verdict.Safe {
		t.Fatal("interval warning must not block")
	}
	if len(verdict.Warnings) != 1 || verdict.Warnings[0].Code != WarnMinInterval {
		t.Fatalf("expected min_interval warning, got %v", verdict.Warnings)
	}
	if verdict.Warnings[0].Severity != SeverityMajor {
		t.Errorf("expected major severity, got %s", verdict.Warnings[0].Severity)
	}
}

func TestVerify_DuplicateClassWarning(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	check := baseCheck()
	pctx := PatientContext{RecentAdministrations: []Administration{{
		MedicationID:    uuid.New(),
		MedicationClass: "Penicillin",
		AdministeredAt:  check.Now.Add(-time.Hour),
	}}}

	verdict := v.Verify(check, pctx)
	if len(verdict.Warnings) != 1 || verdict.Warnings[0].Code != WarnDuplicateClass {
		t.Fatalf("expected duplicate_class warning, got %v", verdict.Warnings)
	}
}

func TestVerify_OldAdministrationIgnored(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	check := baseCheck()
	pctx := PatientContext{RecentAdministrations: []Administration{{
		MedicationID:   check.MedicationID,
		AdministeredAt: check.Now.Add(-5 * time.Hour),
	}}}

	verdict := v.Verify(check, pctx)
	if len(verdict.Warnings) != 0 {
		t.Errorf("expected no warnings beyond the interval, got %v", verdict.Warnings)
	}
}

func TestVerify_FreshVerdictEachCall(t *testing.T) {
	v := NewVerifier(4 * time.Hour)
	check := baseCheck()

	// First call: hold present, blocked.
	held := PatientContext{Holds: []DoctorHold{{OrderID: check.OrderID, Reason: "x", PlacedBy: "dr.smith"}}}
	if verdict := v.Verify(check, held); verdict.Safe {
		t.Fatal("expected blocked verdict while hold active")
	}

	// Second call with the hold released: nothing stale carries over.
	if verdict := v.Verify(check, PatientContext{}); !verdict.Safe {
		t.Fatal("expected safe verdict after hold released")
	}
}
