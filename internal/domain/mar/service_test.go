package mar

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/safety"
	"github.com/clinicore/clinicore/internal/platform/notify"
)

// -- Mock Repository --

type mockRepo struct {
	doses map[uuid.UUID]*DoseSchedule
	seq   int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{doses: make(map[uuid.UUID]*DoseSchedule)}
}

func (m *mockRepo) Create(_ context.Context, d *DoseSchedule) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	m.doses[d.ID] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*DoseSchedule, error) {
	d, ok := m.doses[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) ListByAdmission(_ context.Context, admissionID uuid.UUID, filter ScheduleFilter, limit, offset int) ([]*DoseSchedule, int, error) {
	var result []*DoseSchedule
	for _, d := range m.doses {
		if d.AdmissionID != admissionID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledTime.Before(result[j].ScheduledTime) })
	return result, len(result), nil
}

func (m *mockRepo) ListOverdue(_ context.Context, admissionID uuid.UUID, now time.Time) ([]*DoseSchedule, error) {
	var result []*DoseSchedule
	for _, d := range m.doses {
		if d.AdmissionID == admissionID && d.Overdue(now) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockRepo) ListSweepCandidates(_ context.Context, now time.Time, limit int) ([]*DoseSchedule, error) {
	var result []*DoseSchedule
	for _, d := range m.doses {
		if d.Overdue(now) {
			cp := *d
			result = append(result, &cp)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockRepo) NextMARSequence(_ context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *mockRepo) MarkGiven(_ context.Context, d *DoseSchedule) (bool, error) {
	cur, ok := m.doses[d.ID]
	if !ok || cur.Status != StatusScheduled {
		return false, nil
	}
	cur.Status = StatusGiven
	cur.AdministeredTime = d.AdministeredTime
	cur.AdministeredBy = d.AdministeredBy
	cur.WitnessedBy = d.WitnessedBy
	cur.Site = d.Site
	cur.Notes = d.Notes
	cur.VitalsAtAdmin = d.VitalsAtAdmin
	cur.VerifiedRights = d.VerifiedRights
	cur.SafetyWarnings = d.SafetyWarnings
	cur.SafetyOverride = d.SafetyOverride
	cur.FinalizedBy = d.AdministeredBy
	return true, nil
}

func (m *mockRepo) MarkHeld(_ context.Context, id uuid.UUID, reason, details, by string) (bool, error) {
	cur, ok := m.doses[id]
	if !ok || cur.Status != StatusScheduled {
		return false, nil
	}
	cur.Status = StatusHeld
	cur.HoldReason = reason
	cur.HoldDetails = details
	cur.FinalizedBy = by
	return true, nil
}

func (m *mockRepo) MarkRefused(_ context.Context, id uuid.UUID, reason, by string) (bool, error) {
	cur, ok := m.doses[id]
	if !ok || cur.Status != StatusScheduled {
		return false, nil
	}
	cur.Status = StatusRefused
	cur.RefusalReason = reason
	cur.FinalizedBy = by
	return true, nil
}

func (m *mockRepo) MarkMissed(_ context.Context, id uuid.UUID) (bool, error) {
	cur, ok := m.doses[id]
	if !ok || cur.Status != StatusScheduled {
		return false, nil
	}
	cur.Status = StatusMissed
	return true, nil
}

// -- Mock safety context provider --

type mockProvider struct {
	pctx safety.PatientContext
	err  error
}

func (m *mockProvider) PatientContext(_ context.Context, patientID uuid.UUID) (*safety.PatientContext, error) {
	if m.err != nil {
		return nil, m.err
	}
	cp := m.pctx
	cp.PatientID = patientID
	return &cp, nil
}

type mockAlerter struct {
	requests []notify.Request
}

func (m *mockAlerter) Enqueue(req notify.Request) {
	m.requests = append(m.requests, req)
}

// -- Helpers --

var testNow = time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)

func newTestService(provider *mockProvider) (*Service, *mockRepo, *mockAlerter) {
	repo := newMockRepo()
	alerts := &mockAlerter{}
	svc := NewService(repo, safety.NewVerifier(4*time.Hour), provider, alerts, Config{
		GraceBefore:        30 * time.Minute,
		GraceAfter:         30 * time.Minute,
		PhysicianRecipient: "dr.smith",
	})
	svc.now = func() time.Time { return testNow }
	return svc, repo, alerts
}

func scheduleOneDose(t *testing.T, svc *Service) *DoseSchedule {
	t.Helper()
	created, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:      uuid.New(),
		AdmissionID:    uuid.New(),
		OrderID:        uuid.New(),
		MedicationID:   uuid.New(),
		MedicationName: "Metoprolol 50mg",
		Dose:           "50mg",
		Route:          "oral",
		ScheduledTimes: []time.Time{testNow},
	})
	if err != nil {
		t.Fatalf("CreateSchedule() error: %v", err)
	}
	return created[0]
}

func allRights() RightsCheck {
	return RightsCheck{RightPatient: true, RightDrug: true, RightDose: true, RightRoute: true, RightTime: true}
}

// -- CreateSchedule --

func TestCreateSchedule_OneDosePerTime(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	times := []time.Time{testNow, testNow.Add(6 * time.Hour), testNow.Add(12 * time.Hour)}

	created, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:      uuid.New(),
		AdmissionID:    uuid.New(),
		OrderID:        uuid.New(),
		MedicationID:   uuid.New(),
		MedicationName: "Amoxicillin 500mg",
		Dose:           "500mg",
		Route:          "oral",
		ScheduledTimes: times,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 doses, got %d", len(created))
	}

	first := created[0]
	if first.Status != StatusScheduled {
		t.Errorf("expected scheduled status, got %s", first.Status)
	}
	if !first.WindowEarly.Equal(testNow.Add(-30 * time.Minute)) {
		t.Errorf("unexpected early window: %s", first.WindowEarly)
	}
	if !first.WindowLate.Equal(testNow.Add(30 * time.Minute)) {
		t.Errorf("unexpected late window: %s", first.WindowLate)
	}
	if first.MARNumber == "" || first.MARNumber[:11] != "MAR20260828" {
		t.Errorf("unexpected mar number: %s", first.MARNumber)
	}
	if created[0].MARNumber == created[1].MARNumber {
		t.Error("mar numbers must be unique")
	}
}

func TestCreateSchedule_MARNumbersDrawFromSequence(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	seen := make(map[string]bool)

	// Two separate schedules must never repeat a number; allocation goes
	// through the repository sequence, not a row count.
	for i := 0; i < 2; i++ {
		created, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
			PatientID:      uuid.New(),
			AdmissionID:    uuid.New(),
			OrderID:        uuid.New(),
			MedicationID:   uuid.New(),
			MedicationName: "Lisinopril 10mg",
			Dose:           "10mg",
			Route:          "oral",
			ScheduledTimes: []time.Time{testNow, testNow.Add(12 * time.Hour)},
		})
		if err != nil {
			t.Fatalf("CreateSchedule() error: %v", err)
		}
		for _, d := range created {
			if seen[d.MARNumber] {
				t.Errorf("duplicate mar number %s", d.MARNumber)
			}
			seen[d.MARNumber] = true
		}
	}
}

func TestCreateSchedule_InvalidRoute(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	_, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:      uuid.New(),
		AdmissionID:    uuid.New(),
		MedicationID:   uuid.New(),
		MedicationName: "X",
		Dose:           "1",
		Route:          "intrathecal",
		ScheduledTimes: []time.Time{testNow},
	})
	if err == nil {
		t.Fatal("expected error for invalid route")
	}
}

func TestCreateSchedule_PRNNeedsReason(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	_, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:      uuid.New(),
		AdmissionID:    uuid.New(),
		MedicationID:   uuid.New(),
		MedicationName: "Paracetamol 500mg",
		Dose:           "500mg",
		Route:          "oral",
		IsPRN:          true,
		ScheduledTimes: []time.Time{testNow},
	})
	if err == nil {
		t.Fatal("expected error for PRN without reason")
	}
}

// -- Administer --

func TestAdminister_HappyPath(t *testing.T) {
	svc, repo, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	got, err := svc.Administer(context.Background(), d.ID, AdministerRequest{Rights: allRights()}, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusGiven {
		t.Errorf("expected given, got %s", got.Status)
	}
	if got.AdministeredTime == nil || !got.AdministeredTime.Equal(testNow) {
		t.Errorf("expected administered_time %s, got %v", testNow, got.AdministeredTime)
	}

	stored, _ := repo.GetByID(context.Background(), d.ID)
	if stored.Status != StatusGiven || stored.AdministeredBy != "nurse-1" {
		t.Errorf("administration not persisted: %+v", stored)
	}
	if stored.VerifiedRights == nil || !stored.VerifiedRights.RightPatient || !stored.VerifiedRights.RightTime {
		t.Errorf("rights attestation not persisted: %+v", stored.VerifiedRights)
	}
}

func TestAdminister_PersistsWarnings(t *testing.T) {
	svc, repo, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc) // scheduled route is oral

	// Administering by a different route passes (warnings never block) but the
	// record must keep the warning the nurse saw.
	got, err := svc.Administer(context.Background(), d.ID, AdministerRequest{
		Rights:   allRights(),
		Route:    "sublingual",
		Override: &SafetyOverride{ApprovedBy: "dr.smith", Reason: "patient unable to swallow"},
	}, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusGiven {
		t.Fatalf("expected given, got %s", got.Status)
	}

	stored, _ := repo.GetByID(context.Background(), d.ID)
	var found bool
	for _, w := range stored.SafetyWarnings {
		if w.Code == safety.WarnRouteMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("route_mismatch warning not persisted: %+v", stored.SafetyWarnings)
	}
	if stored.SafetyOverride == nil || stored.SafetyOverride.ApprovedBy != "dr.smith" {
		t.Errorf("warning acknowledgment not persisted: %+v", stored.SafetyOverride)
	}
}

func TestAdminister_RightsIncomplete(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	rights := allRights()
	rights.RightDose = false
	rights.RightTime = false

	_, err := svc.Administer(context.Background(), d.ID, AdministerRequest{Rights: rights}, "nurse-1")
	var rightsErr *RightsNotVerifiedError
	if !errors.As(err, &rightsErr) {
		t.Fatalf("expected RightsNotVerifiedError, got %v", err)
	}
	if len(rightsErr.Missing) != 2 {
		t.Errorf("expected 2 missing rights, got %v", rightsErr.Missing)
	}
}

func TestAdminister_AllergyBlocks(t *testing.T) {
	provider := &mockProvider{pctx: safety.PatientContext{
		Allergies: []safety.Allergy{{Substance: "penicillin"}},
	}}
	svc, repo, _ := newTestService(provider)

	created, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:       uuid.New(),
		AdmissionID:     uuid.New(),
		OrderID:         uuid.New(),
		MedicationID:    uuid.New(),
		MedicationName:  "Amoxicillin 500mg",
		MedicationClass: "penicillin",
		Dose:            "500mg",
		Route:           "oral",
		ScheduledTimes:  []time.Time{testNow},
	})
	if err != nil {
		t.Fatalf("CreateSchedule() error: %v", err)
	}

	_, err = svc.Administer(context.Background(), created[0].ID, AdministerRequest{Rights: allRights()}, "nurse-1")
	var blocked *BlockedBySafetyError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedBySafetyError, got %v", err)
	}
	if blocked.Blockers[0].Code != safety.BlockerAllergyMatch {
		t.Errorf("expected allergy_match, got %s", blocked.Blockers[0].Code)
	}

	// The dose stays scheduled; nothing was written.
	stored, _ := repo.GetByID(context.Background(), created[0].ID)
	if stored.Status != StatusScheduled {
		t.Errorf("blocked administration must not change status, got %s", stored.Status)
	}
}

func TestAdminister_BlockerTrumpsRights(t *testing.T) {
	// Complete rights with an active blocker still refuses: the rights check
	// passes first but the safety verdict decides.
	provider := &mockProvider{pctx: safety.PatientContext{
		Holds: []safety.DoctorHold{},
	}}
	svc, _, _ := newTestService(provider)
	d := scheduleOneDose(t, svc)

	provider.pctx.Holds = []safety.DoctorHold{{OrderID: d.OrderID, Reason: "stop order", PlacedBy: "dr.smith"}}

	_, err := svc.Administer(context.Background(), d.ID, AdministerRequest{Rights: allRights()}, "nurse-1")
	var blocked *BlockedBySafetyError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedBySafetyError, got %v", err)
	}
}

func TestAdminister_OverrideCannotClearBlockers(t *testing.T) {
	provider := &mockProvider{pctx: safety.PatientContext{
		Allergies: []safety.Allergy{{Substance: "penicillin"}},
	}}
	svc, repo, _ := newTestService(provider)

	created, _ := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:       uuid.New(),
		AdmissionID:     uuid.New(),
		OrderID:         uuid.New(),
		MedicationID:    uuid.New(),
		MedicationName:  "Amoxicillin 500mg",
		MedicationClass: "penicillin",
		Dose:            "500mg",
		Route:           "oral",
		ScheduledTimes:  []time.Time{testNow},
	})

	_, err := svc.Administer(context.Background(), created[0].ID, AdministerRequest{
		Rights:   allRights(),
		Override: &SafetyOverride{ApprovedBy: "dr.smith", Reason: "desensitization protocol"},
	}, "nurse-1")
	var blocked *BlockedBySafetyError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedBySafetyError despite override, got %v", err)
	}
	if blocked.Blockers[0].Code != safety.BlockerAllergyMatch {
		t.Errorf("expected allergy_match, got %s", blocked.Blockers[0].Code)
	}

	stored, _ := repo.GetByID(context.Background(), created[0].ID)
	if stored.Status != StatusScheduled {
		t.Errorf("blocked dose must stay scheduled, got %s", stored.Status)
	}
}

func TestAdminister_ControlledNeedsWitness(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	created, _ := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:      uuid.New(),
		AdmissionID:    uuid.New(),
		OrderID:        uuid.New(),
		MedicationID:   uuid.New(),
		MedicationName: "Morphine 10mg",
		Controlled:     true,
		Dose:           "10mg",
		Route:          "iv",
		ScheduledTimes: []time.Time{testNow},
	})

	_, err := svc.Administer(context.Background(), created[0].ID, AdministerRequest{
		Rights: allRights(),
		Site:   "left forearm",
	}, "nurse-1")
	if err == nil {
		t.Fatal("expected error for controlled medication without witness")
	}

	got, err := svc.Administer(context.Background(), created[0].ID, AdministerRequest{
		Rights:    allRights(),
		Site:      "left forearm",
		WitnessID: "nurse-2",
	}, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error with witness: %v", err)
	}
	if got.WitnessedBy != "nurse-2" {
		t.Errorf("expected witness recorded, got %q", got.WitnessedBy)
	}
}

func TestAdminister_ParenteralNeedsSite(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	created, _ := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		PatientID:      uuid.New(),
		AdmissionID:    uuid.New(),
		OrderID:        uuid.New(),
		MedicationID:   uuid.New(),
		MedicationName: "Enoxaparin 40mg",
		Dose:           "40mg",
		Route:          "sc",
		ScheduledTimes: []time.Time{testNow},
	})

	_, err := svc.Administer(context.Background(), created[0].ID, AdministerRequest{Rights: allRights()}, "nurse-1")
	if err == nil {
		t.Fatal("expected error for injection without site")
	}
}

func TestAdminister_SecondAttemptConflicts(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	if _, err := svc.Administer(context.Background(), d.ID, AdministerRequest{Rights: allRights()}, "nurse-1"); err != nil {
		t.Fatalf("first administration failed: %v", err)
	}

	_, err := svc.Administer(context.Background(), d.ID, AdministerRequest{Rights: allRights()}, "nurse-2")
	var finalized *AlreadyFinalizedError
	if !errors.As(err, &finalized) {
		t.Fatalf("expected AlreadyFinalizedError, got %v", err)
	}
	if finalized.Status != StatusGiven {
		t.Errorf("expected conflict to report given, got %s", finalized.Status)
	}
}

// -- Hold / Refuse --

func TestHold_InvalidReason(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	_, err := svc.Hold(context.Background(), d.ID, "nurse_busy", "", "nurse-1")
	var invalid *InvalidReasonError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidReasonError, got %v", err)
	}
}

func TestHold_NotifiesPhysician(t *testing.T) {
	svc, _, alerts := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	got, err := svc.Hold(context.Background(), d.ID, "vital_signs", "Systolic 82 before dose", "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusHeld || got.HoldReason != "vital_signs" {
		t.Errorf("hold not recorded: %+v", got)
	}

	if len(alerts.requests) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts.requests))
	}
	req := alerts.requests[0]
	if req.TemplateID != "dose-held" || req.Recipient != "dr.smith" {
		t.Errorf("unexpected alert: %+v", req)
	}
	if req.Data["reason"] != "vital_signs" {
		t.Errorf("expected reason in alert data, got %q", req.Data["reason"])
	}
}

func TestRefuse_RequiresReason(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	_, err := svc.Refuse(context.Background(), d.ID, "", "nurse-1")
	var invalid *InvalidReasonError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidReasonError, got %v", err)
	}
}

func TestRefuse_FinalizesAndNotifies(t *testing.T) {
	svc, _, alerts := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	got, err := svc.Refuse(context.Background(), d.ID, "nausea", "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusRefused || got.RefusalReason != "nausea" {
		t.Errorf("refusal not recorded: %+v", got)
	}
	if len(alerts.requests) != 1 || alerts.requests[0].TemplateID != "dose-refused" {
		t.Errorf("expected dose-refused alert, got %+v", alerts.requests)
	}
}

func TestHold_AfterRefuseConflicts(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	if _, err := svc.Refuse(context.Background(), d.ID, "nausea", "nurse-1"); err != nil {
		t.Fatalf("refuse failed: %v", err)
	}

	_, err := svc.Hold(context.Background(), d.ID, "npo", "", "nurse-1")
	var finalized *AlreadyFinalizedError
	if !errors.As(err, &finalized) {
		t.Fatalf("expected AlreadyFinalizedError, got %v", err)
	}
	if finalized.Status != StatusRefused {
		t.Errorf("expected refused reported, got %s", finalized.Status)
	}
}

// -- Overdue / Supersede --

func TestListOverdue_WindowEdges(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	// Inside the window: not overdue.
	svc.now = func() time.Time { return testNow.Add(29 * time.Minute) }
	overdue, err := svc.ListOverdue(context.Background(), d.AdmissionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 0 {
		t.Errorf("dose inside window must not be overdue")
	}

	// Past the late edge: overdue.
	svc.now = func() time.Time { return testNow.Add(31 * time.Minute) }
	overdue, err = svc.ListOverdue(context.Background(), d.AdmissionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 1 {
		t.Errorf("expected 1 overdue dose, got %d", len(overdue))
	}
}

func TestSupersede_MissedDose(t *testing.T) {
	svc, repo, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	if _, err := repo.MarkMissed(context.Background(), d.ID); err != nil {
		t.Fatalf("mark missed: %v", err)
	}

	replacement, err := svc.Supersede(context.Background(), d.ID, testNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replacement.SupersedesID == nil || *replacement.SupersedesID != d.ID {
		t.Errorf("expected supersedes link to original dose")
	}
	if replacement.Status != StatusScheduled {
		t.Errorf("expected replacement scheduled, got %s", replacement.Status)
	}

	// The original stays missed.
	orig, _ := repo.GetByID(context.Background(), d.ID)
	if orig.Status != StatusMissed {
		t.Errorf("original must stay missed, got %s", orig.Status)
	}
}

func TestSupersede_RejectsScheduledAndGiven(t *testing.T) {
	svc, _, _ := newTestService(&mockProvider{})
	d := scheduleOneDose(t, svc)

	if _, err := svc.Supersede(context.Background(), d.ID, testNow.Add(time.Hour)); err == nil {
		t.Fatal("expected error superseding a scheduled dose")
	}

	if _, err := svc.Administer(context.Background(), d.ID, AdministerRequest{Rights: allRights()}, "nurse-1"); err != nil {
		t.Fatalf("administer failed: %v", err)
	}
	if _, err := svc.Supersede(context.Background(), d.ID, testNow.Add(time.Hour)); err == nil {
		t.Fatal("expected error superseding a given dose")
	}
}
