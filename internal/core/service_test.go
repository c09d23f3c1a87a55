package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clinicstaff/pkg/domain"
)

func TestServiceSpecialtyLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.svc.CreateSpecialty(ctx, Specialty{Name: "clinico geral"}); !hasViolation(err, "unique_identity") {
		t.Fatalf("expected synonym duplicate to be rejected, got %v", err)
	}
	updated, _, err := f.svc.UpdateSpecialty(ctx, f.pediatria.ID, func(s *Specialty) error {
		s.Code = "PED"
		return nil
	})
	if err != nil || updated.Code != "PED" {
		t.Fatalf("update specialty: %+v %v", updated, err)
	}
	if _, err := f.svc.DeleteSpecialty(ctx, f.clinica.ID); !errors.Is(err, domain.ErrInUse) {
		t.Fatalf("expected in-use error, got %v", err)
	}
	if _, err := f.svc.DeleteSpecialty(ctx, f.pediatria.ID); err != nil {
		t.Fatalf("delete specialty: %v", err)
	}
	if _, ok := f.svc.GetSpecialty(f.pediatria.ID); ok {
		t.Fatalf("expected specialty to be gone")
	}
	if got := f.svc.ListSpecialties(); len(got) != 1 || got[0].ID != f.clinica.ID {
		t.Fatalf("unexpected specialties %+v", got)
	}
}

func TestServiceDoctorRequiresSinglePrimary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.svc.CreateDoctor(ctx, Doctor{
		Name: "Dr. Bruno",
		CRM:  "999",
		Specialties: []domain.DoctorSpecialty{
			{SpecialtyID: f.clinica.ID, Primary: true},
			{SpecialtyID: f.pediatria.ID, Primary: true},
		},
	})
	if !hasViolation(err, "primary_specialty") {
		t.Fatalf("expected primary_specialty violation, got %v", err)
	}
	_, _, err = f.svc.CreateDoctor(ctx, Doctor{
		Name:        "Dr. Bruno",
		CRM:         "999",
		Specialties: []domain.DoctorSpecialty{{SpecialtyID: f.pediatria.ID}},
	})
	if !hasViolation(err, "primary_specialty") {
		t.Fatalf("expected missing primary to be rejected, got %v", err)
	}
	if _, _, err := f.svc.CreateDoctor(ctx, Doctor{Name: "Dr. Clone", CRM: "crmsp 12.345"}); !hasViolation(err, "unique_identity") {
		t.Fatalf("expected duplicate CRM to be rejected, got %v", err)
	}
	if len(f.svc.ListDoctors(DoctorFilter{})) != 1 {
		t.Fatalf("rejected doctors must not be stored")
	}
}

func TestServiceSetPrimarySpecialty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	doc, _, err := f.svc.SetPrimarySpecialty(ctx, f.doctor.ID, f.pediatria.ID)
	if err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if id, ok := doc.PrimarySpecialtyID(); !ok || id != f.pediatria.ID {
		t.Fatalf("expected pediatria primary, got %q", id)
	}
	if len(doc.Specialties) != 2 || !doc.HasSpecialty(f.clinica.ID) {
		t.Fatalf("previous specialty link must be kept: %+v", doc.Specialties)
	}
	var nf ErrNotFound
	if _, _, err := f.svc.SetPrimarySpecialty(ctx, f.doctor.ID, "missing"); !errors.As(err, &nf) || nf.Entity != domain.EntitySpecialty {
		t.Fatalf("expected specialty not found, got %v", err)
	}
	if _, _, err := f.svc.SetPrimarySpecialty(ctx, "missing", f.clinica.ID); !errors.As(err, &nf) || nf.Entity != domain.EntityDoctor {
		t.Fatalf("expected doctor not found, got %v", err)
	}
}

func TestServiceRejectsOverlappingShifts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	morning := f.shift(t, 7, 19)
	f.shift(t, 19, 31)

	_, _, err := f.svc.CreateShift(ctx, Shift{DoctorID: f.doctor.ID, StartsAt: at(18), EndsAt: at(20)})
	if !hasViolation(err, "shift_overlap") {
		t.Fatalf("expected overlap violation, got %v", err)
	}
	if len(f.svc.ListShifts(ShiftFilter{})) != 2 {
		t.Fatalf("overlapping shift must not be stored")
	}
	if _, _, err := f.svc.UpdateShift(ctx, morning.ID, func(s *Shift) error {
		s.EndsAt = at(20)
		return nil
	}); !hasViolation(err, "shift_overlap") {
		t.Fatalf("expected overlap on update, got %v", err)
	}

	if _, _, err := f.svc.CancelShift(ctx, morning.ID, "cobertura remanejada"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, _, err := f.svc.CreateShift(ctx, Shift{DoctorID: f.doctor.ID, StartsAt: at(8), EndsAt: at(12)}); err != nil {
		t.Fatalf("cancelled shifts must not block new ones: %v", err)
	}
}

func TestServiceShiftTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.shift(t, 7, 19)

	cancelled, _, err := f.svc.CancelShift(ctx, s.ID, "falta")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.ShiftStatusCancelled || !strings.Contains(cancelled.Notes, "falta") {
		t.Fatalf("unexpected cancelled shift %+v", cancelled)
	}
	again, _, err := f.svc.CancelShift(ctx, s.ID, "")
	if err != nil || again.Notes != cancelled.Notes {
		t.Fatalf("second cancel must be a no-op: %+v %v", again, err)
	}
	var verr domain.ValidationError
	if _, _, err := f.svc.CompleteShift(ctx, s.ID); !errors.As(err, &verr) || verr.Field != "status" {
		t.Fatalf("expected status validation error, got %v", err)
	}

	other := f.shift(t, 19, 31)
	if _, _, err := f.svc.CompleteShift(ctx, other.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, _, err := f.svc.CancelShift(ctx, other.ID, ""); !errors.As(err, &verr) {
		t.Fatalf("completed shift cannot be cancelled, got %v", err)
	}
}

func TestServiceEncounterMustFitShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.shift(t, 7, 19)

	enc, _, err := f.svc.CreateEncounter(ctx, Encounter{
		DoctorID:    f.doctor.ID,
		ShiftID:     &s.ID,
		PatientName: "Maria",
		OccurredAt:  at(9),
	})
	if err != nil {
		t.Fatalf("create encounter: %v", err)
	}
	if enc.SpecialtyID != f.clinica.ID || enc.Kind != domain.EncounterConsultation {
		t.Fatalf("expected inherited specialty and default kind, got %+v", enc)
	}
	if _, _, err := f.svc.CreateEncounter(ctx, Encounter{
		DoctorID:    f.doctor.ID,
		ShiftID:     &s.ID,
		PatientName: "João",
		OccurredAt:  at(20),
	}); !hasViolation(err, "encounter_shift") {
		t.Fatalf("expected out-of-window violation, got %v", err)
	}
	if _, _, err := f.svc.CancelShift(ctx, s.ID, ""); !hasViolation(err, "encounter_shift") {
		t.Fatalf("shift with encounters cannot be cancelled, got %v", err)
	}
	if _, err := f.svc.DeleteShift(ctx, s.ID); !errors.Is(err, domain.ErrInUse) {
		t.Fatalf("expected in-use error, got %v", err)
	}

	walkIn, _, err := f.svc.CreateEncounter(ctx, Encounter{DoctorID: f.doctor.ID, PatientName: "Walk-in", OccurredAt: at(22), Kind: domain.EncounterEmergency})
	if err != nil {
		t.Fatalf("encounter without shift: %v", err)
	}
	got := f.svc.ListEncounters(EncounterFilter{Kind: domain.EncounterEmergency})
	if len(got) != 1 || got[0].ID != walkIn.ID {
		t.Fatalf("unexpected encounters %+v", got)
	}
	if _, err := f.svc.DeleteEncounter(ctx, enc.ID); err != nil {
		t.Fatalf("delete encounter: %v", err)
	}
	if _, err := f.svc.DeleteShift(ctx, s.ID); err != nil {
		t.Fatalf("delete shift: %v", err)
	}
}

func TestServiceUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, _, err := f.svc.CreateUser(ctx, User{Username: "ana", Role: domain.RoleDoctor, DoctorID: &f.doctor.ID, PasswordHash: "h", Active: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, _, err := f.svc.CreateUser(ctx, User{Username: "ANA", Role: domain.RoleViewer}); !hasViolation(err, "unique_identity") {
		t.Fatalf("expected duplicate username violation, got %v", err)
	}
	found, ok := f.svc.FindUserByUsername("Ana")
	if !ok || found.ID != user.ID || found.PasswordHash != "h" {
		t.Fatalf("lookup by username failed: %+v", found)
	}
	if _, _, err := f.svc.UpdateUser(ctx, user.ID, func(u *User) error {
		u.Role = domain.RoleCoordinator
		return nil
	}); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if got, _ := f.svc.GetUser(user.ID); got.Role != domain.RoleCoordinator {
		t.Fatalf("role not updated")
	}
	if _, err := f.svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if len(f.svc.ListUsers()) != 0 {
		t.Fatalf("expected no users")
	}
}

func TestServiceClockStampsRecords(t *testing.T) {
	f := newFixture(t, WithClock(fixedClock()))
	if !f.doctor.CreatedAt.Equal(fixedNow) || !f.doctor.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected clock timestamps, got %v %v", f.doctor.CreatedAt, f.doctor.UpdatedAt)
	}
	if !f.svc.Clock().Now().Equal(fixedNow) {
		t.Fatalf("clock accessor mismatch")
	}
}

func TestServiceShiftDurationWarningCommits(t *testing.T) {
	log := &captureLogger{}
	f := newFixture(t, WithLogger(log))
	s, res, err := f.svc.CreateShift(context.Background(), Shift{DoctorID: f.doctor.ID, StartsAt: at(0), EndsAt: at(30)})
	if err != nil {
		t.Fatalf("long shift should only warn: %v", err)
	}
	if len(res.Warnings()) != 1 || res.Warnings()[0].EntityID != s.ID {
		t.Fatalf("expected one warning, got %+v", res)
	}
	var warned bool
	for _, c := range log.calls {
		if strings.HasPrefix(c, "w:rule warning") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected warning log, got %v", log.calls)
	}
}

func TestServiceFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	day := f.shift(t, 7, 19)
	night := f.shift(t, 19, 31)
	bruno, _, err := f.svc.CreateDoctor(ctx, Doctor{
		Name:        "Dr. Bruno Lima",
		CRM:         "4242",
		Specialties: []domain.DoctorSpecialty{{SpecialtyID: f.pediatria.ID, Primary: true}},
	})
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}

	if got := f.svc.ListDoctors(DoctorFilter{SpecialtyID: f.pediatria.ID}); len(got) != 1 || got[0].ID != bruno.ID {
		t.Fatalf("specialty filter: %+v", got)
	}
	if got := f.svc.ListDoctors(DoctorFilter{ActiveOnly: true}); len(got) != 1 || got[0].ID != f.doctor.ID {
		t.Fatalf("active filter: %+v", got)
	}
	if got := f.svc.ListDoctors(DoctorFilter{Query: "lima"}); len(got) != 1 || got[0].ID != bruno.ID {
		t.Fatalf("query filter: %+v", got)
	}

	got := f.svc.ListShifts(ShiftFilter{From: at(19), To: at(20)})
	if len(got) != 1 || got[0].ID != night.ID {
		t.Fatalf("window filter should use half-open bounds: %+v", got)
	}
	got = f.svc.ListShifts(ShiftFilter{Unit: "ps adulto", To: at(19)})
	if len(got) != 1 || got[0].ID != day.ID {
		t.Fatalf("unit filter: %+v", got)
	}
	if got := f.svc.ListShifts(ShiftFilter{Status: domain.ShiftStatusCancelled}); len(got) != 0 {
		t.Fatalf("status filter: %+v", got)
	}

	enc := EncounterFilter{From: at(8), To: at(9)}
	if !enc.Match(Encounter{OccurredAt: at(8)}) || enc.Match(Encounter{OccurredAt: at(9)}) {
		t.Fatalf("encounter window must be half-open")
	}
	shiftID := day.ID
	byShift := EncounterFilter{ShiftID: day.ID, DoctorID: f.doctor.ID}
	if !byShift.Match(Encounter{DoctorID: f.doctor.ID, ShiftID: &shiftID}) || byShift.Match(Encounter{DoctorID: f.doctor.ID}) {
		t.Fatalf("shift filter mismatch")
	}
}

func TestServiceViewSeesCommittedState(t *testing.T) {
	f := newFixture(t)
	var doctors int
	if err := f.svc.View(context.Background(), func(v TransactionView) error {
		doctors = len(v.ListDoctors())
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if doctors != 1 {
		t.Fatalf("expected 1 doctor, got %d", doctors)
	}
	if f.svc.Store() == nil {
		t.Fatalf("store accessor returned nil")
	}
}

func TestServiceDeleteDoctorGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.shift(t, 7, 19)
	if _, err := f.svc.DeleteDoctor(ctx, f.doctor.ID); !errors.Is(err, domain.ErrInUse) {
		t.Fatalf("expected in-use, got %v", err)
	}
	if _, err := f.svc.DeleteShift(ctx, s.ID); err != nil {
		t.Fatalf("delete shift: %v", err)
	}
	if _, _, err := f.svc.UpdateDoctor(ctx, f.doctor.ID, func(d *Doctor) error {
		d.Active = false
		return nil
	}); err != nil {
		t.Fatalf("update doctor: %v", err)
	}
	if _, err := f.svc.DeleteDoctor(ctx, f.doctor.ID); err != nil {
		t.Fatalf("delete doctor: %v", err)
	}
	if _, ok := f.svc.GetDoctor(f.doctor.ID); ok {
		t.Fatalf("doctor should be deleted")
	}
}
