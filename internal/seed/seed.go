// Package seed loads a small demonstration roster: specialties, doctors,
// a week of alternating day and night shifts with encounters, and the
// initial user accounts.
package seed

import (
	"clinicstaff/internal/auth"
	"clinicstaff/internal/core"
	"clinicstaff/pkg/domain"
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotEmpty is returned when the store already holds staff records.
var ErrNotEmpty = errors.New("seed: store is not empty")

// DefaultPassword is used for the seeded accounts when none is given.
const DefaultPassword = "clinicstaff"

// Options tunes the generated roster.
type Options struct {
	// Start is the first day of the roster; it is truncated to midnight UTC.
	// Zero means seven days before Now.
	Start time.Time
	// Days is the roster length. Zero means 7.
	Days int
	// Now decides which shifts are already completed. Zero means the
	// service clock.
	Now time.Time
	// Password is shared by the seeded users.
	Password string
	// EncountersPerShift is recorded on every completed shift. Zero means 3.
	EncountersPerShift int
}

// Summary counts what Run created.
type Summary struct {
	Specialties int `json:"specialties"`
	Doctors     int `json:"doctors"`
	Shifts      int `json:"shifts"`
	Completed   int `json:"completed"`
	Encounters  int `json:"encounters"`
	Users       int `json:"users"`
}

var specialties = []domain.Specialty{
	{Name: "Clínica Médica", Code: "CM"},
	{Name: "Pediatria", Code: "PED"},
	{Name: "Ginecologia e Obstetrícia", Code: "GO"},
	{Name: "Cardiologia", Code: "CARD"},
	{Name: "Ortopedia", Code: "ORT"},
	{Name: "Medicina de Emergência", Code: "EMG"},
}

type doctorSeed struct {
	name, crm, unit string
	primary         int
	secondary       []int
}

var doctors = []doctorSeed{
	{name: "Dra. Ana Souza", crm: "CRM-SP 102345", unit: "PS Adulto", primary: 0, secondary: []int{5}},
	{name: "Dr. Paulo Lima", crm: "CRM-SP 118902", unit: "PS Infantil", primary: 1},
	{name: "Dra. Beatriz Nunes", crm: "CRM-SP 99871", unit: "Maternidade", primary: 2},
	{name: "Dr. Ricardo Alves", crm: "CRM-SP 130077", unit: "Unidade Coronariana", primary: 3, secondary: []int{0}},
	{name: "Dr. Marcos Teixeira", crm: "CRM-SP 87410", unit: "Ortopedia", primary: 4},
}

var encounterKinds = []domain.EncounterKind{
	domain.EncounterConsultation,
	domain.EncounterEmergency,
	domain.EncounterProcedure,
	domain.EncounterFollowUp,
}

var patients = []string{
	"Maria Oliveira", "João Santos", "Luiza Ferreira", "Pedro Costa",
	"Camila Rocha", "Rafael Martins", "Juliana Ribeiro", "Lucas Almeida",
}

// Run populates svc. It refuses to touch a store that already has
// specialties or doctors.
func Run(ctx context.Context, svc *core.Service, hasher auth.Hasher, opts Options) (Summary, error) {
	var sum Summary
	if len(svc.ListSpecialties()) > 0 || len(svc.ListDoctors(core.DoctorFilter{})) > 0 {
		return sum, ErrNotEmpty
	}
	opts = opts.withDefaults(svc.Clock().Now())

	specIDs := make([]string, 0, len(specialties))
	for _, sp := range specialties {
		created, _, err := svc.CreateSpecialty(ctx, sp)
		if err != nil {
			return sum, fmt.Errorf("seed specialty %s: %w", sp.Name, err)
		}
		specIDs = append(specIDs, created.ID)
		sum.Specialties++
	}

	docs := make([]domain.Doctor, 0, len(doctors))
	for _, ds := range doctors {
		links := []domain.DoctorSpecialty{{SpecialtyID: specIDs[ds.primary], Primary: true}}
		for _, idx := range ds.secondary {
			links = append(links, domain.DoctorSpecialty{SpecialtyID: specIDs[idx]})
		}
		created, _, err := svc.CreateDoctor(ctx, domain.Doctor{Name: ds.name, CRM: ds.crm, Active: true, Specialties: links})
		if err != nil {
			return sum, fmt.Errorf("seed doctor %s: %w", ds.name, err)
		}
		docs = append(docs, created)
		sum.Doctors++
	}

	patient := 0
	for day := 0; day < opts.Days; day++ {
		date := opts.Start.AddDate(0, 0, day)
		for i, doc := range docs {
			// Alternate day (07-19) and night (19-07) duty per doctor.
			start := date.Add(7 * time.Hour)
			if (i+day)%2 == 1 {
				start = date.Add(19 * time.Hour)
			}
			shift, _, err := svc.CreateShift(ctx, domain.Shift{
				DoctorID:    doc.ID,
				SpecialtyID: specIDs[doctors[i].primary],
				Unit:        doctors[i].unit,
				StartsAt:    start,
				EndsAt:      start.Add(12 * time.Hour),
			})
			if err != nil {
				return sum, fmt.Errorf("seed shift for %s: %w", doc.Name, err)
			}
			sum.Shifts++
			if !shift.EndsAt.After(opts.Now) {
				n, err := recordEncounters(ctx, svc, shift, opts.EncountersPerShift, &patient)
				sum.Encounters += n
				if err != nil {
					return sum, err
				}
				if _, _, err := svc.CompleteShift(ctx, shift.ID); err != nil {
					return sum, fmt.Errorf("complete shift %s: %w", shift.ID, err)
				}
				sum.Completed++
			}
		}
	}

	n, err := seedUsers(ctx, svc, hasher, opts.Password, docs[0].ID)
	sum.Users = n
	return sum, err
}

func (o Options) withDefaults(now time.Time) Options {
	if o.Now.IsZero() {
		o.Now = now
	}
	if o.Days <= 0 {
		o.Days = 7
	}
	if o.Start.IsZero() {
		o.Start = o.Now.AddDate(0, 0, -o.Days)
	}
	o.Start = o.Start.UTC().Truncate(24 * time.Hour)
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	if o.EncountersPerShift <= 0 {
		o.EncountersPerShift = 3
	}
	return o
}

func recordEncounters(ctx context.Context, svc *core.Service, shift domain.Shift, count int, patient *int) (int, error) {
	step := shift.Duration() / time.Duration(count+1)
	shiftID := shift.ID
	for i := 0; i < count; i++ {
		name := patients[*patient%len(patients)]
		_, _, err := svc.CreateEncounter(ctx, domain.Encounter{
			DoctorID:      shift.DoctorID,
			ShiftID:       &shiftID,
			SpecialtyID:   shift.SpecialtyID,
			PatientName:   name,
			PatientRecord: fmt.Sprintf("PR-%05d", *patient+1),
			Kind:          encounterKinds[*patient%len(encounterKinds)],
			OccurredAt:    shift.StartsAt.Add(step * time.Duration(i+1)),
		})
		if err != nil {
			return i, fmt.Errorf("seed encounter for shift %s: %w", shift.ID, err)
		}
		*patient++
	}
	return count, nil
}

func seedUsers(ctx context.Context, svc *core.Service, hasher auth.Hasher, password, doctorID string) (int, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("seed users: %w", err)
	}
	users := []domain.User{
		{Username: "admin", Name: "Administrador", Role: domain.RoleAdmin},
		{Username: "coordenacao", Name: "Coordenação Médica", Role: domain.RoleCoordinator},
		{Username: "ana.souza", Name: "Dra. Ana Souza", Role: domain.RoleDoctor, DoctorID: &doctorID},
		{Username: "diretoria", Name: "Diretoria", Role: domain.RoleViewer},
	}
	for i, u := range users {
		u.PasswordHash = hash
		u.Active = true
		if _, _, err := svc.CreateUser(ctx, u); err != nil {
			return i, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	return len(users), nil
}
