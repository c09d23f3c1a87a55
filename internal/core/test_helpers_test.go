package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clinicstaff/pkg/domain"
)

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(level, msg string, kv ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf("%s:%s %v", level, msg, kv))
}

func (c *captureLogger) Debug(msg string, kv ...any) { c.add("d", msg, kv...) }
func (c *captureLogger) Info(msg string, kv ...any)  { c.add("i", msg, kv...) }
func (c *captureLogger) Warn(msg string, kv ...any)  { c.add("w", msg, kv...) }
func (c *captureLogger) Error(msg string, kv ...any) { c.add("e", msg, kv...) }

var fixedNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return fixedNow })
}

// at returns 2024-06-03 at the given hour, UTC.
func at(hour int) time.Time {
	return time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC).Add(time.Duration(hour) * time.Hour)
}

type fixture struct {
	svc       *Service
	clinica   Specialty
	pediatria Specialty
	doctor    Doctor
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()
	svc := NewInMemoryService(nil, opts...)
	clinica, _, err := svc.CreateSpecialty(ctx, Specialty{Name: "Clínica Médica"})
	if err != nil {
		t.Fatalf("create specialty: %v", err)
	}
	pediatria, _, err := svc.CreateSpecialty(ctx, Specialty{Name: "Pediatria"})
	if err != nil {
		t.Fatalf("create specialty: %v", err)
	}
	doctor, _, err := svc.CreateDoctor(ctx, Doctor{
		Name:        "Dra. Ana Souza",
		CRM:         "CRM-SP 12345",
		Active:      true,
		Specialties: []domain.DoctorSpecialty{{SpecialtyID: clinica.ID, Primary: true}},
	})
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return fixture{svc: svc, clinica: clinica, pediatria: pediatria, doctor: doctor}
}

func (f fixture) shift(t *testing.T, start, end int) Shift {
	t.Helper()
	s, _, err := f.svc.CreateShift(context.Background(), Shift{
		DoctorID:    f.doctor.ID,
		SpecialtyID: f.clinica.ID,
		Unit:        "PS Adulto",
		StartsAt:    at(start),
		EndsAt:      at(end),
	})
	if err != nil {
		t.Fatalf("create shift %d-%d: %v", start, end, err)
	}
	return s
}

func hasViolation(err error, rule string) bool {
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) {
		return false
	}
	for _, v := range rv.Result.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
