package core

import (
	"clinicstaff/pkg/domain"
	"strings"
	"time"
)

// DoctorFilter narrows doctor listings.
type DoctorFilter struct {
	SpecialtyID string
	ActiveOnly  bool
	// Query matches name or CRM, case-insensitively.
	Query string
}

// Match reports whether d passes the filter.
func (f DoctorFilter) Match(d domain.Doctor) bool {
	if f.ActiveOnly && !d.Active {
		return false
	}
	if f.SpecialtyID != "" && !d.HasSpecialty(f.SpecialtyID) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(d.Name), q) && !strings.Contains(strings.ToLower(d.CRM), q) {
			return false
		}
	}
	return true
}

// ShiftFilter narrows shift listings. From and To select shifts that
// intersect [From, To); zero bounds are open.
type ShiftFilter struct {
	DoctorID    string
	SpecialtyID string
	Unit        string
	Status      domain.ShiftStatus
	From        time.Time
	To          time.Time
}

// Match reports whether s passes the filter.
func (f ShiftFilter) Match(s domain.Shift) bool {
	if f.DoctorID != "" && s.DoctorID != f.DoctorID {
		return false
	}
	if f.SpecialtyID != "" && s.SpecialtyID != f.SpecialtyID {
		return false
	}
	if f.Unit != "" && !strings.EqualFold(s.Unit, f.Unit) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && !s.EndsAt.After(f.From) {
		return false
	}
	if !f.To.IsZero() && !s.StartsAt.Before(f.To) {
		return false
	}
	return true
}

// EncounterFilter narrows encounter listings to OccurredAt in [From, To).
type EncounterFilter struct {
	DoctorID    string
	ShiftID     string
	SpecialtyID string
	Kind        domain.EncounterKind
	From        time.Time
	To          time.Time
}

// Match reports whether e passes the filter.
func (f EncounterFilter) Match(e domain.Encounter) bool {
	if f.DoctorID != "" && e.DoctorID != f.DoctorID {
		return false
	}
	if f.ShiftID != "" && (e.ShiftID == nil || *e.ShiftID != f.ShiftID) {
		return false
	}
	if f.SpecialtyID != "" && e.SpecialtyID != f.SpecialtyID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.OccurredAt.Before(f.To) {
		return false
	}
	return true
}
