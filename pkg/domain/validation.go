package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInUse is wrapped by delete operations refused because other records
// still reference the target.
var ErrInUse = errors.New("record in use")

// ValidationError reports a field-level problem with an entity payload.
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Entity, e.Field, e.Reason)
}

func required(entity EntityType, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Entity: entity, Field: field, Reason: "is required"}
	}
	return nil
}

// Validate checks the specialty's own fields.
func (s Specialty) Validate() error {
	return required(EntitySpecialty, "name", s.Name)
}

// Validate checks the doctor's own fields. Cross-record constraints such as
// the primary specialty cardinality are enforced by rules.
func (d Doctor) Validate() error {
	if err := required(EntityDoctor, "name", d.Name); err != nil {
		return err
	}
	if err := required(EntityDoctor, "crm", d.CRM); err != nil {
		return err
	}
	for _, link := range d.Specialties {
		if strings.TrimSpace(link.SpecialtyID) == "" {
			return ValidationError{Entity: EntityDoctor, Field: "specialties", Reason: "contains an empty specialty id"}
		}
	}
	return nil
}

// Validate checks the shift's own fields.
func (s Shift) Validate() error {
	if err := required(EntityShift, "doctor_id", s.DoctorID); err != nil {
		return err
	}
	if s.StartsAt.IsZero() {
		return ValidationError{Entity: EntityShift, Field: "starts_at", Reason: "is required"}
	}
	if s.EndsAt.IsZero() {
		return ValidationError{Entity: EntityShift, Field: "ends_at", Reason: "is required"}
	}
	if !s.EndsAt.After(s.StartsAt) {
		return ValidationError{Entity: EntityShift, Field: "ends_at", Reason: "must be after starts_at"}
	}
	if !s.Status.Valid() {
		return ValidationError{Entity: EntityShift, Field: "status", Reason: fmt.Sprintf("unknown value %q", s.Status)}
	}
	return nil
}

// Validate checks the encounter's own fields.
func (e Encounter) Validate() error {
	if err := required(EntityEncounter, "doctor_id", e.DoctorID); err != nil {
		return err
	}
	if err := required(EntityEncounter, "patient_name", e.PatientName); err != nil {
		return err
	}
	if e.OccurredAt.IsZero() {
		return ValidationError{Entity: EntityEncounter, Field: "occurred_at", Reason: "is required"}
	}
	if !e.Kind.Valid() {
		return ValidationError{Entity: EntityEncounter, Field: "kind", Reason: fmt.Sprintf("unknown value %q", e.Kind)}
	}
	return nil
}

// Validate checks the user's own fields.
func (u User) Validate() error {
	if err := required(EntityUser, "username", u.Username); err != nil {
		return err
	}
	if strings.ContainsAny(u.Username, " \t\n") {
		return ValidationError{Entity: EntityUser, Field: "username", Reason: "must not contain whitespace"}
	}
	if !u.Role.Valid() {
		return ValidationError{Entity: EntityUser, Field: "role", Reason: fmt.Sprintf("unknown value %q", u.Role)}
	}
	return nil
}

// NotFoundError is returned when an operation targets a record that does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
