// Package domain defines the persistent staffing entities, value types, and
// rule evaluation primitives used by clinicstaff.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySpecialty identifies a medical specialty record.
	EntitySpecialty EntityType = "specialty"
	// EntityDoctor identifies a doctor record.
	EntityDoctor EntityType = "doctor"
	// EntityShift identifies a shift ("plantão") record.
	EntityShift EntityType = "shift"
	// EntityEncounter identifies a patient encounter ("atendimento") record.
	EntityEncounter EntityType = "encounter"
	// EntityUser identifies an application user record.
	EntityUser EntityType = "user"
)

// ShiftStatus enumerates the lifecycle states of a shift.
type ShiftStatus string

// Canonical shift statuses.
const (
	ShiftStatusScheduled ShiftStatus = "scheduled"
	ShiftStatusCompleted ShiftStatus = "completed"
	ShiftStatusCancelled ShiftStatus = "cancelled"
)

// Valid reports whether the status is one of the canonical values.
func (s ShiftStatus) Valid() bool {
	switch s {
	case ShiftStatusScheduled, ShiftStatusCompleted, ShiftStatusCancelled:
		return true
	}
	return false
}

// EncounterKind classifies a patient encounter.
type EncounterKind string

// Canonical encounter kinds.
const (
	EncounterConsultation EncounterKind = "consultation"
	EncounterEmergency    EncounterKind = "emergency"
	EncounterProcedure    EncounterKind = "procedure"
	EncounterFollowUp     EncounterKind = "follow_up"
)

// EncounterKinds lists every canonical kind in display order.
var EncounterKinds = []EncounterKind{EncounterConsultation, EncounterEmergency, EncounterProcedure, EncounterFollowUp}

// Valid reports whether the kind is one of the canonical values.
func (k EncounterKind) Valid() bool {
	for _, known := range EncounterKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Specialty is a medical specialty a doctor can practise and a shift can staff.
type Specialty struct {
	Base
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NormalizedName returns the synonym-collapsed key for the specialty name.
func (s Specialty) NormalizedName() string {
	return NormalizeSpecialtyName(s.Name)
}

// DoctorSpecialty links a doctor to one specialty.
type DoctorSpecialty struct {
	SpecialtyID string `json:"specialty_id"`
	Primary     bool   `json:"primary"`
}

// Doctor is a physician that can be scheduled on shifts.
type Doctor struct {
	Base
	Name        string            `json:"name"`
	CRM         string            `json:"crm"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Active      bool              `json:"active"`
	Specialties []DoctorSpecialty `json:"specialties"`
}

// PrimarySpecialtyID returns the specialty flagged as primary, if any.
func (d Doctor) PrimarySpecialtyID() (string, bool) {
	for _, link := range d.Specialties {
		if link.Primary {
			return link.SpecialtyID, true
		}
	}
	return "", false
}

// HasSpecialty reports whether the doctor is linked to the specialty.
func (d Doctor) HasSpecialty(id string) bool {
	for _, link := range d.Specialties {
		if link.SpecialtyID == id {
			return true
		}
	}
	return false
}

// Shift is a scheduled work period ("plantão") for one doctor.
type Shift struct {
	Base
	DoctorID    string      `json:"doctor_id"`
	SpecialtyID string      `json:"specialty_id,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	Status      ShiftStatus `json:"status"`
	Notes       string      `json:"notes,omitempty"`
}

// Duration returns the scheduled length of the shift.
func (s Shift) Duration() time.Duration {
	if s.EndsAt.Before(s.StartsAt) {
		return 0
	}
	return s.EndsAt.Sub(s.StartsAt)
}

// Overlaps reports whether two shifts share any instant. Intervals are
// half-open so back-to-back shifts do not overlap.
func (s Shift) Overlaps(other Shift) bool {
	return s.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(s.EndsAt)
}

// Covers reports whether t falls inside [StartsAt, EndsAt].
func (s Shift) Covers(t time.Time) bool {
	return !t.Before(s.StartsAt) && !t.After(s.EndsAt)
}

// Encounter is a patient interaction ("atendimento") performed by a doctor.
type Encounter struct {
	Base
	DoctorID      string        `json:"doctor_id"`
	ShiftID       *string       `json:"shift_id,omitempty"`
	SpecialtyID   string        `json:"specialty_id,omitempty"`
	PatientName   string        `json:"patient_name"`
	PatientRecord string        `json:"patient_record,omitempty"`
	Kind          EncounterKind `json:"kind"`
	OccurredAt    time.Time     `json:"occurred_at"`
	Notes         string        `json:"notes,omitempty"`
}

// User is an application account.
type User struct {
	Base
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	Role         Role    `json:"role"`
	PasswordHash string  `json:"-"`
	DoctorID     *string `json:"doctor_id,omitempty"`
	Active       bool    `json:"active"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
