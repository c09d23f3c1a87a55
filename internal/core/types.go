package core

import "clinicstaff/pkg/domain"

type (
	// Specialty aliases domain.Specialty.
	Specialty = domain.Specialty
	// Doctor aliases domain.Doctor.
	Doctor = domain.Doctor
	// Shift aliases domain.Shift.
	Shift = domain.Shift
	// Encounter aliases domain.Encounter.
	Encounter = domain.Encounter
	// User aliases domain.User.
	User = domain.User
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// Violation aliases domain.Violation.
	Violation = domain.Violation
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// EntityType aliases domain.EntityType.
	EntityType = domain.EntityType
	// ErrNotFound is returned when an operation references a missing record.
	ErrNotFound = domain.NotFoundError
)

// Entity identifiers re-exported for callers that only import core.
const (
	EntitySpecialty = domain.EntitySpecialty
	EntityDoctor    = domain.EntityDoctor
	EntityShift     = domain.EntityShift
	EntityEncounter = domain.EntityEncounter
	EntityUser      = domain.EntityUser
)
