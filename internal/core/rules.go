package core

import (
	"clinicstaff/pkg/domain"
	"fmt"
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in staffing policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewShiftOverlapRule())
	engine.Register(NewPrimarySpecialtyRule())
	engine.Register(NewEncounterShiftRule())
	engine.Register(NewUniqueIdentityRule())
	engine.Register(NewShiftDurationRule(DefaultMaxShiftDuration))
	return engine
}

// changedIDs collects the IDs of entities of the given type created or
// updated in this transaction.
func changedIDs(changes []domain.Change, entity domain.EntityType) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, change := range changes {
		if change.Entity != entity || change.Action == domain.ActionDelete {
			continue
		}
		if id := entityID(change.After); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}

func entityID(v any) string {
	switch e := v.(type) {
	case domain.Specialty:
		return e.ID
	case domain.Doctor:
		return e.ID
	case domain.Shift:
		return e.ID
	case domain.Encounter:
		return e.ID
	case domain.User:
		return e.ID
	}
	return ""
}

func violation(rule string, severity domain.Severity, entity domain.EntityType, id, format string, args ...any) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
		Entity:   entity,
		EntityID: id,
	}
}
