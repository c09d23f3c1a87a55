package core

import (
	"clinicstaff/pkg/domain"
	"context"
)

// NewPrimarySpecialtyRule enforces the specialty cardinality of a doctor:
// a doctor with any specialty links has exactly one primary, links are not
// duplicated and every linked specialty exists.
func NewPrimarySpecialtyRule() domain.Rule {
	return primarySpecialtyRule{}
}

type primarySpecialtyRule struct{}

func (primarySpecialtyRule) Name() string { return "primary_specialty" }

func (r primarySpecialtyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for id := range changedIDs(changes, domain.EntityDoctor) {
		doctor, ok := view.FindDoctor(id)
		if !ok {
			continue
		}
		res.Merge(r.check(view, doctor))
	}
	return res, nil
}

func (r primarySpecialtyRule) check(view domain.RuleView, doctor domain.Doctor) domain.Result {
	res := domain.Result{}
	add := func(format string, args ...any) {
		res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityDoctor, doctor.ID, format, args...))
	}
	seen := make(map[string]bool, len(doctor.Specialties))
	primaries := 0
	for _, link := range doctor.Specialties {
		if seen[link.SpecialtyID] {
			add("doctor %s lists specialty %s more than once", doctor.ID, link.SpecialtyID)
			continue
		}
		seen[link.SpecialtyID] = true
		if _, ok := view.FindSpecialty(link.SpecialtyID); !ok {
			add("doctor %s references missing specialty %s", doctor.ID, link.SpecialtyID)
		}
		if link.Primary {
			primaries++
		}
	}
	switch {
	case len(doctor.Specialties) > 0 && primaries == 0:
		add("doctor %s has specialties but no primary specialty", doctor.ID)
	case primaries > 1:
		add("doctor %s has %d primary specialties; exactly one is allowed", doctor.ID, primaries)
	}
	return res
}
