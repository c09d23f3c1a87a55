package core

import (
	"clinicstaff/pkg/domain"
	"context"
)

// NewEncounterShiftRule checks encounters attached to a shift: same doctor,
// inside the shift window and never on a cancelled shift. Shift edits
// re-check the encounters already attached to them.
func NewEncounterShiftRule() domain.Rule {
	return encounterShiftRule{}
}

type encounterShiftRule struct{}

func (encounterShiftRule) Name() string { return "encounter_shift" }

func (r encounterShiftRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	encounters := changedIDs(changes, domain.EntityEncounter)
	shifts := changedIDs(changes, domain.EntityShift)
	res := domain.Result{}
	if len(encounters) == 0 && len(shifts) == 0 {
		return res, nil
	}
	for _, enc := range view.ListEncounters() {
		if enc.ShiftID == nil {
			continue
		}
		_, encChanged := encounters[enc.ID]
		_, shiftChanged := shifts[*enc.ShiftID]
		if !encChanged && !shiftChanged {
			continue
		}
		shift, ok := view.FindShift(*enc.ShiftID)
		if !ok {
			res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityEncounter, enc.ID,
				"encounter %s references missing shift %s", enc.ID, *enc.ShiftID))
			continue
		}
		if shift.DoctorID != enc.DoctorID {
			res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityEncounter, enc.ID,
				"encounter %s is assigned to doctor %s but shift %s belongs to doctor %s", enc.ID, enc.DoctorID, shift.ID, shift.DoctorID))
		}
		if !shift.Covers(enc.OccurredAt) {
			res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityEncounter, enc.ID,
				"encounter %s at %s falls outside shift %s", enc.ID, enc.OccurredAt.Format(timeLayout), shift.ID))
		}
		if shift.Status == domain.ShiftStatusCancelled {
			res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityEncounter, enc.ID,
				"encounter %s is attached to cancelled shift %s", enc.ID, shift.ID))
		}
	}
	return res, nil
}
