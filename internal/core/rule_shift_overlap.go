package core

import (
	"clinicstaff/pkg/domain"
	"context"
	"sort"
)

// NewShiftOverlapRule blocks transactions that leave a doctor with two
// overlapping shifts. Cancelled shifts are ignored and back-to-back shifts
// are allowed.
func NewShiftOverlapRule() domain.Rule {
	return shiftOverlapRule{}
}

type shiftOverlapRule struct{}

func (shiftOverlapRule) Name() string { return "shift_overlap" }

func (r shiftOverlapRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	touched := changedIDs(changes, domain.EntityShift)
	res := domain.Result{}
	if len(touched) == 0 {
		return res, nil
	}
	byDoctor := make(map[string][]domain.Shift)
	for _, shift := range view.ListShifts() {
		if shift.Status == domain.ShiftStatusCancelled {
			continue
		}
		byDoctor[shift.DoctorID] = append(byDoctor[shift.DoctorID], shift)
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	reported := make(map[[2]string]bool)
	for _, id := range ids {
		shift, ok := view.FindShift(id)
		if !ok || shift.Status == domain.ShiftStatusCancelled {
			continue
		}
		for _, other := range byDoctor[shift.DoctorID] {
			if other.ID == shift.ID || !shift.Overlaps(other) {
				continue
			}
			pair := [2]string{shift.ID, other.ID}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			if reported[pair] {
				continue
			}
			reported[pair] = true
			res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityShift, shift.ID,
				"shift %s (%s to %s) overlaps shift %s (%s to %s) for doctor %s",
				shift.ID, shift.StartsAt.Format(timeLayout), shift.EndsAt.Format(timeLayout),
				other.ID, other.StartsAt.Format(timeLayout), other.EndsAt.Format(timeLayout), shift.DoctorID))
		}
	}
	return res, nil
}

const timeLayout = "2006-01-02 15:04"
