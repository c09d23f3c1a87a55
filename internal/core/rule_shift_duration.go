package core

import (
	"clinicstaff/pkg/domain"
	"context"
	"time"
)

// DefaultMaxShiftDuration is the length above which shifts draw a warning.
const DefaultMaxShiftDuration = 24 * time.Hour

// NewShiftDurationRule warns about shifts longer than max. It never blocks.
func NewShiftDurationRule(max time.Duration) domain.Rule {
	if max <= 0 {
		max = DefaultMaxShiftDuration
	}
	return shiftDurationRule{max: max}
}

type shiftDurationRule struct {
	max time.Duration
}

func (shiftDurationRule) Name() string { return "shift_duration" }

func (r shiftDurationRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for id := range changedIDs(changes, domain.EntityShift) {
		shift, ok := view.FindShift(id)
		if !ok || shift.Status == domain.ShiftStatusCancelled {
			continue
		}
		if d := shift.Duration(); d > r.max {
			res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityWarn, domain.EntityShift, shift.ID,
				"shift %s lasts %s, longer than %s", shift.ID, d, r.max))
		}
	}
	return res, nil
}
