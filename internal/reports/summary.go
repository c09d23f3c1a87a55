package reports

import (
	"clinicstaff/pkg/domain"
	"time"
)

// Summary holds the dashboard headline numbers.
type Summary struct {
	Doctors         int       `json:"doctors"`
	ActiveDoctors   int       `json:"active_doctors"`
	Specialties     int       `json:"specialties"`
	Shifts          int       `json:"shifts"`
	UpcomingShifts  int       `json:"upcoming_shifts"`
	CompletedShifts int       `json:"completed_shifts"`
	CancelledShifts int       `json:"cancelled_shifts"`
	Encounters      int       `json:"encounters"`
	ScheduledHours  float64   `json:"scheduled_hours"`
	WorkedHours     float64   `json:"worked_hours"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Summarize computes dashboard totals for shifts and encounters in q's range.
// Specialties count distinct normalized names. Upcoming shifts are scheduled
// shifts starting after now.
func Summarize(view domain.RuleView, q Query, now time.Time) (Summary, error) {
	q, err := q.Normalize()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{GeneratedAt: now.UTC()}
	for _, d := range view.ListDoctors() {
		s.Doctors++
		if d.Active {
			s.ActiveDoctors++
		}
	}
	names := make(map[string]struct{})
	for _, sp := range view.ListSpecialties() {
		names[sp.NormalizedName()] = struct{}{}
	}
	s.Specialties = len(names)

	rep, err := Productivity(view, q, now)
	if err != nil {
		return Summary{}, err
	}
	s.Shifts = rep.Totals.Shifts
	s.CompletedShifts = rep.Totals.CompletedShifts
	s.CancelledShifts = rep.Totals.CancelledShifts
	s.ScheduledHours = rep.Totals.ScheduledHours
	s.WorkedHours = rep.Totals.WorkedHours
	s.Encounters = rep.Totals.Encounters

	for _, sh := range view.ListShifts() {
		if sh.Status == domain.ShiftStatusScheduled && sh.StartsAt.After(now) && q.includes(sh.StartsAt) {
			s.UpcomingShifts++
		}
	}
	return s, nil
}
