package reports

import (
	"clinicstaff/pkg/domain"
	"sort"
	"strings"
	"time"
)

// Row is one consolidated line of a productivity report.
type Row struct {
	Key               string                       `json:"key"`
	Label             string                       `json:"label"`
	Shifts            int                          `json:"shifts"`
	CompletedShifts   int                          `json:"completed_shifts"`
	CancelledShifts   int                          `json:"cancelled_shifts"`
	ScheduledHours    float64                      `json:"scheduled_hours"`
	WorkedHours       float64                      `json:"worked_hours"`
	Encounters        int                          `json:"encounters"`
	EncountersPerHour float64                      `json:"encounters_per_hour"`
	ByKind            map[domain.EncounterKind]int `json:"by_kind"`
}

// Report is the result of Productivity.
type Report struct {
	Query       Query     `json:"query"`
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []Row     `json:"rows"`
	Totals      Row       `json:"totals"`
}

const (
	unassignedKey   = "-"
	unassignedLabel = "Sem especialidade"
	noUnitLabel     = "Sem unidade"
)

// Productivity consolidates shifts and encounters matching q. A shift belongs
// to the range, and to its group, by its start time; encounters by
// occurrence. Hours are never clipped to the range. Cancelled shifts count towards
// CancelledShifts only. Specialty grouping collapses synonyms.
func Productivity(view domain.RuleView, q Query, now time.Time) (Report, error) {
	q, err := q.Normalize()
	if err != nil {
		return Report{}, err
	}
	b := newBuilder(view, q)
	for _, shift := range view.ListShifts() {
		if b.acceptShift(shift) {
			b.addShift(shift)
		}
	}
	for _, enc := range view.ListEncounters() {
		if b.acceptEncounter(enc) {
			b.addEncounter(enc)
		}
	}
	return Report{Query: q, GeneratedAt: now.UTC(), Rows: b.rows(), Totals: b.totals()}, nil
}

type builder struct {
	view       domain.RuleView
	q          Query
	specialty  string // normalized key of q.SpecialtyID
	groups     map[string]*Row
	shiftUnits map[string]string
}

func newBuilder(view domain.RuleView, q Query) *builder {
	b := &builder{view: view, q: q, groups: make(map[string]*Row), shiftUnits: make(map[string]string)}
	if q.SpecialtyID != "" {
		if s, ok := view.FindSpecialty(q.SpecialtyID); ok {
			b.specialty = s.NormalizedName()
		} else {
			b.specialty = q.SpecialtyID
		}
	}
	for _, s := range view.ListShifts() {
		b.shiftUnits[s.ID] = s.Unit
	}
	return b
}

func (b *builder) specialtyKey(id string) string {
	if id == "" {
		return unassignedKey
	}
	if s, ok := b.view.FindSpecialty(id); ok {
		return s.NormalizedName()
	}
	return id
}

func (b *builder) matchSpecialty(id string) bool {
	return b.specialty == "" || b.specialtyKey(id) == b.specialty
}

func (b *builder) acceptShift(s domain.Shift) bool {
	if b.q.DoctorID != "" && s.DoctorID != b.q.DoctorID {
		return false
	}
	return b.matchSpecialty(s.SpecialtyID) && b.q.includes(s.StartsAt)
}

func (b *builder) acceptEncounter(e domain.Encounter) bool {
	if b.q.DoctorID != "" && e.DoctorID != b.q.DoctorID {
		return false
	}
	return b.matchSpecialty(e.SpecialtyID) && b.q.includes(e.OccurredAt)
}

func (b *builder) row(key, label string) *Row {
	r, ok := b.groups[key]
	if !ok {
		r = &Row{Key: key, Label: label, ByKind: make(map[domain.EncounterKind]int)}
		b.groups[key] = r
	}
	return r
}

func (b *builder) group(doctorID, specialtyID, unit string, at time.Time) *Row {
	switch b.q.GroupBy {
	case GroupBySpecialty:
		key := b.specialtyKey(specialtyID)
		if key == unassignedKey {
			return b.row(key, unassignedLabel)
		}
		name := specialtyID
		if s, ok := b.view.FindSpecialty(specialtyID); ok {
			name = s.Name
		}
		return b.row(key, domain.CanonicalSpecialtyLabel(name))
	case GroupByMonth:
		key := at.UTC().Format("2006-01")
		return b.row(key, key)
	case GroupByUnit:
		key := strings.ToLower(strings.Join(strings.Fields(unit), " "))
		if key == "" {
			return b.row(unassignedKey, noUnitLabel)
		}
		return b.row(key, strings.TrimSpace(unit))
	default:
		label := doctorID
		if d, ok := b.view.FindDoctor(doctorID); ok {
			label = d.Name
		}
		return b.row(doctorID, label)
	}
}

func (b *builder) addShift(s domain.Shift) {
	r := b.group(s.DoctorID, s.SpecialtyID, s.Unit, s.StartsAt)
	r.Shifts++
	hours := s.Duration().Hours()
	switch s.Status {
	case domain.ShiftStatusCancelled:
		r.CancelledShifts++
	case domain.ShiftStatusCompleted:
		r.CompletedShifts++
		r.ScheduledHours += hours
		r.WorkedHours += hours
	default:
		r.ScheduledHours += hours
	}
}

func (b *builder) addEncounter(e domain.Encounter) {
	unit := ""
	if e.ShiftID != nil {
		unit = b.shiftUnits[*e.ShiftID]
	}
	r := b.group(e.DoctorID, e.SpecialtyID, unit, e.OccurredAt)
	r.Encounters++
	r.ByKind[e.Kind]++
}

func (b *builder) rows() []Row {
	out := make([]Row, 0, len(b.groups))
	for _, r := range b.groups {
		r.EncountersPerHour = perHour(r.Encounters, r.WorkedHours)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Encounters != out[j].Encounters {
			return out[i].Encounters > out[j].Encounters
		}
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (b *builder) totals() Row {
	t := Row{Key: "total", Label: "Total", ByKind: make(map[domain.EncounterKind]int)}
	for _, r := range b.groups {
		t.Shifts += r.Shifts
		t.CompletedShifts += r.CompletedShifts
		t.CancelledShifts += r.CancelledShifts
		t.ScheduledHours += r.ScheduledHours
		t.WorkedHours += r.WorkedHours
		t.Encounters += r.Encounters
		for k, n := range r.ByKind {
			t.ByKind[k] += n
		}
	}
	t.EncountersPerHour = perHour(t.Encounters, t.WorkedHours)
	return t
}

func perHour(encounters int, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return float64(encounters) / hours
}
