package memory

import (
	"clinicstaff/pkg/domain"
	"encoding/json"
	"fmt"
)

// Snapshot captures the full store state for persistence backends.
type Snapshot struct {
	Specialties map[string]Specialty `json:"specialties"`
	Doctors     map[string]Doctor    `json:"doctors"`
	Shifts      map[string]Shift     `json:"shifts"`
	Encounters  map[string]Encounter `json:"encounters"`
	Users       map[string]User      `json:"users"`
}

// Bucket names used by the SQL backends, in the order they are written.
const (
	BucketSpecialties = "specialties"
	BucketDoctors     = "doctors"
	BucketShifts      = "shifts"
	BucketEncounters  = "encounters"
	BucketUsers       = "users"
)

// Buckets lists every persisted bucket.
var Buckets = []string{BucketSpecialties, BucketDoctors, BucketShifts, BucketEncounters, BucketUsers}

// storedUser keeps the password hash that domain.User hides from JSON.
type storedUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

// EncodeBucket serialises one bucket of the snapshot as a JSON object keyed by ID.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	switch bucket {
	case BucketSpecialties:
		return json.Marshal(nonNil(s.Specialties))
	case BucketDoctors:
		return json.Marshal(nonNil(s.Doctors))
	case BucketShifts:
		return json.Marshal(nonNil(s.Shifts))
	case BucketEncounters:
		return json.Marshal(nonNil(s.Encounters))
	case BucketUsers:
		users := make(map[string]storedUser, len(s.Users))
		for id, u := range s.Users {
			users[id] = storedUser{User: u, PasswordHash: u.PasswordHash}
		}
		return json.Marshal(users)
	default:
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
}

// DecodeBucket loads one bucket payload into the snapshot. Unknown buckets
// are ignored so older databases with extra rows still open.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	var err error
	switch bucket {
	case BucketSpecialties:
		err = json.Unmarshal(payload, &s.Specialties)
	case BucketDoctors:
		err = json.Unmarshal(payload, &s.Doctors)
	case BucketShifts:
		err = json.Unmarshal(payload, &s.Shifts)
	case BucketEncounters:
		err = json.Unmarshal(payload, &s.Encounters)
	case BucketUsers:
		var users map[string]storedUser
		if err = json.Unmarshal(payload, &users); err == nil {
			s.Users = make(map[string]User, len(users))
			for id, u := range users {
				user := u.User
				user.PasswordHash = u.PasswordHash
				s.Users[id] = user
			}
		}
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func nonNil[T any](m map[string]T) map[string]T {
	if m == nil {
		return map[string]T{}
	}
	return m
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Specialties: cloned.specialties,
		Doctors:     cloned.doctors,
		Shifts:      cloned.shifts,
		Encounters:  cloned.encounters,
		Users:       cloned.users,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{
		specialties: s.Specialties,
		doctors:     s.Doctors,
		shifts:      s.Shifts,
		encounters:  s.Encounters,
		users:       s.Users,
	}
	return state.clone()
}

// migrateSnapshot repairs snapshots written by older builds or edited by
// hand: missing buckets become empty, dangling references are dropped or
// cleared and doctors that lost their primary link get one promoted.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	snapshot = snapshotFromMemoryState(memoryStateFromSnapshot(snapshot))
	snapshot.Specialties = nonNil(snapshot.Specialties)
	snapshot.Doctors = nonNil(snapshot.Doctors)
	snapshot.Shifts = nonNil(snapshot.Shifts)
	snapshot.Encounters = nonNil(snapshot.Encounters)
	snapshot.Users = nonNil(snapshot.Users)

	for id, d := range snapshot.Doctors {
		links := make([]domain.DoctorSpecialty, 0, len(d.Specialties))
		seen := make(map[string]bool, len(d.Specialties))
		hasPrimary := false
		for _, link := range d.Specialties {
			if _, ok := snapshot.Specialties[link.SpecialtyID]; !ok || seen[link.SpecialtyID] {
				continue
			}
			seen[link.SpecialtyID] = true
			if link.Primary && hasPrimary {
				link.Primary = false
			}
			hasPrimary = hasPrimary || link.Primary
			links = append(links, link)
		}
		if !hasPrimary && len(links) > 0 {
			links[0].Primary = true
		}
		d.Specialties = links
		snapshot.Doctors[id] = d
	}

	for id, s := range snapshot.Shifts {
		if _, ok := snapshot.Doctors[s.DoctorID]; !ok {
			delete(snapshot.Shifts, id)
			continue
		}
		if s.SpecialtyID != "" {
			if _, ok := snapshot.Specialties[s.SpecialtyID]; !ok {
				s.SpecialtyID = ""
			}
		}
		if s.Status == "" {
			s.Status = domain.ShiftStatusScheduled
		}
		snapshot.Shifts[id] = s
	}

	for id, e := range snapshot.Encounters {
		if _, ok := snapshot.Doctors[e.DoctorID]; !ok {
			delete(snapshot.Encounters, id)
			continue
		}
		if e.ShiftID != nil {
			if _, ok := snapshot.Shifts[*e.ShiftID]; !ok {
				e.ShiftID = nil
			}
		}
		if e.SpecialtyID != "" {
			if _, ok := snapshot.Specialties[e.SpecialtyID]; !ok {
				e.SpecialtyID = ""
			}
		}
		if e.Kind == "" {
			e.Kind = domain.EncounterConsultation
		}
		snapshot.Encounters[id] = e
	}

	for id, u := range snapshot.Users {
		if u.DoctorID != nil {
			if _, ok := snapshot.Doctors[*u.DoctorID]; !ok {
				u.DoctorID = nil
			}
		}
		if u.Role == "" {
			u.Role = domain.RoleViewer
		}
		snapshot.Users[id] = u
	}
	return snapshot
}
