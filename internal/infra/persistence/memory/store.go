// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. The SQL backends embed it
// and snapshot its state after every commit.
package memory

import (
	"clinicstaff/pkg/domain"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Specialty aliases domain.Specialty for in-memory persistence operations.
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
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	specialties map[string]Specialty
	doctors     map[string]Doctor
	shifts      map[string]Shift
	encounters  map[string]Encounter
	users       map[string]User
}

func newMemoryState() memoryState {
	return memoryState{
		specialties: make(map[string]Specialty),
		doctors:     make(map[string]Doctor),
		shifts:      make(map[string]Shift),
		encounters:  make(map[string]Encounter),
		users:       make(map[string]User),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.specialties {
		cloned.specialties[k] = v
	}
	for k, v := range s.doctors {
		cloned.doctors[k] = cloneDoctor(v)
	}
	for k, v := range s.shifts {
		cloned.shifts[k] = v
	}
	for k, v := range s.encounters {
		cloned.encounters[k] = cloneEncounter(v)
	}
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	return cloned
}

func cloneDoctor(d Doctor) Doctor {
	cp := d
	cp.Specialties = append([]domain.DoctorSpecialty(nil), d.Specialties...)
	if cp.Specialties == nil {
		cp.Specialties = []domain.DoctorSpecialty{}
	}
	return cp
}

func cloneEncounter(e Encounter) Encounter {
	cp := e
	cp.ShiftID = cloneStringPtr(e.ShiftID)
	return cp
}

func cloneUser(u User) User {
	cp := u
	cp.DoctorID = cloneStringPtr(u.DoctorID)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Store is an in-memory transactional store that enforces domain rules.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider; nil restores the wall clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view of the in-flight transaction state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindSpecialty(id string) (Specialty, bool) {
	s, ok := tx.state.specialties[id]
	return s, ok
}

func (tx *transaction) FindDoctor(id string) (Doctor, bool) {
	d, ok := tx.state.doctors[id]
	if !ok {
		return Doctor{}, false
	}
	return cloneDoctor(d), true
}

func (tx *transaction) FindShift(id string) (Shift, bool) {
	s, ok := tx.state.shifts[id]
	return s, ok
}

// Specialties ---------------------------------------------------------------

// CreateSpecialty stores a new specialty within the transaction.
func (tx *transaction) CreateSpecialty(s Specialty) (Specialty, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.specialties[s.ID]; exists {
		return Specialty{}, fmt.Errorf("specialty %q already exists", s.ID)
	}
	if err := s.Validate(); err != nil {
		return Specialty{}, err
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.specialties[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntitySpecialty, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateSpecialty mutates a specialty using the provided mutator function.
func (tx *transaction) UpdateSpecialty(id string, mutator func(*Specialty) error) (Specialty, error) {
	current, ok := tx.state.specialties[id]
	if !ok {
		return Specialty{}, domain.NotFoundError{Entity: domain.EntitySpecialty, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Specialty{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := current.Validate(); err != nil {
		return Specialty{}, err
	}
	tx.state.specialties[id] = current
	tx.recordChange(Change{Entity: domain.EntitySpecialty, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteSpecialty removes a specialty no longer referenced by other records.
func (tx *transaction) DeleteSpecialty(id string) error {
	current, ok := tx.state.specialties[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySpecialty, ID: id}
	}
	for _, d := range tx.state.doctors {
		if d.HasSpecialty(id) {
			return fmt.Errorf("%w: specialty %q linked to doctor %q", domain.ErrInUse, id, d.ID)
		}
	}
	for _, s := range tx.state.shifts {
		if s.SpecialtyID == id {
			return fmt.Errorf("%w: specialty %q referenced by shift %q", domain.ErrInUse, id, s.ID)
		}
	}
	for _, e := range tx.state.encounters {
		if e.SpecialtyID == id {
			return fmt.Errorf("%w: specialty %q referenced by encounter %q", domain.ErrInUse, id, e.ID)
		}
	}
	delete(tx.state.specialties, id)
	tx.recordChange(Change{Entity: domain.EntitySpecialty, Action: domain.ActionDelete, Before: current})
	return nil
}

// Doctors -------------------------------------------------------------------

// CreateDoctor stores a new doctor within the transaction.
func (tx *transaction) CreateDoctor(d Doctor) (Doctor, error) {
	if d.ID == "" {
		d.ID = tx.store.newID()
	}
	if _, exists := tx.state.doctors[d.ID]; exists {
		return Doctor{}, fmt.Errorf("doctor %q already exists", d.ID)
	}
	if err := d.Validate(); err != nil {
		return Doctor{}, err
	}
	d = cloneDoctor(d)
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.doctors[d.ID] = d
	tx.recordChange(Change{Entity: domain.EntityDoctor, Action: domain.ActionCreate, After: cloneDoctor(d)})
	return cloneDoctor(d), nil
}

// UpdateDoctor mutates a doctor using the provided mutator function.
func (tx *transaction) UpdateDoctor(id string, mutator func(*Doctor) error) (Doctor, error) {
	current, ok := tx.state.doctors[id]
	if !ok {
		return Doctor{}, domain.NotFoundError{Entity: domain.EntityDoctor, ID: id}
	}
	before := cloneDoctor(current)
	current = cloneDoctor(current)
	if err := mutator(&current); err != nil {
		return Doctor{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := current.Validate(); err != nil {
		return Doctor{}, err
	}
	current = cloneDoctor(current)
	tx.state.doctors[id] = current
	tx.recordChange(Change{Entity: domain.EntityDoctor, Action: domain.ActionUpdate, Before: before, After: cloneDoctor(current)})
	return cloneDoctor(current), nil
}

// DeleteDoctor removes a doctor without shifts or encounters. Users linked
// to the doctor are detached.
func (tx *transaction) DeleteDoctor(id string) error {
	current, ok := tx.state.doctors[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDoctor, ID: id}
	}
	for _, s := range tx.state.shifts {
		if s.DoctorID == id {
			return fmt.Errorf("%w: doctor %q has shift %q", domain.ErrInUse, id, s.ID)
		}
	}
	for _, e := range tx.state.encounters {
		if e.DoctorID == id {
			return fmt.Errorf("%w: doctor %q has encounter %q", domain.ErrInUse, id, e.ID)
		}
	}
	for uid, u := range tx.state.users {
		if u.DoctorID != nil && *u.DoctorID == id {
			before := cloneUser(u)
			u.DoctorID = nil
			u.UpdatedAt = tx.now
			tx.state.users[uid] = u
			tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: cloneUser(u)})
		}
	}
	delete(tx.state.doctors, id)
	tx.recordChange(Change{Entity: domain.EntityDoctor, Action: domain.ActionDelete, Before: cloneDoctor(current)})
	return nil
}

// Shifts --------------------------------------------------------------------

func (tx *transaction) checkShiftRefs(s Shift) error {
	if _, ok := tx.state.doctors[s.DoctorID]; !ok {
		return domain.ValidationError{Entity: domain.EntityShift, Field: "doctor_id", Reason: fmt.Sprintf("references unknown doctor %q", s.DoctorID)}
	}
	if s.SpecialtyID != "" {
		if _, ok := tx.state.specialties[s.SpecialtyID]; !ok {
			return domain.ValidationError{Entity: domain.EntityShift, Field: "specialty_id", Reason: fmt.Sprintf("references unknown specialty %q", s.SpecialtyID)}
		}
	}
	return nil
}

// CreateShift stores a new shift; the status defaults to scheduled.
func (tx *transaction) CreateShift(s Shift) (Shift, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.shifts[s.ID]; exists {
		return Shift{}, fmt.Errorf("shift %q already exists", s.ID)
	}
	if s.Status == "" {
		s.Status = domain.ShiftStatusScheduled
	}
	s.StartsAt = s.StartsAt.UTC()
	s.EndsAt = s.EndsAt.UTC()
	if err := s.Validate(); err != nil {
		return Shift{}, err
	}
	if err := tx.checkShiftRefs(s); err != nil {
		return Shift{}, err
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.shifts[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntityShift, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateShift mutates a shift using the provided mutator function.
func (tx *transaction) UpdateShift(id string, mutator func(*Shift) error) (Shift, error) {
	current, ok := tx.state.shifts[id]
	if !ok {
		return Shift{}, domain.NotFoundError{Entity: domain.EntityShift, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Shift{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	current.StartsAt = current.StartsAt.UTC()
	current.EndsAt = current.EndsAt.UTC()
	if err := current.Validate(); err != nil {
		return Shift{}, err
	}
	if err := tx.checkShiftRefs(current); err != nil {
		return Shift{}, err
	}
	tx.state.shifts[id] = current
	tx.recordChange(Change{Entity: domain.EntityShift, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteShift removes a shift that no encounter references.
func (tx *transaction) DeleteShift(id string) error {
	current, ok := tx.state.shifts[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityShift, ID: id}
	}
	for _, e := range tx.state.encounters {
		if e.ShiftID != nil && *e.ShiftID == id {
			return fmt.Errorf("%w: shift %q referenced by encounter %q", domain.ErrInUse, id, e.ID)
		}
	}
	delete(tx.state.shifts, id)
	tx.recordChange(Change{Entity: domain.EntityShift, Action: domain.ActionDelete, Before: current})
	return nil
}

// Encounters ----------------------------------------------------------------

// prepareEncounter checks references and derives the specialty when the
// caller left it blank: the shift's specialty first, then the doctor's
// primary specialty.
func (tx *transaction) prepareEncounter(e *Encounter) error {
	doctor, ok := tx.state.doctors[e.DoctorID]
	if !ok {
		return domain.ValidationError{Entity: domain.EntityEncounter, Field: "doctor_id", Reason: fmt.Sprintf("references unknown doctor %q", e.DoctorID)}
	}
	var shift Shift
	if e.ShiftID != nil {
		if *e.ShiftID == "" {
			e.ShiftID = nil
		} else if shift, ok = tx.state.shifts[*e.ShiftID]; !ok {
			return domain.ValidationError{Entity: domain.EntityEncounter, Field: "shift_id", Reason: fmt.Sprintf("references unknown shift %q", *e.ShiftID)}
		}
	}
	if e.SpecialtyID == "" {
		if shift.SpecialtyID != "" {
			e.SpecialtyID = shift.SpecialtyID
		} else if primary, ok := doctor.PrimarySpecialtyID(); ok {
			e.SpecialtyID = primary
		}
	}
	if e.SpecialtyID != "" {
		if _, ok := tx.state.specialties[e.SpecialtyID]; !ok {
			return domain.ValidationError{Entity: domain.EntityEncounter, Field: "specialty_id", Reason: fmt.Sprintf("references unknown specialty %q", e.SpecialtyID)}
		}
	}
	return nil
}

// CreateEncounter stores a new encounter; the kind defaults to consultation.
func (tx *transaction) CreateEncounter(e Encounter) (Encounter, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.encounters[e.ID]; exists {
		return Encounter{}, fmt.Errorf("encounter %q already exists", e.ID)
	}
	if e.Kind == "" {
		e.Kind = domain.EncounterConsultation
	}
	e.OccurredAt = e.OccurredAt.UTC()
	e = cloneEncounter(e)
	if err := e.Validate(); err != nil {
		return Encounter{}, err
	}
	if err := tx.prepareEncounter(&e); err != nil {
		return Encounter{}, err
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.encounters[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityEncounter, Action: domain.ActionCreate, After: cloneEncounter(e)})
	return cloneEncounter(e), nil
}

// UpdateEncounter mutates an encounter using the provided mutator function.
func (tx *transaction) UpdateEncounter(id string, mutator func(*Encounter) error) (Encounter, error) {
	current, ok := tx.state.encounters[id]
	if !ok {
		return Encounter{}, domain.NotFoundError{Entity: domain.EntityEncounter, ID: id}
	}
	before := cloneEncounter(current)
	current = cloneEncounter(current)
	if err := mutator(&current); err != nil {
		return Encounter{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	current.OccurredAt = current.OccurredAt.UTC()
	if err := current.Validate(); err != nil {
		return Encounter{}, err
	}
	if err := tx.prepareEncounter(&current); err != nil {
		return Encounter{}, err
	}
	tx.state.encounters[id] = cloneEncounter(current)
	tx.recordChange(Change{Entity: domain.EntityEncounter, Action: domain.ActionUpdate, Before: before, After: cloneEncounter(current)})
	return cloneEncounter(current), nil
}

// DeleteEncounter removes an encounter.
func (tx *transaction) DeleteEncounter(id string) error {
	current, ok := tx.state.encounters[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityEncounter, ID: id}
	}
	delete(tx.state.encounters, id)
	tx.recordChange(Change{Entity: domain.EntityEncounter, Action: domain.ActionDelete, Before: cloneEncounter(current)})
	return nil
}

// Users ---------------------------------------------------------------------

func (tx *transaction) checkUserRefs(u *User) error {
	if u.DoctorID == nil {
		return nil
	}
	if *u.DoctorID == "" {
		u.DoctorID = nil
		return nil
	}
	if _, ok := tx.state.doctors[*u.DoctorID]; !ok {
		return domain.ValidationError{Entity: domain.EntityUser, Field: "doctor_id", Reason: fmt.Sprintf("references unknown doctor %q", *u.DoctorID)}
	}
	return nil
}

// CreateUser stores a new user within the transaction.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	u = cloneUser(u)
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	if err := tx.checkUserRefs(&u); err != nil {
		return User{}, err
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = u
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// UpdateUser mutates a user using the provided mutator function.
func (tx *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	before := cloneUser(current)
	current = cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := current.Validate(); err != nil {
		return User{}, err
	}
	if err := tx.checkUserRefs(&current); err != nil {
		return User{}, err
	}
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

// DeleteUser removes a user.
func (tx *transaction) DeleteUser(id string) error {
	current, ok := tx.state.users[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	delete(tx.state.users, id)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionDelete, Before: cloneUser(current)})
	return nil
}

// Views ---------------------------------------------------------------------

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListSpecialties() []Specialty { return listSpecialties(v.state) }
func (v transactionView) ListDoctors() []Doctor        { return listDoctors(v.state) }
func (v transactionView) ListShifts() []Shift          { return listShifts(v.state) }
func (v transactionView) ListEncounters() []Encounter  { return listEncounters(v.state) }
func (v transactionView) ListUsers() []User            { return listUsers(v.state) }

func (v transactionView) FindSpecialty(id string) (Specialty, bool) {
	s, ok := v.state.specialties[id]
	return s, ok
}

func (v transactionView) FindDoctor(id string) (Doctor, bool) {
	d, ok := v.state.doctors[id]
	if !ok {
		return Doctor{}, false
	}
	return cloneDoctor(d), true
}

func (v transactionView) FindShift(id string) (Shift, bool) {
	s, ok := v.state.shifts[id]
	return s, ok
}

func (v transactionView) FindEncounter(id string) (Encounter, bool) {
	e, ok := v.state.encounters[id]
	if !ok {
		return Encounter{}, false
	}
	return cloneEncounter(e), true
}

func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// Listings are ordered so API responses and reports are deterministic.

func listSpecialties(state *memoryState) []Specialty {
	out := make([]Specialty, 0, len(state.specialties))
	for _, s := range state.specialties {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listDoctors(state *memoryState) []Doctor {
	out := make([]Doctor, 0, len(state.doctors))
	for _, d := range state.doctors {
		out = append(out, cloneDoctor(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listShifts(state *memoryState) []Shift {
	out := make([]Shift, 0, len(state.shifts))
	for _, s := range state.shifts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listEncounters(state *memoryState) []Encounter {
	out := make([]Encounter, 0, len(state.encounters))
	for _, e := range state.encounters {
		out = append(out, cloneEncounter(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listUsers(state *memoryState) []User {
	out := make([]User, 0, len(state.users))
	for _, u := range state.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Read helpers ---------------------------------------------------------------

// GetSpecialty retrieves a specialty by ID from committed state.
func (s *Store) GetSpecialty(id string) (Specialty, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.state.specialties[id]
	return sp, ok
}

// ListSpecialties returns all specialties ordered by name.
func (s *Store) ListSpecialties() []Specialty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSpecialties(&s.state)
}

// GetDoctor retrieves a doctor by ID from committed state.
func (s *Store) GetDoctor(id string) (Doctor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.doctors[id]
	if !ok {
		return Doctor{}, false
	}
	return cloneDoctor(d), true
}

// ListDoctors returns all doctors ordered by name.
func (s *Store) ListDoctors() []Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDoctors(&s.state)
}

// GetShift retrieves a shift by ID from committed state.
func (s *Store) GetShift(id string) (Shift, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.state.shifts[id]
	return sh, ok
}

// ListShifts returns all shifts ordered by start time.
func (s *Store) ListShifts() []Shift {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listShifts(&s.state)
}

// GetEncounter retrieves an encounter by ID from committed state.
func (s *Store) GetEncounter(id string) (Encounter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.encounters[id]
	if !ok {
		return Encounter{}, false
	}
	return cloneEncounter(e), true
}

// ListEncounters returns all encounters ordered by occurrence.
func (s *Store) ListEncounters() []Encounter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEncounters(&s.state)
}

// GetUser retrieves a user by ID from committed state.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// FindUserByUsername looks a user up by login name, case-insensitively.
func (s *Store) FindUserByUsername(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.state.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), true
		}
	}
	return User{}, false
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(&s.state)
}
