package core

import (
	"clinicstaff/internal/infra/persistence/memory"
	"clinicstaff/pkg/domain"
	"context"
	"errors"
	"fmt"
	"time"
)

// Service exposes higher-level transactional CRUD operations for the staffing schema.
type Service struct {
	store     domain.PersistentStore
	logger    Logger
	clock     Clock
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	notifiers []ChangeNotifier
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		logger:  noopLogger{},
		clock:   systemClock{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if _, isSystem := svc.clock.(systemClock); !isSystem {
		if clocked, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
			clocked.SetNowFunc(svc.clock.Now)
		}
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
// A nil engine selects the default staffing rules.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Clock returns the service time source.
func (s *Service) Clock() Clock {
	return s.clock
}

// View runs fn against a read-only snapshot of committed state.
func (s *Service) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.store.View(ctx, fn)
}

// run executes fn in a store transaction and instruments it: a trace span,
// a metrics observation, a log line, an audit entry and change notifications.
func (s *Service) run(ctx context.Context, op string, fn func(tx domain.Transaction) (string, error)) (Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		id, err := fn(tx)
		entityID = id
		return err
	})
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	if err != nil {
		kv := []any{"operation", op, "entity_id", entityID, "error", err}
		var violation domain.RuleViolationError
		if errors.As(err, &violation) {
			kv = append(kv, "violations", len(violation.Result.Violations))
		}
		s.logger.Error("core operation failed", kv...)
		s.recordAuditFailure(ctx, op, entityID, duration, err)
		return res, err
	}
	for _, w := range res.Warnings() {
		s.logger.Warn("rule warning", "operation", op, "rule", w.Rule, "entity_id", w.EntityID, "message", w.Message)
	}
	s.logger.Debug("core operation committed", "operation", op, "entity_id", entityID, "duration_ms", duration.Milliseconds())
	s.recordAuditSuccess(ctx, op, entityID, duration)
	for _, n := range s.notifiers {
		n.NotifyChange(ctx, op)
	}
	return res, nil
}

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

var operationIndex = map[string]operationMeta{
	"create_specialty":      {domain.EntitySpecialty, domain.ActionCreate},
	"update_specialty":      {domain.EntitySpecialty, domain.ActionUpdate},
	"delete_specialty":      {domain.EntitySpecialty, domain.ActionDelete},
	"create_doctor":         {domain.EntityDoctor, domain.ActionCreate},
	"update_doctor":         {domain.EntityDoctor, domain.ActionUpdate},
	"delete_doctor":         {domain.EntityDoctor, domain.ActionDelete},
	"set_primary_specialty": {domain.EntityDoctor, domain.ActionUpdate},
	"create_shift":          {domain.EntityShift, domain.ActionCreate},
	"update_shift":          {domain.EntityShift, domain.ActionUpdate},
	"delete_shift":          {domain.EntityShift, domain.ActionDelete},
	"cancel_shift":          {domain.EntityShift, domain.ActionUpdate},
	"complete_shift":        {domain.EntityShift, domain.ActionUpdate},
	"create_encounter":      {domain.EntityEncounter, domain.ActionCreate},
	"update_encounter":      {domain.EntityEncounter, domain.ActionUpdate},
	"delete_encounter":      {domain.EntityEncounter, domain.ActionDelete},
	"create_user":           {domain.EntityUser, domain.ActionCreate},
	"update_user":           {domain.EntityUser, domain.ActionUpdate},
	"delete_user":           {domain.EntityUser, domain.ActionDelete},
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, duration, AuditStatusSuccess, "")
}

func (s *Service) recordAuditFailure(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, duration, AuditStatusFailure, err.Error())
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, status AuditStatus, msg string) {
	meta, ok := operationIndex[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Actor:     ActorFromContext(ctx),
		Status:    status,
		Error:     msg,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// Specialties ---------------------------------------------------------------

// CreateSpecialty persists a new specialty. Its name is kept as typed; the
// normalized form is only used for uniqueness and grouping.
func (s *Service) CreateSpecialty(ctx context.Context, specialty Specialty) (Specialty, Result, error) {
	var created Specialty
	res, err := s.run(ctx, "create_specialty", func(tx domain.Transaction) (string, error) {
		var err error
		created, err = tx.CreateSpecialty(specialty)
		return created.ID, err
	})
	return created, res, err
}

// UpdateSpecialty mutates a specialty using the provided mutator.
func (s *Service) UpdateSpecialty(ctx context.Context, id string, mutator func(*Specialty) error) (Specialty, Result, error) {
	var updated Specialty
	res, err := s.run(ctx, "update_specialty", func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateSpecialty(id, mutator)
		return id, err
	})
	return updated, res, err
}

// DeleteSpecialty removes a specialty no longer referenced elsewhere.
func (s *Service) DeleteSpecialty(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_specialty", func(tx domain.Transaction) (string, error) {
		return id, tx.DeleteSpecialty(id)
	})
}

// GetSpecialty returns a specialty by ID.
func (s *Service) GetSpecialty(id string) (Specialty, bool) { return s.store.GetSpecialty(id) }

// ListSpecialties returns every specialty ordered by name.
func (s *Service) ListSpecialties() []Specialty { return s.store.ListSpecialties() }

// Doctors -------------------------------------------------------------------

// CreateDoctor persists a new doctor and its specialty links.
func (s *Service) CreateDoctor(ctx context.Context, doctor Doctor) (Doctor, Result, error) {
	var created Doctor
	res, err := s.run(ctx, "create_doctor", func(tx domain.Transaction) (string, error) {
		var err error
		created, err = tx.CreateDoctor(doctor)
		return created.ID, err
	})
	return created, res, err
}

// UpdateDoctor mutates a doctor using the provided mutator.
func (s *Service) UpdateDoctor(ctx context.Context, id string, mutator func(*Doctor) error) (Doctor, Result, error) {
	var updated Doctor
	res, err := s.run(ctx, "update_doctor", func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateDoctor(id, mutator)
		return id, err
	})
	return updated, res, err
}

// DeleteDoctor removes a doctor without shifts or encounters.
func (s *Service) DeleteDoctor(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_doctor", func(tx domain.Transaction) (string, error) {
		return id, tx.DeleteDoctor(id)
	})
}

// SetPrimarySpecialty makes specialtyID the doctor's only primary specialty,
// linking it first when the doctor does not practise it yet.
func (s *Service) SetPrimarySpecialty(ctx context.Context, doctorID, specialtyID string) (Doctor, Result, error) {
	var updated Doctor
	res, err := s.run(ctx, "set_primary_specialty", func(tx domain.Transaction) (string, error) {
		if _, ok := tx.FindSpecialty(specialtyID); !ok {
			return doctorID, ErrNotFound{Entity: domain.EntitySpecialty, ID: specialtyID}
		}
		var err error
		updated, err = tx.UpdateDoctor(doctorID, func(d *Doctor) error {
			if !d.HasSpecialty(specialtyID) {
				d.Specialties = append(d.Specialties, domain.DoctorSpecialty{SpecialtyID: specialtyID})
			}
			for i := range d.Specialties {
				d.Specialties[i].Primary = d.Specialties[i].SpecialtyID == specialtyID
			}
			return nil
		})
		return doctorID, err
	})
	return updated, res, err
}

// GetDoctor returns a doctor by ID.
func (s *Service) GetDoctor(id string) (Doctor, bool) { return s.store.GetDoctor(id) }

// ListDoctors returns doctors ordered by name, optionally restricted to one
// specialty and to active doctors.
func (s *Service) ListDoctors(filter DoctorFilter) []Doctor {
	all := s.store.ListDoctors()
	out := make([]Doctor, 0, len(all))
	for _, d := range all {
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// Shifts --------------------------------------------------------------------

// CreateShift schedules a shift. Overlaps with the doctor's other shifts are rejected.
func (s *Service) CreateShift(ctx context.Context, shift Shift) (Shift, Result, error) {
	var created Shift
	res, err := s.run(ctx, "create_shift", func(tx domain.Transaction) (string, error) {
		var err error
		created, err = tx.CreateShift(shift)
		return created.ID, err
	})
	return created, res, err
}

// UpdateShift mutates a shift using the provided mutator.
func (s *Service) UpdateShift(ctx context.Context, id string, mutator func(*Shift) error) (Shift, Result, error) {
	var updated Shift
	res, err := s.run(ctx, "update_shift", func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateShift(id, mutator)
		return id, err
	})
	return updated, res, err
}

// DeleteShift removes a shift that has no encounters.
func (s *Service) DeleteShift(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_shift", func(tx domain.Transaction) (string, error) {
		return id, tx.DeleteShift(id)
	})
}

// CancelShift marks a scheduled shift as cancelled. Cancelling twice is a
// no-op; completed shifts cannot be cancelled.
func (s *Service) CancelShift(ctx context.Context, id, reason string) (Shift, Result, error) {
	return s.transitionShift(ctx, "cancel_shift", id, domain.ShiftStatusCancelled, reason)
}

// CompleteShift marks a scheduled shift as worked.
func (s *Service) CompleteShift(ctx context.Context, id string) (Shift, Result, error) {
	return s.transitionShift(ctx, "complete_shift", id, domain.ShiftStatusCompleted, "")
}

func (s *Service) transitionShift(ctx context.Context, op, id string, target domain.ShiftStatus, note string) (Shift, Result, error) {
	var updated Shift
	res, err := s.run(ctx, op, func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateShift(id, func(sh *Shift) error {
			if sh.Status == target {
				return nil
			}
			if sh.Status != domain.ShiftStatusScheduled {
				return domain.ValidationError{
					Entity: domain.EntityShift,
					Field:  "status",
					Reason: fmt.Sprintf("cannot move from %s to %s", sh.Status, target),
				}
			}
			sh.Status = target
			if note != "" {
				if sh.Notes != "" {
					sh.Notes += "\n"
				}
				sh.Notes += note
			}
			return nil
		})
		return id, err
	})
	return updated, res, err
}

// GetShift returns a shift by ID.
func (s *Service) GetShift(id string) (Shift, bool) { return s.store.GetShift(id) }

// ListShifts returns shifts ordered by start time that match filter.
func (s *Service) ListShifts(filter ShiftFilter) []Shift {
	all := s.store.ListShifts()
	out := make([]Shift, 0, len(all))
	for _, sh := range all {
		if filter.Match(sh) {
			out = append(out, sh)
		}
	}
	return out
}

// Encounters ----------------------------------------------------------------

// CreateEncounter records a patient encounter.
func (s *Service) CreateEncounter(ctx context.Context, encounter Encounter) (Encounter, Result, error) {
	var created Encounter
	res, err := s.run(ctx, "create_encounter", func(tx domain.Transaction) (string, error) {
		var err error
		created, err = tx.CreateEncounter(encounter)
		return created.ID, err
	})
	return created, res, err
}

// UpdateEncounter mutates an encounter using the provided mutator.
func (s *Service) UpdateEncounter(ctx context.Context, id string, mutator func(*Encounter) error) (Encounter, Result, error) {
	var updated Encounter
	res, err := s.run(ctx, "update_encounter", func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateEncounter(id, mutator)
		return id, err
	})
	return updated, res, err
}

// DeleteEncounter removes an encounter.
func (s *Service) DeleteEncounter(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_encounter", func(tx domain.Transaction) (string, error) {
		return id, tx.DeleteEncounter(id)
	})
}

// GetEncounter returns an encounter by ID.
func (s *Service) GetEncounter(id string) (Encounter, bool) { return s.store.GetEncounter(id) }

// ListEncounters returns encounters ordered by occurrence that match filter.
func (s *Service) ListEncounters(filter EncounterFilter) []Encounter {
	all := s.store.ListEncounters()
	out := make([]Encounter, 0, len(all))
	for _, e := range all {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Users ---------------------------------------------------------------------

// CreateUser persists a user. The caller supplies an already hashed password.
func (s *Service) CreateUser(ctx context.Context, user User) (User, Result, error) {
	var created User
	res, err := s.run(ctx, "create_user", func(tx domain.Transaction) (string, error) {
		var err error
		created, err = tx.CreateUser(user)
		return created.ID, err
	})
	return created, res, err
}

// UpdateUser mutates a user using the provided mutator.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*User) error) (User, Result, error) {
	var updated User
	res, err := s.run(ctx, "update_user", func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateUser(id, mutator)
		return id, err
	})
	return updated, res, err
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_user", func(tx domain.Transaction) (string, error) {
		return id, tx.DeleteUser(id)
	})
}

// GetUser returns a user by ID.
func (s *Service) GetUser(id string) (User, bool) { return s.store.GetUser(id) }

// FindUserByUsername returns a user by login name.
func (s *Service) FindUserByUsername(username string) (User, bool) {
	return s.store.FindUserByUsername(username)
}

// ListUsers returns users ordered by username.
func (s *Service) ListUsers() []User { return s.store.ListUsers() }
