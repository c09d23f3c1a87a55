package httpapi

import (
	"clinicstaff/internal/auth"
	"clinicstaff/internal/core"
	"clinicstaff/internal/reports"
	"clinicstaff/pkg/domain"
	"fmt"
	"net/http"
	"net/url"
	"time"

	chi "github.com/go-chi/chi/v5"
)

// parseRange reads the from/to query parameters. Dates without a time are
// midnight UTC; the upper bound is exclusive.
func parseRange(q url.Values) (from, to time.Time, err error) {
	if v := q.Get("from"); v != "" {
		if from, err = reports.ParseDate(v); err != nil {
			return from, to, fmt.Errorf("from: %w", err)
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = reports.ParseDate(v); err != nil {
			return from, to, fmt.Errorf("to: %w", err)
		}
	}
	return from, to, nil
}

type shiftPayload struct {
	DoctorID    string             `json:"doctor_id"`
	SpecialtyID string             `json:"specialty_id"`
	Unit        string             `json:"unit"`
	StartsAt    time.Time          `json:"starts_at"`
	EndsAt      time.Time          `json:"ends_at"`
	Status      domain.ShiftStatus `json:"status"`
	Notes       string             `json:"notes"`
}

// apply copies the payload; an empty status keeps the current one.
func (p shiftPayload) apply(sh *domain.Shift) {
	sh.DoctorID = p.DoctorID
	sh.SpecialtyID = p.SpecialtyID
	sh.Unit = p.Unit
	sh.StartsAt = p.StartsAt
	sh.EndsAt = p.EndsAt
	if p.Status != "" {
		sh.Status = p.Status
	}
	sh.Notes = p.Notes
}

func (s *Server) listShifts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseRange(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := core.ShiftFilter{
		DoctorID:    q.Get("doctor_id"),
		SpecialtyID: q.Get("specialty_id"),
		Unit:        q.Get("unit"),
		Status:      domain.ShiftStatus(q.Get("status")),
		From:        from,
		To:          to,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: s.svc.ListShifts(filter)})
}

func (s *Server) createShift(w http.ResponseWriter, r *http.Request) {
	var p shiftPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var sh domain.Shift
	p.apply(&sh)
	created, res, err := s.svc.CreateShift(r.Context(), sh)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created, res)
}

func (s *Server) getShift(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sh, ok := s.svc.GetShift(id)
	if !ok {
		notFound(w, domain.EntityShift, id)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: sh})
}

func (s *Server) updateShift(w http.ResponseWriter, r *http.Request) {
	var p shiftPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, res, err := s.svc.UpdateShift(r.Context(), chi.URLParam(r, "id"), func(sh *domain.Shift) error {
		p.apply(sh)
		return nil
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, res)
}

func (s *Server) deleteShift(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.DeleteShift(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cancelShift(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	updated, res, err := s.svc.CancelShift(r.Context(), chi.URLParam(r, "id"), p.Reason)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, res)
}

func (s *Server) completeShift(w http.ResponseWriter, r *http.Request) {
	updated, res, err := s.svc.CompleteShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, res)
}

type encounterPayload struct {
	DoctorID      string               `json:"doctor_id"`
	ShiftID       *string              `json:"shift_id"`
	SpecialtyID   string               `json:"specialty_id"`
	PatientName   string               `json:"patient_name"`
	PatientRecord string               `json:"patient_record"`
	Kind          domain.EncounterKind `json:"kind"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Notes         string               `json:"notes"`
}

func (p encounterPayload) apply(e *domain.Encounter) {
	e.DoctorID = p.DoctorID
	e.ShiftID = p.ShiftID
	e.SpecialtyID = p.SpecialtyID
	e.PatientName = p.PatientName
	e.PatientRecord = p.PatientRecord
	if p.Kind != "" {
		e.Kind = p.Kind
	}
	e.OccurredAt = p.OccurredAt
	e.Notes = p.Notes
}

// ownsDoctor reports whether the caller may record encounters for doctorID.
// Users with the doctor role are limited to their own linked doctor.
func ownsDoctor(r *http.Request, doctorID string) bool {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok || sess.Role != domain.RoleDoctor {
		return true
	}
	return sess.DoctorID != nil && *sess.DoctorID == doctorID
}

func (s *Server) listEncounters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseRange(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := core.EncounterFilter{
		DoctorID:    q.Get("doctor_id"),
		ShiftID:     q.Get("shift_id"),
		SpecialtyID: q.Get("specialty_id"),
		Kind:        domain.EncounterKind(q.Get("kind")),
		From:        from,
		To:          to,
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", filter.Kind))
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: s.svc.ListEncounters(filter)})
}

func (s *Server) createEncounter(w http.ResponseWriter, r *http.Request) {
	var p encounterPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ownsDoctor(r, p.DoctorID) {
		writeError(w, http.StatusForbidden, "doctors may only record their own encounters")
		return
	}
	var e domain.Encounter
	p.apply(&e)
	created, res, err := s.svc.CreateEncounter(r.Context(), e)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created, res)
}

func (s *Server) getEncounter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.svc.GetEncounter(id)
	if !ok {
		notFound(w, domain.EntityEncounter, id)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: e})
}

func (s *Server) updateEncounter(w http.ResponseWriter, r *http.Request) {
	var p encounterPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if current, ok := s.svc.GetEncounter(id); ok && !ownsDoctor(r, current.DoctorID) || !ownsDoctor(r, p.DoctorID) {
		writeError(w, http.StatusForbidden, "doctors may only record their own encounters")
		return
	}
	updated, res, err := s.svc.UpdateEncounter(r.Context(), id, func(e *domain.Encounter) error {
		p.apply(e)
		return nil
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, res)
}

func (s *Server) deleteEncounter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if current, ok := s.svc.GetEncounter(id); ok && !ownsDoctor(r, current.DoctorID) {
		writeError(w, http.StatusForbidden, "doctors may only record their own encounters")
		return
	}
	if _, err := s.svc.DeleteEncounter(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
