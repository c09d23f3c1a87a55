package httpapi

import (
	"clinicstaff/internal/core"
	"clinicstaff/pkg/domain"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
)

type specialtyPayload struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (p specialtyPayload) apply(sp *domain.Specialty) {
	sp.Name = p.Name
	sp.Code = p.Code
	sp.Description = p.Description
}

func (s *Server) listSpecialties(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: s.svc.ListSpecialties()})
}

func (s *Server) createSpecialty(w http.ResponseWriter, r *http.Request) {
	var p specialtyPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var sp domain.Specialty
	p.apply(&sp)
	created, res, err := s.svc.CreateSpecialty(r.Context(), sp)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created, res)
}

func (s *Server) getSpecialty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sp, ok := s.svc.GetSpecialty(id)
	if !ok {
		notFound(w, domain.EntitySpecialty, id)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: sp})
}

func (s *Server) updateSpecialty(w http.ResponseWriter, r *http.Request) {
	var p specialtyPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, res, err := s.svc.UpdateSpecialty(r.Context(), chi.URLParam(r, "id"), func(sp *domain.Specialty) error {
		p.apply(sp)
		return nil
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, res)
}

func (s *Server) deleteSpecialty(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.DeleteSpecialty(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type doctorPayload struct {
	Name        string                   `json:"name"`
	CRM         string                   `json:"crm"`
	Email       string                   `json:"email"`
	Phone       string                   `json:"phone"`
	Active      *bool                    `json:"active"`
	Specialties []domain.DoctorSpecialty `json:"specialties"`
}

// apply copies the payload; a missing active flag keeps the current value.
func (p doctorPayload) apply(d *domain.Doctor) {
	d.Name = p.Name
	d.CRM = p.CRM
	d.Email = p.Email
	d.Phone = p.Phone
	if p.Active != nil {
		d.Active = *p.Active
	}
	d.Specialties = append([]domain.DoctorSpecialty(nil), p.Specialties...)
}

func (s *Server) listDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.DoctorFilter{SpecialtyID: q.Get("specialty_id"), Query: q.Get("q")}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "active must be a boolean")
			return
		}
		filter.ActiveOnly = active
	}
	writeJSON(w, http.StatusOK, envelope{Data: s.svc.ListDoctors(filter)})
}

func (s *Server) createDoctor(w http.ResponseWriter, r *http.Request) {
	var p doctorPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d := domain.Doctor{Active: true}
	p.apply(&d)
	created, res, err := s.svc.CreateDoctor(r.Context(), d)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created, res)
}

func (s *Server) getDoctor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := s.svc.GetDoctor(id)
	if !ok {
		notFound(w, domain.EntityDoctor, id)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: d})
}

func (s *Server) updateDoctor(w http.ResponseWriter, r *http.Request) {
	var p doctorPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, res, err := s.svc.UpdateDoctor(r.Context(), chi.URLParam(r, "id"), func(d *domain.Doctor) error {
		p.apply(d)
		return nil
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, res)
}

func (s *Server) deleteDoctor(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.DeleteDoctor(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setPrimarySpecialty(w http.ResponseWriter, r *http.Request) {
	var p struct {
		SpecialtyID string `json:"specialty_id"`
	}
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.SpecialtyID == "" {
		writeError(w, http.StatusBadRequest, "specialty_id is required")
		return
	}
	updated, res, err := s.svc.SetPrimarySpecialty(r.Context(), chi.URLParam(r, "id"), p.SpecialtyID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, res)
}
