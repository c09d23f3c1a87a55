package httpapi

import (
	"clinicstaff/internal/auth"
	"clinicstaff/pkg/domain"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
)

type userPayload struct {
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Password string      `json:"password"`
	DoctorID *string     `json:"doctor_id"`
	Active   *bool       `json:"active"`
}

// passwordHash hashes the payload password; empty stays empty.
func (p userPayload) passwordHash(hasher auth.Hasher) (string, error) {
	if p.Password == "" {
		return "", nil
	}
	hash, err := hasher.Hash(p.Password)
	if err != nil {
		return "", domain.ValidationError{Entity: domain.EntityUser, Field: "password", Reason: err.Error()}
	}
	return hash, nil
}

// apply copies the payload. An empty hash keeps the stored one.
func (p userPayload) apply(u *domain.User, hash string) {
	u.Username = p.Username
	u.Name = p.Name
	u.Email = p.Email
	u.Role = p.Role
	u.DoctorID = p.DoctorID
	if p.Active != nil {
		u.Active = *p.Active
	}
	if hash != "" {
		u.PasswordHash = hash
	}
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: s.svc.ListUsers()})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var p userPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := p.passwordHash(s.authn.Hasher)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	u := domain.User{Active: true}
	p.apply(&u, hash)
	created, res, err := s.svc.CreateUser(r.Context(), u)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created, res)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, ok := s.svc.GetUser(id)
	if !ok {
		notFound(w, domain.EntityUser, id)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: u})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var p userPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := p.passwordHash(s.authn.Hasher)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	var before domain.User
	updated, res, err := s.svc.UpdateUser(r.Context(), id, func(u *domain.User) error {
		before = *u
		p.apply(u, hash)
		return nil
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	// Sessions carry the role and doctor link from login time.
	if !updated.Active || p.Password != "" || updated.Role != before.Role || !sameDoctor(before.DoctorID, updated.DoctorID) {
		s.authn.Sessions.RevokeUser(id)
	}
	writeData(w, http.StatusOK, updated, res)
}

func sameDoctor(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.DeleteUser(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.authn.Sessions.RevokeUser(id)
	w.WriteHeader(http.StatusNoContent)
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, user, err := s.authn.Login(p.Username, p.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	s.authn.Sessions.Revoke(sess.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	u, found := s.svc.GetUser(sess.UserID)
	if !found {
		writeError(w, http.StatusUnauthorized, "user no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: u})
}
