package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clinicstaff/internal/adapters/exports"
	"clinicstaff/internal/auth"
	"clinicstaff/internal/blob"
	"clinicstaff/internal/core"
	"clinicstaff/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testHasher = auth.Hasher{Cost: bcrypt.MinCost}

type harness struct {
	t   *testing.T
	svc *core.Service
	srv *Server
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	svc := core.NewInMemoryService(nil)
	opts := Options{Service: svc, Hasher: testHasher}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)
	return &harness{t: t, svc: svc, srv: srv}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

type dataEnvelope[T any] struct {
	Data     T                  `json:"data"`
	Warnings []domain.Violation `json:"warnings"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env dataEnvelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func (h *harness) specialty(name string) domain.Specialty {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/specialties", "", map[string]any{"name": name})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Specialty](h.t, rec)
}

func (h *harness) doctor(name, crm, specialtyID string) domain.Doctor {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/doctors", "", map[string]any{
		"name":        name,
		"crm":         crm,
		"specialties": []map[string]any{{"specialty_id": specialtyID, "primary": true}},
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Doctor](h.t, rec)
}

func (h *harness) user(username, password string, role domain.Role, doctorID *string) domain.User {
	h.t.Helper()
	hash, err := testHasher.Hash(password)
	require.NoError(h.t, err)
	u, _, err := h.svc.CreateUser(context.Background(), domain.User{
		Username:     username,
		Name:         username,
		Role:         role,
		PasswordHash: hash,
		DoctorID:     doctorID,
		Active:       true,
	})
	require.NoError(h.t, err)
	return u
}

func (h *harness) login(username, password string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(h.t, resp.Token)
	return resp.Token
}

type productivityRows struct {
	Rows []struct {
		Label          string  `json:"label"`
		Shifts         int     `json:"shifts"`
		ScheduledHours float64 `json:"scheduled_hours"`
	} `json:"rows"`
}

type summaryCounts struct {
	Doctors     int `json:"doctors"`
	Specialties int `json:"specialties"`
	Shifts      int `json:"shifts"`
}

var day = time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)

func TestStaffCRUD(t *testing.T) {
	h := newHarness(t, nil)
	ped := h.specialty("Pediatria")
	doc := h.doctor("Dra. Ana Souza", "CRM-SP 12345", ped.ID)
	assert.True(t, doc.Active, "doctors default to active")

	rec := h.do(http.MethodGet, "/api/v1/doctors?specialty_id="+ped.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Doctor](t, rec), 1)

	rec = h.do(http.MethodGet, "/api/v1/doctors?active=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, "/api/v1/specialties/"+ped.ID, "", map[string]any{"name": "Pediatria Geral", "code": "PED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PED", decode[domain.Specialty](t, rec).Code)

	rec = h.do(http.MethodGet, "/api/v1/specialties/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/specialties/"+ped.ID, "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "specialty linked to a doctor")

	clin := h.specialty("Clínica Médica")
	rec = h.do(http.MethodPut, "/api/v1/doctors/"+doc.ID, "", map[string]any{
		"name": doc.Name,
		"crm":  doc.CRM,
		"specialties": []map[string]any{
			{"specialty_id": ped.ID, "primary": true},
			{"specialty_id": clin.ID},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPut, "/api/v1/doctors/"+doc.ID+"/primary-specialty", "", map[string]string{"specialty_id": clin.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	primary, ok := decode[domain.Doctor](t, rec).PrimarySpecialtyID()
	require.True(t, ok)
	assert.Equal(t, clin.ID, primary)

	rec = h.do(http.MethodPut, "/api/v1/doctors/"+doc.ID+"/primary-specialty", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/doctors/"+doc.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/doctors/"+doc.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRejectsMalformedPayloads(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/specialties", strings.NewReader(`{"name":`))
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/specialties", "", map[string]any{"name": "x", "color": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = h.do(http.MethodPost, "/api/v1/specialties", "", map[string]any{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
}

func TestScheduleRulesOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	ped := h.specialty("Pediatria")
	doc := h.doctor("Dr. Paulo Lima", "CRM-RJ 5521", ped.ID)

	rec := h.do(http.MethodPost, "/api/v1/shifts", "", map[string]any{
		"doctor_id": doc.ID, "specialty_id": ped.ID, "unit": "PS Infantil",
		"starts_at": day.Add(7 * time.Hour), "ends_at": day.Add(19 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shift := decode[domain.Shift](t, rec)
	assert.Equal(t, domain.ShiftStatusScheduled, shift.Status)

	rec = h.do(http.MethodPost, "/api/v1/shifts", "", map[string]any{
		"doctor_id": doc.ID, "starts_at": day.Add(12 * time.Hour), "ends_at": day.Add(20 * time.Hour),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var violation struct {
		Violations []domain.Violation `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &violation))
	require.NotEmpty(t, violation.Violations)
	assert.Equal(t, "shift_overlap", violation.Violations[0].Rule)

	rec = h.do(http.MethodPost, "/api/v1/shifts", "", map[string]any{
		"doctor_id": doc.ID, "starts_at": day.Add(24 * time.Hour), "ends_at": day.Add(54 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	long := decode[domain.Shift](t, rec)
	assert.Contains(t, rec.Body.String(), "shift_duration", "long shifts carry a warning")

	rec = h.do(http.MethodGet, "/api/v1/shifts?status=paused", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/shifts?from=2024-04-02&to=2024-04-03", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Shift](t, rec), 1)
	rec = h.do(http.MethodGet, "/api/v1/shifts?from=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	shiftID := shift.ID
	rec = h.do(http.MethodPost, "/api/v1/encounters", "", map[string]any{
		"doctor_id": doc.ID, "shift_id": shiftID, "patient_name": "Lucas",
		"kind": "emergency", "occurred_at": day.Add(21 * time.Hour),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "encounter outside its shift")

	rec = h.do(http.MethodPost, "/api/v1/encounters", "", map[string]any{
		"doctor_id": doc.ID, "shift_id": shiftID, "patient_name": "Lucas",
		"kind": "emergency", "occurred_at": day.Add(8 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodDelete, "/api/v1/shifts/"+shiftID, "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/shifts/"+shiftID+"/complete", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.ShiftStatusCompleted, decode[domain.Shift](t, rec).Status)

	rec = h.do(http.MethodPost, "/api/v1/shifts/"+long.ID+"/cancel", "", map[string]string{"reason": "férias"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.ShiftStatusCancelled, decode[domain.Shift](t, rec).Status)

	rec = h.do(http.MethodGet, "/api/v1/encounters?kind=emergency", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Encounter](t, rec), 1)
	rec = h.do(http.MethodGet, "/api/v1/encounters?kind=telemedicina", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown kind")
}

func TestReportsOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	ped := h.specialty("Pediatria")
	doc := h.doctor("Dr. Paulo Lima", "CRM-RJ 5521", ped.ID)
	rec := h.do(http.MethodPost, "/api/v1/shifts", "", map[string]any{
		"doctor_id": doc.ID, "specialty_id": ped.ID,
		"starts_at": day.Add(7 * time.Hour), "ends_at": day.Add(19 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/reports/productivity?group_by=specialty&from=2024-04-01&to=2024-05-01", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[productivityRows](t, rec)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 1, report.Rows[0].Shifts)
	assert.InDelta(t, 12, report.Rows[0].ScheduledHours, 0.001)

	rec = h.do(http.MethodGet, "/api/v1/reports/productivity?format=csv&group_by=specialty", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "produtividade.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "group,label,"), rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/reports/productivity?format=docx", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/reports/productivity?group_by=week", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/reports/productivity?from=2024-05-01&to=2024-04-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/reports/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[summaryCounts](t, rec)
	assert.Equal(t, 1, summary.Doctors)
	assert.Equal(t, 1, summary.Specialties)
	assert.Equal(t, 1, summary.Shifts)
}

func TestAuthenticationAndPermissions(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AuthEnabled = true })
	admin := h.user("admin", "admin-secret", domain.RoleAdmin, nil)
	h.user("viewer", "viewer-secret", domain.RoleViewer, nil)

	rec := h.do(http.MethodGet, "/api/v1/doctors", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/doctors", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	adminToken := h.login("admin", "admin-secret")
	rec = h.do(http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, admin.ID, decode[domain.User](t, rec).ID)
	assert.NotContains(t, rec.Body.String(), "$2a$", "password hashes never leave the API")

	viewerToken := h.login("viewer", "viewer-secret")
	rec = h.do(http.MethodGet, "/api/v1/specialties", viewerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/specialties", viewerToken, map[string]string{"name": "Cardiologia"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/reports/summary", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/users", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/logout", viewerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/auth/me", viewerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserManagement(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AuthEnabled = true })
	h.user("admin", "admin-secret", domain.RoleAdmin, nil)
	token := h.login("admin", "admin-secret")

	rec := h.do(http.MethodPost, "/api/v1/users", token, map[string]any{
		"username": "coord", "name": "Coordenação", "role": "coordinator", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "weak password")

	rec = h.do(http.MethodPost, "/api/v1/users", token, map[string]any{
		"username": "coord", "name": "Coordenação", "role": "coordinator", "password": "coord-secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	coord := decode[domain.User](t, rec)
	assert.True(t, coord.Active)

	coordToken := h.login("coord", "coord-secret")
	rec = h.do(http.MethodGet, "/api/v1/auth/me", coordToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPut, "/api/v1/users/"+coord.ID, token, map[string]any{
		"username": "coord", "name": "Coordenação", "role": "coordinator", "active": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(http.MethodGet, "/api/v1/auth/me", coordToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deactivation revokes sessions")
	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "coord", "password": "coord-secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/users", token, map[string]any{"username": "coord", "role": "viewer"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "duplicate username")

	chefe := h.user("chefe", "chefe-secret", domain.RoleAdmin, nil)
	chefeToken := h.login("chefe", "chefe-secret")
	rec = h.do(http.MethodPut, "/api/v1/users/"+chefe.ID, token, map[string]any{
		"username": "chefe", "name": "Chefia", "role": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/users", chefeToken, nil).Code, "same role keeps the session")

	rec = h.do(http.MethodPut, "/api/v1/users/"+chefe.ID, token, map[string]any{
		"username": "chefe", "name": "Chefia", "role": "viewer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/users", chefeToken, nil).Code, "demotion revokes sessions")
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/v1/specialties", chefeToken, map[string]string{"name": "Urologia"}).Code)
	viewerToken := h.login("chefe", "chefe-secret")
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/users", viewerToken, nil).Code)

	rec = h.do(http.MethodDelete, "/api/v1/users/"+coord.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/users/"+coord.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDoctorsRecordOnlyTheirOwnEncounters(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AuthEnabled = true })
	h.user("admin", "admin-secret", domain.RoleAdmin, nil)
	adminToken := h.login("admin", "admin-secret")

	rec := h.do(http.MethodPost, "/api/v1/specialties", adminToken, map[string]string{"name": "Clínica Médica"})
	require.Equal(t, http.StatusCreated, rec.Code)
	clin := decode[domain.Specialty](t, rec)
	var doctors []domain.Doctor
	for i, crm := range []string{"CRM-SP 1", "CRM-SP 2"} {
		rec = h.do(http.MethodPost, "/api/v1/doctors", adminToken, map[string]any{
			"name": []string{"Dra. Ana", "Dr. Bruno"}[i], "crm": crm,
			"specialties": []map[string]any{{"specialty_id": clin.ID, "primary": true}},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		doctors = append(doctors, decode[domain.Doctor](t, rec))
	}
	own := doctors[0].ID
	h.user("ana", "ana-secret", domain.RoleDoctor, &own)
	token := h.login("ana", "ana-secret")

	body := func(doctorID string) map[string]any {
		return map[string]any{"doctor_id": doctorID, "patient_name": "Maria", "occurred_at": day.Add(9 * time.Hour)}
	}
	rec = h.do(http.MethodPost, "/api/v1/encounters", token, body(doctors[1].ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/encounters", token, body(own))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	enc := decode[domain.Encounter](t, rec)
	assert.Equal(t, domain.EncounterConsultation, enc.Kind)

	rec = h.do(http.MethodPost, "/api/v1/shifts", token, map[string]any{
		"doctor_id": own, "starts_at": day, "ends_at": day.Add(time.Hour),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, "doctors cannot schedule")

	rec = h.do(http.MethodPost, "/api/v1/encounters", adminToken, body(doctors[1].ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decode[domain.Encounter](t, rec)
	rec = h.do(http.MethodDelete, "/api/v1/encounters/"+other.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(http.MethodDelete, "/api/v1/encounters/"+enc.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExportsOverHTTP(t *testing.T) {
	store := blob.NewMemory()
	var worker *exports.Worker
	h := newHarness(t, func(o *Options) {
		worker = exports.NewWorker(o.Service, store, nil)
		o.Exports = worker
	})
	worker.Start()
	defer func() { require.NoError(t, worker.Stop(context.Background())) }()

	ped := h.specialty("Pediatria")
	doc := h.doctor("Dr. Paulo Lima", "CRM-RJ 5521", ped.ID)
	rec := h.do(http.MethodPost, "/api/v1/shifts", "", map[string]any{
		"doctor_id": doc.ID, "starts_at": day.Add(7 * time.Hour), "ends_at": day.Add(19 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/exports", "", map[string]any{"from": "2024-04", "formats": []string{"csv"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/exports", "", map[string]any{"formats": []string{"docx"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/exports", "", map[string]any{"group_by": "specialty", "formats": []string{"csv"}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	queued := decode[exports.Record](t, rec)
	assert.Equal(t, "/api/v1/exports/"+queued.ID, rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		rec := h.do(http.MethodGet, "/api/v1/exports/"+queued.ID, "", nil)
		return rec.Code == http.StatusOK && decode[exports.Record](t, rec).Status == exports.StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	rec = h.do(http.MethodGet, "/api/v1/exports", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]exports.Record](t, rec), 1)

	rec = h.do(http.MethodGet, "/api/v1/exports/"+queued.ID+"/download/csv", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Pediatria")

	rec = h.do(http.MethodGet, "/api/v1/exports/"+queued.ID+"/download/pdf", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/exports/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/exports/unknown/download/csv", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportRoutesDisabledWithoutWorker(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/v1/exports", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	var probeErr error
	h := newHarness(t, func(o *Options) {
		o.Ready = func(context.Context) error { return probeErr }
	})
	rec := h.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	probeErr = errors.New("redis: connection refused")
	rec = h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	h.do(http.MethodGet, "/api/v1/specialties", "", nil)
	h.do(http.MethodGet, "/nowhere", "", nil)
	rec = h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `clinicstaff_http_requests_total{code="200",method="GET",route="/api/v1/specialties`)
	assert.Contains(t, body, `route="unmatched"`)
	assert.Contains(t, body, "clinicstaff_http_request_duration_seconds")
}

func TestDebugVarsOptIn(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/debug/vars", "", nil).Code)

	h = newHarness(t, func(o *Options) { o.DebugVars = true })
	rec := h.do(http.MethodGet, "/debug/vars", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"memstats"`)
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
