package httpapi

import (
	"bytes"
	"clinicstaff/internal/adapters/exports"
	"clinicstaff/internal/blob"
	"clinicstaff/internal/reports"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func reportQuery(r *http.Request) (reports.Query, error) {
	q := r.URL.Query()
	from, to, err := parseRange(q)
	if err != nil {
		return reports.Query{}, err
	}
	return reports.Query{
		From:        from,
		To:          to,
		DoctorID:    q.Get("doctor_id"),
		SpecialtyID: q.Get("specialty_id"),
		GroupBy:     reports.GroupBy(q.Get("group_by")),
	}.Normalize()
}

func (s *Server) productivityReport(w http.ResponseWriter, r *http.Request) {
	q, err := reportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := reports.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.reports.Productivity(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if format == reports.FormatJSON {
		writeJSON(w, http.StatusOK, envelope{Data: rep})
		return
	}
	var buf bytes.Buffer
	if err := reports.Render(&buf, rep, format); err != nil {
		s.writeServiceError(w, fmt.Errorf("render %s: %w", format, err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="produtividade.%s"`, format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) summaryReport(w http.ResponseWriter, r *http.Request) {
	q, err := reportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := s.reports.Summary(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: sum})
}

type exportPayload struct {
	From        string           `json:"from"`
	To          string           `json:"to"`
	DoctorID    string           `json:"doctor_id"`
	SpecialtyID string           `json:"specialty_id"`
	GroupBy     reports.GroupBy  `json:"group_by"`
	Formats     []reports.Format `json:"formats"`
}

func (p exportPayload) query() (reports.Query, error) {
	q := reports.Query{DoctorID: p.DoctorID, SpecialtyID: p.SpecialtyID, GroupBy: p.GroupBy}
	var err error
	if p.From != "" {
		if q.From, err = reports.ParseDate(p.From); err != nil {
			return q, fmt.Errorf("from: %w", err)
		}
	}
	if p.To != "" {
		if q.To, err = reports.ParseDate(p.To); err != nil {
			return q, fmt.Errorf("to: %w", err)
		}
	}
	return q, nil
}

func (s *Server) createExport(w http.ResponseWriter, r *http.Request) {
	var p exportPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := p.query()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.exports.Enqueue(r.Context(), exports.Input{Query: q, Formats: p.Formats})
	switch {
	case errors.Is(err, exports.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Location", "/api/v1/exports/"+rec.ID)
	writeJSON(w, http.StatusAccepted, envelope{Data: rec})
}

func (s *Server) listExports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: s.exports.List()})
}

func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.exports.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, exports.ErrUnknownExport.Error())
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: rec})
}

func (s *Server) downloadExport(w http.ResponseWriter, r *http.Request) {
	format, err := reports.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	art, body, err := s.exports.Open(r.Context(), chi.URLParam(r, "id"), format)
	switch {
	case errors.Is(err, exports.ErrUnknownExport), errors.Is(err, blob.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.writeServiceError(w, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="produtividade.%s"`, format.Extension()))
	if art.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(art.SizeBytes, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("export download interrupted", zap.String("key", art.Key), zap.Error(err))
	}
}
