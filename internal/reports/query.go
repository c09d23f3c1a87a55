// Package reports builds the productivity views used by the dashboards and
// exports: per doctor, specialty, month or unit consolidation of shifts and
// encounters over a date range.
package reports

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GroupBy selects the consolidation axis of a productivity report.
type GroupBy string

// Supported grouping axes.
const (
	GroupByDoctor    GroupBy = "doctor"
	GroupBySpecialty GroupBy = "specialty"
	GroupByMonth     GroupBy = "month"
	GroupByUnit      GroupBy = "unit"
)

// Valid reports whether g is a known axis.
func (g GroupBy) Valid() bool {
	switch g {
	case GroupByDoctor, GroupBySpecialty, GroupByMonth, GroupByUnit:
		return true
	}
	return false
}

// Query parameterizes a productivity report. Zero From/To leave the range
// open on that side; the range is half-open [From, To).
type Query struct {
	From        time.Time `json:"from,omitempty"`
	To          time.Time `json:"to,omitempty"`
	DoctorID    string    `json:"doctor_id,omitempty"`
	SpecialtyID string    `json:"specialty_id,omitempty"`
	GroupBy     GroupBy   `json:"group_by"`
}

// Normalize applies defaults and validates the query.
func (q Query) Normalize() (Query, error) {
	q.GroupBy = GroupBy(strings.ToLower(strings.TrimSpace(string(q.GroupBy))))
	if q.GroupBy == "" {
		q.GroupBy = GroupByDoctor
	}
	if !q.GroupBy.Valid() {
		return q, fmt.Errorf("unknown group_by %q", q.GroupBy)
	}
	if !q.From.IsZero() {
		q.From = q.From.UTC()
	}
	if !q.To.IsZero() {
		q.To = q.To.UTC()
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.To.After(q.From) {
		return q, fmt.Errorf("range end %s must be after start %s", q.To.Format(time.RFC3339), q.From.Format(time.RFC3339))
	}
	q.DoctorID = strings.TrimSpace(q.DoctorID)
	q.SpecialtyID = strings.TrimSpace(q.SpecialtyID)
	return q, nil
}

// Key returns a stable digest of the query, used as a cache key.
func (q Query) Key() string {
	raw := strings.Join([]string{
		formatBound(q.From), formatBound(q.To), q.DoctorID, q.SpecialtyID, string(q.GroupBy),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (q Query) includes(t time.Time) bool {
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !t.Before(q.To) {
		return false
	}
	return true
}

// ParseDate accepts a calendar date (2006-01-02, midnight UTC) or an RFC 3339
// timestamp. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}
