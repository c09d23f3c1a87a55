package seed

import (
	"context"
	"testing"
	"time"

	"clinicstaff/internal/auth"
	"clinicstaff/internal/core"
	"clinicstaff/internal/reports"
	"clinicstaff/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var hasher = auth.Hasher{Cost: bcrypt.MinCost}

func TestRunBuildsRoster(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	sum, err := Run(ctx, svc, hasher, Options{
		Start: start,
		Days:  7,
		Now:   time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// The last day has not happened yet and three night shifts of the
	// previous day are still running.
	assert.Equal(t, Summary{Specialties: 6, Doctors: 5, Shifts: 35, Completed: 27, Encounters: 81, Users: 4}, sum)
	assert.Len(t, svc.ListShifts(core.ShiftFilter{Status: domain.ShiftStatusCompleted}), 27)
	assert.Len(t, svc.ListEncounters(core.EncounterFilter{}), 81)

	for _, d := range svc.ListDoctors(core.DoctorFilter{}) {
		_, ok := d.PrimarySpecialtyID()
		assert.True(t, ok, "doctor %s has a primary specialty", d.Name)
	}

	rep, err := svc.Productivity(ctx, reports.Query{})
	require.NoError(t, err)
	assert.InDelta(t, 27*12, rep.Totals.WorkedHours, 0.001)
	assert.Equal(t, 81, rep.Totals.Encounters)
}

func TestRunCreatesLoginAccounts(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	_, err := Run(ctx, svc, hasher, Options{Days: 1, Password: "plantao-2024"})
	require.NoError(t, err)

	authn := auth.Authenticator{Users: svc, Sessions: auth.NewSessions(0, nil), Hasher: hasher}
	sess, user, err := authn.Login("admin", "plantao-2024")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, sess.Role)
	assert.Equal(t, "Administrador", user.Name)

	_, doc, err := authn.Login("ana.souza", "plantao-2024")
	require.NoError(t, err)
	require.NotNil(t, doc.DoctorID)
	linked, ok := svc.GetDoctor(*doc.DoctorID)
	require.True(t, ok)
	assert.Equal(t, "Dra. Ana Souza", linked.Name)
}

func TestRunRefusesPopulatedStore(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	_, _, err := svc.CreateSpecialty(ctx, domain.Specialty{Name: "Dermatologia"})
	require.NoError(t, err)
	_, err = Run(ctx, svc, hasher, Options{})
	require.ErrorIs(t, err, ErrNotEmpty)
}

func TestRunRejectsWeakPassword(t *testing.T) {
	svc := core.NewInMemoryService(nil)
	_, err := Run(context.Background(), svc, hasher, Options{Days: 1, Password: "123"})
	require.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestOptionsDefaults(t *testing.T) {
	now := time.Date(2024, 4, 10, 15, 30, 0, 0, time.UTC)
	o := Options{}.withDefaults(now)
	assert.Equal(t, 7, o.Days)
	assert.Equal(t, 3, o.EncountersPerShift)
	assert.Equal(t, DefaultPassword, o.Password)
	assert.Equal(t, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), o.Start)
}
