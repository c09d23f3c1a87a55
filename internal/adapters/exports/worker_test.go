package exports

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clinicstaff/internal/blob"
	"clinicstaff/internal/core"
	"clinicstaff/internal/infra/persistence/sqlite"
	"clinicstaff/internal/reports"
	"clinicstaff/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func seededService(t *testing.T) *core.Service {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	spec, _, err := svc.CreateSpecialty(ctx, domain.Specialty{Name: "Pediatria"})
	require.NoError(t, err)
	doc, _, err := svc.CreateDoctor(ctx, domain.Doctor{
		Name:        "Dr. Paulo Lima",
		CRM:         "CRM-RJ 5521",
		Active:      true,
		Specialties: []domain.DoctorSpecialty{{SpecialtyID: spec.ID, Primary: true}},
	})
	require.NoError(t, err)
	start := time.Date(2024, 4, 2, 7, 0, 0, 0, time.UTC)
	shift, _, err := svc.CreateShift(ctx, domain.Shift{DoctorID: doc.ID, SpecialtyID: spec.ID, Unit: "PS Infantil", StartsAt: start, EndsAt: start.Add(12 * time.Hour)})
	require.NoError(t, err)
	shiftID := shift.ID
	_, _, err = svc.CreateEncounter(ctx, domain.Encounter{DoctorID: doc.ID, ShiftID: &shiftID, PatientName: "Lucas", OccurredAt: start.Add(time.Hour), Kind: domain.EncounterEmergency})
	require.NoError(t, err)
	return svc
}

func waitFor(t *testing.T, w *Worker, id string, want Status) Record {
	t.Helper()
	var rec Record
	require.Eventually(t, func() bool {
		rec, _ = w.Get(id)
		return rec.Status == want
	}, 2*time.Second, 10*time.Millisecond, "export %s never reached %s", id, want)
	return rec
}

func TestWorkerProcessesExport(t *testing.T) {
	defer goleak.VerifyNone(t)
	store := blob.NewMemory()
	audit := &MemoryAuditLog{}
	w := NewWorker(seededService(t), store, audit)
	w.Start()
	defer func() { require.NoError(t, w.Stop(context.Background())) }()

	ctx := core.WithActor(context.Background(), "coord")
	rec, err := w.Enqueue(ctx, Input{
		Query:   reports.Query{GroupBy: reports.GroupBySpecialty},
		Formats: []reports.Format{reports.FormatCSV, "PDF", reports.FormatCSV},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, rec.Status)
	assert.Equal(t, "coord", rec.RequestedBy)
	assert.Equal(t, []reports.Format{reports.FormatCSV, reports.FormatPDF}, rec.Formats)

	done := waitFor(t, w, rec.ID, StatusSucceeded)
	require.Len(t, done.Artifacts, 2)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, "exports/"+rec.ID+"/produtividade.csv", done.Artifacts[0].Key)
	assert.Equal(t, 1, done.Artifacts[0].Rows)
	assert.Empty(t, done.Artifacts[0].URL, "memory store cannot presign")

	objects, err := store.List(context.Background(), "exports/"+rec.ID+"/")
	require.NoError(t, err)
	assert.Len(t, objects, 2)

	art, body, err := w.Open(context.Background(), rec.ID, reports.FormatCSV)
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, reports.FormatCSV, art.Format)
	assert.True(t, strings.HasPrefix(string(raw), "group,label,"), "unexpected csv %q", raw)
	assert.Contains(t, string(raw), "Pediatria")

	_, _, err = w.Open(context.Background(), rec.ID, reports.FormatXLSX)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	_, _, err = w.Open(context.Background(), "nope", reports.FormatCSV)
	assert.ErrorIs(t, err, ErrUnknownExport)

	var statuses []Status
	for _, e := range audit.Entries() {
		assert.Equal(t, rec.ID, e.ExportID)
		assert.Equal(t, "coord", e.Actor)
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []Status{StatusQueued, StatusRunning, StatusSucceeded}, statuses)
}

func TestWorkerForgetsOldestFinishedExports(t *testing.T) {
	defer goleak.VerifyNone(t)
	w := NewWorker(seededService(t), blob.NewMemory(), nil, WithRetention(2))
	w.Start()
	defer func() { require.NoError(t, w.Stop(context.Background())) }()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := w.Enqueue(context.Background(), Input{Formats: []reports.Format{reports.FormatCSV}})
		require.NoError(t, err)
		waitFor(t, w, rec.ID, StatusSucceeded)
		ids = append(ids, rec.ID)
	}

	_, ok := w.Get(ids[0])
	assert.False(t, ok, "oldest finished export is dropped")
	_, _, err := w.Open(context.Background(), ids[0], reports.FormatCSV)
	assert.ErrorIs(t, err, ErrUnknownExport)
	assert.Len(t, w.List(), 2)
	for _, id := range ids[1:] {
		_, ok := w.Get(id)
		assert.True(t, ok)
	}
}

type failingSource struct{}

func (failingSource) Productivity(context.Context, reports.Query) (reports.Report, error) {
	return reports.Report{}, errors.New("database unavailable")
}

func (failingSource) Summary(context.Context, reports.Query) (reports.Summary, error) {
	return reports.Summary{}, errors.New("database unavailable")
}

func TestWorkerRecordsFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	audit := &MemoryAuditLog{}
	w := NewWorker(failingSource{}, blob.NewMemory(), audit)
	w.Start()
	defer func() { require.NoError(t, w.Stop(context.Background())) }()

	rec, err := w.Enqueue(context.Background(), Input{Formats: []reports.Format{reports.FormatJSON}, RequestedBy: "admin"})
	require.NoError(t, err)
	failed := waitFor(t, w, rec.ID, StatusFailed)
	assert.Contains(t, failed.Error, "database unavailable")
	assert.Empty(t, failed.Artifacts)
	entries := audit.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, StatusFailed, entries[len(entries)-1].Status)
}

func TestWorkerFailsWhenArtifactExists(t *testing.T) {
	defer goleak.VerifyNone(t)
	store := blob.NewMemory()
	w := NewWorker(seededService(t), store, nil, WithQueueSize(4))

	rec, err := w.Enqueue(context.Background(), Input{Formats: []reports.Format{reports.FormatJSON}})
	require.NoError(t, err)
	_, err = store.Put(context.Background(), ArtifactKey(rec.ID, reports.FormatJSON), strings.NewReader("{}"), blob.PutOptions{})
	require.NoError(t, err)

	w.Start()
	defer func() { require.NoError(t, w.Stop(context.Background())) }()
	failed := waitFor(t, w, rec.ID, StatusFailed)
	assert.Contains(t, failed.Error, "store json artifact")
}

func TestEnqueueValidation(t *testing.T) {
	w := NewWorker(seededService(t), blob.NewMemory(), nil)
	_, err := w.Enqueue(context.Background(), Input{Formats: []reports.Format{"xml"}})
	assert.Error(t, err)
	_, err = w.Enqueue(context.Background(), Input{Query: reports.Query{GroupBy: "week"}})
	assert.Error(t, err)

	unconfigured := NewWorker(nil, nil, nil)
	_, err = unconfigured.Enqueue(context.Background(), Input{})
	assert.Error(t, err)
}

func TestEnqueueDefaultsAndQueueFull(t *testing.T) {
	w := NewWorker(seededService(t), blob.NewMemory(), nil, WithQueueSize(1))
	first, err := w.Enqueue(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, []reports.Format{reports.FormatCSV, reports.FormatXLSX, reports.FormatPDF}, first.Formats)
	assert.Equal(t, reports.GroupByDoctor, first.Query.GroupBy)

	_, err = w.Enqueue(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Len(t, w.List(), 1)
}

func TestWorkerPresignsFilesystemArtifacts(t *testing.T) {
	defer goleak.VerifyNone(t)
	store, err := blob.Open(context.Background(), blob.Config{
		Driver:    blob.DriverFilesystem,
		FSRoot:    t.TempDir(),
		FSBaseURL: "https://files.clinica.example/artifacts",
	})
	require.NoError(t, err)
	w := NewWorker(seededService(t), store, nil, WithURLExpiry(time.Minute))
	w.Start()
	defer func() { require.NoError(t, w.Stop(context.Background())) }()

	rec, err := w.Enqueue(context.Background(), Input{Formats: []reports.Format{reports.FormatXLSX}})
	require.NoError(t, err)
	done := waitFor(t, w, rec.ID, StatusSucceeded)
	require.Len(t, done.Artifacts, 1)
	assert.Equal(t, "https://files.clinica.example/artifacts/exports/"+rec.ID+"/produtividade.xlsx", done.Artifacts[0].URL)
	assert.Greater(t, done.Artifacts[0].SizeBytes, int64(0))
}

func TestWorkerStopHonoursContext(t *testing.T) {
	w := NewWorker(seededService(t), blob.NewMemory(), nil)
	w.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
}

func TestStoreBackedAuditLogger(t *testing.T) {
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	audit := NewAuditLogger(store, nil)
	now := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	audit.Record(context.Background(), AuditEntry{ExportID: "exp-1", Actor: "admin", Status: StatusQueued, OccurredAt: now})
	audit.Record(context.Background(), AuditEntry{ExportID: "exp-1", Actor: "admin", Status: StatusFailed, Detail: "boom", OccurredAt: now.Add(time.Second)})

	trail, err := store.AuditTrail(context.Background(), "export", "exp-1", 10)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	statuses := []string{trail[0].Status, trail[1].Status}
	assert.ElementsMatch(t, []string{"queued", "failed"}, statuses)
	for _, r := range trail {
		assert.Equal(t, "report_export", r.Action)
	}
}
