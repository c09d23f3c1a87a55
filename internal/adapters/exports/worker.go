// Package exports renders productivity reports in the background and stores
// the resulting files in a blob store.
package exports

import (
	"bytes"
	"clinicstaff/internal/blob"
	"clinicstaff/internal/core"
	"clinicstaff/internal/reports"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact is one stored rendition of an export.
type Artifact struct {
	Key         string         `json:"key"`
	Format      reports.Format `json:"format"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	URL         string         `json:"url,omitempty"`
	Rows        int            `json:"rows"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Record tracks an export request and its artifacts.
type Record struct {
	ID          string           `json:"id"`
	Query       reports.Query    `json:"query"`
	Formats     []reports.Format `json:"formats"`
	Status      Status           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []Artifact       `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Input is an enqueue request.
type Input struct {
	Query       reports.Query
	Formats     []reports.Format
	RequestedBy string
}

// Scheduler queues exports and exposes their status.
type Scheduler interface {
	Enqueue(ctx context.Context, input Input) (Record, error)
	Get(id string) (Record, bool)
	List() []Record
	Open(ctx context.Context, id string, format reports.Format) (Artifact, io.ReadCloser, error)
}

// ErrQueueFull is returned by Enqueue when the worker is saturated.
var ErrQueueFull = errors.New("export queue full")

// ErrUnknownExport is returned for IDs the worker never issued.
var ErrUnknownExport = errors.New("export not found")

const (
	defaultQueueSize = 32
	defaultRetention = 256
	artifactBaseName = "produtividade"
)

// Option configures a Worker.
type Option func(*Worker)

// WithClock overrides the time source used for record timestamps.
func WithClock(clock core.Clock) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(logger core.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithQueueSize bounds the number of pending exports.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan string, n)
		}
	}
}

// WithRetention bounds how many finished records are kept. The oldest
// finished record is forgotten first; its artifacts stay in the blob store.
func WithRetention(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.retain = n
		}
	}
}

// WithURLExpiry sets the lifetime of presigned download links.
func WithURLExpiry(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.urlExpiry = d
		}
	}
}

// Worker executes report exports asynchronously.
type Worker struct {
	source    reports.Source
	store     blob.Store
	audit     AuditLogger
	clock     core.Clock
	logger    core.Logger
	urlExpiry time.Duration

	queue    chan string
	mu       sync.RWMutex
	jobs     map[string]*Record
	finished []string // terminal record IDs, oldest first
	retain   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Scheduler = (*Worker)(nil)

// NewWorker constructs an export worker. A nil audit logger discards entries.
func NewWorker(source reports.Source, store blob.Store, audit AuditLogger, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		source:    source,
		store:     store,
		audit:     audit,
		clock:     core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:    nopLogger{},
		urlExpiry: blob.DefaultURLExpiry,
		queue:     make(chan string, defaultQueueSize),
		jobs:      make(map[string]*Record),
		retain:    defaultRetention,
		ctx:       ctx,
		cancel:    cancel,
	}
	if w.audit == nil {
		w.audit = AuditFunc(func(context.Context, AuditEntry) {})
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running export to finish
// or ctx to expire. Exports still queued stay in the queued state.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue validates input, records a queued export and schedules it.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	if w.source == nil || w.store == nil {
		return Record{}, errors.New("export worker not configured")
	}
	q, err := input.Query.Normalize()
	if err != nil {
		return Record{}, err
	}
	formats, err := uniqueFormats(input.Formats)
	if err != nil {
		return Record{}, err
	}
	actor := input.RequestedBy
	if actor == "" {
		actor = core.ActorFromContext(ctx)
	}

	now := w.clock.Now()
	record := Record{
		ID:          uuid.NewString(),
		Query:       q,
		Formats:     formats,
		Status:      StatusQueued,
		RequestedBy: actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = &record
	queued := record.copy()
	w.mu.Unlock()
	w.audit.Record(ctx, AuditEntry{ExportID: record.ID, Actor: actor, Status: StatusQueued, OccurredAt: now})

	select {
	case w.queue <- record.ID:
		return queued, nil
	default:
	}
	w.mu.Lock()
	delete(w.jobs, record.ID)
	w.mu.Unlock()
	w.audit.Record(ctx, AuditEntry{ExportID: record.ID, Actor: actor, Status: StatusFailed, Detail: ErrQueueFull.Error(), OccurredAt: now})
	return Record{}, ErrQueueFull
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// List returns all known exports, newest first.
func (w *Worker) List() []Record {
	w.mu.RLock()
	out := make([]Record, 0, len(w.jobs))
	for _, r := range w.jobs {
		out = append(out, r.copy())
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Open streams a stored artifact of a finished export.
func (w *Worker) Open(ctx context.Context, id string, format reports.Format) (Artifact, io.ReadCloser, error) {
	record, ok := w.Get(id)
	if !ok {
		return Artifact{}, nil, ErrUnknownExport
	}
	for _, a := range record.Artifacts {
		if a.Format == format {
			_, body, err := w.store.Get(ctx, a.Key)
			if err != nil {
				return Artifact{}, nil, err
			}
			return a, body, nil
		}
	}
	return Artifact{}, nil, fmt.Errorf("export %s has no %s artifact: %w", id, format, blob.ErrNotFound)
}

func (w *Worker) process(id string) {
	record, ok := w.Get(id)
	if !ok {
		return
	}
	w.setRunning(id)

	rep, err := w.source.Productivity(w.ctx, record.Query)
	if err != nil {
		w.fail(id, fmt.Sprintf("build report: %v", err))
		return
	}
	artifacts := make([]Artifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		artifact, err := w.storeArtifact(id, rep, format)
		if err != nil {
			w.fail(id, err.Error())
			return
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(id, artifacts)
}

// storeArtifact renders rep in format and uploads it.
func (w *Worker) storeArtifact(id string, rep reports.Report, format reports.Format) (Artifact, error) {
	var buf bytes.Buffer
	if err := reports.Render(&buf, rep, format); err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	key := ArtifactKey(id, format)
	size := int64(buf.Len())
	info, err := w.store.Put(w.ctx, key, &buf, blob.PutOptions{
		ContentType: format.ContentType(),
		Metadata:    map[string]string{"export-id": id, "group-by": string(rep.Query.GroupBy)},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s artifact: %w", format, err)
	}
	artifact := Artifact{
		Key:         key,
		Format:      format,
		ContentType: format.ContentType(),
		SizeBytes:   size,
		Rows:        len(rep.Rows),
		CreatedAt:   w.clock.Now(),
	}
	if info.Size > 0 {
		artifact.SizeBytes = info.Size
	}
	url, err := w.store.PresignURL(w.ctx, key, blob.SignedURLOptions{Expiry: w.urlExpiry})
	switch {
	case err == nil:
		artifact.URL = url
	case !errors.Is(err, blob.ErrUnsupported):
		w.logger.Warn("presign export artifact failed", "export_id", id, "key", key, "error", err)
	}
	return artifact, nil
}

// ArtifactKey is the blob key of an export rendition.
func ArtifactKey(id string, format reports.Format) string {
	return fmt.Sprintf("exports/%s/%s.%s", id, artifactBaseName, format.Extension())
}

func (w *Worker) setRunning(id string) {
	now := w.clock.Now()
	actor := w.update(id, func(r *Record) {
		r.Status = StatusRunning
		r.UpdatedAt = now
	})
	w.audit.Record(w.ctx, AuditEntry{ExportID: id, Actor: actor, Status: StatusRunning, OccurredAt: now})
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := w.clock.Now()
	actor := w.finish(id, func(r *Record) {
		r.Status = StatusSucceeded
		r.Error = ""
		r.Artifacts = artifacts
		r.UpdatedAt = now
		r.CompletedAt = &now
	})
	w.logger.Info("export finished", "export_id", id, "artifacts", len(artifacts))
	w.audit.Record(w.ctx, AuditEntry{ExportID: id, Actor: actor, Status: StatusSucceeded, Detail: fmt.Sprintf("%d artifacts", len(artifacts)), OccurredAt: now})
}

func (w *Worker) fail(id, reason string) {
	now := w.clock.Now()
	actor := w.finish(id, func(r *Record) {
		r.Status = StatusFailed
		r.Error = reason
		r.UpdatedAt = now
		r.CompletedAt = &now
	})
	w.logger.Error("export failed", "export_id", id, "error", reason)
	w.audit.Record(w.ctx, AuditEntry{ExportID: id, Actor: actor, Status: StatusFailed, Detail: reason, OccurredAt: now})
}

// update applies fn to the record under lock and returns the requester.
func (w *Worker) update(id string, fn func(*Record)) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return ""
	}
	fn(record)
	return record.RequestedBy
}

// finish is update for terminal states. It forgets the oldest finished
// records beyond the retention limit.
func (w *Worker) finish(id string, fn func(*Record)) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return ""
	}
	fn(record)
	w.finished = append(w.finished, id)
	for len(w.finished) > w.retain {
		delete(w.jobs, w.finished[0])
		w.finished = w.finished[1:]
	}
	return record.RequestedBy
}

func uniqueFormats(formats []reports.Format) ([]reports.Format, error) {
	if len(formats) == 0 {
		formats = []reports.Format{reports.FormatCSV, reports.FormatXLSX, reports.FormatPDF}
	}
	out := make([]reports.Format, 0, len(formats))
	seen := make(map[reports.Format]struct{}, len(formats))
	for _, f := range formats {
		parsed, err := reports.ParseFormat(string(f))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[parsed]; dup {
			continue
		}
		seen[parsed] = struct{}{}
		out = append(out, parsed)
	}
	return out, nil
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]reports.Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
