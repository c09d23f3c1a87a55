package core

import (
	"clinicstaff/internal/infra/persistence/sqlstate"
	"context"
	"fmt"
)

// AuditAppender is implemented by stores that keep an audit_log table.
type AuditAppender interface {
	AppendAudit(ctx context.Context, rec sqlstate.AuditRecord) error
}

// StoreAuditRecorder writes audit entries to the backing database. Write
// failures are logged and never fail the audited operation.
type StoreAuditRecorder struct {
	sink   AuditAppender
	logger Logger
}

// NewStoreAuditRecorder returns a recorder over sink. A nil logger discards write errors.
func NewStoreAuditRecorder(sink AuditAppender, logger Logger) *StoreAuditRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StoreAuditRecorder{sink: sink, logger: logger}
}

// Record implements AuditRecorder.
func (r *StoreAuditRecorder) Record(ctx context.Context, entry AuditEntry) {
	detail := entry.Error
	if detail == "" {
		detail = fmt.Sprintf("%s in %s", entry.Operation, entry.Duration)
	}
	rec := sqlstate.AuditRecord{
		OccurredAt: entry.Timestamp,
		Actor:      entry.Actor,
		Action:     string(entry.Action),
		Entity:     string(entry.Entity),
		EntityID:   entry.EntityID,
		Status:     string(entry.Status),
		Detail:     detail,
	}
	if err := r.sink.AppendAudit(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Error("audit write failed", "operation", entry.Operation, "entity_id", entry.EntityID, "error", err)
	}
}

// LogAuditRecorder emits audit entries through a Logger. It is used when the
// backend has no audit table, as with the memory store.
type LogAuditRecorder struct {
	logger Logger
}

// NewLogAuditRecorder returns a recorder that logs at info level.
func NewLogAuditRecorder(logger Logger) *LogAuditRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogAuditRecorder{logger: logger}
}

// Record implements AuditRecorder.
func (r *LogAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.logger.Info("audit",
		"operation", entry.Operation,
		"entity", entry.Entity,
		"action", entry.Action,
		"entity_id", entry.EntityID,
		"actor", entry.Actor,
		"status", entry.Status,
		"duration_ms", entry.Duration.Milliseconds(),
	)
}

// AuditRecorderFor picks the store-backed recorder when store supports it.
func AuditRecorderFor(store PersistentStore, logger Logger) AuditRecorder {
	if sink, ok := store.(AuditAppender); ok {
		return NewStoreAuditRecorder(sink, logger)
	}
	return NewLogAuditRecorder(logger)
}
