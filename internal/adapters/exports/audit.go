package exports

import (
	"clinicstaff/internal/core"
	"clinicstaff/internal/infra/persistence/sqlstate"
	"clinicstaff/pkg/domain"
	"context"
	"sync"
	"time"
)

// AuditEntry records one export lifecycle transition.
type AuditEntry struct {
	ExportID   string    `json:"export_id"`
	Actor      string    `json:"actor,omitempty"`
	Status     Status    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditLogger receives export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditFunc adapts a function to AuditLogger.
type AuditFunc func(ctx context.Context, entry AuditEntry)

// Record implements AuditLogger.
func (f AuditFunc) Record(ctx context.Context, entry AuditEntry) { f(ctx, entry) }

const auditEntity = "export"

// NewAuditLogger writes entries to the store's audit table when it has one
// and to logger otherwise.
func NewAuditLogger(store domain.PersistentStore, logger core.Logger) AuditLogger {
	if sink, ok := store.(core.AuditAppender); ok {
		return AuditFunc(func(ctx context.Context, e AuditEntry) {
			rec := sqlstate.AuditRecord{
				OccurredAt: e.OccurredAt,
				Actor:      e.Actor,
				Action:     "report_export",
				Entity:     auditEntity,
				EntityID:   e.ExportID,
				Status:     string(e.Status),
				Detail:     e.Detail,
			}
			if err := sink.AppendAudit(context.WithoutCancel(ctx), rec); err != nil && logger != nil {
				logger.Error("export audit write failed", "export_id", e.ExportID, "error", err)
			}
		})
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return AuditFunc(func(_ context.Context, e AuditEntry) {
		logger.Info("export audit", "export_id", e.ExportID, "actor", e.Actor, "status", e.Status, "detail", e.Detail)
	})
}

// MemoryAuditLog keeps entries in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
