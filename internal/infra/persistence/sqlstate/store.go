// Package sqlstate implements the snapshotting store shared by the SQL
// backends: transactions run against the embedded in-memory store and the
// committed state is written back as one JSON payload per bucket.
package sqlstate

import (
	"clinicstaff/internal/infra/persistence/memory"
	"clinicstaff/internal/schema"
	"clinicstaff/pkg/domain"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists state to a SQL database while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db      *sqlx.DB
	dialect schema.Dialect
	mu      sync.Mutex
}

// Open applies the dialect schema, hydrates the in-memory store from any
// existing snapshot and returns the combined store. The caller owns db until
// Open succeeds; afterwards Close releases it.
func Open(ctx context.Context, db *sqlx.DB, dialect schema.Dialect, engine *domain.RulesEngine) (*Store, error) {
	if err := schema.Apply(ctx, db, dialect); err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db, dialect: dialect}, nil
}

type stateRow struct {
	Bucket  string `db:"bucket"`
	Payload []byte `db:"payload"`
}

func loadSnapshot(ctx context.Context, db *sqlx.DB) (memory.Snapshot, error) {
	var rows []stateRow
	if err := db.SelectContext(ctx, &rows, `SELECT bucket, payload FROM state`); err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	var snapshot memory.Snapshot
	for _, row := range rows {
		if len(row.Payload) == 0 {
			continue
		}
		if err := snapshot.DecodeBucket(row.Bucket, row.Payload); err != nil {
			return memory.Snapshot{}, err
		}
	}
	return snapshot, nil
}

// RunInTransaction applies fn within a transaction, then snapshots the committed state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	upsert := s.db.Rebind(s.dialect.UpsertState())
	for _, bucket := range memory.Buckets {
		data, err := snapshot.EncodeBucket(bucket)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsert, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// AuditRecord is one row of the audit_log table.
type AuditRecord struct {
	ID         int64     `db:"id" json:"id"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	Actor      string    `db:"actor" json:"actor,omitempty"`
	Action     string    `db:"action" json:"action"`
	Entity     string    `db:"entity" json:"entity"`
	EntityID   string    `db:"entity_id" json:"entity_id,omitempty"`
	Status     string    `db:"status" json:"status"`
	Detail     string    `db:"detail" json:"detail,omitempty"`
}

// AppendAudit writes one audit record.
func (s *Store) AppendAudit(ctx context.Context, rec AuditRecord) error {
	query := s.db.Rebind(`INSERT INTO audit_log(occurred_at, actor, action, entity, entity_id, status, detail) VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, rec.OccurredAt.UTC(), rec.Actor, rec.Action, rec.Entity, rec.EntityID, rec.Status, rec.Detail); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// AuditTrail returns the most recent audit records for an entity, newest first.
func (s *Store) AuditTrail(ctx context.Context, entity, entityID string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.Rebind(`SELECT id, occurred_at, actor, action, entity, entity_id, status, detail FROM audit_log WHERE entity = ? AND entity_id = ? ORDER BY id DESC LIMIT ?`)
	var out []AuditRecord
	if err := s.db.SelectContext(ctx, &out, query, entity, entityID, limit); err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	return out, nil
}

// SchemaVersion reports the highest applied schema revision.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("select schema version: %w", err)
	}
	return version, nil
}

// Dialect returns the SQL dialect of the backing database.
func (s *Store) Dialect() schema.Dialect { return s.dialect }

// DB exposes the underlying sqlx.DB for integration testing hooks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
