// Package schema embeds the per-dialect DDL bundles and the handful of
// dialect-specific statements the snapshot stores need.
package schema

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Version is the schema revision recorded by Apply.
const Version = 1

//go:embed sqlite.sql
var sqliteDDL string

//go:embed postgres.sql
var postgresDDL string

//go:embed mysql.sql
var mysqlDDL string

// Dialect names a supported SQL backend.
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// DDL returns the embedded schema script for the dialect.
func (d Dialect) DDL() (string, error) {
	switch d {
	case SQLite:
		return sqliteDDL, nil
	case Postgres:
		return postgresDDL, nil
	case MySQL:
		return mysqlDDL, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", d)
	}
}

// UpsertState returns the bucket upsert statement using '?' placeholders.
// Callers rebind it for their driver.
func (d Dialect) UpsertState() string {
	switch d {
	case MySQL:
		return `INSERT INTO state(bucket,payload) VALUES(?,?) ON DUPLICATE KEY UPDATE payload=VALUES(payload), updated_at=CURRENT_TIMESTAMP(6)`
	case Postgres:
		return `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload, updated_at=now()`
	default:
		return `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`
	}
}

// RecordVersion returns the idempotent schema_version insert.
func (d Dialect) RecordVersion() string {
	if d == MySQL {
		return `INSERT IGNORE INTO schema_version(version) VALUES(?)`
	}
	return `INSERT INTO schema_version(version) VALUES(?) ON CONFLICT(version) DO NOTHING`
}

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	return stmts
}

// Execer is the subset of sqlx used to apply DDL.
type Execer interface {
	sqlx.ExecerContext
	Rebind(query string) string
}

// Apply executes the dialect's DDL and records Version. Every statement is
// idempotent so Apply runs on each open.
func Apply(ctx context.Context, db Execer, d Dialect) error {
	ddl, err := d.DDL()
	if err != nil {
		return err
	}
	for _, stmt := range SplitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, db.Rebind(d.RecordVersion()), Version); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
