// Package mysql provides a MySQL-backed store for deployments that already
// run the hospital's MySQL cluster. Semantics match the other SQL stores.
package mysql

import (
	"clinicstaff/internal/infra/persistence/sqlstate"
	"clinicstaff/internal/schema"
	"clinicstaff/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"net"
	"sync"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const driverName = "mysql"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Options describes a MySQL connection when no raw DSN is given.
type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN renders the options as a go-sql-driver DSN. Times are parsed into
// time.Time and stored in UTC.
func (o Options) DSN() string {
	cfg := driver.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	host, port := o.Host, o.Port
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "3306"
	}
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = o.Database
	if cfg.DBName == "" {
		cfg.DBName = "clinicstaff"
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// NormalizeDSN validates a raw DSN and forces parseTime so audit timestamps scan.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Store persists state to MySQL while reusing the in-memory implementation for transactions.
type Store struct {
	*sqlstate.Store
}

// NewStore opens a MySQL-backed store. dsn wins over opts when both are set.
func NewStore(dsn string, opts Options, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = opts.DSN()
	} else {
		normalized, err := NormalizeDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = normalized
	}
	openMu.Lock()
	raw, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db := sqlx.NewDb(raw, driverName)
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	inner, err := sqlstate.Open(ctx, db, schema.MySQL, engine)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
