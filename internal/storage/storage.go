package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNoRows is returned by Get when no row matches.
var ErrNoRows = sql.ErrNoRows

// IsNoRows reports whether err means "absent", as opposed to a real
// query failure.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Store is the query surface shared by a live connection and an open
// transaction. Repositories are written against Store so the same
// code runs standalone or inside Transact.
type Store interface {
	// Get runs a query expected to return at most one row and scans
	// it into dest. Returns ErrNoRows when nothing matched.
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	// Select runs a query and scans all rows into dest (a slice ptr).
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	// Exec runs a statement and returns its result summary.
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// DB is the backend-agnostic storage port. Both embedded backends
// (SQLite and DuckDB) satisfy identical semantics behind it.
//
// Transact is not reentrant: the Store handed to fn deliberately does
// not expose Transact, so nesting cannot compile.
type DB interface {
	Store

	// Transact runs fn inside a transaction. All writes made through
	// the given Store commit together or not at all; any error from
	// fn rolls back and is returned.
	Transact(ctx context.Context, fn func(Store) error) error

	// Backend names the driver in use ("sqlite" or "duckdb").
	Backend() string

	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendDuckDB = "duckdb"
)

// Open opens the configured backend at path and creates the schema if
// absent. Schema creation is idempotent; a failure here is fatal to
// the caller.
func Open(backend, path string) (DB, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendDuckDB:
		return OpenDuckDB(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// sqlDB implements DB over any database/sql driver via sqlx.
type sqlDB struct {
	db      *sqlx.DB
	backend string
}

func (d *sqlDB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return d.db.GetContext(ctx, dest, query, args...)
}

func (d *sqlDB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return d.db.SelectContext(ctx, dest, query, args...)
}

func (d *sqlDB) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

func (d *sqlDB) Transact(ctx context.Context, fn func(Store) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (d *sqlDB) Backend() string {
	return d.backend
}

func (d *sqlDB) Close() error {
	return d.db.Close()
}

// txStore adapts an open sqlx transaction to the Store surface.
type txStore struct {
	tx *sqlx.Tx
}

func (t *txStore) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.tx.GetContext(ctx, dest, query, args...)
}

func (t *txStore) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.tx.SelectContext(ctx, dest, query, args...)
}

func (t *txStore) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}
