package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	_ "github.com/lib/pq"
)

// Store handles all database operations with a shared connection pool.
// It can be backed by PostgreSQL (production) or SQLite (local runs and
// tests); the sqlbuilder flavor follows the backing driver.
type Store struct {
	db     *sql.DB
	flavor sqlbuilder.Flavor
}

// Queryer is satisfied by both *sql.DB and *sql.Tx so store helpers can
// run inside or outside an explicit transaction.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func buildConnectionString(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)
}

// NewPostgres opens a PostgreSQL-backed store.
func NewPostgres(host string, port int, user, password, dbname string) (*Store, error) {
	connString := buildConnectionString(host, port, user, password, dbname)
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(20)           // Allow multiple concurrent operations
	db.SetMaxIdleConns(10)           // Keep some connections ready
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	return &Store{db: db, flavor: sqlbuilder.PostgreSQL}, nil
}

// DB exposes the underlying pool for migrations and test fixtures.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Flavor() sqlbuilder.Flavor {
	return s.flavor
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRead opens the transaction every feed query runs in. On
// PostgreSQL a read-only repeatable-read snapshot keeps selection and
// hydration on the same point-in-time view; SQLite transactions are
// serialized already, so the default options are used there.
func (s *Store) BeginRead(ctx context.Context) (*sql.Tx, error) {
	var opts *sql.TxOptions
	if s.flavor == sqlbuilder.PostgreSQL {
		opts = &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	return tx, nil
}

// Begin opens a read-write transaction for the aggregation maintainer.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}
