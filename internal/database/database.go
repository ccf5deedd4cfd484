package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect identifies the SQL backend behind a DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var (
	// ErrNotFound is returned by lookups that require a row.
	ErrNotFound = errors.New("database: not found")
	// ErrDuplicate wraps unique-constraint violations.
	ErrDuplicate = errors.New("database: duplicate")
)

// Config holds database configuration
type Config struct {
	Driver string // "sqlite" or "postgres"
	URL    string // file path for sqlite, postgres:// URL for postgres
}

// DB is a connection pool plus the dialect its queries are written for.
// Queries use ? placeholders and are rebound for postgres.
type DB struct {
	*sql.DB
	dialect Dialect
	url     string
}

// New wraps an existing pool. Used with sqlmock in tests.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, dialect: dialect}
}

// Open connects to the configured database and verifies the connection.
// Call Migrate afterwards to bring the schema up to date.
func Open(cfg Config) (*DB, error) {
	switch Dialect(cfg.Driver) {
	case DialectSQLite:
		return openSQLite(cfg.URL)
	case DialectPostgres:
		return openPostgres(cfg.URL)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}
}

func openSQLite(path string) (*DB, error) {
	if !filepath.IsAbs(path) {
		cwd, _ := os.Getwd()
		path = filepath.Join(cwd, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db, dialect: DialectSQLite, url: path}, nil
}

func openPostgres(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("database: DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db, dialect: DialectPostgres, url: dsn}, nil
}

// Dialect returns the backend the pool talks to.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind rewrites ? placeholders to $n for postgres.
func (db *DB) Rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// InTx runs fn inside a transaction, rolling back on error.
func (db *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// uniqueViolation reports whether err is a unique-constraint failure and,
// if so, the constraint or column text the driver named.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return liteErr.Error(), true
		case sqlite3.SQLITE_CONSTRAINT:
			msg := liteErr.Error()
			return msg, strings.Contains(msg, "UNIQUE")
		}
	}
	return "", false
}

// DuplicateError names the field whose uniqueness was violated.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return "database: duplicate " + e.Field
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

// mapUnique converts a unique violation on one of the known columns into a
// *DuplicateError and passes other errors through.
func mapUnique(err error, fields ...string) error {
	name, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	for _, f := range fields {
		if strings.Contains(name, f) {
			return &DuplicateError{Field: f}
		}
	}
	return fmt.Errorf("%w: %v", ErrDuplicate, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
