package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Migrate applies every pending migration for the pool's dialect. It opens
// its own connection through golang-migrate so closing the migrator does
// not close the pool.
func (db *DB) Migrate() error {
	if db.url == "" {
		return errors.New("database: migrate needs a pool opened with Open")
	}

	sourceDriver, err := iofs.New(migrationFS, "migrations/"+string(db.dialect))
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, migrationURL(db.dialect, db.url))
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func migrationURL(dialect Dialect, url string) string {
	switch dialect {
	case DialectPostgres:
		for _, prefix := range []string{"postgresql://", "postgres://"} {
			if strings.HasPrefix(url, prefix) {
				return "pgx5://" + strings.TrimPrefix(url, prefix)
			}
		}
		return url
	default:
		return "sqlite://" + url
	}
}
