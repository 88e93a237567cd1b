package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/bookexplorer/pkg/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var logger = log.ForService("db")

// Migration is a single versioned schema change.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt *time.Time
}

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	Applied []Migration
	Pending []Migration
}

// Migrator applies migrations from a filesystem to a database.
type Migrator struct {
	db     *sql.DB
	source fs.FS
}

// NewMigrator creates a migrator using the embedded migrations.
func NewMigrator(db *sql.DB) *Migrator {
	sub, _ := fs.Sub(migrationsFS, "migrations")
	return &Migrator{db: db, source: sub}
}

// NewMigratorFromFS creates a migrator that loads *.sql files from the root of fsys.
func NewMigratorFromFS(db *sql.DB, fsys fs.FS) *Migrator {
	return &Migrator{db: db, source: fsys}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	applied := make(map[int]time.Time)

	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Available returns every migration found in the source, sorted by version.
// Files must be named NNN_name.sql; anything else is ignored.
func (m *Migrator) Available() ([]Migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) != 2 {
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(m.source, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Status reports which migrations have been applied and which are pending.
func (m *Migrator) Status(ctx context.Context) (*MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	available, err := m.Available()
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{}
	for _, migration := range available {
		if at, ok := applied[migration.Version]; ok {
			migration.AppliedAt = &at
			status.Applied = append(status.Applied, migration)
			continue
		}
		status.Pending = append(status.Pending, migration)
	}
	return status, nil
}

func (m *Migrator) apply(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback migration transaction: %v", err)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("executing migration %d: %w", migration.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version) VALUES (?)", migration.Version); err != nil {
		return fmt.Errorf("recording migration %d: %w", migration.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", migration.Version, err)
	}
	committed = true
	return nil
}

// Migrate applies all pending migrations in version order and returns how
// many were applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	for _, migration := range status.Pending {
		logger.Debugf("applying migration %d: %s", migration.Version, migration.Name)
		if err := m.apply(ctx, migration); err != nil {
			return 0, fmt.Errorf("applying migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}
	if n := len(status.Pending); n > 0 {
		logger.Infof("applied %d migrations", n)
	}
	return len(status.Pending), nil
}
