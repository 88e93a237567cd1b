package recent

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	dbpkg "github.com/rubiojr/bookexplorer/pkg/db"
	"github.com/rubiojr/bookexplorer/pkg/log"
)

var logger = log.ForService("recent")

const namespace = "default"

// SQLiteStore persists recent searches in a sqlite database.
type SQLiteStore struct {
	db    *sql.DB
	limit int
}

// Open opens or creates the database at path.
func Open(path string, limit int) (*SQLiteStore, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := dbpkg.NewMigrator(db).Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	logger.Debugf("opened %s", path)
	return &SQLiteStore{db: db, limit: limit}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	return list(ctx, s.db, s.limit)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func list(ctx context.Context, q querier, limit int) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT term FROM recent_searches WHERE namespace = ? ORDER BY seq DESC LIMIT ?`,
		namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent searches: %w", err)
	}
	defer rows.Close()

	terms := make([]string, 0, limit)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning recent search: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent searches: %w", err)
	}
	return terms, nil
}

// Add records term as the most recent search and trims the list.
func (s *SQLiteStore) Add(ctx context.Context, term string) ([]string, error) {
	t, err := normalize(term)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recent_searches (namespace, term, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM recent_searches WHERE namespace = ?))
		ON CONFLICT (namespace, term) DO UPDATE SET seq = excluded.seq`,
		namespace, t, namespace)
	if err != nil {
		return nil, fmt.Errorf("recording %q: %w", t, err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM recent_searches
		WHERE namespace = ? AND term NOT IN (
			SELECT term FROM recent_searches WHERE namespace = ? ORDER BY seq DESC LIMIT ?
		)`,
		namespace, namespace, s.limit)
	if err != nil {
		return nil, fmt.Errorf("trimming recent searches: %w", err)
	}

	terms, err := list(ctx, tx, s.limit)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return terms, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recent_searches WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("clearing recent searches: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
