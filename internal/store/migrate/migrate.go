// Package migrate applies the embedded logsight schema.
//
// DuckDB databases use a small versioned runner that records applied files in
// schema_migrations. PostgreSQL databases are migrated with goose.
package migrate

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/duckdb/*.sql migrations/postgres/*.sql
var migrations embed.FS

const duckdbDir = "migrations/duckdb"

// Runner applies versioned SQL migrations to a DuckDB database.
type Runner struct{ db *sql.DB }

// NewRunner creates a migration runner for the given database connection.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

type migration struct {
	version int
	name    string
	sql     string
}

// loadMigrations returns the embedded DuckDB files ordered by the numeric
// prefix of their name, e.g. 0001_init.sql.
func loadMigrations() ([]migration, error) {
	paths, err := fs.Glob(migrations, duckdbDir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list embedded migrations: %w", err)
	}

	migs := make([]migration, 0, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: name has no version prefix", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		body, err := fs.ReadFile(migrations, p)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		migs = append(migs, migration{version: version, name: name, sql: string(body)})
	}
	slices.SortFunc(migs, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return migs, nil
}

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       VARCHAR NOT NULL,
	applied_at TIMESTAMP DEFAULT current_timestamp
)`

// appliedVersion creates the bookkeeping table when needed and returns the
// highest recorded version, or 0 for a fresh database.
func (r *Runner) appliedVersion(ctx context.Context) (int, error) {
	if _, err := r.db.ExecContext(ctx, createVersionTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	var v int
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read applied version: %w", err)
	}
	return v, nil
}

// Run applies every embedded migration newer than the recorded version. It
// is a no-op on an up-to-date database.
func (r *Runner) Run(ctx context.Context) error {
	current, err := r.appliedVersion(ctx)
	if err != nil {
		return err
	}
	migs, err := loadMigrations()
	if err != nil {
		return err
	}
	for _, m := range migs {
		if m.version > current {
			if err := r.apply(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// apply executes one migration file and records its version in the same
// transaction, so a failed file leaves no trace.
func (r *Runner) apply(ctx context.Context, m migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("apply %s: %w", m.name, err)
	}
	const record = "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)"
	if _, err := tx.ExecContext(ctx, record, m.version, m.name); err != nil {
		return fmt.Errorf("apply %s: record version: %w", m.name, err)
	}
	return tx.Commit()
}

// Status reports the applied schema version and how many embedded
// migrations are still pending.
func (r *Runner) Status(ctx context.Context) (current, pending int, err error) {
	if current, err = r.appliedVersion(ctx); err != nil {
		return 0, 0, err
	}
	migs, err := loadMigrations()
	if err != nil {
		return 0, 0, err
	}
	if i := slices.IndexFunc(migs, func(m migration) bool { return m.version > current }); i >= 0 {
		pending = len(migs) - i
	}
	return current, pending, nil
}
