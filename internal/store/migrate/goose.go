package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

const postgresDir = "migrations/postgres"

// ErrPostgresMigrations wraps any goose failure.
var ErrPostgresMigrations = errors.New("failed to apply postgres migrations")

// Postgres applies the embedded PostgreSQL migrations with goose.
// goose keeps its settings in package state, so calls must not overlap.
func Postgres(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&gooseLogger{log: log})

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrPostgresMigrations, err)
	}
	if err := goose.UpContext(ctx, db, postgresDir); err != nil {
		return errors.Join(ErrPostgresMigrations, err)
	}
	return nil
}

// PostgresVersion returns the goose schema version of db, 0 when no migration
// has been applied.
func PostgresVersion(ctx context.Context, db *sql.DB) (int64, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}

// gooseLogger routes goose's Printf-style output to slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
