// Package store persists parsed access log records in a relational database
// and answers the aggregate report queries.
//
// DuckDB is the default backend. PostgreSQL is available for shared
// deployments; both speak the same SQL through database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/logsight/internal/model"
	"github.com/tinytelemetry/logsight/internal/store/migrate"
)

// Supported drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config selects and parameterizes the backend.
type Config struct {
	Driver string // "duckdb" (default) or "postgres"

	// DuckDB: empty path means an in-memory database.
	Path string

	// PostgreSQL connection parameters.
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	QueryTimeout time.Duration
}

// Store manages the database connection and the user-agent cache.
type Store struct {
	db           *sql.DB
	driver       string
	dbPath       string
	log          *slog.Logger
	closeFn      func()
	QueryTimeout time.Duration

	mu      sync.RWMutex
	uaCache map[string]int64 // raw user agent -> user_agents.id
}

// Open connects to the configured backend and ensures the schema exists.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var (
		db      *sql.DB
		closeFn func()
		err     error
	)
	switch cfg.Driver {
	case "", DriverDuckDB:
		cfg.Driver = DriverDuckDB
		db, err = openDuckDB(cfg.Path)
	case DriverPostgres:
		db, closeFn, err = openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	qt := cfg.QueryTimeout
	if qt <= 0 {
		qt = model.DefaultQueryTimeout
	}

	s := &Store{
		db:           db,
		driver:       cfg.Driver,
		dbPath:       cfg.Path,
		log:          log,
		closeFn:      closeFn,
		QueryTimeout: qt,
		uaCache:      make(map[string]int64),
	}

	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		s.Close()
		return nil, errors.Join(ErrSchema, err)
	}
	log.Debug("store opened", "driver", s.driver, "schema_version", version)
	return s, nil
}

// NewStore opens or creates a DuckDB database.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	cfg := Config{Driver: DriverDuckDB, Path: dbPath}
	if len(queryTimeout) > 0 {
		cfg.QueryTimeout = queryTimeout[0]
	}
	return Open(context.Background(), cfg, nil)
}

func openDuckDB(dbPath string) (*sql.DB, error) {
	dsn := ""
	if dbPath != "" {
		// Ensure parent directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	return sql.Open("duckdb", dsn)
}

// EnsureSchema creates the user_agents and log_entries tables when missing.
// It is safe to call any number of times.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch s.driver {
	case DriverPostgres:
		err = migrate.Postgres(ctx, s.db, s.log)
	default:
		err = migrate.NewRunner(s.db).Run(ctx)
	}
	if err != nil {
		return errors.Join(ErrSchema, err)
	}
	return nil
}

// SchemaVersion reports the latest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if s.driver == DriverPostgres {
		return migrate.PostgresVersion(ctx, s.db)
	}
	current, _, err := migrate.NewRunner(s.db).Status(ctx)
	return int64(current), err
}

// Driver reports the backend in use.
func (s *Store) Driver() string { return s.driver }

// Close releases the database connection.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.closeFn != nil {
		s.closeFn()
	}
	return err
}

// queryCtx bounds ctx by the store's configured query timeout.
func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.QueryTimeout)
}
