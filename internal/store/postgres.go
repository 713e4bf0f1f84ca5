package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultPostgresPort = 5432
	postgresMaxConns    = 4
)

// PostgresURL builds a connection URL from discrete parameters.
func PostgresURL(cfg Config) string {
	port := cfg.Port
	if port <= 0 {
		port = defaultPostgresPort
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}
	switch {
	case cfg.User != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.User, cfg.Password)
	case cfg.User != "":
		u.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// openPostgres connects a pgx pool and exposes it through database/sql so the
// query code is shared with DuckDB.
func openPostgres(ctx context.Context, cfg Config) (*sql.DB, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(PostgresURL(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = postgresMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	return stdlib.OpenDBFromPool(pool), pool.Close, nil
}
