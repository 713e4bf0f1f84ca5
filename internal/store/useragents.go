package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tinytelemetry/logsight/internal/model"
	"github.com/tinytelemetry/logsight/internal/useragent"
)

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserAgentID returns the id of raw in user_agents, inserting a classified
// row when the string has not been seen before.
func (s *Store) UserAgentID(ctx context.Context, raw string) (int64, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	pending := make(map[string]int64, 1)
	id, err := s.resolveUserAgent(ctx, tx, raw, pending)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	s.remember(pending)
	return id, nil
}

// resolveUserAgent looks raw up in the cache, then the pending set of the
// current transaction, then the table, and finally inserts it.
// Callers must hold s.mu for writing.
func (s *Store) resolveUserAgent(ctx context.Context, q rowQuerier, raw string, pending map[string]int64) (int64, error) {
	if id, ok := s.uaCache[raw]; ok {
		return id, nil
	}
	if id, ok := pending[raw]; ok {
		return id, nil
	}

	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM user_agents WHERE user_agent_string = $1`, raw).Scan(&id)
	switch {
	case err == nil:
		pending[raw] = id
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup user agent: %w", err)
	}

	info := useragent.Classify(raw)
	err = q.QueryRowContext(ctx,
		`INSERT INTO user_agents (user_agent_string, os, browser, device_type) VALUES ($1, $2, $3, $4) RETURNING id`,
		raw, info.OS, info.Browser, info.DeviceType,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user agent: %w", err)
	}
	pending[raw] = id
	return id, nil
}

// remember publishes ids created by a committed transaction.
// Callers must hold s.mu for writing.
func (s *Store) remember(pending map[string]int64) {
	for raw, id := range pending {
		s.uaCache[raw] = id
	}
}

// UserAgents lists every stored user agent ordered by id.
func (s *Store) UserAgents(ctx context.Context) ([]model.UserAgentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_agent_string, COALESCE(os, ''), COALESCE(browser, ''), COALESCE(device_type, '')
		FROM user_agents
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.UserAgentEntry
	for rows.Next() {
		var e model.UserAgentEntry
		if err := rows.Scan(&e.ID, &e.Raw, &e.OS, &e.Browser, &e.DeviceType); err != nil {
			return nil, fmt.Errorf("scan user agent: %w", err)
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
