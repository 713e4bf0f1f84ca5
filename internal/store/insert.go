package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tinytelemetry/logsight/internal/model"
)

const insertLogEntrySQL = `INSERT INTO log_entries
	(ip_address, logged_at, utc_offset, method, path, status_code, bytes_sent, referrer, user_agent_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertLogBatch appends records to log_entries in a single transaction,
// resolving each record's user agent first. A failure rolls back the whole
// batch, including user agents first seen in it.
func (s *Store) InsertLogBatch(ctx context.Context, records []model.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	pending := make(map[string]int64)
	uaIDs := make([]int64, len(records))
	for i, r := range records {
		id, err := s.resolveUserAgent(ctx, tx, r.UserAgent, pending)
		if err != nil {
			return err
		}
		uaIDs[i] = id
	}

	stmt, err := tx.PrepareContext(ctx, insertLogEntrySQL)
	if err != nil {
		return fmt.Errorf("prepare log insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		_, offset := r.Timestamp.Zone()
		if _, err := stmt.ExecContext(ctx,
			r.IP, wallClock(r.Timestamp), offset, r.Method, r.Path,
			r.Status, r.Bytes, r.Referrer, uaIDs[i],
		); err != nil {
			return fmt.Errorf("record insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	committed = true
	s.remember(pending)

	s.log.Debug("Inserted log entries", "count", len(records))
	return nil
}

// wallClock keeps the local date and time of t and drops its offset, so that
// hour-of-day grouping reflects the clock the server logged with.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
