package store

import (
	"context"
	"fmt"
	"math"

	"github.com/tinytelemetry/logsight/internal/model"
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return model.DefaultReportLimit
	}
	return limit
}

// TopIPs returns client addresses by descending request count.
func (s *Store) TopIPs(ctx context.Context, limit int) ([]model.IPCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ip_address, COUNT(*) AS request_count
		FROM log_entries
		GROUP BY ip_address
		ORDER BY request_count DESC, ip_address ASC
		LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.IPCount
	for rows.Next() {
		var item model.IPCount
		if err := rows.Scan(&item.IP, &item.Count); err != nil {
			return nil, fmt.Errorf("scan top ips: %w", err)
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// StatusCodeDistribution returns the count and share of every status code,
// most frequent first.
func (s *Store) StatusCodeDistribution(ctx context.Context) ([]model.StatusShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT status_code, COUNT(*) AS request_count
		FROM log_entries
		GROUP BY status_code
		ORDER BY request_count DESC, status_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		results []model.StatusShare
		total   int64
	)
	for rows.Next() {
		var item model.StatusShare
		if err := rows.Scan(&item.StatusCode, &item.Count); err != nil {
			return nil, fmt.Errorf("scan status codes: %w", err)
		}
		total += item.Count
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		results[i].Percentage = percentage(results[i].Count, total)
	}
	return results, nil
}

// percentage returns part/total as a percentage rounded to two decimals.
func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(total)) / 100
}

// HourlyTraffic returns request counts per hour of day, ascending by hour.
// Hours with no traffic are omitted.
func (s *Store) HourlyTraffic(ctx context.Context) ([]model.HourCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(EXTRACT(hour FROM logged_at) AS INTEGER) AS hour_of_day, COUNT(*) AS request_count
		FROM log_entries
		GROUP BY 1
		ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.HourCount
	for rows.Next() {
		var item model.HourCount
		if err := rows.Scan(&item.Hour, &item.Count); err != nil {
			return nil, fmt.Errorf("scan hourly traffic: %w", err)
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// TopPages returns request paths by descending request count.
func (s *Store) TopPages(ctx context.Context, limit int) ([]model.PathCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS request_count
		FROM log_entries
		GROUP BY path
		ORDER BY request_count DESC, path ASC
		LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.PathCount
	for rows.Next() {
		var item model.PathCount
		if err := rows.Scan(&item.Path, &item.Count); err != nil {
			return nil, fmt.Errorf("scan top pages: %w", err)
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// TotalLogCount returns the number of stored log entries.
func (s *Store) TotalLogCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "log_entries")
}

// UserAgentCount returns the number of distinct stored user agents.
func (s *Store) UserAgentCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "user_agents")
}

// count runs COUNT(*) over one of the fixed table names above.
func (s *Store) count(ctx context.Context, table string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
