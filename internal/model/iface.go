package model

import "context"

// Sink receives diagnostics from the parser and ingestor.
// *slog.Logger satisfies it.
type Sink interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LogWriter persists batches of parsed records.
type LogWriter interface {
	InsertLogBatch(ctx context.Context, records []LogRecord) error
}

// ReportQuerier provides the read-only aggregate queries behind reports.
type ReportQuerier interface {
	TopIPs(ctx context.Context, limit int) ([]IPCount, error)
	StatusCodeDistribution(ctx context.Context) ([]StatusShare, error)
	HourlyTraffic(ctx context.Context) ([]HourCount, error)
	TopPages(ctx context.Context, limit int) ([]PathCount, error)
}

// HealthQuerier exposes cheap counters for health checks.
type HealthQuerier interface {
	TotalLogCount(ctx context.Context) (int64, error)
	UserAgentCount(ctx context.Context) (int64, error)
	SchemaVersion(ctx context.Context) (int64, error)
}

// ReadAPI is the unified read contract for read surfaces (CLI reports and HTTP).
type ReadAPI interface {
	ReportQuerier
	HealthQuerier
}
