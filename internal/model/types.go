package model

import "time"

// LogRecord is one parsed access log line.
// It is produced by the accesslog parser and consumed by storage.
type LogRecord struct {
	IP        string
	Timestamp time.Time // carries the offset found in the log line
	Method    string
	Path      string
	Status    int
	Bytes     int64 // 0 when the log had "-" or a non-numeric token
	Referrer  string
	UserAgent string
}

// UserAgentEntry is a deduplicated user-agent row.
type UserAgentEntry struct {
	ID         int64
	Raw        string
	OS         string
	Browser    string
	DeviceType string
}

// IPCount is one row of the top IPs report.
type IPCount struct {
	IP    string `json:"ip" yaml:"ip"`
	Count int64  `json:"request_count" yaml:"request_count"`
}

// StatusShare is one row of the status code distribution report.
type StatusShare struct {
	StatusCode int     `json:"status_code" yaml:"status_code"`
	Count      int64   `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"` // share of all entries, rounded to two decimals
}

// HourCount is one row of the hourly traffic report.
type HourCount struct {
	Hour  int   `json:"hour" yaml:"hour"` // 0-23, wall clock of the log line
	Count int64 `json:"request_count" yaml:"request_count"`
}

// PathCount is one row of the top pages report.
type PathCount struct {
	Path  string `json:"path" yaml:"path"`
	Count int64  `json:"request_count" yaml:"request_count"`
}
