package model

import "time"

// Shared defaults used by the CLI and the HTTP API.
const (
	DefaultBatchSize    = 500
	DefaultReportLimit  = 5
	DefaultQueryTimeout = 30 * time.Second
)
