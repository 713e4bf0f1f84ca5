package store

import "errors"

var (
	ErrUnsupportedDriver   = errors.New("store: unsupported driver")
	ErrConnect             = errors.New("store: failed to connect")
	ErrSchema              = errors.New("store: failed to ensure schema")
	ErrInMemoryStore       = errors.New("store: in-memory store cannot be snapshotted")
	ErrSnapshotUnsupported = errors.New("store: snapshots are only supported for duckdb")
)
