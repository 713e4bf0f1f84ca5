package backup

import (
	"context"
	"time"
)

// Config controls DuckDB backups.
type Config struct {
	// Interval between periodic snapshots while serving. Zero disables the loop;
	// RunOnce still works.
	Interval  time.Duration
	LocalDir  string
	KeepLast  int
	BucketURL string // s3://bucket/prefix; empty keeps backups local

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// Snapshotter writes point-in-time copies of the database file.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(ctx context.Context, dstPath string) error
}

// Uploader uploads one backup artifact.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
