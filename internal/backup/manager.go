// Package backup snapshots the DuckDB store to a local directory, optionally
// uploads each snapshot to S3, and prunes old local copies.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultKeepLast = 24
	filePrefix      = "logsight-"
	fileSuffix      = ".duckdb"
)

// ErrInMemory is returned when the store has no file to snapshot.
var ErrInMemory = errors.New("backup: db-path is empty (in-memory store)")

// Manager runs local snapshots and optional remote uploads.
type Manager struct {
	store    Snapshotter
	cfg      Config
	uploader Uploader
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewManager validates cfg and prepares the uploader. No snapshot is taken
// until RunOnce or Start is called.
func NewManager(ctx context.Context, store Snapshotter, cfg Config, log *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, ErrInMemory
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: local-dir is required")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var uploader Uploader
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(ctx, S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("backup: init s3 uploader: %w", err)
		}
		uploader = s3u
	}

	mctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    store,
		cfg:      cfg,
		uploader: uploader,
		log:      log,
		ctx:      mctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Start takes a startup snapshot and then one every cfg.Interval until Stop.
// It does nothing when the interval is not positive.
func (m *Manager) Start() {
	if m.cfg.Interval <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		// Startup snapshot to reduce recovery point after restarts.
		if _, err := m.RunOnce(m.ctx); err != nil {
			m.log.Warn("Startup snapshot failed", "error", err)
		}
		m.loop()
	}()
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(m.ctx); err != nil {
				m.log.Warn("Periodic snapshot failed", "error", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce creates one local snapshot, uploads it when configured, and prunes
// old local copies. It returns the snapshot path.
func (m *Manager) RunOnce(ctx context.Context) (string, error) {
	fileName := filePrefix + time.Now().UTC().Format("20060102-150405.000") + fileSuffix
	localPath := filepath.Join(m.cfg.LocalDir, fileName)

	if err := m.store.SnapshotTo(ctx, localPath); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	m.log.Info("Created snapshot", "path", localPath)

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, localPath); err != nil {
			return localPath, fmt.Errorf("upload: %w", err)
		}
		m.log.Info("Uploaded snapshot", "file", fileName)
	}

	if err := pruneLocalBackups(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return localPath, fmt.Errorf("prune local backups: %w", err)
	}
	return localPath, nil
}

// Stop terminates the periodic loop and cancels an in-flight upload.
func (m *Manager) Stop() {
	m.cancel()
	close(m.done)
	m.wg.Wait()
}

func pruneLocalBackups(localDir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(localDir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	// The timestamp is embedded in the name; lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	for _, oldPath := range matches[keepLast:] {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
