package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DBPath returns the DuckDB file path. Empty means an in-memory database or
// a PostgreSQL store.
func (s *Store) DBPath() string { return s.dbPath }

// SnapshotTo writes a consistent copy of the DuckDB file to dstPath. Writers
// are held off from the CHECKPOINT until the copy is renamed into place, so
// the snapshot never contains a half-applied batch. PostgreSQL stores return
// ErrSnapshotUnsupported; in-memory stores return ErrInMemoryStore.
func (s *Store) SnapshotTo(ctx context.Context, dstPath string) error {
	switch {
	case s.driver != DriverDuckDB:
		return ErrSnapshotUnsupported
	case s.dbPath == "":
		return ErrInMemoryStore
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := writeSnapshot(ctx, s.dbPath, dstPath); err != nil {
		return fmt.Errorf("write snapshot %s: %w", dstPath, err)
	}
	s.log.Debug("snapshot written", "path", dstPath)
	return nil
}

// writeSnapshot copies src into a temporary file next to dst and renames it
// over dst, leaving dst untouched on failure.
func writeSnapshot(ctx context.Context, src, dst string) (err error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(out.Name())
		}
	}()

	if _, err = io.Copy(out, ctxReader{ctx: ctx, r: in}); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(out.Name(), dst)
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
