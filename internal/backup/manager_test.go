package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeSnapshotter struct {
	dbPath string
	data   []byte
}

func (f *fakeSnapshotter) DBPath() string { return f.dbPath }

func (f *fakeSnapshotter) SnapshotTo(ctx context.Context, dstPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, f.data, 0644)
}

func TestNewManager_RequiresDBPath(t *testing.T) {
	t.Parallel()

	_, err := NewManager(context.Background(), &fakeSnapshotter{dbPath: "", data: []byte("x")}, Config{
		LocalDir: t.TempDir(),
	}, nil)
	if !errors.Is(err, ErrInMemory) {
		t.Fatalf("err = %v, want ErrInMemory", err)
	}
}

func TestNewManager_RequiresLocalDir(t *testing.T) {
	t.Parallel()

	_, err := NewManager(context.Background(), &fakeSnapshotter{dbPath: "/tmp/logsight.duckdb"}, Config{}, nil)
	if err == nil {
		t.Fatal("expected error for empty local dir")
	}
}

func TestNewManager_RejectsBadBucketURL(t *testing.T) {
	t.Parallel()

	_, err := NewManager(context.Background(), &fakeSnapshotter{dbPath: "/tmp/logsight.duckdb"}, Config{
		LocalDir:  t.TempDir(),
		BucketURL: "https://my-bucket",
	}, nil)
	if err == nil {
		t.Fatal("expected error for non-s3 bucket url")
	}
}

func TestRunOnce_CreatesAndPrunesLocalBackups(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	m, err := NewManager(context.Background(), &fakeSnapshotter{
		dbPath: "/tmp/logsight.duckdb",
		data:   []byte("snapshot"),
	}, Config{LocalDir: localDir, KeepLast: 2}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	var paths []string
	for i := 0; i < 3; i++ {
		p, err := m.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
		paths = append(paths, p)
		time.Sleep(2 * time.Millisecond)
	}

	files, err := filepath.Glob(filepath.Join(localDir, "logsight-*.duckdb"))
	if err != nil {
		t.Fatalf("glob backups: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("backup files = %d, want 2", len(files))
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Errorf("oldest snapshot %s should have been pruned", paths[0])
	}
	if _, err := os.Stat(paths[2]); err != nil {
		t.Errorf("newest snapshot missing: %v", err)
	}
}

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *recordingUploader) UploadFile(_ context.Context, localPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, localPath)
	return nil
}

func TestRunOnce_Uploads(t *testing.T) {
	t.Parallel()

	uploader := &recordingUploader{}
	m := &Manager{
		store:    &fakeSnapshotter{dbPath: "/tmp/logsight.duckdb", data: []byte("snapshot")},
		cfg:      Config{LocalDir: t.TempDir(), KeepLast: 5},
		uploader: uploader,
		log:      discardLogger(),
	}

	p, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(uploader.paths) != 1 || uploader.paths[0] != p {
		t.Fatalf("uploaded = %v, want [%s]", uploader.paths, p)
	}
}

type blockingUploader struct {
	started chan struct{}
	once    sync.Once
}

func (u *blockingUploader) UploadFile(ctx context.Context, _ string) error {
	u.once.Do(func() { close(u.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestStop_CancelsInFlightUpload(t *testing.T) {
	t.Parallel()

	uploader := &blockingUploader{started: make(chan struct{})}
	m := &Manager{
		store: &fakeSnapshotter{
			dbPath: "/tmp/logsight.duckdb",
			data:   []byte("snapshot"),
		},
		cfg: Config{
			Interval: 5 * time.Millisecond,
			LocalDir: t.TempDir(),
			KeepLast: 2,
		},
		uploader: uploader,
		log:      discardLogger(),
		done:     make(chan struct{}),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.Start()

	select {
	case <-uploader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload to start")
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; upload likely not canceled")
	}
}

func TestStart_ZeroIntervalIsNoop(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	m, err := NewManager(context.Background(), &fakeSnapshotter{dbPath: "/tmp/logsight.duckdb"}, Config{LocalDir: localDir}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Start()
	m.Stop()

	files, _ := filepath.Glob(filepath.Join(localDir, "logsight-*.duckdb"))
	if len(files) != 0 {
		t.Errorf("backup files = %d, want 0", len(files))
	}
}

func TestRunOnce_CanceledContextSkipsSnapshot(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	m, err := NewManager(context.Background(), &fakeSnapshotter{dbPath: "/tmp/logsight.duckdb", data: []byte("x")}, Config{LocalDir: localDir}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunOnce error = %v, want context.Canceled", err)
	}
	entries, err := os.ReadDir(localDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("local dir has %d entries, want 0", len(entries))
	}
}
