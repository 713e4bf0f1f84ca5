package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinytelemetry/logsight/internal/backup"
	"github.com/tinytelemetry/logsight/internal/store"
)

func runBackup(ctx context.Context, cfg appConfig, log *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cfg.DBDriver != store.DriverDuckDB {
		fmt.Fprintf(stderr, "Error: %v\n", store.ErrSnapshotUnsupported)
		return 1
	}

	st, err := store.Open(ctx, cfg.storeConfig(), log)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening store: %v\n", err)
		return 1
	}
	defer st.Close()

	m, err := backup.NewManager(ctx, st, cfg.backupConfig(), log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer m.Stop()

	path, err := m.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Backup failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, path)
	return 0
}
