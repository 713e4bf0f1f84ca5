package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinytelemetry/logsight/internal/accesslog"
	"github.com/tinytelemetry/logsight/internal/ingest"
	"github.com/tinytelemetry/logsight/internal/store"
)

func runIngest(ctx context.Context, cfg appConfig, log *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	batchSize := fs.Int("batch-size", cfg.BatchSize, "records per insert transaction")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: logsight ingest [-batch-size N] <file|->")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	if *batchSize <= 0 {
		fmt.Fprintf(stderr, "Error: %v: %d\n", ingest.ErrInvalidBatchSize, *batchSize)
		return 2
	}

	st, err := store.Open(ctx, cfg.storeConfig(), log)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening store: %v\n", err)
		return 1
	}
	defer st.Close()

	in, err := ingest.NewIngestor(st, accesslog.NewParser(log), ingest.Options{
		BatchSize: *batchSize,
		Sink:      log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	stats, err := in.IngestFile(ctx, fs.Arg(0))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "Interrupted after %d log entries\n", stats.Ingested)
			return 1
		}
		fmt.Fprintf(stderr, "Error processing logs: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Processed %d lines: %d stored, %d malformed, %d batches\n",
		stats.Lines, stats.Ingested, stats.Malformed, stats.Batches)
	return 0
}
