// Package ingest reads access log input line by line, parses each line and
// hands fixed-size batches of records to a LogWriter.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tinytelemetry/logsight/internal/accesslog"
	"github.com/tinytelemetry/logsight/internal/model"
)

// MaxLineSize bounds a single input line, excluding its terminator.
const MaxLineSize = 1 << 20

var (
	// ErrInvalidBatchSize is returned for a batch size that is not positive.
	ErrInvalidBatchSize = errors.New("ingest: batch size must be positive")

	// ErrLineTooLong marks an input line over MaxLineSize. The line is skipped.
	ErrLineTooLong = fmt.Errorf("%w: line exceeds %d bytes", accesslog.ErrMalformed, MaxLineSize)
)

// Options configures an Ingestor. Zero values select defaults.
type Options struct {
	BatchSize int
	Sink      model.Sink
}

// Stats summarizes one ingestion run.
type Stats struct {
	Lines     int // lines read, including malformed ones
	Ingested  int // records handed to the writer
	Malformed int
	Batches   int
}

// Ingestor drives the parser over input and flushes batches to the writer.
type Ingestor struct {
	writer    model.LogWriter
	parser    *accesslog.Parser
	batchSize int
	sink      model.Sink
}

// NewIngestor returns an Ingestor. A nil parser reports to opts.Sink.
func NewIngestor(writer model.LogWriter, parser *accesslog.Parser, opts Options) (*Ingestor, error) {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = model.DefaultBatchSize
	}
	if batchSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, batchSize)
	}
	sink := opts.Sink
	if sink == nil {
		sink = model.DiscardSink{}
	}
	if parser == nil {
		parser = accesslog.NewParser(sink)
	}
	return &Ingestor{
		writer:    writer,
		parser:    parser,
		batchSize: batchSize,
		sink:      sink,
	}, nil
}

// BatchSize reports the effective batch size.
func (in *Ingestor) BatchSize() int { return in.batchSize }

// IngestFile opens path and ingests it. The path "-" reads standard input.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (Stats, error) {
	if path == "-" {
		return in.Ingest(ctx, os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return in.Ingest(ctx, f)
}

// Ingest processes r until EOF. A line longer than MaxLineSize is skipped and
// counted as malformed. Records flushed before an error stay persisted and a
// read error flushes the pending batch first; the returned Stats reflect the
// work done so far.
func (in *Ingestor) Ingest(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	lines := newLineReader(lenient(r))

	batch := make([]model.LogRecord, 0, in.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := in.writer.InsertLogBatch(ctx, batch); err != nil {
			return fmt.Errorf("insert batch %d: %w", stats.Batches+1, err)
		}
		stats.Batches++
		stats.Ingested += len(batch)
		batch = make([]model.LogRecord, 0, in.batchSize)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line, err := lines.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, ErrLineTooLong) {
			readErr := fmt.Errorf("read log input: %w", err)
			if ferr := flush(); ferr != nil {
				in.sink.Error("Batch insert failed", "error", ferr)
				return stats, errors.Join(readErr, ferr)
			}
			return stats, readErr
		}
		stats.Lines++

		if err != nil {
			stats.Malformed++
			in.sink.Warn("Malformed log line", "line_number", stats.Lines, "error", err)
			continue
		}
		rec, ok := in.parser.Parse(line)
		if !ok {
			stats.Malformed++
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= in.batchSize {
			if err := flush(); err != nil {
				in.sink.Error("Batch insert failed", "error", err)
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		in.sink.Error("Batch insert failed", "error", err)
		return stats, err
	}

	in.sink.Info(fmt.Sprintf("Finished processing %d log entries", stats.Ingested),
		"lines", stats.Lines, "malformed", stats.Malformed, "batches", stats.Batches)
	return stats, nil
}
