package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinytelemetry/logsight/internal/report"
	"github.com/tinytelemetry/logsight/internal/store"
)

func runReport(ctx context.Context, cfg appConfig, log *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", cfg.ReportLimit, "rows for top_n_* reports")
	formatName := fs.String("format", string(report.FormatTable), "output format: table, chart, json, yaml")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: logsight report [-n N] [-format table|chart|json|yaml] <type>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	format, err := report.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	st, err := store.Open(ctx, cfg.storeConfig(), log)
	if err != nil {
		fmt.Fprintf(stderr, "Error generating report: %v\n", err)
		return 1
	}
	defer st.Close()

	kind, err := report.ParseKind(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stdout, "Unsupported report type.")
		return 0
	}

	res, err := report.Generate(ctx, st, kind, *n)
	if err != nil {
		fmt.Fprintf(stderr, "Error generating report: %v\n", err)
		return 1
	}
	if err := report.Render(stdout, res, format); err != nil {
		fmt.Fprintf(stderr, "Error generating report: %v\n", err)
		return 1
	}
	return 0
}
