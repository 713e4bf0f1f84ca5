package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

const usageText = `Usage: logsight [-config file] <command> [flags] [args]

Commands:
  ingest [-batch-size N] <file|->                       parse an access log into the store
  report [-n N] [-format table|chart|json|yaml] <type>  print a report
  serve                                                 serve reports over HTTP
  backup                                                snapshot the DuckDB store

Report types: top_n_ips, status_code_distribution, hourly_traffic, top_n_pages
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without process globals so commands can be exercised in tests.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("logsight", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }

	var configPath string
	var showVersion bool
	fs.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/logsight/config.yml)")
	fs.BoolVar(&showVersion, "version", false, "print version information")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "logsight - access log analytics\n")
		fmt.Fprintf(stdout, "  Version:    %s\n", version)
		fmt.Fprintf(stdout, "  Commit:     %s\n", commit)
		fmt.Fprintf(stdout, "  Built:      %s\n", buildTime)
		fmt.Fprintf(stdout, "  Go version: %s\n", goVersion)
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	logger, err := newLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "ingest":
		return runIngest(ctx, cfg, logger, cmdArgs, stdout, stderr)
	case "report":
		return runReport(ctx, cfg, logger, cmdArgs, stdout, stderr)
	case "serve":
		return runServe(ctx, cfg, logger, cmdArgs, stderr)
	case "backup":
		return runBackup(ctx, cfg, logger, cmdArgs, stdout, stderr)
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
	fs.Usage()
	return 2
}
