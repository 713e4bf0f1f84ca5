package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/logsight/internal/backup"
	"github.com/tinytelemetry/logsight/internal/httpserver"
	"github.com/tinytelemetry/logsight/internal/store"
)

// runServe serves the report API until ctx is canceled, taking periodic
// snapshots when a backup interval is configured.
func runServe(ctx context.Context, cfg appConfig, log *slog.Logger, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.APIAddr, "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	st, err := store.Open(ctx, cfg.storeConfig(), log)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening store: %v\n", err)
		return 1
	}
	defer st.Close()

	var backupManager *backup.Manager
	if cfg.BackupInterval > 0 && st.Driver() == store.DriverDuckDB {
		backupManager, err = backup.NewManager(ctx, st, cfg.backupConfig(), log)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to initialize backups: %v\n", err)
			return 1
		}
		backupManager.Start()
		defer backupManager.Stop()
	}

	apiServer := httpserver.NewServer(*addr, st, log)
	if err := apiServer.Start(); err != nil {
		fmt.Fprintf(stderr, "Error: failed to start API server: %v\n", err)
		return 1
	}

	printStartupBanner(stderr, cfg, st.Driver(), *addr, backupManager != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		return apiServer.Stop()
	})

	if err := g.Wait(); err != nil {
		log.Error("HTTP API shutdown failed", "error", err)
		return 1
	}
	return 0
}

func printStartupBanner(w io.Writer, cfg appConfig, driver, addr string, snapshots bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, "    "+cyan.Bold(true).Render("logsight")+" "+dim.Render("v"+version))
	lines = append(lines, dim.Render("    ─────────────────────────────────"))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"))
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr)))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"))
	if driver == store.DriverPostgres {
		lines = append(lines, fmt.Sprintf("    %s  PostgreSQL     %s", check, dim.Render(cfg.DBHost+"/"+cfg.DBName)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  DuckDB         %s", check, dim.Render(shortenPath(cfg.DBPath))))
	}
	if snapshots {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s every %s", check, dim.Render(shortenPath(cfg.BackupLocalDir)), cfg.BackupInterval))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func shortenPath(p string) string {
	if p == "" {
		return "(in-memory)"
	}
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + strings.TrimPrefix(p, home)
	}
	return p
}
