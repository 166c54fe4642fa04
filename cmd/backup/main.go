// Command backup runs the backup pipeline once and exits, for use from cron or CI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/app"
	"github.com/flowoff/assistente/internal/backup"
	"github.com/flowoff/assistente/internal/database"
	"github.com/flowoff/assistente/pkg/logger"
)

// Runner is the subset of the orchestrator used by the command.
type Runner interface {
	RunFull(ctx context.Context) (backup.Report, error)
	Prune(ctx context.Context) (backup.PruneReport, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assistente-backup", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		configPath string
		pruneOnly  bool
		noLedger   bool
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory")
	fs.BoolVar(&pruneOnly, "prune-only", false, "Only remove artifacts older than the retention window")
	fs.BoolVar(&noLedger, "no-ledger", false, "Do not record artifacts in the application database")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := app.ConfigureLogging(cfg.Server); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Close() // flushes and releases log files

	opts := []backup.Option{}
	if !noLedger {
		db, err := database.Open(cfg.Database.ConnectionConfig())
		if err != nil {
			return fmt.Errorf("open ledger database: %w", err)
		}
		defer database.Close(db) //nolint:errcheck
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate ledger database: %w", err)
		}
		opts = append(opts, backup.WithLedger(backup.NewLedger(db)))
	}

	orchestrator := backup.NewOrchestrator(
		cfg.Backup.OrchestratorConfig(),
		backup.NewProcessExecutor(logger.WithModule("backup")),
		opts...,
	)
	return execute(ctx, orchestrator, pruneOnly, os.Stdout)
}

func execute(ctx context.Context, runner Runner, pruneOnly bool, out io.Writer) error {
	log := logger.WithModule("backup")

	if pruneOnly {
		report, err := runner.Prune(ctx)
		if err != nil {
			return fmt.Errorf("prune backups: %w", err)
		}
		for _, name := range report.Removed {
			fmt.Fprintf(out, "removed %s\n", name)
		}
		log.Info("prune finished", zap.Int("removed", len(report.Removed)))
		return nil
	}

	report, err := runner.RunFull(ctx)
	if err != nil {
		return fmt.Errorf("run backup: %w", err)
	}
	for _, artifact := range report.Artifacts {
		fmt.Fprintf(out, "%s\t%s\t%d\n", artifact.Kind, artifact.Path, artifact.SizeBytes)
	}
	for _, name := range report.Pruned {
		fmt.Fprintf(out, "removed %s\n", name)
	}
	return nil
}

func loadConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}
	return app.LoadConfig(path)
}
