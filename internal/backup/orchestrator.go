package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/models"
	"github.com/flowoff/assistente/internal/monitoring"
	"github.com/flowoff/assistente/pkg/logger"
)

// ErrBackupInProgress is returned when RunFull is invoked while another run is active.
var ErrBackupInProgress = errors.New("backup: a backup is already running")

// Artifact describes a file produced by the pipeline.
type Artifact struct {
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// PruneReport lists the artifacts removed by retention pruning.
type PruneReport struct {
	Removed []string `json:"removed"`
}

// Report summarises a full backup run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Artifacts []Artifact    `json:"artifacts"`
	Pruned    []string      `json:"pruned"`
}

// Orchestrator produces database dumps and file archives and enforces retention.
type Orchestrator struct {
	cfg     Config
	exec    Executor
	ledger  *Ledger
	log     *zap.Logger
	now     func() time.Time
	running atomic.Bool
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLedger records artifacts in ledger.
func WithLedger(ledger *Ledger) Option {
	return func(o *Orchestrator) {
		o.ledger = ledger
	}
}

// WithClock overrides the time source used for artifact names and retention.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator applies configuration defaults. A nil executor runs real processes.
func NewOrchestrator(cfg Config, exec Executor, opts ...Option) *Orchestrator {
	log := logger.WithModule("backup")
	if exec == nil {
		exec = NewProcessExecutor(log)
	}
	o := &Orchestrator{
		cfg:  cfg.withDefaults(),
		exec: exec,
		log:  log,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Ledger returns the configured ledger, which may be nil.
func (o *Orchestrator) Ledger() *Ledger {
	return o.ledger
}

// EnsureDir creates the backup directory when it does not exist.
func (o *Orchestrator) EnsureDir() error {
	if err := os.MkdirAll(o.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("backup: create directory %s: %w", o.cfg.Dir, err)
	}
	return nil
}

// DumpDatabase writes a gzip compressed archive of the database into the backup directory.
func (o *Orchestrator) DumpDatabase(ctx context.Context) (Artifact, error) {
	if o.cfg.DatabaseURI == "" {
		return Artifact{}, errors.New("backup: database uri is not configured")
	}
	now := o.now()
	name := DatabaseArtifactName(now)
	path, err := filepath.Abs(filepath.Join(o.cfg.Dir, name))
	if err != nil {
		return Artifact{}, fmt.Errorf("backup: resolve dump path: %w", err)
	}

	cmd := Command{
		Name: o.cfg.DumpCommand,
		Args: []string{"--uri=" + o.cfg.DatabaseURI, "--archive=" + path, "--gzip"},
	}
	return o.produce(ctx, cmd, models.ArtifactKindDatabase, name, path, now)
}

// ArchiveFiles writes a gzip compressed tarball of the source directory.
func (o *Orchestrator) ArchiveFiles(ctx context.Context) (Artifact, error) {
	now := o.now()
	name := FilesArtifactName(now)
	path, err := filepath.Abs(filepath.Join(o.cfg.Dir, name))
	if err != nil {
		return Artifact{}, fmt.Errorf("backup: resolve archive path: %w", err)
	}

	args := []string{"-czf", path}
	for _, exclude := range o.cfg.Excludes {
		args = append(args, "--exclude="+exclude)
	}
	args = append(args, ".")

	cmd := Command{Name: o.cfg.ArchiveCommand, Args: args, Dir: o.cfg.SourceDir}
	return o.produce(ctx, cmd, models.ArtifactKindFiles, name, path, now)
}

func (o *Orchestrator) produce(ctx context.Context, cmd Command, kind, name, path string, now time.Time) (Artifact, error) {
	if _, err := o.exec.Run(ctx, cmd); err != nil {
		o.log.Error("backup step failed", zap.String("kind", kind), zap.Error(err))
		return Artifact{}, err
	}

	artifact := Artifact{Kind: kind, Name: name, Path: path, CreatedAt: now.UTC()}
	if info, err := os.Stat(path); err == nil {
		artifact.SizeBytes = info.Size()
	}
	if err := o.ledger.Record(ctx, artifact); err != nil {
		o.log.Warn("failed to record backup artifact", zap.String("name", name), zap.Error(err))
	}
	o.log.Info("backup artifact created",
		zap.String("kind", kind),
		zap.String("path", path),
		zap.Int64("size_bytes", artifact.SizeBytes),
	)
	return artifact, nil
}

// Prune removes regular files in the backup directory whose modification time is
// strictly older than the retention window. Failures on individual files do not stop
// the scan; they are returned together once every file has been considered.
func (o *Orchestrator) Prune(ctx context.Context) (PruneReport, error) {
	report := PruneReport{Removed: []string{}}

	entries, err := os.ReadDir(o.cfg.Dir)
	if err != nil {
		return report, fmt.Errorf("backup: read directory %s: %w", o.cfg.Dir, err)
	}

	now := o.now()
	retention := o.cfg.Retention()
	var errs error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("backup: stat %s: %w", entry.Name(), err))
			continue
		}
		if now.Sub(info.ModTime()) <= retention {
			continue
		}
		path := filepath.Join(o.cfg.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("backup: remove %s: %w", entry.Name(), err))
			continue
		}
		report.Removed = append(report.Removed, entry.Name())
		o.log.Info("old backup removed", zap.String("file", entry.Name()))
	}

	if err := o.ledger.MarkPruned(ctx, report.Removed, now); err != nil {
		o.log.Warn("failed to mark pruned artifacts", zap.Error(err))
	}
	monitoring.RecordBackupPruned(len(report.Removed))
	return report, errs
}

// RunFull runs the whole pipeline in order: directory, database dump, files archive,
// pruning. The first failing step ends the run.
func (o *Orchestrator) RunFull(ctx context.Context) (Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Report{}, ErrBackupInProgress
	}
	defer o.running.Store(false)

	report := Report{StartedAt: o.now().UTC(), Artifacts: []Artifact{}, Pruned: []string{}}
	start := time.Now()
	o.log.Info("full backup started", zap.String("dir", o.cfg.Dir))

	err := o.runSteps(ctx, &report)
	report.Duration = time.Since(start)

	sizes := make(map[string]int64, len(report.Artifacts))
	for _, artifact := range report.Artifacts {
		sizes[artifact.Kind] = artifact.SizeBytes
	}
	if err != nil {
		monitoring.RecordBackupRun("failure", err.Error(), report.Duration, sizes)
		o.log.Error("full backup failed", zap.Duration("duration", report.Duration), zap.Error(err))
		return report, err
	}
	monitoring.RecordBackupRun("success", "", report.Duration, sizes)
	o.log.Info("full backup completed",
		zap.Duration("duration", report.Duration),
		zap.Int("artifacts", len(report.Artifacts)),
		zap.Int("pruned", len(report.Pruned)),
	)
	return report, nil
}

// Running reports whether a full backup is currently executing.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

func (o *Orchestrator) runSteps(ctx context.Context, report *Report) error {
	if err := o.EnsureDir(); err != nil {
		return err
	}

	dump, err := o.DumpDatabase(ctx)
	if err != nil {
		return err
	}
	report.Artifacts = append(report.Artifacts, dump)

	files, err := o.ArchiveFiles(ctx)
	if err != nil {
		return err
	}
	report.Artifacts = append(report.Artifacts, files)

	pruned, err := o.Prune(ctx)
	report.Pruned = pruned.Removed
	return err
}
