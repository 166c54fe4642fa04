package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/backup"
	"github.com/flowoff/assistente/internal/cache"
	"github.com/flowoff/assistente/internal/monitoring"
	"github.com/flowoff/assistente/internal/notifications"
	"github.com/flowoff/assistente/pkg/logger"
	"github.com/flowoff/assistente/pkg/mail"
)

const (
	JobBackup      = "backup"
	JobCacheExpiry = "cache-expiry"

	defaultBackupSpec      = "@daily"
	defaultCacheExpirySpec = "@every 10m"

	backupAlertKey = "maintenance:alert:" + JobBackup
)

// BackupRunner runs the full backup pipeline.
type BackupRunner interface {
	RunFull(ctx context.Context) (backup.Report, error)
}

// ExpiryPurger removes expired entries from a store without native expiry.
type ExpiryPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Reporter delivers backup outcomes by email.
type Reporter interface {
	SendReport(ctx context.Context, to []string, subject string, data notifications.ReportData) (mail.Receipt, error)
	SendAlert(ctx context.Context, to []string, subject, text string) (mail.Receipt, error)
}

// Scheduler runs the backup pipeline and cache expiry purges on cron schedules.
type Scheduler struct {
	backups    BackupRunner
	purger     ExpiryPurger
	reporter   Reporter
	recipients []string
	throttle   *cache.Tolerant
	cooldown   time.Duration
	cron       *cron.Cron
	now        func() time.Time
	log        *zap.Logger

	backupSchedule string
	expirySchedule string

	mu      sync.Mutex
	started bool
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBackupSchedule overrides the cron specification for the backup job.
func WithBackupSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec = strings.TrimSpace(spec); spec != "" {
			s.backupSchedule = spec
		}
	}
}

// WithCacheExpirySchedule overrides the cron specification for the expiry purge.
func WithCacheExpirySchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec = strings.TrimSpace(spec); spec != "" {
			s.expirySchedule = spec
		}
	}
}

// WithReporter emails a report after each successful backup and an alert after each failure.
func WithReporter(reporter Reporter, recipients []string) Option {
	return func(s *Scheduler) {
		if reporter != nil && len(recipients) > 0 {
			s.reporter = reporter
			s.recipients = append([]string(nil), recipients...)
		}
	}
}

// WithAlertThrottle sends at most one failure alert per cooldown, counting failures
// in c. When the cache is unreachable every failure is alerted.
func WithAlertThrottle(c *cache.Tolerant, cooldown time.Duration) Option {
	return func(s *Scheduler) {
		if c != nil && cooldown > 0 {
			s.throttle = c
			s.cooldown = cooldown
		}
	}
}

// NewScheduler constructs a Scheduler. A nil dependency disables the corresponding job.
func NewScheduler(backups BackupRunner, purger ExpiryPurger, opts ...Option) *Scheduler {
	s := &Scheduler{
		backups:        backups,
		purger:         purger,
		now:            time.Now,
		backupSchedule: defaultBackupSpec,
		expirySchedule: defaultCacheExpirySpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return s
}

// Start registers the enabled jobs and launches the cron scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || (s.backups == nil && s.purger == nil) {
		return nil
	}

	if s.backups != nil {
		if _, err := s.cron.AddFunc(s.backupSchedule, func() {
			_ = s.runBackup(context.Background())
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", JobBackup, err)
		}
	}

	if s.purger != nil {
		if _, err := s.cron.AddFunc(s.expirySchedule, func() {
			_ = s.runCacheExpiry(context.Background())
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", JobCacheExpiry, err)
		}
	}

	s.cron.Start()
	s.started = true
	logger.System("maintenance", "scheduler started",
		zap.String("backup_schedule", s.backupSchedule),
		zap.String("cache_expiry_schedule", s.expirySchedule),
	)
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.backups != nil {
		errs = multierr.Append(errs, s.runBackup(ctx))
	}
	if s.purger != nil {
		errs = multierr.Append(errs, s.runCacheExpiry(ctx))
	}
	return errs
}

func (s *Scheduler) runBackup(ctx context.Context) error {
	start := time.Now()
	report, err := s.backups.RunFull(ctx)
	if errors.Is(err, backup.ErrBackupInProgress) {
		s.log.Info("backup skipped, previous run still active")
		return nil
	}
	if err != nil {
		monitoring.RecordMaintenanceRun(JobBackup, "failure", err.Error(), time.Since(start))
		s.log.Warn("scheduled backup failed", zap.Error(err))
		s.alert(ctx, err)
		return err
	}

	monitoring.RecordMaintenanceRun(JobBackup, "success", "", time.Since(start))
	if s.throttle != nil {
		s.throttle.Del(ctx, backupAlertKey)
	}
	s.report(ctx, report)
	return nil
}

func (s *Scheduler) runCacheExpiry(ctx context.Context) error {
	start := time.Now()
	removed, err := s.purger.PurgeExpired(ctx, s.now())
	if err != nil {
		monitoring.RecordMaintenanceRun(JobCacheExpiry, "failure", err.Error(), time.Since(start))
		s.log.Warn("cache expiry purge failed", zap.Error(err))
		return err
	}
	monitoring.RecordMaintenanceRun(JobCacheExpiry, "success", "", time.Since(start))
	if removed > 0 {
		s.log.Debug("expired cache entries purged", zap.Int64("removed", removed))
	}
	return nil
}

func (s *Scheduler) report(ctx context.Context, report backup.Report) {
	if s.reporter == nil {
		return
	}

	rows := make([]notifications.ReportRow, 0, len(report.Artifacts)+2)
	for _, artifact := range report.Artifacts {
		rows = append(rows, notifications.ReportRow{
			Label: artifact.Name,
			Value: formatBytes(artifact.SizeBytes),
		})
	}
	rows = append(rows,
		notifications.ReportRow{Label: "Arquivos removidos", Value: fmt.Sprintf("%d", len(report.Pruned))},
		notifications.ReportRow{Label: "Duração", Value: report.Duration.Round(time.Millisecond).String()},
	)

	data := notifications.ReportData{
		Title:   "Backup concluído",
		Content: "O backup agendado foi concluído com sucesso.",
		Rows:    rows,
	}
	if _, err := s.reporter.SendReport(ctx, s.recipients, "Backup concluído", data); err != nil {
		s.log.Warn("backup report email failed", zap.Error(err))
	}
}

func (s *Scheduler) alert(ctx context.Context, cause error) {
	if s.reporter == nil || s.suppressAlert(ctx) {
		return
	}
	if _, err := s.reporter.SendAlert(ctx, s.recipients, "Falha no backup", cause.Error()); err != nil {
		s.log.Warn("backup alert email failed", zap.Error(err))
	}
}

// suppressAlert counts the failure and reports whether an alert already went out in
// the current cooldown.
func (s *Scheduler) suppressAlert(ctx context.Context) bool {
	if s.throttle == nil {
		return false
	}
	failures, ok := s.throttle.Increment(ctx, backupAlertKey)
	if !ok {
		return false
	}
	if failures == 1 {
		// a counter without expiry would mute alerts for good
		if !s.throttle.Expire(ctx, backupAlertKey, s.cooldown) {
			s.throttle.Del(ctx, backupAlertKey)
		}
		return false
	}
	s.log.Info("backup alert suppressed", zap.Int64("failures", failures), zap.Duration("cooldown", s.cooldown))
	return true
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
