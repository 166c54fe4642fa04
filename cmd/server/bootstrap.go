package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flowoff/assistente/internal/api"
	"github.com/flowoff/assistente/internal/app"
	"github.com/flowoff/assistente/internal/app/maintenance"
	iauth "github.com/flowoff/assistente/internal/auth"
	"github.com/flowoff/assistente/internal/backup"
	"github.com/flowoff/assistente/internal/cache"
	"github.com/flowoff/assistente/internal/database"
	"github.com/flowoff/assistente/internal/middleware"
	"github.com/flowoff/assistente/internal/monitoring"
	"github.com/flowoff/assistente/internal/monitoring/checks"
	"github.com/flowoff/assistente/internal/notifications"
	"github.com/flowoff/assistente/pkg/logger"
	"github.com/flowoff/assistente/pkg/mail"
)

const (
	defaultShutdownTimeout = 15 * time.Second
	smtpVerifyTimeout      = 30 * time.Second
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.ConnectionManager
	Cache     *cache.Cache
	Backups   *backup.Orchestrator
	Sender    *notifications.Sender
	Scheduler *maintenance.Scheduler
	Monitor   *monitoring.Module
	Router    *gin.Engine
}

// bootstrapRuntime initialises storage, the cache, the backup pipeline, email and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background())
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Monitor, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitor)

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var (
		store  cache.Store
		purger maintenance.ExpiryPurger
	)
	if cfg.Cache.Redis.Enabled {
		stack.Redis, err = cache.NewConnectionManager(cfg.Cache.ConnectionConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise redis: %w", err)
		}
		stack.Redis.Start(ctx)
		store = cache.NewRedisStore(stack.Redis.Client(), cfg.Cache.Namespace)
	} else {
		dbStore := cache.NewDatabaseStore(stack.DB)
		store = dbStore
		purger = dbStore
		log.Info("redis disabled; using database cache store")
	}

	stack.Cache, err = cache.New(store, cfg.Cache.Options())
	if err != nil {
		return nil, fmt.Errorf("initialise cache: %w", err)
	}

	stack.Backups = backup.NewOrchestrator(
		cfg.Backup.OrchestratorConfig(),
		backup.NewProcessExecutor(logger.WithModule("backup")),
		backup.WithLedger(backup.NewLedger(stack.DB)),
	)
	if err := stack.Backups.EnsureDir(); err != nil {
		log.Warn("backup directory unavailable", zap.Error(err))
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp: %w", err)
	}
	stack.Sender, err = notifications.NewSender(mailer, notifications.WithFrom(cfg.Email.SMTP.From))
	if err != nil {
		return nil, fmt.Errorf("initialise email: %w", err)
	}
	if cfg.Email.SMTP.Enabled {
		go func() {
			verifyCtx, cancel := context.WithTimeout(ctx, smtpVerifyTimeout)
			defer cancel()
			stack.Sender.Verify(verifyCtx)
		}()
	}

	if cfg.Maintenance.Enabled {
		stack.Scheduler = maintenance.NewScheduler(stack.Backups, purger,
			maintenance.WithBackupSchedule(cfg.Backup.Schedule),
			maintenance.WithCacheExpirySchedule(cfg.Maintenance.CacheExpirySchedule),
			maintenance.WithReporter(stack.Sender, cfg.Email.ReportRecipients()),
			maintenance.WithAlertThrottle(cache.NewTolerant(stack.Cache), cfg.Maintenance.AlertCooldown),
		)
		if err := stack.Scheduler.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	registerHealthChecks(stack, cfg)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}
	admin := cfg.Auth.AdminCredentials()
	if !admin.Enabled() {
		log.Warn("auth.admin.password_hash is not set; token endpoint disabled")
	} else if err := admin.Validate(); err != nil {
		return nil, fmt.Errorf("auth.admin.password_hash: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:     cfg,
		JWT:        jwtSvc,
		Admin:      admin,
		Cache:      stack.Cache,
		Backups:    stack.Backups,
		Ledger:     stack.Backups.Ledger(),
		Dispatcher: stack.Sender,
		Monitoring: stack.Monitor,
		RateStore:  middleware.NewCacheRateStore(store),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitor.Health()
	maxAge := cfg.Monitoring.Health.BackupMaxAge

	health.RegisterLiveness(checks.Database(stack.DB, 0))

	health.RegisterReadiness(checks.Database(stack.DB, 0))
	if stack.Redis != nil {
		health.RegisterReadiness(checks.Redis(stack.Redis, true, cfg.Cache.Redis.Timeout))
	} else {
		health.RegisterReadiness(checks.Redis(nil, false, 0))
	}
	if stack.Scheduler != nil {
		health.RegisterReadiness(checks.Maintenance(map[string]time.Duration{maintenance.JobBackup: maxAge}))
		health.RegisterReadiness(checks.Backup(maxAge))
	}
}

// Shutdown stops background jobs and releases connections, waiting at most until ctx is done.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Scheduler != nil {
		select {
		case <-s.Scheduler.Stop().Done():
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("maintenance jobs still running: %w", ctx.Err()))
		}
	}
	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = multierr.Append(errs, database.Close(s.DB))
	}
	return errs
}

func shutdownTimeout(cfg *app.Config) time.Duration {
	if cfg == nil || cfg.Server.ShutdownTimeout <= 0 {
		return defaultShutdownTimeout
	}
	return cfg.Server.ShutdownTimeout
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.System("database", "connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
