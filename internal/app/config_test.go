package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowoff/assistente/internal/auth"
	"github.com/flowoff/assistente/internal/cache"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.True(t, cfg.Server.RateLimit.Enabled)
	require.Equal(t, 20, cfg.Server.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, map[string]string{"sslmode": "require"}, cfg.Database.Postgres.Options)
	require.Equal(t, 20, cfg.Database.Pool.MaxOpenConns)
	require.Equal(t, 5, cfg.Database.Pool.MaxIdleConns)
	require.Equal(t, time.Hour, cfg.Database.Pool.ConnMaxLifetime)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, "/var/log/assistente", cfg.Server.LogDir)

	require.Equal(t, 120, cfg.Cache.TTL)
	require.Equal(t, "assistente:", cfg.Cache.Namespace)
	require.True(t, cfg.Cache.AllowClear)
	require.Equal(t, "redis://cache.example.com:6380/2", cfg.Cache.Redis.URL)
	require.Equal(t, 10, cfg.Cache.Redis.MaxAttempts)
	require.Equal(t, 3, cfg.Cache.Redis.MaxRetriesPerRequest)
	require.Equal(t, 100*time.Millisecond, cfg.Cache.Redis.Backoff.Step)
	require.Equal(t, 5*time.Second, cfg.Cache.Redis.Backoff.Cap)

	require.Equal(t, "/var/backups/assistente", cfg.Backup.Path)
	require.Equal(t, 7, cfg.Backup.RetentionDays)
	require.Equal(t, []string{"node_modules", ".git", "backups", "tmp"}, cfg.Backup.Excludes)
	require.Equal(t, "0 3 * * *", cfg.Backup.Schedule)
	require.Equal(t, "mongodump", cfg.Backup.DumpCommand)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, 465, cfg.Email.SMTP.Port)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, "robot@example.com", cfg.Email.SMTP.From)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)
	require.Equal(t, []string{"ops@example.com"}, cfg.Email.ReportRecipients())

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "assistente", cfg.Auth.JWT.Issuer)
	require.Equal(t, "operator", cfg.Auth.Admin.Username)

	require.Equal(t, "@every 1m", cfg.Maintenance.CacheExpirySchedule)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, time.Hour, cfg.Maintenance.AlertCooldown)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 3000, cfg.Server.Port)
	require.Equal(t, 3600, cfg.Cache.TTL)
	require.Equal(t, "redis://localhost:6379", cfg.Cache.Redis.URL)
	require.Equal(t, 50*time.Millisecond, cfg.Cache.Redis.Backoff.Step)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Backoff.Cap)
	require.Equal(t, "./backups", cfg.Backup.Path)
	require.Equal(t, 30, cfg.Backup.RetentionDays)
	require.Equal(t, "@daily", cfg.Backup.Schedule)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.False(t, cfg.Email.SMTP.UseTLS)
}

func TestLoadConfigLegacyEnvironment(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://env-host:6379")
	t.Setenv("CACHE_TTL", "60")
	t.Setenv("BACKUP_PATH", "/data/backups")
	t.Setenv("BACKUP_RETENTION_DAYS", "14")
	t.Setenv("MONGODB_URI", "mongodb://mongo/app")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USER", "bot@example.com")
	t.Setenv("SMTP_PASS", "pw")
	t.Setenv("PORT", "8081")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "redis://env-host:6379", cfg.Cache.Redis.URL)
	require.Equal(t, time.Minute, cfg.Cache.DefaultTTL())
	require.Equal(t, "/data/backups", cfg.Backup.Path)
	require.Equal(t, 14, cfg.Backup.RetentionDays)
	require.Equal(t, "mongodb://mongo/app", cfg.Backup.DatabaseURI)
	require.True(t, cfg.Email.SMTP.Enabled)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, "bot@example.com", cfg.Email.SMTP.From)
	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, "warn", cfg.Server.LogLevel)
}

func TestLoadConfigPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://legacy:6379")
	t.Setenv("ASSISTENTE_CACHE_REDIS_URL", "redis://prefixed:6379")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "redis://prefixed:6379", cfg.Cache.Redis.URL)
}

func TestCacheConfigAdapters(t *testing.T) {
	cfg := CacheConfig{
		TTL:        30,
		AllowClear: true,
		Redis: RedisCacheConfig{
			URL:                  " redis://host:6379 ",
			Timeout:              time.Second,
			MaxRetriesPerRequest: 5,
			MaxAttempts:          2,
			Backoff:              BackoffConfig{Step: 10 * time.Millisecond, Cap: time.Second},
		},
	}

	require.Equal(t, cache.Options{DefaultTTL: 30 * time.Second, AllowClear: true}, cfg.Options())

	conn := cfg.ConnectionConfig()
	require.Equal(t, "redis://host:6379", conn.URL)
	require.Equal(t, time.Second, conn.DialTimeout)
	require.Equal(t, 5, conn.MaxRetriesPerRequest)
	require.Equal(t, 2, conn.MaxAttempts)
	require.Equal(t, cache.CappedBackoff{Step: 10 * time.Millisecond, Cap: time.Second}, conn.Backoff)

	var empty CacheConfig
	require.Equal(t, cache.DefaultTTL, empty.DefaultTTL())
	require.Nil(t, empty.ConnectionConfig().Backoff)
}

func TestBackupConfigAdapter(t *testing.T) {
	cfg := BackupConfig{
		Path:          " /srv/backups ",
		RetentionDays: 3,
		DatabaseURI:   "mongodb://db/app",
		Excludes:      []string{"node_modules", " ", "tmp"},
	}

	out := cfg.OrchestratorConfig()
	require.Equal(t, "/srv/backups", out.Dir)
	require.Equal(t, 3, out.RetentionDays)
	require.Equal(t, "mongodb://db/app", out.DatabaseURI)
	require.Equal(t, []string{"node_modules", "tmp"}, out.Excludes)

	require.Nil(t, BackupConfig{}.OrchestratorConfig().Excludes)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT:   JWTSettings{Secret: "secret", Issuer: " issuer ", TTL: 30 * time.Minute, Leeway: 10 * time.Second},
		Admin: AdminSettings{Username: " admin ", PasswordHash: "hash"},
	}

	require.Equal(t, auth.JWTConfig{
		Secret: "secret",
		Issuer: "issuer",
		TTL:    30 * time.Minute,
		Leeway: 10 * time.Second,
	}, cfg.JWTServiceConfig())
	require.Equal(t, auth.AdminCredentials{Username: "admin", PasswordHash: "hash"}, cfg.AdminCredentials())

	var fallback AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, fallback.JWTServiceConfig().TTL)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{Driver: " PostgreSQL ", Postgres: DBAuthConfig{
		Host: "db", Port: 5432, Database: "assistente", Username: "svc", Password: " pw ",
	}}

	got := cfg.ConnectionConfig()
	require.Equal(t, "postgres", got.Driver)
	require.Equal(t, "db", got.Host)
	require.Equal(t, 5432, got.Port)
	require.Equal(t, "assistente", got.Name)
	require.Equal(t, "pw", got.Password)

	got = DatabaseConfig{Path: "./x.sqlite"}.ConnectionConfig()
	require.Equal(t, "sqlite", got.Driver)
	require.Equal(t, "./x.sqlite", got.Path)
	require.Empty(t, got.Host)

	got = DatabaseConfig{
		Driver: "mysql",
		MySQL:  DBAuthConfig{Host: "m", Port: 3306, Options: map[string]string{"tls": "true"}},
		Pool:   PoolConfig{MaxOpenConns: 4, ConnMaxLifetime: time.Minute},
	}.ConnectionConfig()
	require.Equal(t, "mysql", got.Driver)
	require.Equal(t, "m", got.Host)
	require.Equal(t, "true", got.Options["tls"])
	require.Equal(t, 4, got.MaxOpenConns)
	require.Equal(t, time.Minute, got.ConnMaxLifetime)
}
