package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the assistente backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Backup      BackupConfig      `mapstructure:"backup"`
	Email       EmailConfig       `mapstructure:"email"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	Environment     string          `mapstructure:"environment"`
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format"`
	// LogDir enables rotated combined, error and access log files.
	LogDir          string          `mapstructure:"log_dir"`
	LogMaxSizeMB    int             `mapstructure:"log_max_size_mb"`
	LogMaxBackups   int             `mapstructure:"log_max_backups"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds API requests per client within a fixed window.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
	Pool     PoolConfig   `mapstructure:"pool"`
}

// PoolConfig bounds the sql.DB connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Options are appended to the DSN query string, e.g. sslmode or tls.
	Options map[string]string `mapstructure:"options"`
}

// CacheConfig describes the cache facade and its backends.
type CacheConfig struct {
	// TTL is the default expiry in seconds, matching the CACHE_TTL variable.
	TTL        int              `mapstructure:"ttl"`
	Namespace  string           `mapstructure:"namespace"`
	AllowClear bool             `mapstructure:"allow_clear"`
	Redis      RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	URL                  string        `mapstructure:"url"`
	Address              string        `mapstructure:"address"`
	Username             string        `mapstructure:"username"`
	Password             string        `mapstructure:"password"`
	DB                   int           `mapstructure:"db"`
	TLS                  bool          `mapstructure:"tls"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetriesPerRequest int           `mapstructure:"max_retries_per_request"`
	HealthCheckInterval  time.Duration `mapstructure:"health_check_interval"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	Backoff              BackoffConfig `mapstructure:"backoff"`
}

// BackoffConfig configures the capped reconnect delay.
type BackoffConfig struct {
	Step time.Duration `mapstructure:"step"`
	Cap  time.Duration `mapstructure:"cap"`
}

// BackupConfig configures the backup pipeline.
type BackupConfig struct {
	Path           string   `mapstructure:"path"`
	RetentionDays  int      `mapstructure:"retention_days"`
	DatabaseURI    string   `mapstructure:"database_uri"`
	DumpCommand    string   `mapstructure:"dump_command"`
	ArchiveCommand string   `mapstructure:"archive_command"`
	SourceDir      string   `mapstructure:"source_dir"`
	Excludes       []string `mapstructure:"excludes"`
	Schedule       string   `mapstructure:"schedule"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
	// Recipients receive scheduled backup reports and failure alerts.
	Recipients []string `mapstructure:"recipients"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig captures authentication settings for the admin API.
type AuthConfig struct {
	JWT   JWTSettings   `mapstructure:"jwt"`
	Admin AdminSettings `mapstructure:"admin"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
	Leeway time.Duration `mapstructure:"leeway"`
}

// AdminSettings holds the single operator account allowed to request tokens.
type AdminSettings struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// BackupMaxAge marks readiness degraded when the last successful backup is older.
	BackupMaxAge time.Duration `mapstructure:"backup_max_age"`
}

// MaintenanceConfig configures the background job scheduler.
type MaintenanceConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	CacheExpirySchedule string        `mapstructure:"cache_expiry_schedule"`
	AlertCooldown       time.Duration `mapstructure:"alert_cooldown"`
}

// legacyEnv maps config keys to the plain environment variables the service has always honoured.
var legacyEnv = map[string]string{
	"server.port":           "PORT",
	"server.environment":    "NODE_ENV",
	"server.log_level":      "LOG_LEVEL",
	"cache.ttl":             "CACHE_TTL",
	"cache.redis.url":       "REDIS_URL",
	"backup.path":           "BACKUP_PATH",
	"backup.retention_days": "BACKUP_RETENTION_DAYS",
	"backup.database_uri":   "MONGODB_URI",
	"email.smtp.host":       "SMTP_HOST",
	"email.smtp.port":       "SMTP_PORT",
	"email.smtp.username":   "SMTP_USER",
	"email.smtp.password":   "SMTP_PASS",
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ASSISTENTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	config.normalise()
	return &config, nil
}

// bindLegacyEnv binds each key to its prefixed variable first, then the legacy name.
func bindLegacyEnv(v *viper.Viper) error {
	for key, name := range legacyEnv {
		prefixed := "ASSISTENTE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return fmt.Errorf("config: bind %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.log_dir", "")
	v.SetDefault("server.log_max_size_mb", 5)
	v.SetDefault("server.log_max_backups", 5)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "15m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/assistente.sqlite")
	v.SetDefault("database.pool.max_open_conns", 10)
	v.SetDefault("database.pool.max_idle_conns", 5)
	v.SetDefault("database.pool.conn_max_lifetime", "30m")

	v.SetDefault("cache.ttl", 3600)
	v.SetDefault("cache.namespace", "")
	v.SetDefault("cache.allow_clear", false)
	v.SetDefault("cache.redis.enabled", true)
	v.SetDefault("cache.redis.url", "redis://localhost:6379")
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.max_retries_per_request", 3)
	v.SetDefault("cache.redis.health_check_interval", "5s")
	v.SetDefault("cache.redis.max_attempts", 0)
	v.SetDefault("cache.redis.backoff.step", "50ms")
	v.SetDefault("cache.redis.backoff.cap", "2s")

	v.SetDefault("backup.path", "./backups")
	v.SetDefault("backup.retention_days", 30)
	v.SetDefault("backup.dump_command", "mongodump")
	v.SetDefault("backup.archive_command", "tar")
	v.SetDefault("backup.source_dir", ".")
	v.SetDefault("backup.excludes", []string{"node_modules", ".git", "backups"})
	v.SetDefault("backup.schedule", "@daily")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("auth.jwt.issuer", "assistente")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.jwt.leeway", "30s")
	v.SetDefault("auth.admin.username", "admin")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.health_check.backup_max_age", "26h")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.cache_expiry_schedule", "@every 10m")
	v.SetDefault("maintenance.alert_cooldown", "1h")
}

// normalise derives settings that depend on other values.
func (c *Config) normalise() {
	c.Email.SMTP.Host = strings.TrimSpace(c.Email.SMTP.Host)
	if c.Email.SMTP.Port == 465 {
		c.Email.SMTP.UseTLS = true
	}
	if strings.TrimSpace(c.Email.SMTP.From) == "" {
		c.Email.SMTP.From = strings.TrimSpace(c.Email.SMTP.Username)
	}
	if c.Email.SMTP.Host != "" && !c.Email.SMTP.Enabled {
		c.Email.SMTP.Enabled = true
	}
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
