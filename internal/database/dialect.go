package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch normalizeDriver(cfg.Driver) {
	case "sqlite":
		dsn, err := sqliteDSN(cfg)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	case "postgres":
		dsn, err := buildPostgresDSN(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	case "mysql":
		dsn, err := buildMySQLDSN(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN accepts a file path, ":memory:" or "memory:<name>" for a named shared
// in-memory database.
func sqliteDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "", strings.EqualFold(path, ":memory:"):
		return "file::memory:?cache=shared&_foreign_keys=1", nil
	case strings.HasPrefix(path, "memory:"):
		return "file:" + strings.TrimPrefix(path, "memory:") + "?mode=memory&cache=shared&_foreign_keys=1", nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("database: create directory %s: %w", dir, err)
		}
	}
	return "file:" + filepath.ToSlash(path) + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", nil
}

// buildPostgresDSN renders a postgres:// URL so credentials with reserved characters stay intact.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	query := url.Values{}
	for key, value := range cfg.Options {
		query.Set(key, value)
	}
	if query.Get("sslmode") == "" {
		query.Set("sslmode", "disable")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(cfg.User),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String(), nil
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := gomysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		if key == "tls" {
			mc.TLSConfig = value
			continue
		}
		mc.Params[key] = value
	}
	return mc.FormatDSN(), nil
}
