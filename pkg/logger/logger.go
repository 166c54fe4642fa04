package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultService     = "assistente"
	defaultEnvironment = "development"
	defaultMaxSizeMB   = 5
	defaultMaxBackups  = 5
	timeLayout         = "2006-01-02 15:04:05"
)

var (
	mu           sync.RWMutex
	globalLogger = zap.NewNop()
	accessLogger = zap.NewNop()
	openFiles    []io.Closer
)

// Options tune the process logger built by InitWithOptions.
type Options struct {
	Level       string
	Service     string
	Environment string
	// Format is "json" (default) or "console" for stdout. Files are always JSON.
	Format string
	// Dir enables combined.log, error.log and access.log, rotated by size.
	Dir        string
	MaxSizeMB  int
	MaxBackups int
}

// Init configures the global logger at level with stdout output only.
func Init(level string) error {
	return InitWithOptions(Options{Level: level})
}

// InitWithOptions replaces the global and access loggers. An unknown level falls back to info.
func InitWithOptions(opts Options) error {
	level, err := zapcore.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	fileEncoder := zapcore.NewJSONEncoder(encoderConfig())
	stdoutEncoder := fileEncoder
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		cfg := encoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdoutEncoder = zapcore.NewConsoleEncoder(cfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(stdoutEncoder, zapcore.Lock(consoleSyncer{os.Stdout}), level)}
	accessCores := append([]zapcore.Core(nil), cores...)

	var files []io.Closer
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("logger: create %s: %w", dir, err)
		}
		combined := rotating(dir, "combined.log", opts)
		errorsOnly := rotating(dir, "error.log", opts)
		access := rotating(dir, "access.log", opts)
		files = append(files, combined, errorsOnly, access)

		combinedCore := zapcore.NewCore(fileEncoder, zapcore.AddSync(combined), level)
		cores = append(cores, combinedCore, zapcore.NewCore(fileEncoder, zapcore.AddSync(errorsOnly), zapcore.ErrorLevel))
		accessCores = append(accessCores, combinedCore, zapcore.NewCore(fileEncoder, zapcore.AddSync(access), level))
	}

	fields := zap.Fields(
		zap.String("service", orDefault(opts.Service, defaultService)),
		zap.String("environment", orDefault(opts.Environment, defaultEnvironment)),
	)
	main := zap.New(zapcore.NewTee(cores...), fields, zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	access := zap.New(zapcore.NewTee(accessCores...), fields).With(zap.String("module", "http"))

	mu.Lock()
	previous := openFiles
	globalLogger, accessLogger, openFiles = main, access, files
	mu.Unlock()

	closeAll(previous)
	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	return cfg
}

func rotating(dir, name string, opts Options) *lumberjack.Logger {
	size := opts.MaxSizeMB
	if size <= 0 {
		size = defaultMaxSizeMB
	}
	backups := opts.MaxBackups
	if backups <= 0 {
		backups = defaultMaxBackups
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    size,
		MaxBackups: backups,
	}
}

// consoleSyncer drops the errors fsync returns for terminals and pipes.
type consoleSyncer struct {
	zapcore.WriteSyncer
}

func (c consoleSyncer) Sync() error {
	err := c.WriteSyncer.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF) {
		return nil
	}
	return err
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}

func closeAll(files []io.Closer) {
	for _, f := range files {
		_ = f.Close()
	}
}

// Logger returns the process logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Access returns the logger for HTTP access entries. It also writes access.log when a
// log directory is configured.
func Access() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return accessLogger
}

// Sync flushes both loggers.
func Sync() error {
	err := Logger().Sync()
	_ = Access().Sync()
	return err
}

// Close flushes and releases log files. The loggers keep writing to stdout.
func Close() error {
	err := Sync()
	mu.Lock()
	files := openFiles
	openFiles = nil
	mu.Unlock()
	closeAll(files)
	return err
}

// WithModule returns a child logger annotated with the module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// System records a lifecycle event for a subsystem (redis, backup, email).
func System(module, event string, fields ...zap.Field) {
	base := []zap.Field{zap.String("type", "system"), zap.String("event", event)}
	WithModule(module).Info(event, append(base, fields...)...)
}
