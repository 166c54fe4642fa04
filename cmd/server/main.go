package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/app"
	"github.com/flowoff/assistente/pkg/crypto"
	"github.com/flowoff/assistente/pkg/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
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
	fs := flag.NewFlagSet("assistente-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		configPath   string
		hashPassword bool
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")
	fs.BoolVar(&hashPassword, "hash-password", false, "Read a password from stdin, print its bcrypt hash and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if hashPassword {
		return printPasswordHash(os.Stdin, os.Stdout)
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Close() // flushes and releases log files

	log := logger.WithModule("bootstrap")

	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return err
	}
	for _, key := range generated {
		log.Warn("generated runtime secret; issued tokens will not survive a restart", zap.String("key", key))
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	stack, err := bootstrapRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           stack.Router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	runErr := serve(ctx, srv, shutdownTimeout(cfg), log)

	// teardown gets its own budget after the drain
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := stack.Shutdown(closeCtx); err != nil {
		log.Warn("runtime shutdown incomplete", zap.Error(err))
	}
	return runErr
}

// serve runs srv until ctx is cancelled or the listener fails, then drains
// in-flight requests within grace.
func serve(ctx context.Context, srv *http.Server, grace time.Duration, log *zap.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		logger.System("server", "listening", zap.String("addr", srv.Addr))
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}

func printPasswordHash(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	hash, err := crypto.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

// loadApplicationConfig accepts a directory or a file inside it; an empty path
// uses the default search locations.
func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	case err != nil:
		return nil, fmt.Errorf("stat config path: %w", err)
	case !info.IsDir():
		path = filepath.Dir(path)
	}
	return app.LoadConfig(path)
}
