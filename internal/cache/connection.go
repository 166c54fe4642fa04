package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/monitoring"
	"github.com/flowoff/assistente/pkg/logger"
)

const (
	defaultRedisURL             = "redis://localhost:6379"
	defaultDialTimeout          = 5 * time.Second
	defaultMaxRetriesPerRequest = 3
	defaultHealthCheckInterval  = 5 * time.Second
)

// ErrNotConnected is returned when the manager gives up connecting (MaxAttempts reached).
var ErrNotConnected = errors.New("redis: not connected")

// LifecycleEvent names a connection state transition.
type LifecycleEvent string

const (
	EventConnected    LifecycleEvent = "connected"
	EventReconnecting LifecycleEvent = "reconnecting"
	EventError        LifecycleEvent = "error"
)

// LifecycleInfo carries the details of a lifecycle event.
type LifecycleInfo struct {
	Attempt int
	Delay   time.Duration
	Err     error
}

// LifecycleListener observes connection lifecycle events. Listeners run synchronously
// on the connecting goroutine and must not block.
type LifecycleListener func(event LifecycleEvent, info LifecycleInfo)

// ConnectionConfig captures the connection parameters of the key-value backend.
type ConnectionConfig struct {
	// URL takes precedence over the discrete fields when set (redis:// or rediss://).
	URL      string
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool

	DialTimeout          time.Duration
	MaxRetriesPerRequest int
	HealthCheckInterval  time.Duration
	// MaxAttempts bounds reconnect attempts; zero retries forever.
	MaxAttempts int
	Backoff     BackoffPolicy
}

// ConnectionManager owns the single client handle to the key-value store and keeps it
// connected, reconnecting with the configured backoff policy.
type ConnectionManager struct {
	cfg       ConnectionConfig
	client    redis.UniversalClient
	backoff   BackoffPolicy
	listeners []LifecycleListener
	log       *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	connected atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// ConnectionOption customises a ConnectionManager.
type ConnectionOption func(*ConnectionManager)

// WithClient injects a preconfigured client, primarily for testing.
func WithClient(client redis.UniversalClient) ConnectionOption {
	return func(m *ConnectionManager) {
		if client != nil {
			m.client = client
		}
	}
}

// WithLifecycleListener registers an additional lifecycle observer.
func WithLifecycleListener(listener LifecycleListener) ConnectionOption {
	return func(m *ConnectionManager) {
		if listener != nil {
			m.listeners = append(m.listeners, listener)
		}
	}
}

// NewConnectionManager builds the client without dialing; call Connect or Start.
func NewConnectionManager(cfg ConnectionConfig, opts ...ConnectionOption) (*ConnectionManager, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.MaxRetriesPerRequest == 0 {
		cfg.MaxRetriesPerRequest = defaultMaxRetriesPerRequest
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = defaultHealthCheckInterval
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultBackoff()
	}

	m := &ConnectionManager{
		cfg:     cfg,
		backoff: cfg.Backoff,
		log:     logger.WithModule("redis"),
		sleep:   sleepContext,
	}
	m.listeners = []LifecycleListener{m.logEvent, recordEvent}

	for _, opt := range opts {
		opt(m)
	}

	if m.client == nil {
		options, err := cfg.clientOptions()
		if err != nil {
			return nil, err
		}
		m.client = redis.NewClient(options)
	}
	return m, nil
}

func (cfg ConnectionConfig) clientOptions() (*redis.Options, error) {
	var (
		options *redis.Options
		err     error
	)

	rawURL := strings.TrimSpace(cfg.URL)
	address := strings.TrimSpace(cfg.Address)
	switch {
	case rawURL != "":
		options, err = redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
	case address != "":
		options = &redis.Options{
			Addr:     address,
			Username: strings.TrimSpace(cfg.Username),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
		if cfg.TLS {
			host := address
			if i := strings.LastIndex(address, ":"); i > 0 {
				host = address[:i]
			}
			options.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
		}
	default:
		options, _ = redis.ParseURL(defaultRedisURL)
	}

	options.DialTimeout = cfg.DialTimeout
	options.MaxRetries = cfg.MaxRetriesPerRequest
	if b, ok := cfg.Backoff.(CappedBackoff); ok {
		options.MinRetryBackoff = b.Delay(1)
		options.MaxRetryBackoff = b.Cap
	}
	return options, nil
}

// Client returns the shared client handle.
func (m *ConnectionManager) Client() redis.UniversalClient {
	return m.client
}

// Connected reports the last observed connection state.
func (m *ConnectionManager) Connected() bool {
	return m.connected.Load()
}

// Ping issues a single PING bounded by the dial timeout.
func (m *ConnectionManager) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()
	return m.client.Ping(pingCtx).Err()
}

// Connect blocks until the backend answers PING, retrying with the backoff policy.
// It returns early when ctx is cancelled or MaxAttempts is exhausted.
func (m *ConnectionManager) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	err := m.Ping(ctx)
	if err == nil {
		m.markConnected(0)
		return nil
	}
	m.connected.Store(false)
	m.emit(EventError, LifecycleInfo{Err: err})
	return m.retry(ctx)
}

// Start launches the supervisor, which connects (if needed) and then probes the backend
// every HealthCheckInterval, reconnecting on failure. Calling Start twice is a no-op.
func (m *ConnectionManager) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.supervise(runCtx, m.done)
}

func (m *ConnectionManager) supervise(ctx context.Context, done chan struct{}) {
	defer close(done)

	if !m.connected.Load() {
		if err := m.Connect(ctx); err != nil && ctx.Err() != nil {
			return
		}
	}

	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := m.Ping(ctx)
			if err == nil {
				if !m.connected.Load() {
					m.markConnected(0)
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			m.connected.Store(false)
			m.emit(EventError, LifecycleInfo{Err: err})
			if err := m.retry(ctx); err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}

func (m *ConnectionManager) retry(ctx context.Context) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if m.cfg.MaxAttempts > 0 && attempt > m.cfg.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrNotConnected, m.cfg.MaxAttempts, lastErr)
		}

		delay := m.backoff.Delay(attempt)
		m.emit(EventReconnecting, LifecycleInfo{Attempt: attempt, Delay: delay})
		if err := m.sleep(ctx, delay); err != nil {
			return err
		}

		lastErr = m.Ping(ctx)
		if lastErr == nil {
			m.markConnected(attempt)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.emit(EventError, LifecycleInfo{Attempt: attempt, Err: lastErr})
	}
}

func (m *ConnectionManager) markConnected(attempt int) {
	m.connected.Store(true)
	m.emit(EventConnected, LifecycleInfo{Attempt: attempt})
}

func (m *ConnectionManager) emit(event LifecycleEvent, info LifecycleInfo) {
	for _, listener := range m.listeners {
		listener(event, info)
	}
}

func (m *ConnectionManager) logEvent(event LifecycleEvent, info LifecycleInfo) {
	fields := []zap.Field{
		zap.String("type", "system"),
		zap.String("event", string(event)),
		zap.Int("attempt", info.Attempt),
	}
	switch event {
	case EventError:
		m.log.Error("redis error", append(fields, zap.Error(info.Err))...)
	case EventReconnecting:
		m.log.Info("reconnecting to redis", append(fields, zap.Duration("delay", info.Delay))...)
	default:
		m.log.Info("connected to redis", fields...)
	}
}

func recordEvent(event LifecycleEvent, _ LifecycleInfo) {
	monitoring.RecordConnectionEvent("redis", string(event))
}

// Close stops the supervisor and closes the client. It is safe to call more than once.
func (m *ConnectionManager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		cancel, done := m.cancel, m.done
		m.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
		m.connected.Store(false)
		err = m.client.Close()
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
