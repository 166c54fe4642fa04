package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowoff/assistente/internal/app"
	iauth "github.com/flowoff/assistente/internal/auth"
	"github.com/flowoff/assistente/internal/cache"
	"github.com/flowoff/assistente/internal/handlers"
	"github.com/flowoff/assistente/internal/middleware"
	"github.com/flowoff/assistente/internal/monitoring"
)

// Dependencies bundles the services exposed over HTTP.
type Dependencies struct {
	Config     *app.Config
	JWT        *iauth.JWTService
	Admin      iauth.AdminCredentials
	Cache      *cache.Cache
	Backups    handlers.BackupRunner
	Ledger     handlers.BackupLister
	Dispatcher handlers.Dispatcher
	Monitoring *monitoring.Module
	RateStore  middleware.RateStore
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("api: config must be provided")
	case d.JWT == nil:
		return errors.New("api: jwt service must be provided")
	case d.Cache == nil:
		return errors.New("api: cache must be provided")
	case d.Backups == nil:
		return errors.New("api: backup runner must be provided")
	case d.Dispatcher == nil:
		return errors.New("api: notification dispatcher must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsEndpoint(cfg)))
	r.Use(middleware.SecurityHeaders())

	limit := cfg.Server.RateLimit
	if limit.Enabled {
		store := deps.RateStore
		if store == nil {
			store = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(store, limit.Requests, limit.Window))
	}

	registerHealthRoutes(r, cfg, deps.Monitoring)
	registerMetricsRoute(r, cfg, deps.Monitoring)

	authHandler := handlers.NewAuthHandler(deps.Admin, deps.JWT)
	r.POST("/api/auth/token", authHandler.Token)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerCacheRoutes(api, handlers.NewCacheHandler(deps.Cache))
	registerBackupRoutes(api, handlers.NewBackupHandler(deps.Backups, deps.Ledger))

	notificationHandler := handlers.NewNotificationHandler(deps.Dispatcher)
	api.POST("/notifications", notificationHandler.Send)

	if monitoringHandler := handlers.NewMonitoringHandler(deps.Monitoring, cfg); monitoringHandler != nil {
		api.GET("/monitoring/summary", monitoringHandler.Summary)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	var health *handlers.HealthHandler
	if cfg.Monitoring.Health.Enabled && mon != nil {
		health = handlers.NewHealthHandler(mon.Health())
	}

	if health == nil {
		r.GET("/health", handlers.HealthDisabled)
		r.GET("/health/live", handlers.HealthDisabled)
		r.GET("/health/ready", handlers.HealthDisabled)
		return
	}

	r.GET("/health", health.Overall)
	r.GET("/health/live", health.Live)
	r.GET("/health/ready", health.Ready)
}

func registerMetricsRoute(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Prometheus.Enabled || mon == nil {
		return
	}
	r.GET(metricsEndpoint(cfg), gin.WrapH(mon.Handler()))
}

func metricsEndpoint(cfg *app.Config) string {
	if endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint); endpoint != "" {
		return endpoint
	}
	return "/metrics"
}

func registerCacheRoutes(api *gin.RouterGroup, h *handlers.CacheHandler) {
	group := api.Group("/cache")
	group.DELETE("", h.Clear)
	group.GET("/:key", h.Get)
	group.HEAD("/:key", h.Exists)
	group.PUT("/:key", h.Put)
	group.DELETE("/:key", h.Delete)
	group.POST("/:key/increment", h.Increment)
	group.POST("/:key/expire", h.Expire)
}

func registerBackupRoutes(api *gin.RouterGroup, h *handlers.BackupHandler) {
	group := api.Group("/backups")
	group.GET("", h.List)
	group.POST("", h.Run)
	group.POST("/prune", h.Prune)
}
