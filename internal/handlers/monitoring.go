package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowoff/assistente/internal/app"
	"github.com/flowoff/assistente/internal/monitoring"
	"github.com/flowoff/assistente/pkg/response"
)

// MonitoringHandler serves the operator dashboard summary.
type MonitoringHandler struct {
	module      *monitoring.Module
	metricsPath string
	withHealth  bool
	started     time.Time
}

// NewMonitoringHandler returns nil when both metrics and health checks are switched off.
func NewMonitoringHandler(module *monitoring.Module, cfg *app.Config) *MonitoringHandler {
	if module == nil || cfg == nil {
		return nil
	}
	mon := cfg.Monitoring
	if !mon.Health.Enabled && !mon.Prometheus.Enabled {
		return nil
	}

	h := &MonitoringHandler{module: module, withHealth: mon.Health.Enabled, started: time.Now()}
	if mon.Prometheus.Enabled {
		h.metricsPath = strings.TrimSpace(mon.Prometheus.Endpoint)
		if h.metricsPath == "" {
			h.metricsPath = "/metrics"
		}
	}
	return h
}

// Summary handles GET /api/monitoring/summary.
func (h *MonitoringHandler) Summary(c *gin.Context) {
	payload := gin.H{
		"summary":        h.module.Summary(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"prometheus": gin.H{
			"enabled":  h.metricsPath != "",
			"endpoint": h.metricsPath,
		},
	}
	if h.withHealth {
		payload["readiness"] = h.module.Health().EvaluateReadiness(requestContext(c)).Status
	}
	response.Success(c, http.StatusOK, payload)
}
