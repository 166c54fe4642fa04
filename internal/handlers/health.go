package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowoff/assistente/internal/monitoring"
)

// HealthHandler renders liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler returns nil when manager is nil so routes fall back to Disabled.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		return nil
	}
	return &HealthHandler{manager: manager}
}

// Overall handles GET /health with a compact readiness status.
func (h *HealthHandler) Overall(c *gin.Context) {
	report := h.manager.EvaluateReadiness(requestContext(c))
	c.JSON(healthStatus(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checked_at": time.Now().UTC(),
	})
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	writeHealthReport(c, h.manager.EvaluateLiveness(requestContext(c)))
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	writeHealthReport(c, h.manager.EvaluateReadiness(requestContext(c)))
}

// HealthDisabled answers health routes when health checks are turned off.
func HealthDisabled(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	c.JSON(healthStatus(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}

func healthStatus(report monitoring.HealthReport) int {
	if !report.Success {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
