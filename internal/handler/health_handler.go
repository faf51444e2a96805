// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-service/internal/config"
	"label-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	config    *config.Config
	wsHandler *WebSocketHandler
	logger    *utils.ServiceLogger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(config *config.Config, wsHandler *WebSocketHandler, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		config:    config,
		wsHandler: wsHandler,
		logger:    utils.NewServiceLogger(logger, "health-handler"),
		startTime: time.Now(),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck performs general health check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startTime).String(),
		Checks:    make(map[string]CheckResult),
	}

	// Configured printer target. The service never holds a standing
	// printer connection, so this reports configuration, not liveness.
	health.Checks["printer"] = CheckResult{
		Status: "configured",
		Data: map[string]interface{}{
			"connection": h.config.Printer.Connection,
			"profile":    h.config.Printer.Profile,
			"host":       h.config.Printer.Host,
			"port":       h.config.Printer.Port,
		},
	}

	if h.wsHandler != nil {
		stats := h.wsHandler.GetConnectionStats()
		health.Checks["websocket"] = CheckResult{
			Status: "healthy",
			Data: map[string]interface{}{
				"connections": stats.TotalConnections,
			},
		}
	}

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck for Kubernetes readiness probe
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
