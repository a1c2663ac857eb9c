package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"scandesk/internal/port"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	service port.HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(service port.HealthChecker) *HealthHandler {
	return &HealthHandler{service: service}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		log.Printf("healthHandler: analysis service not reachable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "analysis service not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
