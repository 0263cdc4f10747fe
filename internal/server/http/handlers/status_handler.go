package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/dto"
)

// StatusHandler answers liveness and readiness checks.
type StatusHandler struct {
	facade HealthFacade
}

// NewStatusHandler constructs StatusHandler.
func NewStatusHandler(facade HealthFacade) *StatusHandler {
	return &StatusHandler{facade: facade}
}

// Root handles GET /.
func (h *StatusHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Server is running"})
}

// Health handles GET /healthz.
func (h *StatusHandler) Health(c *gin.Context) {
	if err := h.facade.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.Error("Unavailable", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.Envelope{Status: dto.StatusSuccess, Message: "ok"})
}
