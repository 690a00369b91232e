package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	mode    models.AuthMode
	ready   func() bool
}

// NewMetricsHandler constructs a metrics handler. ready reports whether startup finished;
// nil means always ready.
func NewMetricsHandler(metrics *service.MetricsService, mode models.AuthMode, ready func() bool) *MetricsHandler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &MetricsHandler{metrics: metrics, mode: mode, ready: ready}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health reports liveness with the operating mode and a metrics snapshot.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": h.mode, "metrics": h.metrics.Snapshot()})
}

// Ready reports whether the session manager finished restoring state.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if !h.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
