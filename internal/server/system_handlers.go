package server

import (
	"net/http"

	"theraslot/internal/api"
	"theraslot/internal/db"
	"theraslot/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health godoc
// @Summary      Health check
// @Description  Pings the database; a failing database turns the service unhealthy.
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(database *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Healthy(c.Request.Context(), database); err != nil {
			c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: "degraded"})
			return
		}
		c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
	}
}

// TestNotification godoc
// @Summary      Queue a test notification
// @Tags         system
// @Produce      json
// @Success      200 {object} api.MessageResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /test-notification [get]
func TestNotification(notifier *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		event := notify.Event{Type: "test", Detail: "notification pipeline check"}
		if err := notifier.Enqueue(c.Request.Context(), event); err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Kind: api.KindInternal, Error: err.Error()})
			return
		}

		c.JSON(http.StatusOK, api.MessageResponse{Message: "Notification queued"})
	}
}

// Metrics godoc
// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
