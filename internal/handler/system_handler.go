package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck reports whether the store answers.
func (a *API) HealthCheck(c *gin.Context) {
	if a.store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "unknown"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "store unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"store":  "up",
	})
}
