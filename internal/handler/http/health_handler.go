package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker is one dependency probe run by the health endpoint.
type HealthChecker struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports service liveness and dependency readiness.
type HealthHandler struct {
	checkers []HealthChecker
	logger   *zap.Logger
}

func NewHealthHandler(logger *zap.Logger, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers, logger: logger.Named("health_handler")}
}

// Live handles GET /healthz.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /readyz, probing every registered dependency.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	result := gin.H{}
	healthy := true
	for _, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			h.logger.Warn("Readiness check failed",
				zap.String("dependency", checker.Name), zap.Error(err))
			result[checker.Name] = err.Error()
			healthy = false
			continue
		}
		result[checker.Name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": result})
}
