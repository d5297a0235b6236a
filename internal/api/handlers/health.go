package handlers

import (
	"net/http"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db          *database.DB
	redisClient *redis.Client
	hub         *services.WebSocketHub
	maintenance *services.MaintenanceService
}

func NewHealthHandler(db *database.DB, redisClient *redis.Client, hub *services.WebSocketHub, maintenance *services.MaintenanceService) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		hub:         hub,
		maintenance: maintenance,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "loyalty-engine",
		"timestamp": time.Now().UTC(),
	})
}

// GetReady returns readiness status - only returns 200 when the database
// answers. Redis is optional, a cache outage degrades but does not block.
func (h *HealthHandler) GetReady(c *gin.Context) {
	ctx := c.Request.Context()

	checks := gin.H{}
	ready := true

	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = "down"
		ready = false
	} else {
		checks["database"] = "up"
	}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	} else {
		checks["redis"] = "disabled"
	}

	checks["websocket_clients"] = h.hub.ClientCount()

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}

// GetJobsStatus returns the background scheduler state
func (h *HealthHandler) GetJobsStatus(c *gin.Context) {
	if h.maintenance == nil {
		c.JSON(http.StatusOK, gin.H{"is_running": false, "cron_jobs": 0})
		return
	}
	c.JSON(http.StatusOK, h.maintenance.GetStatus())
}
