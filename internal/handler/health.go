package handler

import (
	"context"
	"net/http"
	"time"

	"distripos/internal/infra"
	"distripos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity, the WhatsApp circuit breaker state and
// the notification DLQ backlog; never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, waCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		// Backlog of notifications that exhausted their retries. Non-zero
		// means someone needs to look at dlq:jobs:notificacion.
		dlqDepth, err := worker.DLQLength(ctx, rdb, worker.QueueNotificacion)
		if err != nil {
			dlqDepth = -1
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":        status == http.StatusOK,
			"db":        dbStatus,
			"redis":     redisStatus,
			"whatsapp":  waCB.State().String(),
			"dlq_depth": dlqDepth,
		})
	}
}
