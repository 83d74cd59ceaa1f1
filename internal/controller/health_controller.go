package controller

import (
	"context"
	"time"

	"quiz_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} util.Response
// @Router /health [get]
func (c *HealthController) Check(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)}

	dbStatus := "ok"
	if sqlDB, err := c.DB.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(checkCtx); err != nil {
		dbStatus = "error"
	}
	status["database"] = dbStatus

	if c.Redis != nil {
		redisStatus := "ok"
		if err := c.Redis.Ping(checkCtx).Err(); err != nil {
			redisStatus = "error"
		}
		status["redis"] = redisStatus
	}

	util.Success(ctx, status)
}
