package controller

import (
	"context"
	"net/http"
	"time"

	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client // 使用内存会话存储时为 nil
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// @Summary 健康检查
// @Description 检查数据库和 Redis 连接
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{}
	healthy := true

	sqlDB, err := c.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(reqCtx)
	}
	if err != nil {
		components["database"] = "down"
		healthy = false
	} else {
		components["database"] = "up"
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(reqCtx).Err(); err != nil {
			components["redis"] = "down"
			healthy = false
		} else {
			components["redis"] = "up"
		}
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "Service unavailable",
			Data:    gin.H{"status": "degraded", "components": components},
		})
		return
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
