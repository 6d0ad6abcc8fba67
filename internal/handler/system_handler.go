package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 依赖健康检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler 系统处理器
type SystemHandler struct {
	db      Pinger
	version string
}

// NewSystemHandler 创建系统处理器，db 可以为 nil
func NewSystemHandler(db Pinger, version string) *SystemHandler {
	return &SystemHandler{db: db, version: version}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "version": h.version}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "version": h.version, "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, status)
}
