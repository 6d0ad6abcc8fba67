package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ashwinyue/next-concept/internal/logger"
)

// RequestIDHeader 请求标识头
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配标识，客户端已提供时沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 从上下文获取请求标识
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", GetRequestID(c),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("HTTP request", kv...)
		case status >= 400:
			log.Warn("HTTP request", kv...)
		default:
			log.Info("HTTP request", kv...)
		}
	}
}
