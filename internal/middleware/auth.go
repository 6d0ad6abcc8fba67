package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-concept/internal/service/auth"
)

// TokenValidator 令牌校验
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

// RequireOperator 要求操作员令牌
// validator 为 nil 时表示未启用认证，直接放行
func RequireOperator(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validator == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Missing Authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if !claims.IsOperator() {
			abort(c, http.StatusForbidden, "Operator role required")
			return
		}

		c.Set("claims", claims)
		c.Set("user_id", claims.Subject)
		c.Next()
	}
}

// GetClaims 从上下文获取令牌声明
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get("claims")
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// GetUserID 从上下文获取当前用户ID
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code": -1,
		"msg":  msg,
	})
}
