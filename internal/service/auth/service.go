// Package auth 操作员令牌签发与校验
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ashwinyue/next-concept/internal/config"
)

// RoleOperator 允许修改分类体系的角色
const RoleOperator = "operator"

var (
	// ErrInvalidToken 令牌无效或已过期
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden 角色不允许该操作
	ErrForbidden = errors.New("operator role required")
)

// Claims 令牌声明
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IsOperator 是否为操作员
func (c *Claims) IsOperator() bool {
	return c != nil && c.Role == RoleOperator
}

// Service 认证服务
type Service struct {
	secret []byte
	issuer string
}

// NewService 创建认证服务
// 未配置密钥时生成随机密钥，重启后之前签发的令牌失效
func NewService(cfg config.AuthConfig) (*Service, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		randomBytes := make([]byte, 32)
		if _, err := rand.Read(randomBytes); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = base64.StdEncoding.EncodeToString(randomBytes)
	}
	return &Service{secret: []byte(secret), issuer: cfg.Issuer}, nil
}

// IssueToken 签发令牌
func (s *Service) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken 验证令牌
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
