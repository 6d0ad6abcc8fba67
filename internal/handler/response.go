package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-concept/internal/service/concept"
	"github.com/ashwinyue/next-concept/internal/service/generator"
	"github.com/ashwinyue/next-concept/internal/service/wizard"
)

// ========== API 响应格式 ==========

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	Field string `json:"field,omitempty"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// Accepted 已受理响应 (202)
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, SuccessResponse{Success: true, Data: data})
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: msg})
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorResponse{Code: 403, Msg: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Msg: msg})
}

// Conflict 409 错误响应
func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, ErrorResponse{Code: 409, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Msg: msg})
}

// ServiceUnavailable 503 错误响应
func ServiceUnavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: 503, Msg: msg})
}

// Error 根据错误类型返回相应的错误响应
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var verr *concept.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: verr.Message, Field: verr.Field})
	case errors.Is(err, concept.ErrInvalid), errors.Is(err, generator.ErrEmptyIdea):
		BadRequest(c, err.Error())
	case errors.Is(err, concept.ErrNotFound), errors.Is(err, wizard.ErrSessionNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, concept.ErrConflict):
		Conflict(c, err.Error())
	case errors.Is(err, concept.ErrNotEditable):
		Forbidden(c, err.Error())
	case errors.Is(err, generator.ErrUnavailable):
		ServiceUnavailable(c, err.Error())
	case errors.Is(err, generator.ErrMalformedOutput):
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: 502, Msg: err.Error()})
	default:
		InternalServerError(c, "internal server error")
	}
}
