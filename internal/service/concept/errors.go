package concept

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 概念不存在
	ErrNotFound = errors.New("concept not found")
	// ErrConflict 标识已被占用
	ErrConflict = errors.New("concept already exists")
	// ErrNotEditable L1/L2 概念不可修改或删除
	ErrNotEditable = errors.New("concept is not editable")
	// ErrInvalid 输入不合法
	ErrInvalid = errors.New("invalid concept")
)

// ValidationError 字段校验失败
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap 使 errors.Is(err, ErrInvalid) 成立
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
