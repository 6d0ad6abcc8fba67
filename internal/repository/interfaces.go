// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"

	"github.com/ashwinyue/next-concept/internal/model"
)

// ========== ConceptRepository 接口 ==========

// ConceptRepository 概念数据访问接口
// 接口定义使 Service 层可以轻松 mock 进行单元测试
type ConceptRepository interface {
	Create(ctx context.Context, c *model.Concept) error
	Update(ctx context.Context, c *model.Concept) error
	Upsert(ctx context.Context, c *model.Concept) error
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*model.Concept, error)
	Exists(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]*model.Concept, error)
	ListAll(ctx context.Context) ([]*model.Concept, error)
	CountByLayer(ctx context.Context) (map[model.Layer]int64, error)

	// Ancestors 沿 inherits 向上查找，由近到远
	Ancestors(ctx context.Context, id string) ([]*model.Concept, error)
}

// 确保 ConceptRepositoryImpl 实现了接口
var _ ConceptRepository = (*ConceptRepositoryImpl)(nil)
