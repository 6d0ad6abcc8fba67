package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwinyue/next-concept/internal/model"
)

// maxAncestorDepth 祖先链最大深度，超过视为环
const maxAncestorDepth = 64

// ErrInheritanceCycle 继承链存在环
var ErrInheritanceCycle = errors.New("inheritance cycle detected")

// ErrBrokenChain 继承链中的某个父概念不存在
var ErrBrokenChain = errors.New("parent concept not found")

// ConceptRepositoryImpl 概念仓库
type ConceptRepositoryImpl struct {
	db *gorm.DB
}

// NewConceptRepository 创建概念仓库
func NewConceptRepository(db *gorm.DB) *ConceptRepositoryImpl {
	return &ConceptRepositoryImpl{db: db}
}

// Create 创建概念
func (r *ConceptRepositoryImpl) Create(ctx context.Context, c *model.Concept) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Update 更新概念
func (r *ConceptRepositoryImpl) Update(ctx context.Context, c *model.Concept) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Upsert 按 ID 插入或覆盖，用于种子数据
func (r *ConceptRepositoryImpl) Upsert(ctx context.Context, c *model.Concept) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(c).Error
}

// Delete 删除概念
func (r *ConceptRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&model.Concept{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID 根据 ID 获取概念
func (r *ConceptRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Concept, error) {
	var c model.Concept
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists 概念是否存在
func (r *ConceptRepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Concept{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Search 按标签或 ID 模糊搜索
func (r *ConceptRepositoryImpl) Search(ctx context.Context, query string, limit int) ([]*model.Concept, error) {
	var concepts []*model.Concept

	q := r.db.WithContext(ctx).Model(&model.Concept{})
	if keyword := strings.ToLower(strings.TrimSpace(query)); keyword != "" {
		like := "%" + keyword + "%"
		q = q.Where("LOWER(label) LIKE ? OR LOWER(id) LIKE ?", like, like)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	err := q.Order("label ASC").Find(&concepts).Error
	return concepts, err
}

// ListAll 获取全部概念
func (r *ConceptRepositoryImpl) ListAll(ctx context.Context) ([]*model.Concept, error) {
	var concepts []*model.Concept
	err := r.db.WithContext(ctx).Order("layer ASC, label ASC").Find(&concepts).Error
	return concepts, err
}

// CountByLayer 按层级统计
func (r *ConceptRepositoryImpl) CountByLayer(ctx context.Context) (map[model.Layer]int64, error) {
	var rows []struct {
		Layer model.Layer
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Concept{}).
		Select("layer, COUNT(*) AS count").
		Group("layer").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count concepts: %w", err)
	}

	counts := make(map[model.Layer]int64, len(model.Layers))
	for _, l := range model.Layers {
		counts[l] = 0
	}
	for _, row := range rows {
		counts[row.Layer] = row.Count
	}
	return counts, nil
}

// Ancestors 沿 inherits 向上查找祖先，由近到远
// 父概念不存在时返回已找到的部分和 ErrBrokenChain
func (r *ConceptRepositoryImpl) Ancestors(ctx context.Context, id string) ([]*model.Concept, error) {
	start, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	chain := make([]*model.Concept, 0, 4)
	visited := map[string]struct{}{start.ID: {}}
	parentID := strings.TrimSpace(start.Inherits)

	for parentID != "" {
		if _, ok := visited[parentID]; ok || len(chain) >= maxAncestorDepth {
			return chain, fmt.Errorf("%w: %s", ErrInheritanceCycle, parentID)
		}
		visited[parentID] = struct{}{}

		parent, err := r.GetByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return chain, fmt.Errorf("%w: %s", ErrBrokenChain, parentID)
			}
			return chain, err
		}
		chain = append(chain, parent)
		parentID = strings.TrimSpace(parent.Inherits)
	}
	return chain, nil
}
