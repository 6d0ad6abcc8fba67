package concept

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-concept/internal/logger"
	"github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/repository"
)

const defaultSearchLimit = 10

// Service 概念服务
type Service struct {
	repo    repository.ConceptRepository
	indexer Indexer
	cache   DetailCache
	log     *logger.Logger
	group   singleflight.Group
}

// Option 服务可选项
type Option func(*Service)

// WithIndexer 启用搜索索引
func WithIndexer(x Indexer) Option {
	return func(s *Service) { s.indexer = x }
}

// WithDetailCache 启用详情缓存
func WithDetailCache(c DetailCache) Option {
	return func(s *Service) { s.cache = c }
}

// NewService 创建概念服务
func NewService(repo repository.ConceptRepository, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{repo: repo, log: log.With("component", "concept")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detail 概念详情，包含祖先链和继承视图
type Detail struct {
	Concept            *model.Concept           `json:"concept"`
	Ancestors          []*model.Concept         `json:"ancestors"`
	Inherited          []InheritedPropertyGroup `json:"inherited"`
	ShadowedProperties []string                 `json:"shadowed_properties"`
	ParentUnavailable  bool                     `json:"parent_unavailable"`
}

// UpdateRequest 更新请求，nil 字段保持不变
// id 和 inherits 不可修改
type UpdateRequest struct {
	Label              *string                   `json:"label"`
	Description        *string                   `json:"description"`
	Synonyms           *[]string                 `json:"synonyms"`
	Properties         *[]model.Property         `json:"properties"`
	Relationships      *[]model.Relationship     `json:"relationships"`
	ExtractionTemplate *model.ExtractionTemplate `json:"extraction_template"`
	ClearTemplate      bool                      `json:"clear_extraction_template"`
}

// TreeNode 分类树节点
type TreeNode struct {
	model.ConceptSummary
	Orphan   bool        `json:"orphan,omitempty"`
	Children []*TreeNode `json:"children"`
}

// Stats 各层级统计
type Stats struct {
	Total   int64                 `json:"total"`
	ByLayer map[model.Layer]int64 `json:"by_layer"`
}

// Overview 分类树和统计
type Overview struct {
	Tree  []*TreeNode `json:"tree"`
	Stats *Stats      `json:"stats"`
}

// Search 搜索概念，索引不可用时回退到数据库
func (s *Service) Search(ctx context.Context, query string, limit int) ([]model.ConceptSummary, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	query = strings.TrimSpace(query)

	if s.indexer != nil {
		results, err := s.indexer.Search(ctx, query, limit)
		if err == nil {
			return results, nil
		}
		s.log.Warn("search index unavailable, falling back to database", "error", err)
	}

	concepts, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search concepts: %w", err)
	}
	results := make([]model.ConceptSummary, 0, len(concepts))
	for _, c := range concepts {
		results = append(results, c.Summary())
	}
	return results, nil
}

// Get 获取概念
func (s *Service) Get(ctx context.Context, id string) (*model.Concept, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get concept: %w", err)
	}
	return c, nil
}

// GetDetail 获取概念及其祖先链
// 祖先链断裂不视为错误，ParentUnavailable 置位并返回空链
func (s *Service) GetDetail(ctx context.Context, id string) (*Detail, error) {
	v, err, _ := s.group.Do(id, func() (interface{}, error) {
		cache := s.cache
		var gen int64
		if cache != nil {
			var err error
			if gen, err = cache.Generation(ctx); err != nil {
				s.log.Warn("detail cache unavailable", "concept_id", id, "error", err)
				cache = nil
			}
		}

		if cache != nil {
			d, ok, err := cache.Get(ctx, gen, id)
			if err != nil {
				s.log.Warn("detail cache read failed", "concept_id", id, "error", err)
			} else if ok {
				return d, nil
			}
		}

		d, err := s.loadDetail(ctx, id)
		if err != nil {
			return nil, err
		}

		// 写入加载前的代数，期间若有写操作该条目不会再被读到
		if cache != nil {
			if err := cache.Set(ctx, gen, id, d); err != nil {
				s.log.Warn("detail cache write failed", "concept_id", id, "error", err)
			}
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Detail), nil
}

func (s *Service) loadDetail(ctx context.Context, id string) (*Detail, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Concept: c, Ancestors: []*model.Concept{}}
	ancestors, err := s.repo.Ancestors(ctx, id)
	if err != nil {
		s.log.Warn("parent context unavailable", "concept_id", id, "error", err)
		d.ParentUnavailable = true
	} else {
		d.Ancestors = ancestors
	}

	d.Inherited = Resolve(c, d.Ancestors)
	d.ShadowedProperties = ShadowedOwnPropertyNames(c, d.Ancestors)
	return d, nil
}

// Create 创建用户概念，新概念位于 L4
func (s *Service) Create(ctx context.Context, p CreatePayload) (*model.Concept, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Label = strings.TrimSpace(p.Label)
	p.Inherits = strings.TrimSpace(p.Inherits)

	if err := validatePayload(p); err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check concept: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrConflict, p.ID)
	}

	parentExists, err := s.repo.Exists(ctx, p.Inherits)
	if err != nil {
		return nil, fmt.Errorf("failed to check parent concept: %w", err)
	}
	if !parentExists {
		return nil, NewValidationError("inherits", fmt.Sprintf("parent concept %q does not exist", p.Inherits))
	}

	c := &model.Concept{
		ID:                 p.ID,
		Label:              p.Label,
		Layer:              model.LayerOrganization,
		Inherits:           p.Inherits,
		Abstract:           p.Abstract,
		Description:        strings.TrimSpace(p.Description),
		Synonyms:           Dedupe(p.Synonyms),
		Mixins:             Dedupe(p.Mixins),
		Properties:         NormalizeProperties(p.Properties),
		Relationships:      NormalizeRelationships(p.Relationships),
		ExtractionTemplate: normalizeTemplate(p.ExtractionTemplate),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, p.ID)
		}
		return nil, fmt.Errorf("failed to create concept: %w", err)
	}

	s.afterWrite(ctx, c, false)
	s.log.Info("concept created", "concept_id", c.ID, "inherits", c.Inherits)
	return c, nil
}

// Update 更新概念的可变字段，仅限 L3/L4
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*model.Concept, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Layer.Editable() {
		return nil, fmt.Errorf("%w: %s is in layer %s", ErrNotEditable, id, c.Layer)
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return nil, NewValidationError("label", "label is required")
		}
		c.Label = label
	}
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.Synonyms != nil {
		c.Synonyms = Dedupe(*req.Synonyms)
	}
	if req.Properties != nil {
		c.Properties = NormalizeProperties(*req.Properties)
	}
	if req.Relationships != nil {
		c.Relationships = NormalizeRelationships(*req.Relationships)
	}
	if req.ClearTemplate {
		c.ExtractionTemplate = nil
	} else if req.ExtractionTemplate != nil {
		c.ExtractionTemplate = normalizeTemplate(req.ExtractionTemplate)
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update concept: %w", err)
	}

	s.afterWrite(ctx, c, false)
	s.log.Info("concept updated", "concept_id", c.ID)
	return c, nil
}

// Delete 删除概念，仅限 L3/L4
// 子概念不级联处理，其详情将显示父概念不可用
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.Layer.Editable() {
		return fmt.Errorf("%w: %s is in layer %s", ErrNotEditable, id, c.Layer)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete concept: %w", err)
	}

	s.afterWrite(ctx, c, true)
	s.log.Info("concept deleted", "concept_id", id)
	return nil
}

// Import 导入种子概念，已存在则覆盖
func (s *Service) Import(ctx context.Context, concepts []*model.Concept) (int, error) {
	if s.indexer != nil {
		if err := s.indexer.EnsureIndex(ctx); err != nil {
			s.log.Warn("failed to ensure search index", "error", err)
		}
	}

	for i, c := range concepts {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Label) == "" {
			return i, NewValidationError("id", fmt.Sprintf("seed entry %d needs an id and a label", i))
		}
		if !c.Layer.IsValid() {
			return i, NewValidationError("layer", fmt.Sprintf("seed entry %q has unknown layer %q", c.ID, c.Layer))
		}
		c.Synonyms = Dedupe(c.Synonyms)
		c.Mixins = Dedupe(c.Mixins)
		c.Properties = NormalizeProperties(c.Properties)
		c.Relationships = NormalizeRelationships(c.Relationships)
		c.ExtractionTemplate = normalizeTemplate(c.ExtractionTemplate)

		if err := s.repo.Upsert(ctx, c); err != nil {
			return i, fmt.Errorf("failed to import concept %s: %w", c.ID, err)
		}
		s.afterWrite(ctx, c, false)
	}
	return len(concepts), nil
}

// Tree 构建分类树，父概念缺失的节点作为孤儿挂在根部
func (s *Service) Tree(ctx context.Context) ([]*TreeNode, error) {
	concepts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list concepts: %w", err)
	}

	nodes := make(map[string]*TreeNode, len(concepts))
	for _, c := range concepts {
		nodes[c.ID] = &TreeNode{ConceptSummary: c.Summary(), Children: []*TreeNode{}}
	}

	roots := make([]*TreeNode, 0)
	for _, c := range concepts {
		node := nodes[c.ID]
		if c.IsRoot() {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[c.Inherits]
		if !ok || parent == node {
			node.Orphan = true
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortTree(roots)
	return roots, nil
}

func sortTree(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if ri, rj := nodes[i].Layer.Rank(), nodes[j].Layer.Rank(); ri != rj {
			return ri < rj
		}
		return nodes[i].Label < nodes[j].Label
	})
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

// Stats 各层级概念数量
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByLayer(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{ByLayer: counts}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// Overview 并发获取分类树和统计
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tree, err := s.Tree(gctx)
		out.Tree = tree
		return err
	})
	g.Go(func() error {
		st, err := s.Stats(gctx)
		out.Stats = st
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// afterWrite 写操作后的缓存失效和索引同步，失败只记录日志
func (s *Service) afterWrite(ctx context.Context, c *model.Concept, deleted bool) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("failed to invalidate detail cache", "error", err)
		}
	}
	if s.indexer == nil {
		return
	}
	var err error
	if deleted {
		err = s.indexer.Delete(ctx, c.ID)
	} else {
		err = s.indexer.Index(ctx, c)
	}
	if err != nil {
		s.log.Warn("failed to sync search index", "concept_id", c.ID, "error", err)
	}
}

func validatePayload(p CreatePayload) error {
	if p.Label == "" {
		return NewValidationError("label", "label is required")
	}
	if p.ID == "" {
		return NewValidationError("id", "id is required")
	}
	if DeriveID(p.ID) != p.ID {
		return NewValidationError("id", "id must contain only lowercase letters, digits and single hyphens")
	}
	if p.Inherits == "" {
		return NewValidationError("inherits", "parent concept is required")
	}
	if p.Inherits == p.ID {
		return NewValidationError("inherits", "a concept cannot inherit from itself")
	}
	return nil
}

func normalizeTemplate(t *model.ExtractionTemplate) *model.ExtractionTemplate {
	if t == nil {
		return nil
	}
	out := &model.ExtractionTemplate{
		ClassificationHints: Dedupe(t.ClassificationHints),
		FilePatterns:        Dedupe(t.FilePatterns),
	}
	if out.IsEmpty() {
		return nil
	}
	return out
}
