package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-concept/internal/service/concept"
)

// ConceptHandler 概念处理器
type ConceptHandler struct {
	svc *concept.Service
}

// NewConceptHandler 创建概念处理器
func NewConceptHandler(svc *concept.Service) *ConceptHandler {
	return &ConceptHandler{svc: svc}
}

// SearchConcepts 搜索概念
// @Summary      搜索概念
// @Description  按标签、标识、同义词搜索概念，q 为空时返回前若干个概念
// @Tags         概念
// @Produce      json
// @Param        q      query     string  false  "关键词"
// @Param        limit  query     int     false  "返回数量"
// @Success      200    {object}  SuccessResponse
// @Router       /concepts [get]
func (h *ConceptHandler) SearchConcepts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		BadRequest(c, "limit must be between 1 and 100")
		return
	}

	results, err := h.svc.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, results)
}

// CreateConcept 创建概念
// @Summary      创建概念
// @Description  创建 L4 概念，标识已存在时返回 409
// @Tags         概念
// @Accept       json
// @Produce      json
// @Param        request  body      concept.CreatePayload  true  "概念"
// @Success      201      {object}  SuccessResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /concepts [post]
func (h *ConceptHandler) CreateConcept(c *gin.Context) {
	var req concept.CreatePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	created, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, created)
}

// GetConcept 获取概念详情
// @Summary      获取概念详情
// @Description  返回概念、祖先链、继承字段分组和被遮蔽的属性
// @Tags         概念
// @Produce      json
// @Param        id   path      string  true  "概念ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /concepts/{id} [get]
func (h *ConceptHandler) GetConcept(c *gin.Context) {
	detail, err := h.svc.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, detail)
}

// UpdateConcept 更新概念
// PUT /api/v1/concepts/:id
func (h *ConceptHandler) UpdateConcept(c *gin.Context) {
	var req concept.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, updated)
}

// DeleteConcept 删除概念
// DELETE /api/v1/concepts/:id
func (h *ConceptHandler) DeleteConcept(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}

// GetTree 分类树
// GET /api/v1/taxonomy/tree
func (h *ConceptHandler) GetTree(c *gin.Context) {
	tree, err := h.svc.Tree(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, tree)
}

// GetStats 分层统计
// GET /api/v1/taxonomy/stats
func (h *ConceptHandler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, stats)
}

// GetOverview 分类树和统计
// GET /api/v1/taxonomy
func (h *ConceptHandler) GetOverview(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, overview)
}
