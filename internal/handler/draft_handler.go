package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-concept/internal/service/generator"
)

// DraftHandler 草稿生成处理器
type DraftHandler struct {
	gen *generator.Generator
}

// NewDraftHandler 创建草稿生成处理器
func NewDraftHandler(gen *generator.Generator) *DraftHandler {
	return &DraftHandler{gen: gen}
}

// SuggestDraft 生成概念草稿
// @Summary      生成概念草稿
// @Description  根据一句话描述生成草稿，不写入分类体系
// @Tags         草稿
// @Accept       json
// @Produce      json
// @Param        request  body      generator.Brief  true  "描述"
// @Success      200      {object}  SuccessResponse
// @Failure      503      {object}  ErrorResponse    "未配置模型"
// @Router       /drafts/suggest [post]
func (h *DraftHandler) SuggestDraft(c *gin.Context) {
	var req generator.Brief
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	suggestion, err := h.gen.Suggest(c.Request.Context(), req)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, suggestion)
}
