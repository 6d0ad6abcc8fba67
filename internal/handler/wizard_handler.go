package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-concept/internal/service/generator"
	"github.com/ashwinyue/next-concept/internal/service/wizard"
)

// WizardHandler 概念向导处理器
type WizardHandler struct {
	mgr *wizard.Manager
}

// NewWizardHandler 创建向导处理器
func NewWizardHandler(mgr *wizard.Manager) *WizardHandler {
	return &WizardHandler{mgr: mgr}
}

// WizardView 向导响应
type WizardView struct {
	ID          string                 `json:"id"`
	State       wizard.State           `json:"state"`
	Inheritance wizard.InheritanceView `json:"inheritance"`
}

func newWizardView(id string, st wizard.State) WizardView {
	return WizardView{ID: id, State: st, Inheritance: st.Inheritance()}
}

// SelectParentRequest 选择父概念
type SelectParentRequest struct {
	ID string `json:"id"`
}

// BlueprintQueryRequest 蓝本搜索
type BlueprintQueryRequest struct {
	Query string `json:"query"`
}

// ApplyBlueprintRequest 导入蓝本
type ApplyBlueprintRequest struct {
	ID string `json:"id" binding:"required"`
}

// session 获取路径中的会话，失败时已写入响应
func (h *WizardHandler) session(c *gin.Context) (*wizard.Session, bool) {
	sess, err := h.mgr.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return nil, false
	}
	return sess, true
}

// OpenWizard 创建向导会话
// @Summary      创建向导会话
// @Tags         向导
// @Produce      json
// @Success      201  {object}  SuccessResponse
// @Router       /wizards [post]
func (h *WizardHandler) OpenWizard(c *gin.Context) {
	sess, err := h.mgr.Open(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, newWizardView(sess.ID(), sess.State()))
}

// GetWizard 获取向导状态
// GET /api/v1/wizards/:id
func (h *WizardHandler) GetWizard(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, newWizardView(sess.ID(), sess.State()))
}

// CloseWizard 关闭向导会话
// DELETE /api/v1/wizards/:id
func (h *WizardHandler) CloseWizard(c *gin.Context) {
	if err := h.mgr.Close(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}

// Dispatch 提交编辑或导航动作
// @Summary      提交向导动作
// @Description  type 取值 reset、set_label、set_id、set_description、set_synonyms、set_mixins、set_properties、set_relationships、set_extraction_template、next、back、go_to、apply_parent_template
// @Tags         向导
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "会话ID"
// @Param        request  body      wizard.ActionRequest  true  "动作"
// @Success      200      {object}  SuccessResponse
// @Router       /wizards/{id}/actions [post]
func (h *WizardHandler) Dispatch(c *gin.Context) {
	var req wizard.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	action, err := req.ToAction()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	sess, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, newWizardView(sess.ID(), sess.Dispatch(c.Request.Context(), action)))
}

// SelectParent 选择父概念
// POST /api/v1/wizards/:id/parent
func (h *WizardHandler) SelectParent(c *gin.Context) {
	var req SelectParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, newWizardView(sess.ID(), sess.SelectParent(c.Request.Context(), req.ID)))
}

// ApplyParentTemplate 导入父概念抽取模板
// POST /api/v1/wizards/:id/parent-template
func (h *WizardHandler) ApplyParentTemplate(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, newWizardView(sess.ID(), sess.Dispatch(c.Request.Context(), wizard.ApplyParentTemplate{})))
}

// QueueBlueprintSearch 防抖搜索蓝本，结果通过 GET 获取
// POST /api/v1/wizards/:id/blueprint-query
func (h *WizardHandler) QueueBlueprintSearch(c *gin.Context) {
	var req BlueprintQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	Accepted(c, newWizardView(sess.ID(), sess.QueueBlueprintSearch(c.Request.Context(), req.Query)))
}

// SearchBlueprints 立即搜索蓝本
// POST /api/v1/wizards/:id/blueprint-search
func (h *WizardHandler) SearchBlueprints(c *gin.Context) {
	var req BlueprintQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, newWizardView(sess.ID(), sess.SearchBlueprints(c.Request.Context(), req.Query)))
}

// ApplyBlueprint 合并蓝本概念
// POST /api/v1/wizards/:id/blueprint
func (h *WizardHandler) ApplyBlueprint(c *gin.Context) {
	var req ApplyBlueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, newWizardView(sess.ID(), sess.ApplyBlueprint(c.Request.Context(), req.ID)))
}

// Generate 生成草稿并合并
// POST /api/v1/wizards/:id/generate
func (h *WizardHandler) Generate(c *gin.Context) {
	var req generator.Brief
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	st, err := sess.Generate(c.Request.Context(), req)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, newWizardView(sess.ID(), st))
}

// Submit 提交创建
// @Summary      提交向导
// @Description  创建成功返回 201，冲突、校验失败等结果体现在状态中并返回 200
// @Tags         向导
// @Produce      json
// @Param        id   path      string  true  "会话ID"
// @Success      200  {object}  SuccessResponse
// @Success      201  {object}  SuccessResponse
// @Router       /wizards/{id}/submit [post]
func (h *WizardHandler) Submit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	respondOutcome(c, sess.ID(), sess.Submit(c.Request.Context()))
}

// Replace 删除冲突概念后重新创建
// POST /api/v1/wizards/:id/replace
func (h *WizardHandler) Replace(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	respondOutcome(c, sess.ID(), sess.Replace(c.Request.Context()))
}

func respondOutcome(c *gin.Context, id string, st wizard.State) {
	if st.Done() {
		Created(c, newWizardView(id, st))
		return
	}
	Success(c, newWizardView(id, st))
}
