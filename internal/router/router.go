package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-concept/internal/handler"
	"github.com/ashwinyue/next-concept/internal/logger"
	"github.com/ashwinyue/next-concept/internal/middleware"
)

// SetupRouter 设置路由
// validator 为 nil 时写操作不做认证
func SetupRouter(h *handler.Handlers, validator middleware.TokenValidator, log *logger.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RequestID())
	r.Use(middleware.RecoveryMiddleware(log))
	r.Use(middleware.LoggingMiddleware(log))

	// 健康检查
	r.GET("/health", h.System.Health)

	operator := middleware.RequireOperator(validator)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Concept 概念
		concepts := v1.Group("/concepts")
		{
			concepts.GET("", h.Concept.SearchConcepts)
			concepts.POST("", operator, h.Concept.CreateConcept)
			concepts.GET("/:id", h.Concept.GetConcept)
			concepts.PUT("/:id", operator, h.Concept.UpdateConcept)
			concepts.DELETE("/:id", operator, h.Concept.DeleteConcept)
		}

		// Taxonomy 分类树
		taxonomy := v1.Group("/taxonomy")
		{
			taxonomy.GET("", h.Concept.GetOverview)
			taxonomy.GET("/tree", h.Concept.GetTree)
			taxonomy.GET("/stats", h.Concept.GetStats)
		}

		// Draft 草稿生成
		v1.POST("/drafts/suggest", h.Draft.SuggestDraft)

		// Wizard 概念向导
		wizards := v1.Group("/wizards")
		{
			wizards.POST("", h.Wizard.OpenWizard)
			wizards.GET("/:id", h.Wizard.GetWizard)
			wizards.DELETE("/:id", h.Wizard.CloseWizard)
			wizards.POST("/:id/actions", h.Wizard.Dispatch)
			wizards.POST("/:id/parent", h.Wizard.SelectParent)
			wizards.POST("/:id/parent-template", h.Wizard.ApplyParentTemplate)
			wizards.POST("/:id/blueprint-query", h.Wizard.QueueBlueprintSearch)
			wizards.POST("/:id/blueprint-search", h.Wizard.SearchBlueprints)
			wizards.POST("/:id/blueprint", h.Wizard.ApplyBlueprint)
			wizards.POST("/:id/generate", h.Wizard.Generate)
			wizards.POST("/:id/submit", operator, h.Wizard.Submit)
			wizards.POST("/:id/replace", operator, h.Wizard.Replace)
		}
	}

	return r
}
