package handler

import (
	"github.com/ashwinyue/next-concept/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Concept *ConceptHandler
	Draft   *DraftHandler
	Wizard  *WizardHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, db Pinger) *Handlers {
	return &Handlers{
		Concept: NewConceptHandler(svc.Concept),
		Draft:   NewDraftHandler(svc.Generator),
		Wizard:  NewWizardHandler(svc.Wizard),
		System:  NewSystemHandler(db, svc.Config.App.Version),
	}
}
