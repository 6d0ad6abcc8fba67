// Package wizard 概念创建向导：Brief -> Details -> Review 三步状态机
// 状态不可变，所有变更通过 Transition(State, Action) 完成
package wizard

import (
	"strings"

	"github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/service/concept"
)

// Stage 向导步骤
type Stage string

const (
	StageBrief   Stage = "brief"
	StageDetails Stage = "details"
	StageReview  Stage = "review"
)

var stageOrder = []Stage{StageBrief, StageDetails, StageReview}

// Index 步骤序号，未知步骤返回 -1
func (s Stage) Index() int {
	for i, v := range stageOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// IsValid 是否为已知步骤
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

func (s Stage) next() Stage {
	if i := s.Index(); i >= 0 && i < len(stageOrder)-1 {
		return stageOrder[i+1]
	}
	return s
}

func (s Stage) prev() Stage {
	if i := s.Index(); i > 0 {
		return stageOrder[i-1]
	}
	return s
}

func laterStage(a, b Stage) Stage {
	if b.Index() > a.Index() {
		return b
	}
	return a
}

// ParentContext 已选父概念的上下文
type ParentContext struct {
	Seq         uint64           `json:"seq"`
	Loading     bool             `json:"loading"`
	ID          string           `json:"id,omitempty"`
	Chain       []*model.Concept `json:"chain,omitempty"` // 父概念在前，根在后
	Unavailable bool             `json:"unavailable"`
}

// Parent 已加载的父概念
func (p ParentContext) Parent() *model.Concept {
	if len(p.Chain) == 0 {
		return nil
	}
	return p.Chain[0]
}

// BlueprintContext 蓝本搜索和加载状态
type BlueprintContext struct {
	Query     string                 `json:"query"`
	SearchSeq uint64                 `json:"search_seq"`
	Searching bool                   `json:"searching"`
	Results   []model.ConceptSummary `json:"results"`
	LoadSeq   uint64                 `json:"load_seq"`
	Loading   bool                   `json:"loading"`
	LoadingID string                 `json:"loading_id,omitempty"`
}

// GenerationContext 草稿生成状态
type GenerationContext struct {
	Seq        uint64   `json:"seq"`
	Running    bool     `json:"running"`
	Rationale  string   `json:"rationale,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	References []string `json:"references,omitempty"`
}

// Conflict 创建时标识冲突
type Conflict struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Outcome 向导完成结果
type Outcome struct {
	CreatedID string `json:"created_id"`
	Replaced  bool   `json:"replaced"`
}

// State 向导状态
type State struct {
	Stage    Stage         `json:"stage"`
	MaxStage Stage         `json:"max_stage"`
	Draft    concept.Draft `json:"draft"`
	// IDEdited 标识被手动修改后不再随标签自动生成
	IDEdited bool `json:"id_edited"`

	Validation *concept.ValidationError `json:"validation,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Notice     string                   `json:"notice,omitempty"`
	Conflict   *Conflict                `json:"conflict,omitempty"`
	Submitting bool                     `json:"submitting"`
	Outcome    *Outcome                 `json:"outcome,omitempty"`

	Parent     ParentContext     `json:"parent"`
	Blueprint  BlueprintContext  `json:"blueprint"`
	Generation GenerationContext `json:"generation"`
}

// NewState 空白向导
func NewState() State {
	return State{Stage: StageBrief, MaxStage: StageBrief}
}

// Done 已成功创建
func (s State) Done() bool {
	return s.Outcome != nil
}

// InheritanceView 草稿相对于已选父链的继承视图
type InheritanceView struct {
	Groups   []concept.InheritedPropertyGroup `json:"groups"`
	Shadowed []string                         `json:"shadowed"`
}

// Inheritance 计算继承分组和被遮蔽的属性名
func (s State) Inheritance() InheritanceView {
	draft := &model.Concept{
		ID:         s.Draft.ID,
		Properties: s.Draft.Properties,
	}
	return InheritanceView{
		Groups:   concept.Resolve(draft, s.Parent.Chain),
		Shadowed: concept.ShadowedOwnPropertyNames(draft, s.Parent.Chain),
	}
}

// ValidateBrief 依次检查标签、标识、父概念
func ValidateBrief(d concept.Draft) *concept.ValidationError {
	switch {
	case strings.TrimSpace(d.Label) == "":
		return concept.NewValidationError("label", "Label is required.")
	case strings.TrimSpace(d.ID) == "":
		return concept.NewValidationError("id", "Identifier is required.")
	case strings.TrimSpace(d.Inherits) == "":
		return concept.NewValidationError("inherits", "Select a parent concept.")
	}
	return nil
}
