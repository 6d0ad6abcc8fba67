package wizard

import (
	"encoding/json"
	"fmt"

	"github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/service/generator"
)

// Action 向导动作，只能由本包定义
type Action interface {
	isAction()
}

// 用户编辑与导航

type Reset struct{}
type SetLabel struct{ Label string }
type SetID struct{ ID string }
type SetDescription struct{ Description string }
type SetSynonyms struct{ Synonyms []string }
type SetMixins struct{ Mixins []string }
type SetInherits struct{ ID string }
type SetProperties struct{ Properties []model.Property }
type SetRelationships struct{ Relationships []model.Relationship }
type SetExtractionTemplate struct {
	ClassificationHints []string
	FilePatterns        []string
}
type Next struct{}
type Back struct{}
type GoTo struct{ Stage Stage }
type ApplyParentTemplate struct{}

// 异步请求与结果，Seq 用于丢弃过期结果

type ParentRequested struct{ ID string }
type ParentLoaded struct {
	Seq         uint64
	Chain       []*model.Concept
	Unavailable bool
}

type BlueprintSearchRequested struct{ Query string }
type BlueprintResults struct {
	Seq     uint64
	Results []model.ConceptSummary
	Err     string
}

type BlueprintRequested struct{ ID string }
type BlueprintLoaded struct {
	Seq     uint64
	Concept *model.Concept
	Err     string
}

type GenerationRequested struct{}
type GenerationCompleted struct {
	Seq        uint64
	Suggestion *generator.Suggestion
	Err        string
}

type SubmitRequested struct{}
type SubmitSucceeded struct{ ID string }
type SubmitConflict struct {
	ID      string
	Message string
}
type SubmitFailed struct{ Message string }

type ReplaceRequested struct{}
type ReplaceSucceeded struct{ ID string }

// ReplaceFailed Deleted 表示旧概念已删除但新概念创建失败
type ReplaceFailed struct {
	Deleted bool
	Message string
}

func (Reset) isAction()                    {}
func (SetLabel) isAction()                 {}
func (SetID) isAction()                    {}
func (SetDescription) isAction()           {}
func (SetSynonyms) isAction()              {}
func (SetMixins) isAction()                {}
func (SetInherits) isAction()              {}
func (SetProperties) isAction()            {}
func (SetRelationships) isAction()         {}
func (SetExtractionTemplate) isAction()    {}
func (Next) isAction()                     {}
func (Back) isAction()                     {}
func (GoTo) isAction()                     {}
func (ApplyParentTemplate) isAction()      {}
func (ParentRequested) isAction()          {}
func (ParentLoaded) isAction()             {}
func (BlueprintSearchRequested) isAction() {}
func (BlueprintResults) isAction()         {}
func (BlueprintRequested) isAction()       {}
func (BlueprintLoaded) isAction()          {}
func (GenerationRequested) isAction()      {}
func (GenerationCompleted) isAction()      {}
func (SubmitRequested) isAction()          {}
func (SubmitSucceeded) isAction()          {}
func (SubmitConflict) isAction()           {}
func (SubmitFailed) isAction()             {}
func (ReplaceRequested) isAction()         {}
func (ReplaceSucceeded) isAction()         {}
func (ReplaceFailed) isAction()            {}

// ActionRequest 客户端提交的动作
// 只接受编辑和导航类动作，异步结果由服务端产生
type ActionRequest struct {
	Type                string               `json:"type" binding:"required"`
	Value               string               `json:"value"`
	Values              []string             `json:"values"`
	Stage               Stage                `json:"stage"`
	Properties          []model.Property     `json:"properties"`
	Relationships       []model.Relationship `json:"relationships"`
	ClassificationHints []string             `json:"classification_hints"`
	FilePatterns        []string             `json:"file_patterns"`
}

// ToAction 转换为向导动作
func (r ActionRequest) ToAction() (Action, error) {
	switch r.Type {
	case "reset":
		return Reset{}, nil
	case "set_label":
		return SetLabel{Label: r.Value}, nil
	case "set_id":
		return SetID{ID: r.Value}, nil
	case "set_description":
		return SetDescription{Description: r.Value}, nil
	case "set_synonyms":
		return SetSynonyms{Synonyms: r.Values}, nil
	case "set_mixins":
		return SetMixins{Mixins: r.Values}, nil
	case "set_properties":
		return SetProperties{Properties: r.Properties}, nil
	case "set_relationships":
		return SetRelationships{Relationships: r.Relationships}, nil
	case "set_extraction_template":
		return SetExtractionTemplate{ClassificationHints: r.ClassificationHints, FilePatterns: r.FilePatterns}, nil
	case "next":
		return Next{}, nil
	case "back":
		return Back{}, nil
	case "go_to":
		if !r.Stage.IsValid() {
			return nil, fmt.Errorf("unknown stage %q", r.Stage)
		}
		return GoTo{Stage: r.Stage}, nil
	case "apply_parent_template":
		return ApplyParentTemplate{}, nil
	default:
		return nil, fmt.Errorf("unsupported action type %q", r.Type)
	}
}

// DecodeAction 解析 JSON 形式的动作
func DecodeAction(data []byte) (Action, error) {
	var r ActionRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}
	return r.ToAction()
}
