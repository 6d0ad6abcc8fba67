package wizard

import (
	"fmt"
	"strings"

	"github.com/ashwinyue/next-concept/internal/service/concept"
)

// Transition 纯函数：根据动作计算下一状态，不修改入参
// 过期的异步结果原样返回当前状态
func Transition(s State, a Action) State {
	if _, ok := a.(Reset); ok {
		return NewState()
	}
	// 创建成功后只接受 Reset
	if s.Done() {
		return s
	}

	switch a := a.(type) {
	case SetLabel:
		s.Draft.Label = a.Label
		if !s.IDEdited {
			s.Draft.ID = concept.DeriveID(a.Label)
		}
		return edited(s)
	case SetID:
		s.IDEdited = true
		s.Draft.ID = concept.DeriveID(a.ID)
		return edited(s)
	case SetDescription:
		s.Draft.Description = a.Description
		return edited(s)
	case SetSynonyms:
		s.Draft.Synonyms = concept.Dedupe(a.Synonyms)
		return edited(s)
	case SetMixins:
		s.Draft.Mixins = concept.Dedupe(a.Mixins)
		return edited(s)
	case SetProperties:
		s.Draft.Properties = concept.NormalizeProperties(a.Properties)
		return edited(s)
	case SetRelationships:
		s.Draft.Relationships = concept.NormalizeRelationships(a.Relationships)
		return edited(s)
	case SetExtractionTemplate:
		s.Draft.ClassificationHints = concept.Dedupe(a.ClassificationHints)
		s.Draft.FilePatterns = concept.Dedupe(a.FilePatterns)
		return edited(s)
	case SetInherits:
		id := strings.TrimSpace(a.ID)
		if id != s.Draft.Inherits {
			s.Draft.Inherits = id
			// 父概念变化，正在进行的加载作废
			s.Parent = ParentContext{Seq: s.Parent.Seq + 1}
		}
		return edited(s)

	case Next:
		return next(s)
	case Back:
		s.Validation = nil
		s.Stage = s.Stage.prev()
		return s
	case GoTo:
		// 只能跳到已到达过的步骤
		if !a.Stage.IsValid() || a.Stage.Index() > s.MaxStage.Index() {
			return s
		}
		s.Validation = nil
		s.Stage = a.Stage
		return s

	case ParentRequested:
		s.Parent = ParentContext{
			Seq:     s.Parent.Seq + 1,
			Loading: strings.TrimSpace(a.ID) != "",
			ID:      strings.TrimSpace(a.ID),
		}
		return s
	case ParentLoaded:
		if a.Seq != s.Parent.Seq {
			return s
		}
		s.Parent.Loading = false
		s.Parent.Chain = a.Chain
		s.Parent.Unavailable = a.Unavailable
		return s
	case ApplyParentTemplate:
		parent := s.Parent.Parent()
		if parent == nil {
			s.Notice = "Select a parent concept first."
			return s
		}
		res := concept.ApplyParentTemplate(s.Draft, parent.ExtractionTemplate, parent.Label)
		s.Draft = res.Draft
		s.Notice = res.Summary
		return s

	case BlueprintSearchRequested:
		s.Blueprint.Query = a.Query
		s.Blueprint.SearchSeq++
		s.Blueprint.Searching = strings.TrimSpace(a.Query) != ""
		if !s.Blueprint.Searching {
			s.Blueprint.Results = nil
		}
		return s
	case BlueprintResults:
		if a.Seq != s.Blueprint.SearchSeq {
			return s
		}
		s.Blueprint.Searching = false
		s.Blueprint.Results = a.Results
		if a.Err != "" {
			s.Blueprint.Results = nil
		}
		return s
	case BlueprintRequested:
		s.Blueprint.LoadSeq++
		s.Blueprint.Loading = true
		s.Blueprint.LoadingID = strings.TrimSpace(a.ID)
		return s
	case BlueprintLoaded:
		if a.Seq != s.Blueprint.LoadSeq {
			return s
		}
		s.Blueprint.Loading = false
		s.Blueprint.LoadingID = ""
		if a.Err != "" || a.Concept == nil {
			s.Error = fmt.Sprintf("Could not load blueprint concept: %s", orDefault(a.Err, "not found"))
			return s
		}
		res := concept.ApplyBlueprintConcept(s.Draft, a.Concept)
		s.Draft = res.Draft
		s.Notice = res.Summary
		s.Error = ""
		return s

	case GenerationRequested:
		s.Generation.Seq++
		s.Generation.Running = true
		s.Error = ""
		return s
	case GenerationCompleted:
		if a.Seq != s.Generation.Seq {
			return s
		}
		s.Generation.Running = false
		if a.Err != "" || a.Suggestion == nil {
			s.Error = fmt.Sprintf("Draft generation failed: %s", orDefault(a.Err, "empty response"))
			return s
		}
		res := concept.ApplyGeneratedDraft(s.Draft, a.Suggestion.Fragment)
		s.Draft = res.Draft
		s.Notice = res.Summary
		s.Generation.Rationale = a.Suggestion.Rationale
		s.Generation.Warnings = a.Suggestion.Warnings
		s.Generation.References = a.Suggestion.References
		s.Stage = StageDetails
		s.MaxStage = laterStage(s.MaxStage, StageDetails)
		s.Validation = nil
		return s

	case SubmitRequested:
		if s.Submitting {
			return s
		}
		if s.Stage != StageReview {
			// 未到复核阶段只报告首个缺失项，不进入提交
			s.Validation = ValidateBrief(s.Draft)
			return s
		}
		return beginPersist(s)
	case SubmitSucceeded:
		if !s.Submitting {
			return s
		}
		s.Submitting = false
		s.Conflict = nil
		s.Error = ""
		s.Outcome = &Outcome{CreatedID: a.ID}
		s.Notice = fmt.Sprintf("Created concept %q.", a.ID)
		return s
	case SubmitConflict:
		if !s.Submitting {
			return s
		}
		s.Submitting = false
		s.Conflict = &Conflict{ID: a.ID, Message: a.Message}
		s.Error = a.Message
		return s
	case SubmitFailed:
		if !s.Submitting {
			return s
		}
		s.Submitting = false
		s.Error = a.Message
		return s

	case ReplaceRequested:
		if s.Stage != StageReview || s.Submitting || s.Conflict == nil {
			return s
		}
		return beginPersist(s)
	case ReplaceSucceeded:
		if !s.Submitting {
			return s
		}
		s.Submitting = false
		s.Conflict = nil
		s.Error = ""
		s.Outcome = &Outcome{CreatedID: a.ID, Replaced: true}
		s.Notice = fmt.Sprintf("Replaced concept %q.", a.ID)
		return s
	case ReplaceFailed:
		if !s.Submitting {
			return s
		}
		s.Submitting = false
		if a.Deleted {
			// 删除已生效，冲突不复存在，再次提交即为普通创建
			id := s.Draft.ID
			if s.Conflict != nil {
				id = s.Conflict.ID
			}
			s.Conflict = nil
			s.Error = fmt.Sprintf("The existing concept %q was deleted, but creating the replacement failed: %s. The previous concept is no longer available; submit again to create it.", id, a.Message)
			return s
		}
		s.Error = fmt.Sprintf("Could not delete the existing concept: %s", a.Message)
		return s
	}
	return s
}

// edited 草稿变更后清理与旧内容相关的提示
func edited(s State) State {
	s.Validation = nil
	if s.Conflict != nil && s.Conflict.ID != s.Draft.ID {
		s.Conflict = nil
		s.Error = ""
	}
	return s
}

func next(s State) State {
	if s.Stage == StageBrief {
		if verr := ValidateBrief(s.Draft); verr != nil {
			s.Validation = verr
			return s
		}
	}
	s.Validation = nil
	s.Stage = s.Stage.next()
	s.MaxStage = laterStage(s.MaxStage, s.Stage)
	return s
}

// beginPersist 提交前重新校验 Brief，失败时退回 Brief 且不发起持久化
func beginPersist(s State) State {
	if verr := ValidateBrief(s.Draft); verr != nil {
		s.Stage = StageBrief
		s.Validation = verr
		return s
	}
	s.Validation = nil
	s.Error = ""
	s.Submitting = true
	return s
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
