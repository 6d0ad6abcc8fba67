package concept

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ashwinyue/next-concept/internal/model"
)

// Draft 向导中尚未持久化的概念草稿
// 所有操作返回新的 Draft，不修改入参
type Draft struct {
	ID                  string               `json:"id"`
	Label               string               `json:"label"`
	Inherits            string               `json:"inherits"`
	Description         string               `json:"description"`
	Synonyms            []string             `json:"synonyms"`
	Mixins              []string             `json:"mixins"`
	Properties          []model.Property     `json:"properties"`
	Relationships       []model.Relationship `json:"relationships"`
	ClassificationHints []string             `json:"classification_hints"`
	FilePatterns        []string             `json:"file_patterns"`
}

// Clone 深拷贝
func (d Draft) Clone() Draft {
	d.Synonyms = slices.Clone(d.Synonyms)
	d.Mixins = slices.Clone(d.Mixins)
	d.Properties = slices.Clone(d.Properties)
	d.Relationships = slices.Clone(d.Relationships)
	d.ClassificationHints = slices.Clone(d.ClassificationHints)
	d.FilePatterns = slices.Clone(d.FilePatterns)
	return d
}

// ExtractionTemplate 提示和模式都为空时返回 nil
func (d Draft) ExtractionTemplate() *model.ExtractionTemplate {
	hints := Dedupe(d.ClassificationHints)
	patterns := Dedupe(d.FilePatterns)
	if len(hints) == 0 && len(patterns) == 0 {
		return nil
	}
	return &model.ExtractionTemplate{ClassificationHints: hints, FilePatterns: patterns}
}

// CreatePayload 创建概念的请求体
type CreatePayload struct {
	ID                 string                    `json:"id"`
	Label              string                    `json:"label"`
	Inherits           string                    `json:"inherits"`
	Description        string                    `json:"description"`
	Abstract           bool                      `json:"abstract"`
	Synonyms           []string                  `json:"synonyms"`
	Mixins             []string                  `json:"mixins"`
	Properties         []model.Property          `json:"properties"`
	Relationships      []model.Relationship      `json:"relationships"`
	ExtractionTemplate *model.ExtractionTemplate `json:"extraction_template,omitempty"`
}

// Payload 序列化草稿
func (d Draft) Payload() CreatePayload {
	return CreatePayload{
		ID:                 strings.TrimSpace(d.ID),
		Label:              strings.TrimSpace(d.Label),
		Inherits:           strings.TrimSpace(d.Inherits),
		Description:        strings.TrimSpace(d.Description),
		Abstract:           false,
		Synonyms:           Dedupe(d.Synonyms),
		Mixins:             Dedupe(d.Mixins),
		Properties:         NormalizeProperties(d.Properties),
		Relationships:      NormalizeRelationships(d.Relationships),
		ExtractionTemplate: d.ExtractionTemplate(),
	}
}

// Fragment 导入来源的字段片段
type Fragment struct {
	Label              string                    `json:"label"`
	ID                 string                    `json:"id"`
	Description        string                    `json:"description"`
	Inherits           string                    `json:"inherits"`
	Synonyms           []string                  `json:"synonyms"`
	Properties         []model.Property          `json:"properties"`
	Relationships      []model.Relationship      `json:"relationships"`
	ExtractionTemplate *model.ExtractionTemplate `json:"extraction_template,omitempty"`
}

// FragmentFromConcept 以已有概念作为片段
func FragmentFromConcept(c *model.Concept) Fragment {
	return Fragment{
		Label:              c.Label,
		ID:                 c.ID,
		Description:        c.Description,
		Inherits:           c.Inherits,
		Synonyms:           c.Synonyms,
		Properties:         c.Properties,
		Relationships:      c.Relationships,
		ExtractionTemplate: c.ExtractionTemplate,
	}
}

// ScalarPolicy 标量字段覆盖策略
type ScalarPolicy int

const (
	// NeverOverwrite 从不覆盖标量字段
	NeverOverwrite ScalarPolicy = iota
	// OverwriteIfEmpty 仅在草稿字段为空时写入
	OverwriteIfEmpty
)

// MergeCounts 每类字段新增的条目数
type MergeCounts struct {
	Synonyms      int `json:"synonyms"`
	Hints         int `json:"hints"`
	Patterns      int `json:"patterns"`
	Properties    int `json:"properties"`
	Relationships int `json:"relationships"`
}

// ApplyResult 导入结果
type ApplyResult struct {
	Draft   Draft       `json:"draft"`
	Counts  MergeCounts `json:"counts"`
	Summary string      `json:"summary"`
}

// ApplyParentTemplate 导入父概念的抽取模板
func ApplyParentTemplate(d Draft, template *model.ExtractionTemplate, sourceLabel string) ApplyResult {
	if template.IsEmpty() {
		return ApplyResult{
			Draft:   d.Clone(),
			Summary: fmt.Sprintf("%s has no extraction template to import.", displayName(sourceLabel, "The parent concept")),
		}
	}
	next, counts := compose(d, Fragment{ExtractionTemplate: template}, NeverOverwrite)
	return ApplyResult{
		Draft:   next,
		Counts:  counts,
		Summary: fmt.Sprintf("Imported %s and %s from %s.", plural(counts.Hints, "hint"), plural(counts.Patterns, "pattern"), displayName(sourceLabel, "the parent")),
	}
}

// ApplyBlueprintConcept 从蓝本概念导入同义词、模板、属性和关系，不改动标量字段
func ApplyBlueprintConcept(d Draft, blueprint *model.Concept) ApplyResult {
	next, counts := compose(d, FragmentFromConcept(blueprint), NeverOverwrite)
	return ApplyResult{
		Draft:   next,
		Counts:  counts,
		Summary: summarize("Merged from "+displayName(blueprint.Label, blueprint.ID), counts),
	}
}

// ApplyGeneratedDraft 导入生成的草稿
// 标签、标识、描述、父概念仅在草稿为空时写入，标识仍为空时由标签推导
func ApplyGeneratedDraft(d Draft, suggestion Fragment) ApplyResult {
	next, counts := compose(d, suggestion, OverwriteIfEmpty)
	return ApplyResult{
		Draft:   next,
		Counts:  counts,
		Summary: summarize("Applied generated draft", counts),
	}
}

// compose 三种导入共用的合并逻辑，差异仅在标量覆盖策略
func compose(d Draft, f Fragment, policy ScalarPolicy) (Draft, MergeCounts) {
	next := d.Clone()

	if policy == OverwriteIfEmpty {
		next.Label = fillIfEmpty(next.Label, f.Label)
		next.ID = fillIfEmpty(next.ID, DeriveID(f.ID))
		next.Description = fillIfEmpty(next.Description, f.Description)
		next.Inherits = fillIfEmpty(next.Inherits, f.Inherits)
		if strings.TrimSpace(next.ID) == "" {
			next.ID = DeriveID(next.Label)
		}
	}

	next.Synonyms = MergeTags(next.Synonyms, f.Synonyms)
	if f.ExtractionTemplate != nil {
		next.ClassificationHints = MergeTags(next.ClassificationHints, f.ExtractionTemplate.ClassificationHints)
		next.FilePatterns = MergeTags(next.FilePatterns, f.ExtractionTemplate.FilePatterns)
	} else {
		next.ClassificationHints = Dedupe(next.ClassificationHints)
		next.FilePatterns = Dedupe(next.FilePatterns)
	}
	next.Properties = MergeProperties(next.Properties, f.Properties)
	next.Relationships = MergeRelationships(next.Relationships, f.Relationships)

	counts := MergeCounts{
		Synonyms:      added(len(Dedupe(d.Synonyms)), len(next.Synonyms)),
		Hints:         added(len(Dedupe(d.ClassificationHints)), len(next.ClassificationHints)),
		Patterns:      added(len(Dedupe(d.FilePatterns)), len(next.FilePatterns)),
		Properties:    added(len(NormalizeProperties(d.Properties)), len(next.Properties)),
		Relationships: added(len(NormalizeRelationships(d.Relationships)), len(next.Relationships)),
	}
	return next, counts
}

func fillIfEmpty(current, incoming string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return strings.TrimSpace(incoming)
}

func added(before, after int) int {
	if after < before {
		return 0
	}
	return after - before
}

func summarize(prefix string, c MergeCounts) string {
	parts := []string{
		plural(c.Properties, "property"),
		plural(c.Relationships, "relationship"),
		plural(c.Hints, "hint"),
		plural(c.Patterns, "pattern"),
	}
	if c.Synonyms > 0 {
		parts = append(parts, plural(c.Synonyms, "synonym"))
	}
	return prefix + ": " + strings.Join(parts, ", ") + "."
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func displayName(label, fallback string) string {
	if s := strings.TrimSpace(label); s != "" {
		return s
	}
	return fallback
}
