package concept

import (
	"strings"

	"github.com/ashwinyue/next-concept/internal/model"
)

// MaxInheritanceDepth 祖先链最大深度
const MaxInheritanceDepth = 64

// InheritedPropertyGroup 某个祖先贡献的字段分组
type InheritedPropertyGroup struct {
	SourceID           string                    `json:"source_id"`
	SourceLabel        string                    `json:"source_label"`
	SourceLayer        model.Layer               `json:"source_layer"`
	Properties         []model.Property          `json:"properties"`
	Relationships      []model.Relationship      `json:"relationships"`
	ExtractionTemplate *model.ExtractionTemplate `json:"extraction_template,omitempty"`
}

// Resolve 按祖先链（由近到远）生成继承字段分组
// 没有任何属性、关系或模板的祖先不出现在结果中
func Resolve(c *model.Concept, ancestors []*model.Concept) []InheritedPropertyGroup {
	groups := make([]InheritedPropertyGroup, 0, len(ancestors))
	for _, a := range walkChain(c, ancestors) {
		if len(a.Properties) == 0 && len(a.Relationships) == 0 && a.ExtractionTemplate.IsEmpty() {
			continue
		}
		g := InheritedPropertyGroup{
			SourceID:      a.ID,
			SourceLabel:   a.Label,
			SourceLayer:   a.Layer,
			Properties:    append([]model.Property(nil), a.Properties...),
			Relationships: append([]model.Relationship(nil), a.Relationships...),
		}
		if !a.ExtractionTemplate.IsEmpty() {
			g.ExtractionTemplate = &model.ExtractionTemplate{
				ClassificationHints: append([]string(nil), a.ExtractionTemplate.ClassificationHints...),
				FilePatterns:        append([]string(nil), a.ExtractionTemplate.FilePatterns...),
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// ShadowedOwnPropertyNames 返回与任一祖先属性同名的自有属性名（小写）
// 结果按自有属性声明顺序排列
func ShadowedOwnPropertyNames(c *model.Concept, ancestors []*model.Concept) []string {
	inherited := make(map[string]struct{})
	for _, a := range walkChain(c, ancestors) {
		for _, p := range a.Properties {
			if name := propertyKey(p); name != "" {
				inherited[name] = struct{}{}
			}
		}
	}

	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, p := range c.Properties {
		name := propertyKey(p)
		if name == "" {
			continue
		}
		if _, ok := inherited[name]; !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// EffectiveProperties 合并自有属性与继承属性，自有声明覆盖继承的同名属性，近祖先覆盖远祖先
func EffectiveProperties(c *model.Concept, ancestors []*model.Concept) []model.Property {
	out := append([]model.Property(nil), c.Properties...)
	for _, a := range walkChain(c, ancestors) {
		out = MergeProperties(out, a.Properties)
	}
	return out
}

// walkChain 过滤空项、重复项和自身，并截断到最大深度
func walkChain(c *model.Concept, ancestors []*model.Concept) []*model.Concept {
	visited := make(map[string]struct{}, len(ancestors)+1)
	if c != nil {
		visited[strings.ToLower(c.ID)] = struct{}{}
	}
	out := make([]*model.Concept, 0, len(ancestors))
	for _, a := range ancestors {
		if a == nil {
			continue
		}
		if len(out) >= MaxInheritanceDepth {
			break
		}
		key := strings.ToLower(a.ID)
		if _, ok := visited[key]; ok {
			break
		}
		visited[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
