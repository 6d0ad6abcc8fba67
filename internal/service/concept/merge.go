package concept

import (
	"strings"

	"github.com/ashwinyue/next-concept/internal/model"
)

const (
	defaultPropertyType = "string"
	defaultCardinality  = "0..*"
)

// MergeByKey 按键合并两组记录
// 已有记录优先，从不被覆盖；新记录经 normalize 后追加
// 输出顺序为 existing 顺序加上新增 incoming 的原始相对顺序
// valid 返回 false 的记录在合并前被整体过滤
func MergeByKey[T any, K comparable](existing, incoming []T, keyOf func(T) K, valid func(T) bool, normalize func(T) T) []T {
	out := make([]T, 0, len(existing)+len(incoming))
	seen := make(map[K]struct{}, len(existing)+len(incoming))

	for _, item := range existing {
		if valid != nil && !valid(item) {
			continue
		}
		k := keyOf(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}

	for _, item := range incoming {
		if valid != nil && !valid(item) {
			continue
		}
		k := keyOf(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if normalize != nil {
			item = normalize(item)
		}
		out = append(out, item)
	}
	return out
}

// MergeProperties 按属性名（不区分大小写）合并
func MergeProperties(existing, incoming []model.Property) []model.Property {
	return MergeByKey(existing, incoming, propertyKey, validProperty, normalizeProperty)
}

// MergeRelationships 按 (name, target) 合并
func MergeRelationships(existing, incoming []model.Relationship) []model.Relationship {
	return MergeByKey(existing, incoming, relationshipKey, validRelationship, normalizeRelationship)
}

// NormalizeProperties 对单组属性做过滤、去重和默认值填充
func NormalizeProperties(props []model.Property) []model.Property {
	return MergeProperties(nil, props)
}

// NormalizeRelationships 对单组关系做过滤、去重和默认值填充
func NormalizeRelationships(rels []model.Relationship) []model.Relationship {
	return MergeRelationships(nil, rels)
}

func propertyKey(p model.Property) string {
	return strings.ToLower(strings.TrimSpace(p.Name))
}

func validProperty(p model.Property) bool {
	return strings.TrimSpace(p.Name) != ""
}

func normalizeProperty(p model.Property) model.Property {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.TrimSpace(p.Type)
	if p.Type == "" {
		p.Type = defaultPropertyType
	}
	return p
}

func relationshipKey(r model.Relationship) string {
	return strings.ToLower(strings.TrimSpace(r.Name)) + "\x00" + strings.ToLower(strings.TrimSpace(r.Target))
}

func validRelationship(r model.Relationship) bool {
	return strings.TrimSpace(r.Name) != "" && strings.TrimSpace(r.Target) != ""
}

func normalizeRelationship(r model.Relationship) model.Relationship {
	r.Name = strings.TrimSpace(r.Name)
	r.Target = strings.TrimSpace(r.Target)
	r.Cardinality = strings.TrimSpace(r.Cardinality)
	if r.Cardinality == "" {
		r.Cardinality = defaultCardinality
	}
	return r
}
