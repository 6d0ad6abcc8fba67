package model

import (
	"slices"
	"strings"
	"time"
)

// Layer 概念所在层级，L1 最基础，L4 为组织自定义
type Layer string

const (
	LayerFoundation   Layer = "L1"
	LayerEnterprise   Layer = "L2"
	LayerIndustry     Layer = "L3"
	LayerOrganization Layer = "L4"
)

// Layers 按层级顺序排列
var Layers = []Layer{LayerFoundation, LayerEnterprise, LayerIndustry, LayerOrganization}

// Rank 层级序号，未知层级返回 0
func (l Layer) Rank() int {
	for i, v := range Layers {
		if v == l {
			return i + 1
		}
	}
	return 0
}

// IsValid 是否为已知层级
func (l Layer) IsValid() bool {
	return l.Rank() > 0
}

// Editable 只有 L3/L4 允许修改和删除
func (l Layer) Editable() bool {
	return l == LayerIndustry || l == LayerOrganization
}

// Property 概念属性
type Property struct {
	Name         string `json:"name" yaml:"name"`
	Type         string `json:"type" yaml:"type"`
	Required     bool   `json:"required" yaml:"required"`
	Description  string `json:"description" yaml:"description"`
	DefaultValue any    `json:"default_value,omitempty" yaml:"default_value,omitempty"`
}

// Relationship 概念关系，(Name, Target) 唯一
type Relationship struct {
	Name        string `json:"name" yaml:"name"`
	Target      string `json:"target" yaml:"target"`
	Cardinality string `json:"cardinality" yaml:"cardinality"`
	Description string `json:"description" yaml:"description"`
	Inverse     string `json:"inverse,omitempty" yaml:"inverse,omitempty"`
}

// ExtractionTemplate 抽取模板，供外部分类器使用
type ExtractionTemplate struct {
	ClassificationHints []string `json:"classification_hints" yaml:"classification_hints"`
	FilePatterns        []string `json:"file_patterns" yaml:"file_patterns"`
}

// IsEmpty 提示和文件模式均为空
func (t *ExtractionTemplate) IsEmpty() bool {
	return t == nil || (len(t.ClassificationHints) == 0 && len(t.FilePatterns) == 0)
}

// EmbeddedType 属性类型引用的内嵌结构，只读
type EmbeddedType struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  []Property `json:"properties" yaml:"properties"`
}

// Concept 分类体系中的概念节点
type Concept struct {
	ID                 string              `gorm:"primaryKey;type:varchar(128)" json:"id" yaml:"id"`
	Label              string              `gorm:"type:varchar(255);not null" json:"label" yaml:"label"`
	Layer              Layer               `gorm:"type:varchar(8);index;not null" json:"layer" yaml:"layer"`
	Inherits           string              `gorm:"type:varchar(128);index" json:"inherits,omitempty" yaml:"inherits,omitempty"`
	Abstract           bool                `gorm:"default:false" json:"abstract" yaml:"abstract"`
	Description        string              `gorm:"type:text" json:"description" yaml:"description"`
	Synonyms           []string            `gorm:"type:jsonb;serializer:json" json:"synonyms" yaml:"synonyms"`
	Mixins             []string            `gorm:"type:jsonb;serializer:json" json:"mixins" yaml:"mixins"`
	Properties         []Property          `gorm:"type:jsonb;serializer:json" json:"properties" yaml:"properties"`
	Relationships      []Relationship      `gorm:"type:jsonb;serializer:json" json:"relationships" yaml:"relationships"`
	ExtractionTemplate *ExtractionTemplate `gorm:"type:jsonb;serializer:json" json:"extraction_template,omitempty" yaml:"extraction_template,omitempty"`
	EmbeddedTypes      []EmbeddedType      `gorm:"type:jsonb;serializer:json" json:"embedded_types,omitempty" yaml:"embedded_types,omitempty"`
	CreatedAt          time.Time           `json:"created_at" yaml:"-"`
	UpdatedAt          time.Time           `json:"updated_at" yaml:"-"`
}

// TableName 指定表名
func (Concept) TableName() string {
	return "concepts"
}

// IsRoot 没有父概念
func (c *Concept) IsRoot() bool {
	return strings.TrimSpace(c.Inherits) == ""
}

// Summary 概念摘要
func (c *Concept) Summary() ConceptSummary {
	return ConceptSummary{
		ID:       c.ID,
		Label:    c.Label,
		Layer:    c.Layer,
		Inherits: c.Inherits,
		Abstract: c.Abstract,
	}
}

// Clone 深拷贝，避免共享切片
func (c *Concept) Clone() *Concept {
	if c == nil {
		return nil
	}
	out := *c
	out.Synonyms = slices.Clone(c.Synonyms)
	out.Mixins = slices.Clone(c.Mixins)
	out.Properties = slices.Clone(c.Properties)
	out.Relationships = slices.Clone(c.Relationships)
	out.EmbeddedTypes = slices.Clone(c.EmbeddedTypes)
	if c.ExtractionTemplate != nil {
		out.ExtractionTemplate = &ExtractionTemplate{
			ClassificationHints: slices.Clone(c.ExtractionTemplate.ClassificationHints),
			FilePatterns:        slices.Clone(c.ExtractionTemplate.FilePatterns),
		}
	}
	return &out
}

// ConceptSummary 搜索结果和树节点使用的摘要
type ConceptSummary struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Layer    Layer  `json:"layer"`
	Inherits string `json:"inherits,omitempty"`
	Abstract bool   `json:"abstract"`
}
