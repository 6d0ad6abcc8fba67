package testutil

import "github.com/ashwinyue/next-concept/internal/model"

// Taxonomy 返回一组小型分类体系，包含各层级和父子关系
//
//	thing (L1)
//	└── document (L1, 带抽取模板)
//	    ├── business-document (L2, 无自有字段)
//	    │   └── invoice (L2)
//	    └── field-report (L3)
func Taxonomy() []*model.Concept {
	return []*model.Concept{
		{
			ID: "thing", Label: "Thing", Layer: model.LayerFoundation, Abstract: true,
			Description: "Root of the taxonomy",
			Properties:  []model.Property{{Name: "name", Type: "string", Required: true}},
		},
		{
			ID: "document", Label: "Document", Layer: model.LayerFoundation, Inherits: "thing",
			Properties: []model.Property{
				{Name: "title", Type: "string"},
				{Name: "issued_on", Type: "date"},
			},
			ExtractionTemplate: &model.ExtractionTemplate{
				ClassificationHints: []string{"document title"},
				FilePatterns:        []string{"*.pdf", "*.docx"},
			},
		},
		{
			ID: "business-document", Label: "Business Document", Layer: model.LayerEnterprise, Inherits: "document",
		},
		{
			ID: "invoice", Label: "Invoice", Layer: model.LayerEnterprise, Inherits: "business-document",
			Synonyms: []string{"bill"},
			Properties: []model.Property{
				{Name: "total", Type: "number", Required: true},
				{Name: "title", Type: "string", Description: "Invoice heading"},
			},
			Relationships: []model.Relationship{{Name: "billed_to", Target: "party", Cardinality: "1..1"}},
			ExtractionTemplate: &model.ExtractionTemplate{
				ClassificationHints: []string{"invoice number", "amount due"},
			},
		},
		{
			ID: "field-report", Label: "Field Report", Layer: model.LayerIndustry, Inherits: "document",
		},
	}
}

// TaxonomyByID 以 ID 索引的分类体系
func TaxonomyByID() map[string]*model.Concept {
	out := make(map[string]*model.Concept)
	for _, c := range Taxonomy() {
		out[c.ID] = c
	}
	return out
}
