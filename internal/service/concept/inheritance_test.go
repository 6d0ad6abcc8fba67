package concept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-concept/internal/model"
)

func chainFixture() (*model.Concept, []*model.Concept) {
	root := &model.Concept{
		ID: "thing", Label: "Thing", Layer: model.LayerFoundation,
		Properties: []model.Property{{Name: "name", Type: "string"}, {Name: "created", Type: "date"}},
	}
	document := &model.Concept{
		ID: "document", Label: "Document", Layer: model.LayerFoundation, Inherits: "thing",
		Properties:         []model.Property{{Name: "title", Type: "string"}},
		ExtractionTemplate: &model.ExtractionTemplate{FilePatterns: []string{"*.pdf"}},
	}
	empty := &model.Concept{ID: "business-document", Label: "Business Document", Layer: model.LayerEnterprise, Inherits: "document"}
	invoice := &model.Concept{
		ID: "invoice", Label: "Invoice", Layer: model.LayerOrganization, Inherits: "business-document",
		Properties:    []model.Property{{Name: "Title", Type: "string"}, {Name: "total", Type: "number"}, {Name: "NAME"}},
		Relationships: []model.Relationship{{Name: "billed_to", Target: "party"}},
	}
	return invoice, []*model.Concept{empty, document, root}
}

func TestResolveGroupsNearestFirstSkippingEmpty(t *testing.T) {
	c, chain := chainFixture()

	groups := Resolve(c, chain)

	require.Len(t, groups, 2)
	assert.Equal(t, "document", groups[0].SourceID)
	assert.Equal(t, "Document", groups[0].SourceLabel)
	assert.Equal(t, model.LayerFoundation, groups[0].SourceLayer)
	require.NotNil(t, groups[0].ExtractionTemplate)
	assert.Equal(t, []string{"*.pdf"}, groups[0].ExtractionTemplate.FilePatterns)
	assert.Equal(t, "thing", groups[1].SourceID)
	assert.Len(t, groups[1].Properties, 2)
	assert.Nil(t, groups[1].ExtractionTemplate)
}

func TestResolveDoesNotShareSlices(t *testing.T) {
	c, chain := chainFixture()
	groups := Resolve(c, chain)
	groups[0].Properties[0].Name = "mutated"
	assert.Equal(t, "title", chain[1].Properties[0].Name)
}

func TestResolveStopsOnCycle(t *testing.T) {
	a := &model.Concept{ID: "a", Properties: []model.Property{{Name: "x"}}}
	b := &model.Concept{ID: "b", Properties: []model.Property{{Name: "y"}}}
	c := &model.Concept{ID: "c", Inherits: "a"}

	groups := Resolve(c, []*model.Concept{a, b, a, c, b})
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].SourceID)
	assert.Equal(t, "b", groups[1].SourceID)
}

func TestResolveEmptyChain(t *testing.T) {
	c, _ := chainFixture()
	assert.Empty(t, Resolve(c, nil))
	assert.Empty(t, ShadowedOwnPropertyNames(c, nil))
}

func TestShadowedOwnPropertyNames(t *testing.T) {
	c, chain := chainFixture()

	got := ShadowedOwnPropertyNames(c, chain)

	// title 来自 document，name 来自更远的 thing
	assert.Equal(t, []string{"title", "name"}, got)
}

func TestShadowedOwnPropertyNamesSubsetOfOwn(t *testing.T) {
	c, chain := chainFixture()
	own := map[string]bool{}
	for _, p := range c.Properties {
		own[propertyKey(p)] = true
	}
	for _, name := range ShadowedOwnPropertyNames(c, chain) {
		assert.True(t, own[name], "shadowed name %q is not an own property", name)
	}

	noOverlap := &model.Concept{ID: "memo", Properties: []model.Property{{Name: "memo_body"}}}
	assert.Empty(t, ShadowedOwnPropertyNames(noOverlap, chain))
}

func TestEffectiveProperties(t *testing.T) {
	c, chain := chainFixture()

	got := EffectiveProperties(c, chain)

	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Title", "total", "NAME", "created"}, names)
}
