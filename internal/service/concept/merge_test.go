package concept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-concept/internal/model"
)

func TestMergePropertiesExistingWins(t *testing.T) {
	existing := []model.Property{{Name: "title", Type: "string", Description: "existing"}}
	incoming := []model.Property{{Name: "Title ", Type: "text", Description: "incoming"}}

	got := MergeProperties(existing, incoming)

	require.Len(t, got, 1)
	assert.Equal(t, "existing", got[0].Description)
	assert.Equal(t, "string", got[0].Type)
}

func TestMergePropertiesNormalizesIncoming(t *testing.T) {
	got := MergeProperties(nil, []model.Property{
		{Name: " amount "},
		{Name: "", Type: "number"},
		{Name: "due_date", Type: "date", Required: true},
	})

	require.Len(t, got, 2)
	assert.Equal(t, model.Property{Name: "amount", Type: "string"}, got[0])
	assert.Equal(t, "due_date", got[1].Name)
	assert.True(t, got[1].Required)
}

func TestMergePropertiesOrder(t *testing.T) {
	existing := []model.Property{{Name: "b", Type: "string"}, {Name: "a", Type: "string"}}
	incoming := []model.Property{{Name: "z"}, {Name: "A"}, {Name: "c"}}

	got := MergeProperties(existing, incoming)

	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"b", "a", "z", "c"}, names)
}

func TestMergeRelationshipsCompositeKey(t *testing.T) {
	existing := []model.Relationship{{Name: "related_to", Target: "Document", Cardinality: "1..1"}}
	incoming := []model.Relationship{
		{Name: "related_to", Target: "Article"},
		{Name: "RELATED_TO", Target: "document", Cardinality: "0..1"},
		{Name: "cites", Target: ""},
		{Name: "", Target: "Document"},
	}

	got := MergeRelationships(existing, incoming)

	require.Len(t, got, 2)
	assert.Equal(t, "Document", got[0].Target)
	assert.Equal(t, "1..1", got[0].Cardinality)
	assert.Equal(t, "Article", got[1].Target)
	assert.Equal(t, "0..*", got[1].Cardinality)
}

func TestMergeByKeyFiltersInvalidExisting(t *testing.T) {
	got := MergeByKey(
		[]int{0, 1, 1, 2},
		[]int{2, 3, 0},
		func(i int) int { return i },
		func(i int) bool { return i != 0 },
		func(i int) int { return i * 10 },
	)
	assert.Equal(t, []int{1, 2, 30}, got)
}

func TestNormalizeRelationshipsDropsDuplicates(t *testing.T) {
	got := NormalizeRelationships([]model.Relationship{
		{Name: "billed_to", Target: "party"},
		{Name: "Billed_To", Target: "Party", Cardinality: "1..1"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "0..*", got[0].Cardinality)
}
