package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/testutil"
)

func newTestRepo(t *testing.T) *ConceptRepositoryImpl {
	t.Helper()
	return NewConceptRepository(testutil.NewTestDB(t))
}

func seed(t *testing.T, r *ConceptRepositoryImpl, concepts ...*model.Concept) {
	t.Helper()
	for _, c := range concepts {
		require.NoError(t, r.Create(context.Background(), c))
	}
}

func TestConceptRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	c := &model.Concept{
		ID:                 "invoice",
		Label:              "Invoice",
		Layer:              model.LayerOrganization,
		Inherits:           "document",
		Synonyms:           []string{"bill"},
		Properties:         []model.Property{{Name: "total", Type: "number", Required: true}},
		Relationships:      []model.Relationship{{Name: "billed_to", Target: "party", Cardinality: "1..1"}},
		ExtractionTemplate: &model.ExtractionTemplate{FilePatterns: []string{"*.pdf"}},
	}
	require.NoError(t, r.Create(ctx, c))

	got, err := r.GetByID(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, "Invoice", got.Label)
	assert.Equal(t, []string{"bill"}, got.Synonyms)
	assert.Equal(t, c.Properties, got.Properties)
	assert.Equal(t, c.Relationships, got.Relationships)
	require.NotNil(t, got.ExtractionTemplate)
	assert.Equal(t, []string{"*.pdf"}, got.ExtractionTemplate.FilePatterns)

	ok, err := r.Exists(ctx, "invoice")
	require.NoError(t, err)
	assert.True(t, ok)

	got.Label = "Sales Invoice"
	got.ExtractionTemplate = nil
	require.NoError(t, r.Update(ctx, got))

	got, err = r.GetByID(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, "Sales Invoice", got.Label)
	assert.Nil(t, got.ExtractionTemplate)

	require.NoError(t, r.Delete(ctx, "invoice"))
	_, err = r.GetByID(ctx, "invoice")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.True(t, errors.Is(r.Delete(ctx, "invoice"), gorm.ErrRecordNotFound))
}

func TestConceptRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.NoError(t, r.Upsert(ctx, &model.Concept{ID: "document", Label: "Document", Layer: model.LayerFoundation}))
	require.NoError(t, r.Upsert(ctx, &model.Concept{ID: "document", Label: "Generic Document", Layer: model.LayerFoundation}))

	got, err := r.GetByID(ctx, "document")
	require.NoError(t, err)
	assert.Equal(t, "Generic Document", got.Label)
}

func TestConceptRepositorySearch(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seed(t, r,
		&model.Concept{ID: "invoice", Label: "Invoice", Layer: model.LayerEnterprise},
		&model.Concept{ID: "purchase-order", Label: "Purchase Order", Layer: model.LayerOrganization},
		&model.Concept{ID: "contract", Label: "Contract", Layer: model.LayerEnterprise},
	)

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"label match case insensitive", "INVO", 10, []string{"invoice"}},
		{"id match", "purchase-", 10, []string{"purchase-order"}},
		{"empty query lists all ordered by label", "", 10, []string{"contract", "invoice", "purchase-order"}},
		{"limit", "", 1, []string{"contract"}},
		{"no match", "zzz", 10, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Search(ctx, tt.query, tt.limit)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestConceptRepositoryCountByLayer(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seed(t, r,
		&model.Concept{ID: "document", Label: "Document", Layer: model.LayerFoundation},
		&model.Concept{ID: "invoice", Label: "Invoice", Layer: model.LayerEnterprise},
		&model.Concept{ID: "contract", Label: "Contract", Layer: model.LayerEnterprise},
	)

	counts, err := r.CountByLayer(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.Layer]int64{
		model.LayerFoundation:   1,
		model.LayerEnterprise:   2,
		model.LayerIndustry:     0,
		model.LayerOrganization: 0,
	}, counts)
}

func TestConceptRepositoryAncestors(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seed(t, r,
		&model.Concept{ID: "thing", Label: "Thing", Layer: model.LayerFoundation},
		&model.Concept{ID: "document", Label: "Document", Layer: model.LayerFoundation, Inherits: "thing"},
		&model.Concept{ID: "invoice", Label: "Invoice", Layer: model.LayerEnterprise, Inherits: "document"},
		&model.Concept{ID: "orphan", Label: "Orphan", Layer: model.LayerOrganization, Inherits: "missing"},
		&model.Concept{ID: "loop-a", Label: "A", Layer: model.LayerOrganization, Inherits: "loop-b"},
		&model.Concept{ID: "loop-b", Label: "B", Layer: model.LayerOrganization, Inherits: "loop-a"},
	)

	t.Run("chain nearest first", func(t *testing.T) {
		chain, err := r.Ancestors(ctx, "invoice")
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, "document", chain[0].ID)
		assert.Equal(t, "thing", chain[1].ID)
	})

	t.Run("root has no ancestors", func(t *testing.T) {
		chain, err := r.Ancestors(ctx, "thing")
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("broken parent", func(t *testing.T) {
		chain, err := r.Ancestors(ctx, "orphan")
		assert.True(t, errors.Is(err, ErrBrokenChain))
		assert.Empty(t, chain)
	})

	t.Run("cycle terminates", func(t *testing.T) {
		chain, err := r.Ancestors(ctx, "loop-a")
		assert.True(t, errors.Is(err, ErrInheritanceCycle))
		assert.Len(t, chain, 1)
	})

	t.Run("missing start", func(t *testing.T) {
		_, err := r.Ancestors(ctx, "nope")
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	})
}
