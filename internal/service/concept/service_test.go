package concept

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-concept/internal/logger"
	"github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/repository"
	"github.com/ashwinyue/next-concept/internal/testutil"
)

// ========== fakes ==========

type fakeIndexer struct {
	mu        sync.Mutex
	indexed   []string
	deleted   []string
	searchErr error
	results   []model.ConceptSummary
}

func (f *fakeIndexer) EnsureIndex(ctx context.Context) error { return nil }

func (f *fakeIndexer) Index(ctx context.Context, c *model.Concept) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, c.ID)
	return nil
}

func (f *fakeIndexer) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndexer) Search(ctx context.Context, query string, limit int) ([]model.ConceptSummary, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

type fakeCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[string]*Detail
	gets        int
	invalidated int
	// onMiss 在未命中后调用，用于模拟加载期间的并发写
	onMiss func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*Detail{}}
}

func (f *fakeCache) Generation(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen, nil
}

func (f *fakeCache) Get(ctx context.Context, gen int64, id string) (*Detail, bool, error) {
	f.mu.Lock()
	f.gets++
	d, ok := f.entries[fmt.Sprintf("%d:%s", gen, id)]
	onMiss := f.onMiss
	f.mu.Unlock()
	if !ok && onMiss != nil {
		onMiss()
	}
	return d, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, gen int64, id string, d *Detail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[fmt.Sprintf("%d:%s", gen, id)] = d
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	f.gen++
	return nil
}

// ========== helpers ==========

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	repo := repository.NewConceptRepository(testutil.NewTestDB(t))
	for _, c := range testutil.Taxonomy() {
		require.NoError(t, repo.Create(context.Background(), c))
	}
	return NewService(repo, logger.Nop(), opts...)
}

func purchaseOrderPayload() CreatePayload {
	return Draft{
		ID:         "purchase-order",
		Label:      "Purchase Order",
		Inherits:   "business-document",
		Synonyms:   []string{"PO", "po"},
		Properties: []model.Property{{Name: "po_number", Required: true}, {Name: "title"}},
	}.Payload()
}

// ========== tests ==========

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	idx := &fakeIndexer{}
	cache := newFakeCache()
	s := newTestService(t, WithIndexer(idx), WithDetailCache(cache))

	c, err := s.Create(ctx, purchaseOrderPayload())
	require.NoError(t, err)

	assert.Equal(t, model.LayerOrganization, c.Layer)
	assert.Equal(t, []string{"PO"}, c.Synonyms)
	assert.Equal(t, "string", c.Properties[1].Type)
	assert.Nil(t, c.ExtractionTemplate)
	assert.Equal(t, []string{"purchase-order"}, idx.indexed)
	assert.Equal(t, 1, cache.invalidated)

	_, err = s.Create(ctx, purchaseOrderPayload())
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)
}

func TestServiceCreateValidation(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name  string
		mut   func(p *CreatePayload)
		field string
	}{
		{"missing label", func(p *CreatePayload) { p.Label = " " }, "label"},
		{"missing id", func(p *CreatePayload) { p.ID = "" }, "id"},
		{"bad id", func(p *CreatePayload) { p.ID = "Purchase Order" }, "id"},
		{"missing parent", func(p *CreatePayload) { p.Inherits = "" }, "inherits"},
		{"self parent", func(p *CreatePayload) { p.Inherits = p.ID }, "inherits"},
		{"unknown parent", func(p *CreatePayload) { p.Inherits = "nope" }, "inherits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := purchaseOrderPayload()
			tt.mut(&p)
			_, err := s.Create(context.Background(), p)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestServiceGetDetail(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := newTestService(t, WithDetailCache(cache))

	d, err := s.GetDetail(ctx, "invoice")
	require.NoError(t, err)

	ids := make([]string, 0, len(d.Ancestors))
	for _, a := range d.Ancestors {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"business-document", "document", "thing"}, ids)
	require.Len(t, d.Inherited, 2)
	assert.Equal(t, "document", d.Inherited[0].SourceID)
	assert.Equal(t, "thing", d.Inherited[1].SourceID)
	assert.Equal(t, []string{"title"}, d.ShadowedProperties)
	assert.False(t, d.ParentUnavailable)

	cached, err := s.GetDetail(ctx, "invoice")
	require.NoError(t, err)
	assert.Same(t, d, cached)
	assert.Equal(t, 2, cache.gets)

	_, err = s.GetDetail(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceGetDetailInvalidatedDuringLoad(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := newTestService(t, WithDetailCache(cache))

	label := "Site Report"
	cache.onMiss = func() {
		// 加载期间概念被修改
		_, err := s.Update(ctx, "field-report", UpdateRequest{Label: &label})
		require.NoError(t, err)
	}
	stale, err := s.GetDetail(ctx, "field-report")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	_, cachedUnderNewGen := cache.entries["1:field-report"]
	assert.False(t, cachedUnderNewGen)

	cache.onMiss = nil
	fresh, err := s.GetDetail(ctx, "field-report")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Equal(t, "Site Report", fresh.Concept.Label)
}

func TestServiceGetDetailBrokenParent(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Create(ctx, purchaseOrderPayload())
	require.NoError(t, err)
	// 直接删除父概念，模拟断裂的继承链
	require.NoError(t, s.repo.Delete(ctx, "business-document"))

	d, err := s.GetDetail(ctx, "purchase-order")
	require.NoError(t, err)
	assert.True(t, d.ParentUnavailable)
	assert.Empty(t, d.Ancestors)
	assert.Empty(t, d.Inherited)
	assert.Empty(t, d.ShadowedProperties)
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Update(ctx, "document", UpdateRequest{})
	assert.True(t, errors.Is(err, ErrNotEditable))

	label := "Site Report"
	props := []model.Property{{Name: "site"}, {Name: "SITE"}}
	c, err := s.Update(ctx, "field-report", UpdateRequest{
		Label:              &label,
		Properties:         &props,
		ExtractionTemplate: &model.ExtractionTemplate{FilePatterns: []string{"report-*.pdf", "REPORT-*.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Site Report", c.Label)
	assert.Equal(t, "document", c.Inherits)
	assert.Len(t, c.Properties, 1)
	assert.Equal(t, []string{"report-*.pdf"}, c.ExtractionTemplate.FilePatterns)

	c, err = s.Update(ctx, "field-report", UpdateRequest{ClearTemplate: true})
	require.NoError(t, err)
	assert.Nil(t, c.ExtractionTemplate)

	empty := " "
	_, err = s.Update(ctx, "field-report", UpdateRequest{Label: &empty})
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = s.Update(ctx, "missing", UpdateRequest{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	idx := &fakeIndexer{}
	s := newTestService(t, WithIndexer(idx))

	assert.True(t, errors.Is(s.Delete(ctx, "thing"), ErrNotEditable))
	assert.True(t, errors.Is(s.Delete(ctx, "missing"), ErrNotFound))

	require.NoError(t, s.Delete(ctx, "field-report"))
	assert.Equal(t, []string{"field-report"}, idx.deleted)
	_, err := s.Get(ctx, "field-report")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceSearchFallsBackToDatabase(t *testing.T) {
	ctx := context.Background()
	idx := &fakeIndexer{searchErr: errors.New("connection refused")}
	s := newTestService(t, WithIndexer(idx))

	got, err := s.Search(ctx, "voice", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "invoice", got[0].ID)

	idx.searchErr = nil
	idx.results = []model.ConceptSummary{{ID: "from-index"}}
	got, err = s.Search(ctx, "voice", 5)
	require.NoError(t, err)
	assert.Equal(t, "from-index", got[0].ID)
}

func TestServiceTreeAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	require.NoError(t, s.repo.Create(ctx, &model.Concept{ID: "stray", Label: "Stray", Layer: model.LayerOrganization, Inherits: "gone"}))

	ov, err := s.Overview(ctx)
	require.NoError(t, err)

	require.Len(t, ov.Tree, 2)
	assert.Equal(t, "thing", ov.Tree[0].ID)
	assert.Equal(t, "stray", ov.Tree[1].ID)
	assert.True(t, ov.Tree[1].Orphan)

	document := ov.Tree[0].Children[0]
	assert.Equal(t, "document", document.ID)
	require.Len(t, document.Children, 2)
	assert.Equal(t, "business-document", document.Children[0].ID)
	assert.Equal(t, "field-report", document.Children[1].ID)
	assert.Equal(t, "invoice", document.Children[0].Children[0].ID)

	assert.Equal(t, int64(6), ov.Stats.Total)
	assert.Equal(t, int64(2), ov.Stats.ByLayer[model.LayerFoundation])
	assert.Equal(t, int64(1), ov.Stats.ByLayer[model.LayerOrganization])
}

func TestServiceImport(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	n, err := s.Import(ctx, []*model.Concept{
		{ID: "document", Label: "Generic Document", Layer: model.LayerFoundation, Inherits: "thing"},
		{ID: "contract", Label: "Contract", Layer: model.LayerEnterprise, Inherits: "document",
			ExtractionTemplate: &model.ExtractionTemplate{ClassificationHints: []string{" "}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c, err := s.Get(ctx, "contract")
	require.NoError(t, err)
	assert.Nil(t, c.ExtractionTemplate)

	doc, err := s.Get(ctx, "document")
	require.NoError(t, err)
	assert.Equal(t, "Generic Document", doc.Label)

	_, err = s.Import(ctx, []*model.Concept{{ID: "x", Label: "X", Layer: "L7"}})
	assert.True(t, errors.Is(err, ErrInvalid))
}
