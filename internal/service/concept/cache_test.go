package concept

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/testutil"
)

func TestRedisDetailCache(t *testing.T) {
	ctx := context.Background()
	cache := NewRedisDetailCache(testutil.NewTestRedis(t), time.Minute)

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, gen, "invoice")
	require.NoError(t, err)
	assert.False(t, ok)

	d := &Detail{
		Concept:            &model.Concept{ID: "invoice", Label: "Invoice", Layer: model.LayerEnterprise},
		Ancestors:          []*model.Concept{{ID: "document", Label: "Document"}},
		ShadowedProperties: []string{"title"},
	}
	require.NoError(t, cache.Set(ctx, gen, "invoice", d))

	got, ok, err := cache.Get(ctx, gen, "invoice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Invoice", got.Concept.Label)
	assert.Equal(t, "document", got.Ancestors[0].ID)
	assert.Equal(t, []string{"title"}, got.ShadowedProperties)

	require.NoError(t, cache.Invalidate(ctx))
	next, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)

	_, ok, err = cache.Get(ctx, next, "invoice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisDetailCacheWriteAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewRedisDetailCache(testutil.NewTestRedis(t), time.Minute)

	// 加载开始时取得代数
	gen, err := cache.Generation(ctx)
	require.NoError(t, err)

	// 加载期间发生写操作
	require.NoError(t, cache.Invalidate(ctx))

	// 旧数据写入旧代数
	stale := &Detail{Concept: &model.Concept{ID: "invoice", Label: "Old Invoice"}}
	require.NoError(t, cache.Set(ctx, gen, "invoice", stale))

	current, err := cache.Generation(ctx)
	require.NoError(t, err)
	_, ok, err := cache.Get(ctx, current, "invoice")
	require.NoError(t, err)
	assert.False(t, ok)
}
