package concept

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DetailCache 概念详情缓存
// 任何写操作都会让全部条目失效，因为子概念的详情包含祖先数据
// 读写都带上加载开始前取得的代数，加载期间发生的失效不会被旧数据覆盖
type DetailCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, id string) (*Detail, bool, error)
	Set(ctx context.Context, gen int64, id string, d *Detail) error
	Invalidate(ctx context.Context) error
}

const detailGenerationKey = "concept:detail:gen"

// RedisDetailCache Redis 实现，使用代数计数器批量失效
type RedisDetailCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDetailCache 创建 Redis 详情缓存
func NewRedisDetailCache(client *redis.Client, ttl time.Duration) *RedisDetailCache {
	return &RedisDetailCache{client: client, ttl: ttl}
}

// Generation 当前代数
func (c *RedisDetailCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, detailGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

// Get 读取指定代数下的缓存
func (c *RedisDetailCache) Get(ctx context.Context, gen int64, id string) (*Detail, bool, error) {
	val, err := c.client.Get(ctx, detailKey(gen, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var d Detail
	if err := json.Unmarshal(val, &d); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached detail: %w", err)
	}
	return &d, true, nil
}

// Set 写入指定代数下的缓存
func (c *RedisDetailCache) Set(ctx context.Context, gen int64, id string, d *Detail) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal detail: %w", err)
	}
	return c.client.Set(ctx, detailKey(gen, id), data, c.ttl).Err()
}

// Invalidate 递增代数，旧条目随 TTL 过期
func (c *RedisDetailCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, detailGenerationKey).Err()
}

func detailKey(gen int64, id string) string {
	return fmt.Sprintf("concept:detail:%d:%s", gen, id)
}
