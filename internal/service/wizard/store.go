package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/redis/go-redis/v9"
)

// Snapshot 持久化的向导会话
type Snapshot struct {
	SessionID  string    `json:"session_id"`
	State      State     `json:"state"`
	LastActive time.Time `json:"last_active"`
	Version    int64     `json:"version"`
}

// StateStore 向导状态存储
// 直接使用 eino compose.CheckPointStore 作为底层键值存储
type StateStore struct {
	checkpointStore compose.CheckPointStore
}

// NewStateStore 创建状态存储
func NewStateStore(checkpointStore compose.CheckPointStore) *StateStore {
	return &StateStore{checkpointStore: checkpointStore}
}

// Save 保存会话状态
func (s *StateStore) Save(ctx context.Context, sessionID string, state State) error {
	now := time.Now()
	data, err := json.Marshal(Snapshot{
		SessionID:  sessionID,
		State:      state,
		LastActive: now,
		Version:    now.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal wizard state: %w", err)
	}
	if err := s.checkpointStore.Set(ctx, stateKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load 读取会话状态，不存在时 found 为 false
func (s *StateStore) Load(ctx context.Context, sessionID string) (*Snapshot, bool, error) {
	data, found, err := s.checkpointStore.Get(ctx, stateKey(sessionID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal wizard state: %w", err)
	}
	return &snap, true, nil
}

// Delete 删除会话状态
func (s *StateStore) Delete(ctx context.Context, sessionID string) error {
	// 写入 nil 即为删除
	return s.checkpointStore.Set(ctx, stateKey(sessionID), nil)
}

func stateKey(sessionID string) string {
	return fmt.Sprintf("wizard:state:%s", sessionID)
}

// RedisCheckpointStore Redis CheckPointStore 实现
type RedisCheckpointStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCheckpointStore 创建 Redis CheckPointStore
func NewRedisCheckpointStore(client *redis.Client, ttl time.Duration) compose.CheckPointStore {
	return &RedisCheckpointStore{
		client: client,
		ttl:    ttl,
	}
}

// Get 实现 CheckPointStore.Get
func (s *RedisCheckpointStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if val == "" {
		return nil, false, nil
	}
	return []byte(val), true, nil
}

// Set 实现 CheckPointStore.Set，value 为 nil 时删除
func (s *RedisCheckpointStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		return s.client.Del(ctx, key).Err()
	}
	return s.client.Set(ctx, key, value, s.ttl).Err()
}

// MemoryCheckpointStore 进程内 CheckPointStore，未配置 Redis 时使用
type MemoryCheckpointStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryCheckpointStore 创建进程内 CheckPointStore
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{data: make(map[string][]byte)}
}

func (s *MemoryCheckpointStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryCheckpointStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.data, key)
		return nil
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}
