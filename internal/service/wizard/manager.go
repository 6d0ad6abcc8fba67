package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashwinyue/next-concept/internal/logger"
)

// ErrSessionNotFound 向导会话不存在或已过期
var ErrSessionNotFound = errors.New("wizard session not found")

// ManagerConfig 会话管理配置
type ManagerConfig struct {
	SearchDebounce time.Duration
	SearchLimit    int
	// SessionTTL 会话空闲超过该时长即失效，0 表示不过期
	SessionTTL time.Duration
}

// Manager 向导会话管理器
// 活跃会话保存在内存中，每次状态变更写入 StateStore，进程重启后按需恢复
// 空闲超过 SessionTTL 的会话在 Open/Get 时清理
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    *StateStore
	lookup   ConceptLookup
	gen      DraftGenerator
	config   ManagerConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewManager 创建会话管理器，gen 可以为 nil
func NewManager(store *StateStore, lookup ConceptLookup, gen DraftGenerator, config ManagerConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	if store == nil {
		store = NewStateStore(NewMemoryCheckpointStore())
	}
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		lookup:   lookup,
		gen:      gen,
		config:   config,
		log:      log.With("component", "wizard"),
		now:      time.Now,
	}
}

// Open 创建新会话
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	m.evictIdle(ctx)

	id := uuid.New().String()
	sess := m.newSession(id, NewState())
	if err := m.store.Save(ctx, id, sess.State()); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.log.Info("Wizard session opened", "wizard_session", id)
	return sess, nil
}

// Get 获取会话，内存中不存在时从存储恢复
// 存储读取不持有 m.mu，插入前再次检查是否已被其他请求恢复
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.evictIdle(ctx)

	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return sess, nil
	}

	snap, found, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	if m.expired(snap.LastActive) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.log.Warn("Failed to delete expired wizard state", "wizard_session", id, "error", err)
		}
		return nil, ErrSessionNotFound
	}

	// 恢复的会话没有进行中的请求
	st := snap.State
	st.Parent.Loading = false
	st.Blueprint.Searching = false
	st.Blueprint.Loading = false
	st.Generation.Running = false
	st.Submitting = false

	restored := m.newSession(id, st)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		restored.Close()
		return existing, nil
	}
	m.sessions[id] = restored
	m.mu.Unlock()
	return restored, nil
}

// Close 关闭并删除会话
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		sess.Close()
	} else if _, found, err := m.store.Load(ctx, id); err != nil {
		return err
	} else if !found {
		return ErrSessionNotFound
	}
	return m.store.Delete(ctx, id)
}

// Shutdown 停止所有会话的后台搜索
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		sess.Close()
	}
}

// evictIdle 移除空闲超时的会话并删除其存储
func (m *Manager) evictIdle(ctx context.Context) {
	if m.config.SessionTTL <= 0 {
		return
	}

	var idle []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if m.expired(sess.LastActive()) {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		sess.Close()
		if err := m.store.Delete(ctx, sess.ID()); err != nil {
			m.log.Warn("Failed to delete expired wizard state", "wizard_session", sess.ID(), "error", err)
		}
		m.log.Info("Wizard session expired", "wizard_session", sess.ID())
	}
}

func (m *Manager) expired(lastActive time.Time) bool {
	return m.config.SessionTTL > 0 && m.now().Sub(lastActive) > m.config.SessionTTL
}

func (m *Manager) newSession(id string, st State) *Session {
	opts := []SessionOption{
		WithInitialState(st),
		WithSearchDebounce(m.config.SearchDebounce),
		WithSearchLimit(m.config.SearchLimit),
		WithLogger(m.log),
		withPersist(m.persist),
		withClock(m.now),
	}
	if m.gen != nil {
		opts = append(opts, WithGenerator(m.gen))
	}
	return NewSession(id, m.lookup, opts...)
}

func (m *Manager) persist(ctx context.Context, id string, st State) {
	if err := m.store.Save(ctx, id, st); err != nil {
		m.log.Warn("Failed to save wizard state", "wizard_session", id, "error", err)
	}
}
