package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ashwinyue/next-concept/internal/logger"
	"github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/service/concept"
	"github.com/ashwinyue/next-concept/internal/service/generator"
)

// ConceptLookup 向导依赖的概念服务能力
type ConceptLookup interface {
	Search(ctx context.Context, query string, limit int) ([]model.ConceptSummary, error)
	GetDetail(ctx context.Context, id string) (*concept.Detail, error)
	Create(ctx context.Context, p concept.CreatePayload) (*model.Concept, error)
	Delete(ctx context.Context, id string) error
}

// DraftGenerator 草稿生成能力
type DraftGenerator interface {
	Suggest(ctx context.Context, brief generator.Brief) (*generator.Suggestion, error)
}

// Session 单个向导会话
// 状态变更串行执行，外部调用期间不持有锁，过期结果由序号丢弃
type Session struct {
	id          string
	mu          sync.Mutex
	state       State
	lookup      ConceptLookup
	gen         DraftGenerator
	debouncer   *Debouncer
	searchLimit int
	persist     func(ctx context.Context, id string, s State)
	log         *logger.Logger
	now         func() time.Time
	lastActive  time.Time
	// closed 之后的动作只更新内存，不再写入存储
	closed bool
}

// SessionOption 会话配置项
type SessionOption func(*Session)

// WithGenerator 设置草稿生成器
func WithGenerator(g DraftGenerator) SessionOption {
	return func(s *Session) { s.gen = g }
}

// WithSearchDebounce 设置蓝本搜索静默期
func WithSearchDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debouncer = NewDebouncer(d) }
}

// WithSearchLimit 设置蓝本搜索结果数
func WithSearchLimit(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithInitialState 从已保存的状态恢复
func WithInitialState(st State) SessionOption {
	return func(s *Session) { s.state = st }
}

// WithLogger 设置日志器
func WithLogger(log *logger.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func withPersist(fn func(ctx context.Context, id string, s State)) SessionOption {
	return func(s *Session) { s.persist = fn }
}

func withClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession 创建向导会话
func NewSession(id string, lookup ConceptLookup, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		state:       NewState(),
		lookup:      lookup,
		debouncer:   NewDebouncer(DefaultSearchDebounce),
		searchLimit: 10,
		log:         logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("wizard_session", id)
	s.lastActive = s.now()
	return s
}

// ID 会话标识
func (s *Session) ID() string {
	return s.id
}

// State 当前状态快照
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive 最近一次应用动作的时间
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Dispatch 应用一个动作并返回新状态
func (s *Session) Dispatch(ctx context.Context, a Action) State {
	_, next := s.apply(ctx, a)
	return next
}

func (s *Session) apply(ctx context.Context, a Action) (prev, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.state
	s.state = Transition(s.state, a)
	if s.closed {
		return prev, s.state
	}
	s.lastActive = s.now()
	if s.persist != nil {
		s.persist(ctx, s.id, s.state)
	}
	return prev, s.state
}

// SelectParent 选择父概念并加载其祖先链
func (s *Session) SelectParent(ctx context.Context, id string) State {
	id = strings.TrimSpace(id)
	st := s.Dispatch(ctx, SetInherits{ID: id})
	if id == "" || st.Done() {
		return st
	}
	return s.loadParent(ctx, id)
}

func (s *Session) loadParent(ctx context.Context, id string) State {
	st := s.Dispatch(ctx, ParentRequested{ID: id})
	seq := st.Parent.Seq

	detail, err := s.lookup.GetDetail(ctx, id)
	if err != nil {
		s.log.Warn("Failed to load parent concept", "parent", id, "error", err)
		return s.Dispatch(ctx, ParentLoaded{Seq: seq, Unavailable: true})
	}
	chain := append([]*model.Concept{detail.Concept}, detail.Ancestors...)
	return s.Dispatch(ctx, ParentLoaded{Seq: seq, Chain: chain, Unavailable: detail.ParentUnavailable})
}

// SearchBlueprints 立即执行蓝本搜索
func (s *Session) SearchBlueprints(ctx context.Context, query string) State {
	s.Dispatch(ctx, BlueprintSearchRequested{Query: query})
	return s.runBlueprintSearch(ctx)
}

// QueueBlueprintSearch 记录查询，静默期结束后执行最新一次搜索
func (s *Session) QueueBlueprintSearch(ctx context.Context, query string) State {
	st := s.Dispatch(ctx, BlueprintSearchRequested{Query: query})
	if !st.Blueprint.Searching {
		return st
	}
	s.debouncer.Trigger(func() {
		s.runBlueprintSearch(context.Background())
	})
	return st
}

func (s *Session) runBlueprintSearch(ctx context.Context) State {
	st := s.State()
	query, seq := strings.TrimSpace(st.Blueprint.Query), st.Blueprint.SearchSeq
	if query == "" {
		return st
	}

	results, err := s.lookup.Search(ctx, query, s.searchLimit)
	if err != nil {
		s.log.Warn("Blueprint search failed", "query", query, "error", err)
		return s.Dispatch(ctx, BlueprintResults{Seq: seq, Err: err.Error()})
	}
	return s.Dispatch(ctx, BlueprintResults{Seq: seq, Results: results})
}

// ApplyBlueprint 加载蓝本概念并合并到草稿
func (s *Session) ApplyBlueprint(ctx context.Context, id string) State {
	st := s.Dispatch(ctx, BlueprintRequested{ID: id})
	if st.Done() {
		return st
	}
	seq := st.Blueprint.LoadSeq

	detail, err := s.lookup.GetDetail(ctx, strings.TrimSpace(id))
	if err != nil {
		s.log.Warn("Failed to load blueprint concept", "blueprint", id, "error", err)
		return s.Dispatch(ctx, BlueprintLoaded{Seq: seq, Err: describe(err)})
	}
	return s.Dispatch(ctx, BlueprintLoaded{Seq: seq, Concept: detail.Concept})
}

// Generate 根据描述生成草稿并合并
// 未配置生成器或描述为空时返回错误且状态不变
func (s *Session) Generate(ctx context.Context, brief generator.Brief) (State, error) {
	if s.gen == nil {
		return s.State(), generator.ErrUnavailable
	}
	if strings.TrimSpace(brief.Idea) == "" {
		return s.State(), generator.ErrEmptyIdea
	}

	st := s.Dispatch(ctx, GenerationRequested{})
	if st.Done() {
		return st, nil
	}
	seq := st.Generation.Seq
	if strings.TrimSpace(brief.ParentHint) == "" {
		brief.ParentHint = st.Draft.Inherits
	}
	if parent := st.Parent.Parent(); parent != nil && len(brief.ParentProperties) == 0 {
		for _, p := range concept.EffectiveProperties(parent, st.Parent.Chain[1:]) {
			brief.ParentProperties = append(brief.ParentProperties, p.Name)
		}
	}

	suggestion, err := s.gen.Suggest(ctx, brief)
	if err != nil {
		s.log.Warn("Draft generation failed", "error", err)
		st = s.Dispatch(ctx, GenerationCompleted{Seq: seq, Err: err.Error()})
		if errors.Is(err, generator.ErrUnavailable) {
			return st, err
		}
		return st, nil
	}

	st = s.Dispatch(ctx, GenerationCompleted{Seq: seq, Suggestion: suggestion})
	// 生成结果带来新的父概念时加载其上下文
	if st.Draft.Inherits != "" && st.Draft.Inherits != st.Parent.ID && st.Generation.Seq == seq {
		st = s.loadParent(ctx, st.Draft.Inherits)
	}
	return st, nil
}

// Submit 校验并创建概念
// Brief 校验失败时退回 Brief，不调用持久化
func (s *Session) Submit(ctx context.Context) State {
	prev, st := s.apply(ctx, SubmitRequested{})
	if prev.Submitting || !st.Submitting {
		return st
	}

	payload := st.Draft.Payload()
	created, err := s.lookup.Create(ctx, payload)
	switch {
	case err == nil:
		s.log.Info("Concept created from wizard", "concept", created.ID)
		return s.Dispatch(ctx, SubmitSucceeded{ID: created.ID})
	case errors.Is(err, concept.ErrConflict):
		return s.Dispatch(ctx, SubmitConflict{
			ID:      payload.ID,
			Message: fmt.Sprintf("A concept with id %q already exists. Rename it or replace the existing concept.", payload.ID),
		})
	default:
		s.log.Warn("Failed to create concept", "concept", payload.ID, "error", err)
		return s.Dispatch(ctx, SubmitFailed{Message: fmt.Sprintf("Could not create concept: %s", describe(err))})
	}
}

// Replace 删除冲突的旧概念后重新创建
// 两步不具备原子性，创建失败时旧概念已不可恢复，状态中会明确说明
func (s *Session) Replace(ctx context.Context) State {
	prev, st := s.apply(ctx, ReplaceRequested{})
	if prev.Submitting || !st.Submitting || prev.Conflict == nil {
		return st
	}

	existing := prev.Conflict.ID
	if err := s.lookup.Delete(ctx, existing); err != nil {
		s.log.Warn("Failed to delete conflicting concept", "concept", existing, "error", err)
		return s.Dispatch(ctx, ReplaceFailed{Message: describe(err)})
	}

	created, err := s.lookup.Create(ctx, st.Draft.Payload())
	if err != nil {
		s.log.Error("Concept deleted but replacement failed", "concept", existing, "error", err)
		return s.Dispatch(ctx, ReplaceFailed{Deleted: true, Message: describe(err)})
	}
	s.log.Info("Concept replaced from wizard", "concept", created.ID)
	return s.Dispatch(ctx, ReplaceSucceeded{ID: created.ID})
}

// Close 停止等待中的搜索，已经开始的请求完成后也不会再写入存储
func (s *Session) Close() {
	s.debouncer.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// describe 校验错误只展示消息
func describe(err error) string {
	var verr *concept.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
