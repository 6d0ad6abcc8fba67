package service

import (
	"context"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-concept/internal/config"
	"github.com/ashwinyue/next-concept/internal/logger"
	"github.com/ashwinyue/next-concept/internal/repository"
	"github.com/ashwinyue/next-concept/internal/service/auth"
	"github.com/ashwinyue/next-concept/internal/service/callback"
	"github.com/ashwinyue/next-concept/internal/service/concept"
	"github.com/ashwinyue/next-concept/internal/service/generator"
	"github.com/ashwinyue/next-concept/internal/service/wizard"
)

// Services 服务集合
type Services struct {
	Concept   *concept.Service
	Generator *generator.Generator
	Wizard    *wizard.Manager
	// Auth 未启用认证时为 nil
	Auth *auth.Service

	// 配置
	Config *config.Config

	// Eino 组件
	ChatModel ecomodel.ChatModel
}

// NewServices 创建所有服务
// redisClient 为 nil 时不启用详情缓存，向导状态保存在进程内
func NewServices(ctx context.Context, repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, log *logger.Logger) (*Services, error) {
	if log == nil {
		log = logger.Nop()
	}

	var opts []concept.Option

	esClient, err := newESClient(cfg)
	if err != nil {
		log.Warn("Failed to create elasticsearch client, falling back to database search", "error", err)
	} else if esClient != nil {
		indexer := concept.NewESIndexer(esClient, cfg.Elastic.IndexName())
		if err := indexer.EnsureIndex(ctx); err != nil {
			log.Warn("Failed to ensure concept index", "index", cfg.Elastic.IndexName(), "error", err)
		}
		opts = append(opts, concept.WithIndexer(indexer))
	}

	var checkpointStore compose.CheckPointStore
	if redisClient != nil {
		opts = append(opts, concept.WithDetailCache(concept.NewRedisDetailCache(redisClient, cfg.Cache.DetailExpiry())))
		checkpointStore = wizard.NewRedisCheckpointStore(redisClient, cfg.Wizard.SessionExpiry())
	} else {
		checkpointStore = wizard.NewMemoryCheckpointStore()
	}

	conceptSvc := concept.NewService(repo.Concept, log, opts...)

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		log.Warn("Draft generation disabled", "error", err)
		chatModel = nil
	}
	gen := generator.NewGenerator(chatModel, log, generator.WithCallbacks(callback.NewLogger(log)))

	var authSvc *auth.Service
	if cfg.Auth.Enabled {
		authSvc, err = auth.NewService(cfg.Auth)
		if err != nil {
			return nil, err
		}
	}

	wizardMgr := wizard.NewManager(
		wizard.NewStateStore(checkpointStore),
		conceptSvc,
		gen,
		wizard.ManagerConfig{
			SearchDebounce: cfg.Wizard.SearchDebounce(),
			SearchLimit:    cfg.Wizard.SearchLimit,
			SessionTTL:     cfg.Wizard.SessionExpiry(),
		},
		log,
	)

	return &Services{
		Concept:   conceptSvc,
		Generator: gen,
		Wizard:    wizardMgr,
		Auth:      authSvc,
		Config:    cfg,
		ChatModel: chatModel,
	}, nil
}

// Close 释放后台资源
func (s *Services) Close() {
	s.Wizard.Shutdown()
}
