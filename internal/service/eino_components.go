package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/ashwinyue/next-concept/internal/config"
)

// newChatModel 创建 ChatModel
func newChatModel(ctx context.Context, cfg *config.Config) (ecomodel.ChatModel, error) {
	aiCfg := cfg.AI

	var provider config.OpenAIConfig
	switch aiCfg.Provider {
	case "openai":
		provider = aiCfg.OpenAI
	case "deepseek":
		provider = aiCfg.DeepSeek
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if provider.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	modelName := provider.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	// 草稿输出为 JSON，降低随机性
	temperature := float32(0.2)

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      provider.APIKey,
		BaseURL:     provider.BaseURL,
		Model:       modelName,
		Temperature: &temperature,
		Timeout:     time.Duration(provider.Timeout) * time.Second,
	})
}

// newESClient 创建 Elasticsearch 客户端，未配置地址时返回 nil
func newESClient(cfg *config.Config) (*elasticsearch.Client, error) {
	esCfg := cfg.Elastic
	if esCfg.Host == "" {
		return nil, nil
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esCfg.Host},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
	})
}
