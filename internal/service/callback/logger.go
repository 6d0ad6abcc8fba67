// Package callback 提供 Eino Callback 日志支持
package callback

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-concept/internal/logger"
)

// Logger 日志回调处理器
// 实现 callbacks.Handler 接口，记录草稿生成过程中 ChatModel 的调用
type Logger struct {
	log *logger.Logger
}

// NewLogger 创建日志回调处理器
func NewLogger(log *logger.Logger) *Logger {
	if log == nil {
		log = logger.Nop()
	}
	return &Logger{log: log.With("component", "eino")}
}

// RunInfo 草稿生成使用的运行信息
func RunInfo(name string) *callbacks.RunInfo {
	return &callbacks.RunInfo{Name: name, Type: "ChatModel", Component: components.ComponentOfChatModel}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	kv := runFields(info)
	if in := model.ConvCallbackInput(input); in != nil {
		kv = append(kv, "messages", len(in.Messages))
	}
	l.log.Debug("component started", kv...)
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	kv := runFields(info)
	if out := model.ConvCallbackOutput(output); out != nil {
		if out.Message != nil {
			kv = append(kv, "content_length", len(out.Message.Content))
		}
		if out.TokenUsage != nil {
			kv = append(kv,
				"prompt_tokens", out.TokenUsage.PromptTokens,
				"completion_tokens", out.TokenUsage.CompletionTokens,
			)
		}
	}
	l.log.Info("component finished", kv...)
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.log.Error("component failed", append(runFields(info), "error", err)...)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	l.log.Debug("stream started", runFields(info)...)
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	l.log.Debug("stream finished", runFields(info)...)
	return ctx
}

func runFields(info *callbacks.RunInfo) []interface{} {
	if info == nil {
		return []interface{}{}
	}
	return []interface{}{"name", info.Name, "type", info.Type, "kind", string(info.Component)}
}

// WithRun 在 ctx 上初始化回调管理器，组件内部的 OnStart/OnEnd 会分发给 handlers
func WithRun(ctx context.Context, info *callbacks.RunInfo, handlers ...callbacks.Handler) context.Context {
	if len(handlers) == 0 {
		return ctx
	}
	return callbacks.InitCallbacks(ctx, info, handlers...)
}
