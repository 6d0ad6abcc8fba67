package callback

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ashwinyue/next-concept/internal/logger"
)

func observed() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestLoggerRecordsModelCall(t *testing.T) {
	log, logs := observed()
	ctx := WithRun(context.Background(), RunInfo("concept-draft"), NewLogger(log))

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("idea")},
	})
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    schema.AssistantMessage(`{"label":"Receipt"}`, nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 17},
	})

	started := logs.FilterMessage("component started").All()
	require.Len(t, started, 1)
	assert.Equal(t, int64(2), started[0].ContextMap()["messages"])
	assert.Equal(t, "concept-draft", started[0].ContextMap()["name"])

	finished := logs.FilterMessage("component finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, int64(12), finished[0].ContextMap()["prompt_tokens"])
	assert.Equal(t, int64(19), finished[0].ContextMap()["content_length"])
}

func TestLoggerRecordsError(t *testing.T) {
	log, logs := observed()
	ctx := WithRun(context.Background(), RunInfo("concept-draft"), NewLogger(log))

	callbacks.OnError(ctx, errors.New("rate limited"))

	entries := logs.FilterMessage("component failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "rate limited", entries[0].ContextMap()["error"])
}

func TestWithRunWithoutHandlers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithRun(ctx, RunInfo("x")))
}
