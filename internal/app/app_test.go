package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/chat"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/config"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/llm"
)

func TestBuild_MemoryWithSQLiteAudit(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Audit.Driver = "sqlite"
	cfg.Audit.SQLitePath = filepath.Join(t.TempDir(), "audit.db")

	mock := llm.NewMockProvider(llm.MockResponse{Content: "Shows run daily at 10:00."})
	a, err := Build(ctx, cfg, nil, Options{Provider: mock})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Metrics)
	require.NotNil(t, a.Audit)

	reply, err := a.Chat.Reply(ctx, chat.Request{Message: "When is the next show?", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Shows run daily at 10:00.", reply.Message)

	entries, err := a.Audit.ListBySession(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, chat.SourceModel, entries[0].Source)
}

func TestBuild_NoAuditNoMetrics(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Observability.MetricsEnabled = false

	a, err := Build(context.Background(), cfg, nil, Options{Provider: llm.NewMockProvider()})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Metrics)
	assert.Nil(t, a.Audit)
	assert.Equal(t, "mock", a.Provider.Name())
}
