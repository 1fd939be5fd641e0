package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("Docker not available")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("lavashow_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/lavashow_test?sslmode=disable", host, port.Port())

	s, err := Open(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))

	base := time.Date(2024, 11, 5, 14, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, Entry{SessionID: "pg", UserMessage: "hi", Reply: "Hello!", Source: "greeting", CreatedAt: base}))
	require.NoError(t, s.Record(ctx, Entry{SessionID: "pg", UserMessage: "price?", Reply: "6,590 ISK", QueryType: "pricing", Source: "llm", CreatedAt: base.Add(time.Second)}))

	entries, err := s.ListBySession(ctx, "pg", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pricing", entries[1].QueryType)

	got, err := s.Get(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", got.Reply)
}
