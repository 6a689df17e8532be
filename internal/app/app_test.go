package app

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/advisor"
	"velaris/internal/config"
	"velaris/internal/db"
	"velaris/internal/repository"
	"velaris/internal/whale"
)

func stubConnections(t *testing.T, pgErr, redisErr error) {
	t.Helper()
	origPG, origRedis := connectPostgres, connectRedis
	t.Cleanup(func() { connectPostgres, connectRedis = origPG, origRedis })

	connectPostgres = func(context.Context, string) (*pgxpool.Pool, error) { return nil, pgErr }
	connectRedis = func(context.Context, string) (*redis.Client, error) { return nil, redisErr }
}

func TestBuildWithoutBackends(t *testing.T) {
	stubConnections(t, db.ErrNotConfigured, errors.New("connection refused"))

	core, err := Build(context.Background(), &config.Config{}, trace.NewNoopTracerProvider().Tracer("test"))
	require.NoError(t, err)
	defer core.Close()

	assert.IsType(t, &repository.MemoryWhaleAlerts{}, core.Alerts)
	assert.False(t, core.Advisor.Enabled())
	assert.Equal(t, whale.DefaultRules(), core.Rules)
	assert.NotNil(t, core.Markets)
	assert.NotNil(t, core.News)
}

func TestBuildEnablesAdvisorWithKey(t *testing.T) {
	stubConnections(t, errors.New("dial tcp: refused"), nil)

	var gotKey string
	origLLM := newLLMClient
	t.Cleanup(func() { newLLMClient = origLLM })
	newLLMClient = func(key, baseURL string) advisor.LLMClient {
		gotKey = key
		return origLLM(key, baseURL)
	}

	core, err := Build(context.Background(), &config.Config{OpenAIAPIKey: "sk-test"}, trace.NewNoopTracerProvider().Tracer("test"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", gotKey)
	assert.True(t, core.Advisor.Enabled())
}

func TestBuildFailsOnBadRules(t *testing.T) {
	stubConnections(t, db.ErrNotConfigured, nil)

	_, err := Build(context.Background(), &config.Config{WhaleRulesFile: "/nonexistent/rules.yaml"}, trace.NewNoopTracerProvider().Tracer("test"))
	assert.Error(t, err)
}

func TestCloseNil(t *testing.T) {
	var c *Core
	c.Close()
}
