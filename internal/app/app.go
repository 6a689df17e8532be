// Package app assembles the pieces every velaris binary shares: market data,
// the advisor and the whale alert store.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/advisor"
	"velaris/internal/cache"
	"velaris/internal/config"
	"velaris/internal/db"
	"velaris/internal/domain"
	"velaris/internal/provider"
	"velaris/internal/repository"
	"velaris/internal/service"
	"velaris/internal/whale"
)

// AlertStore records and lists whale alerts.
type AlertStore interface {
	Insert(ctx context.Context, a domain.WhaleAlert) (bool, error)
	List(ctx context.Context, filter domain.WhaleAlertFilter) ([]domain.WhaleAlert, error)
}

type Core struct {
	Rules   whale.Rules
	Markets *service.MarketService
	News    *provider.NewsAggregator
	Advisor *advisor.Service
	Alerts  AlertStore

	pool  *pgxpool.Pool
	redis *redis.Client
}

var (
	connectPostgres = db.Connect
	connectRedis    = cache.Connect
	loadRules       = whale.LoadRules
	newLLMClient    = advisor.NewOpenAIClient
)

// Build wires the shared components. Postgres and Redis are optional: without
// them conversations and alerts live in memory and market data goes uncached.
// Only an unreadable whale rules file is fatal.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (*Core, error) {
	rules, err := loadRules(cfg.WhaleRulesFile)
	if err != nil {
		return nil, fmt.Errorf("load whale rules: %w", err)
	}
	c := &Core{Rules: rules}

	c.pool, err = connectPostgres(ctx, cfg.DatabaseURL)
	if err != nil && !errors.Is(err, db.ErrNotConfigured) {
		log.Warn().Err(err).Msg("postgres unavailable, using in-memory stores")
	}

	var redisClient service.RedisClient
	c.redis, err = connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, market data will not be cached until it recovers")
	}
	if c.redis != nil {
		redisClient = c.redis
	}

	c.Markets = service.NewMarketService(
		tracer,
		provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoAPIKey),
		provider.NewFearGreedProvider(tracer),
		redisClient,
		provider.BuildCandles,
	)
	c.News = provider.NewNewsAggregator(
		tracer,
		provider.NewRSSProvider(tracer, cfg.NewsFeeds),
		provider.NewRedditProvider(tracer),
		cfg.NewsSubreddits,
		0,
	)

	var conversations advisor.ConversationStore
	if c.pool != nil {
		conversations = repository.NewConversationRepository(c.pool, tracer)
		c.Alerts = repository.NewWhaleAlertRepository(c.pool, tracer)
	} else {
		c.Alerts = repository.NewMemoryWhaleAlerts(0)
	}

	c.Advisor = advisor.NewService(
		tracer,
		newLLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
		c.Markets,
		c.News,
		conversations,
		cfg.OpenAIModel,
		cfg.AdvisorMaxHistory,
	)
	log.Info().
		Bool("postgres", c.pool != nil).
		Bool("redis", c.redis != nil).
		Bool("ai", c.Advisor.Enabled()).
		Msg("core components ready")
	return c, nil
}

// Close releases the database pool and Redis client.
func (c *Core) Close() {
	if c == nil {
		return
	}
	if c.pool != nil {
		c.pool.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
}
