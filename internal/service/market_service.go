package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
	"velaris/pkg/metrics"
)

const (
	globalCacheTTL    = 60 * time.Second
	marketsCacheTTL   = 60 * time.Second
	trendingCacheTTL  = 60 * time.Second
	coinCacheTTL      = 120 * time.Second
	chartCacheTTL     = 300 * time.Second
	fearGreedCacheTTL = 10 * time.Minute

	DefaultMarketLimit = 100
	MaxMarketLimit     = 250
	DefaultHistoryDays = 7
	MaxHistoryDays     = 365
)

var (
	ErrInvalidCoinID   = errors.New("invalid coin id")
	ErrInvalidArgument = errors.New("invalid argument")
)

type MarketProvider interface {
	FetchGlobal(ctx context.Context) (*domain.GlobalStats, error)
	FetchMarkets(ctx context.Context, currency string, limit, page int) ([]domain.Coin, error)
	FetchCoin(ctx context.Context, id string) (*domain.CoinDetail, error)
	FetchMarketChart(ctx context.Context, id, currency string, days int) (*domain.MarketChart, error)
	FetchTrending(ctx context.Context) ([]domain.TrendingCoin, error)
}

type FearGreedSource interface {
	FetchLatest(ctx context.Context) (*domain.FearGreed, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// CandleBuilder turns a market chart into OHLCV candles.
type CandleBuilder func(coinID, interval string, chart *domain.MarketChart) []domain.Candle

// History is a market chart plus, when an interval was asked for, its candles.
type History struct {
	CoinID   string              `json:"coin_id"`
	Currency string              `json:"currency"`
	Days     int                 `json:"days"`
	Interval string              `json:"interval,omitempty"`
	Chart    *domain.MarketChart `json:"chart"`
	Candles  []domain.Candle     `json:"candles,omitempty"`
}

// MarketService answers market queries from a short lived Redis cache and
// falls back to CoinGecko on a miss. Without Redis every call goes upstream.
type MarketService struct {
	tracer    trace.Tracer
	provider  MarketProvider
	fearGreed FearGreedSource
	redis     RedisClient
	candles   CandleBuilder
}

func NewMarketService(
	tracer trace.Tracer,
	provider MarketProvider,
	fearGreed FearGreedSource,
	redisClient RedisClient,
	candles CandleBuilder,
) *MarketService {
	return &MarketService{
		tracer:    tracer,
		provider:  provider,
		fearGreed: fearGreed,
		redis:     redisClient,
		candles:   candles,
	}
}

// GlobalStats returns aggregate market statistics with the fear & greed index
// attached when it can be read.
func (s *MarketService) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.global-stats")
	defer span.End()

	stats, err := readThrough(ctx, s, "global", "cg:global", globalCacheTTL, s.provider.FetchGlobal)
	if err != nil {
		return nil, err
	}

	if s.fearGreed != nil {
		fg, err := readThrough(ctx, s, "feargreed", "fng:latest", fearGreedCacheTTL, s.fearGreed.FetchLatest)
		if err != nil {
			log.Warn().Err(err).Msg("fear & greed index unavailable")
		} else {
			withIndex := *stats
			withIndex.FearGreed = fg
			stats = &withIndex
		}
	}
	return stats, nil
}

// Markets returns the top coins by market cap. limit 0 means the default of
// 100 and values above 250 are capped.
func (s *MarketService) Markets(ctx context.Context, currency string, limit int) ([]domain.Coin, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.markets")
	defer span.End()

	currency, limit, err := normalizeMarketArgs(currency, limit)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("currency", currency), attribute.Int("limit", limit))

	key := marketsKey(currency, limit)
	return readThrough(ctx, s, "markets", key, marketsCacheTTL, func(ctx context.Context) ([]domain.Coin, error) {
		return s.provider.FetchMarkets(ctx, currency, limit, 1)
	})
}

// SearchMarkets filters Markets by a case-insensitive name match.
func (s *MarketService) SearchMarkets(ctx context.Context, currency string, limit int, term string) ([]domain.Coin, error) {
	coins, err := s.Markets(ctx, currency, limit)
	if err != nil {
		return nil, err
	}
	return FilterByName(coins, term), nil
}

// FilterByName keeps coins whose name contains term, ignoring case. An empty
// term keeps everything.
func FilterByName(coins []domain.Coin, term string) []domain.Coin {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return coins
	}
	out := make([]domain.Coin, 0, len(coins))
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	return out
}

// RefreshMarkets fetches the listing upstream and overwrites the cache entry.
func (s *MarketService) RefreshMarkets(ctx context.Context, currency string, limit int) ([]domain.Coin, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.refresh-markets")
	defer span.End()

	currency, limit, err := normalizeMarketArgs(currency, limit)
	if err != nil {
		return nil, err
	}

	coins, err := s.provider.FetchMarkets(ctx, currency, limit, 1)
	if err != nil {
		return nil, err
	}
	s.store(ctx, marketsKey(currency, limit), coins, marketsCacheTTL)
	log.Debug().Str("currency", currency).Int("coins", len(coins)).Msg("refreshed market listing")
	return coins, nil
}

// Coin returns the detail view for a coin id.
func (s *MarketService) Coin(ctx context.Context, id string) (*domain.CoinDetail, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.coin")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", id))

	if !domain.ValidCoinID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCoinID, id)
	}
	return readThrough(ctx, s, "coin", "cg:coin:"+id, coinCacheTTL, func(ctx context.Context) (*domain.CoinDetail, error) {
		return s.provider.FetchCoin(ctx, id)
	})
}

// History returns the price chart for the last days, bucketed into candles
// when interval is set.
func (s *MarketService) History(ctx context.Context, id, currency string, days int, interval string) (*History, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.history")
	defer span.End()

	if !domain.ValidCoinID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCoinID, id)
	}
	currency, _, err := normalizeMarketArgs(currency, DefaultMarketLimit)
	if err != nil {
		return nil, err
	}
	if days == 0 {
		days = DefaultHistoryDays
	}
	if days < 1 || days > MaxHistoryDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidArgument, MaxHistoryDays)
	}
	if interval != "" && !supportedInterval(interval) {
		return nil, fmt.Errorf("%w: unsupported interval %q", ErrInvalidArgument, interval)
	}

	key := fmt.Sprintf("cg:chart:%s:%s:%d", id, currency, days)
	chart, err := readThrough(ctx, s, "chart", key, chartCacheTTL, func(ctx context.Context) (*domain.MarketChart, error) {
		return s.provider.FetchMarketChart(ctx, id, currency, days)
	})
	if err != nil {
		return nil, err
	}

	h := &History{CoinID: id, Currency: currency, Days: days, Interval: interval, Chart: chart}
	if interval != "" && s.candles != nil {
		h.Candles = s.candles(id, interval, chart)
	}
	return h, nil
}

// Trending returns the coins trending in CoinGecko search.
func (s *MarketService) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.trending")
	defer span.End()

	return readThrough(ctx, s, "trending", "cg:trending", trendingCacheTTL, s.provider.FetchTrending)
}

// Snapshot returns the whale metrics for one coin, read from its detail view.
func (s *MarketService) Snapshot(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	detail, err := s.Coin(ctx, id)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return domain.SnapshotFromDetail(*detail), nil
}

// Snapshots returns whale metrics for the top limit coins in USD.
func (s *MarketService) Snapshots(ctx context.Context, limit int) ([]domain.MarketSnapshot, error) {
	coins, err := s.Markets(ctx, "usd", limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MarketSnapshot, 0, len(coins))
	for _, c := range coins {
		out = append(out, domain.SnapshotFromCoin(c))
	}
	return out, nil
}

// Top returns the n largest coins in USD. Up to 100 come from the default
// listing, which the market poller keeps warm; larger n reads a longer one.
func (s *MarketService) Top(ctx context.Context, n int) ([]domain.Coin, error) {
	limit := DefaultMarketLimit
	if n > DefaultMarketLimit {
		limit = min(n, MaxMarketLimit)
	}
	coins, err := s.Markets(ctx, "usd", limit)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(coins) > n {
		coins = coins[:n]
	}
	return coins, nil
}

func normalizeMarketArgs(currency string, limit int) (string, int, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}
	if !domain.ValidCurrency(currency) {
		return "", 0, fmt.Errorf("%w: unsupported currency %q", ErrInvalidArgument, currency)
	}
	switch {
	case limit == 0:
		limit = DefaultMarketLimit
	case limit < 0:
		return "", 0, fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	case limit > MaxMarketLimit:
		limit = MaxMarketLimit
	}
	return currency, limit, nil
}

func marketsKey(currency string, limit int) string {
	return fmt.Sprintf("cg:markets:%s:%d", currency, limit)
}

func supportedInterval(interval string) bool {
	for _, i := range domain.SupportedIntervals {
		if i == interval {
			return true
		}
	}
	return false
}

// readThrough serves key from Redis or calls fetch and caches its result.
// Cache failures are logged and never fail the request.
func readThrough[T any](ctx context.Context, s *MarketService, resource, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if s.redis != nil {
		var cached T
		hit, err := s.load(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("redis cache read error")
		}
		if hit {
			metrics.CacheLookups.WithLabelValues(resource, "hit").Inc()
			return cached, nil
		}
		metrics.CacheLookups.WithLabelValues(resource, "miss").Inc()
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.store(ctx, key, v, ttl)
	return v, nil
}

func (s *MarketService) load(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (s *MarketService) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("encode cache entry")
		return
	}
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache write error")
	}
}
