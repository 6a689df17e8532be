package job

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
)

// MarketRefresher bypasses the cache and stores a fresh listing.
type MarketRefresher interface {
	RefreshMarkets(ctx context.Context, currency string, limit int) ([]domain.Coin, error)
}

type MarketBroadcaster interface {
	BroadcastMarkets(coins []domain.Coin)
}

// MarketPoller keeps the default markets listing warm and pushes it to
// websocket clients.
type MarketPoller struct {
	tracer       trace.Tracer
	markets      MarketRefresher
	hub          MarketBroadcaster
	pollInterval time.Duration
	currency     string
	limit        int
}

func NewMarketPoller(tracer trace.Tracer, markets MarketRefresher, hub MarketBroadcaster, pollIntervalSecs int) *MarketPoller {
	return &MarketPoller{
		tracer:       tracer,
		markets:      markets,
		hub:          hub,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
		currency:     "usd",
		limit:        100,
	}
}

// Start blocks until ctx is cancelled.
func (p *MarketPoller) Start(ctx context.Context) {
	log.Info().Dur("interval", p.pollInterval).Msg("market poller starting")
	pollLoop(ctx, "markets", p.pollInterval, p.poll)
	log.Info().Msg("market poller stopped")
}

func (p *MarketPoller) poll(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "market-poller.poll")
	defer span.End()

	coins, err := p.markets.RefreshMarkets(ctx, p.currency, p.limit)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("coin_count", len(coins)))
	if p.hub != nil {
		p.hub.BroadcastMarkets(coins)
	}
	return nil
}

// pollLoop runs fn immediately and then on every tick until ctx ends.
func pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Str("job", name).Msg("initial run failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Warn().Err(err).Str("job", name).Msg("run failed")
			}
		}
	}
}
