package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type rssSource interface {
	FetchHeadlines(ctx context.Context, maxPerFeed int) []Headline
}

type redditSource interface {
	FetchHot(ctx context.Context, subreddit string, limit int) ([]Headline, error)
}

// NewsAggregator merges RSS feeds and subreddit listings and keeps the
// combined result for ttl.
type NewsAggregator struct {
	tracer     trace.Tracer
	rss        rssSource
	reddit     redditSource
	subreddits []string
	perSource  int
	ttl        time.Duration

	mu        sync.Mutex
	cached    []Headline
	fetchedAt time.Time
	now       func() time.Time
}

func NewNewsAggregator(tracer trace.Tracer, rss *RSSProvider, reddit *RedditProvider, subreddits []string, ttl time.Duration) *NewsAggregator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	agg := &NewsAggregator{
		tracer:     tracer,
		subreddits: subreddits,
		perSource:  25,
		ttl:        ttl,
		now:        time.Now,
	}
	// keep nil pointers out of the interfaces so the nil checks below hold
	if rss != nil {
		agg.rss = rss
	}
	if reddit != nil {
		agg.reddit = reddit
	}
	return agg
}

// Headlines returns the cached headlines, refreshing them once the ttl has
// passed. A refresh that yields nothing keeps the previous set.
func (a *NewsAggregator) Headlines(ctx context.Context) []Headline {
	ctx, span := a.tracer.Start(ctx, "news.headlines")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil && a.now().Sub(a.fetchedAt) < a.ttl {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return a.cached
	}

	var items []Headline
	if a.rss != nil {
		items = append(items, a.rss.FetchHeadlines(ctx, a.perSource)...)
	}
	if a.reddit != nil {
		for _, sub := range a.subreddits {
			posts, err := a.reddit.FetchHot(ctx, sub, a.perSource)
			if err != nil {
				log.Warn().Err(err).Str("subreddit", sub).Msg("subreddit unavailable")
				continue
			}
			items = append(items, posts...)
		}
	}
	span.SetAttributes(attribute.Int("headline_count", len(items)))

	if len(items) == 0 && a.cached != nil {
		return a.cached
	}
	a.cached = items
	a.fetchedAt = a.now()
	return items
}
