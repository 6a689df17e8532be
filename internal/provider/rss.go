package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"velaris/pkg/metrics"
)

// RSSProvider reads crypto news feeds.
type RSSProvider struct {
	client *http.Client
	tracer trace.Tracer
	feeds  []string
}

func NewRSSProvider(tracer trace.Tracer, feeds []string) *RSSProvider {
	return &RSSProvider{
		client: &http.Client{Timeout: 20 * time.Second},
		tracer: tracer,
		feeds:  feeds,
	}
}

// FetchHeadlines reads every configured feed. Feeds that fail are logged and
// skipped so one dead feed does not hide the rest.
func (p *RSSProvider) FetchHeadlines(ctx context.Context, maxPerFeed int) []Headline {
	ctx, span := p.tracer.Start(ctx, "rss.fetch-headlines")
	defer span.End()

	var out []Headline
	for _, feed := range p.feeds {
		items, err := p.FetchFeed(ctx, feed, maxPerFeed)
		if err != nil {
			log.Warn().Err(err).Str("feed", feed).Msg("rss feed unavailable")
			continue
		}
		out = append(out, items...)
	}
	return out
}

func (p *RSSProvider) FetchFeed(ctx context.Context, feedURL string, maxItems int) (items []Headline, err error) {
	ctx, span := p.tracer.Start(ctx, "rss.fetch-feed")
	defer span.End()
	defer func() { metrics.UpstreamRequests.WithLabelValues("rss", metrics.Outcome(err)).Inc() }()

	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	if maxItems <= 0 {
		maxItems = 40
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rss fetch error %d: %s", resp.StatusCode, string(body))
	}

	var rss struct {
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				Title   string `xml:"title"`
				Link    string `xml:"link"`
				PubDate string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, fmt.Errorf("decode rss payload: %w", err)
	}

	source := sanitizeText(rss.Channel.Title, 120)
	if source == "" {
		source = "news"
	}
	items = make([]Headline, 0, min(maxItems, len(rss.Channel.Items)))
	for _, row := range rss.Channel.Items {
		if len(items) >= maxItems {
			break
		}
		title := sanitizeText(htmlStrip(row.Title), 300)
		if title == "" {
			continue
		}
		publishedAt := parseRSSDate(row.PubDate)
		if publishedAt.IsZero() {
			publishedAt = time.Now().UTC()
		}
		items = append(items, Headline{
			Source:      source,
			Title:       title,
			URL:         sanitizeText(row.Link, 500),
			PublishedAt: publishedAt,
		})
	}

	return items, nil
}

func parseRSSDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
