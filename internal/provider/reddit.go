package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"velaris/pkg/metrics"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	defaultRedditUA   = "velaris/1.0 (crypto dashboard)"
	defaultRedditSize = 40
)

// RedditProvider reads hot posts from crypto subreddits.
type RedditProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	tracer    trace.Tracer
}

func NewRedditProvider(tracer trace.Tracer) *RedditProvider {
	return &RedditProvider{
		client:    &http.Client{Timeout: 20 * time.Second},
		baseURL:   redditBaseURL,
		userAgent: defaultRedditUA,
		tracer:    tracer,
	}
}

// FetchHot returns the titles of a subreddit's hot listing. Stickied posts
// are skipped since they are usually moderator notices.
func (p *RedditProvider) FetchHot(ctx context.Context, subreddit string, limit int) (items []Headline, err error) {
	ctx, span := p.tracer.Start(ctx, "reddit.fetch-hot")
	defer span.End()
	defer func() { metrics.UpstreamRequests.WithLabelValues("reddit", metrics.Outcome(err)).Inc() }()

	subreddit = strings.TrimSpace(subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	if limit <= 0 {
		limit = defaultRedditSize
	}
	if limit > 100 {
		limit = 100
	}

	base := strings.TrimRight(p.baseURL, "/")
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", base, url.PathEscape(subreddit), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reddit API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					Title      string  `json:"title"`
					CreatedUTC float64 `json:"created_utc"`
					Permalink  string  `json:"permalink"`
					URL        string  `json:"url"`
					Stickied   bool    `json:"stickied"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}

	items = make([]Headline, 0, len(payload.Data.Children))
	for _, row := range payload.Data.Children {
		data := row.Data
		title := sanitizeText(data.Title, 300)
		if title == "" || data.Stickied {
			continue
		}
		itemURL := strings.TrimSpace(data.URL)
		if permalink := strings.TrimSpace(data.Permalink); permalink != "" {
			itemURL = base + permalink
		}
		items = append(items, Headline{
			Source:      "r/" + subreddit,
			Title:       title,
			URL:         itemURL,
			PublishedAt: time.Unix(int64(data.CreatedUTC), 0).UTC(),
		})
	}

	return items, nil
}
