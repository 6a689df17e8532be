package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
	"velaris/pkg/metrics"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// ErrNotFound is returned when CoinGecko has no such coin.
var ErrNotFound = errors.New("coin not found")

// APIError is a non-200 reply from CoinGecko.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko API error %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// CoinGeckoProvider fetches market data from the CoinGecko REST API.
type CoinGeckoProvider struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	tracer       trace.Tracer
	limiter      *RateLimiter
	retryInitial time.Duration
	maxTries     uint
}

// NewCoinGeckoProvider creates a provider with built-in rate limiting. The
// public API allows roughly 10 calls a minute, a demo key raises that to 30.
func NewCoinGeckoProvider(tracer trace.Tracer, apiKey string) *CoinGeckoProvider {
	limiter := NewRateLimiter(10, 6*time.Second)
	if apiKey != "" {
		limiter = NewRateLimiter(30, 2*time.Second)
	}
	return &CoinGeckoProvider{
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      coingeckoBaseURL,
		apiKey:       apiKey,
		tracer:       tracer,
		limiter:      limiter,
		retryInitial: time.Second,
		maxTries:     3,
	}
}

// FetchGlobal returns aggregate market statistics.
func (p *CoinGeckoProvider) FetchGlobal(ctx context.Context) (*domain.GlobalStats, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-global")
	defer span.End()

	var payload struct {
		Data domain.GlobalStats `json:"data"`
	}
	if err := p.getJSON(ctx, "/global", nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch global: %w", err)
	}
	return &payload.Data, nil
}

// FetchMarkets returns one page of coins ordered by market cap.
func (p *CoinGeckoProvider) FetchMarkets(ctx context.Context, currency string, limit, page int) ([]domain.Coin, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-markets")
	defer span.End()
	span.SetAttributes(attribute.String("currency", currency), attribute.Int("limit", limit))

	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("vs_currency", currency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "1h,24h,7d")

	var coins []domain.Coin
	if err := p.getJSON(ctx, "/coins/markets", q, &coins); err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	return coins, nil
}

// FetchCoin returns the detail payload for a single coin.
func (p *CoinGeckoProvider) FetchCoin(ctx context.Context, id string) (*domain.CoinDetail, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-coin")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", id))

	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "true")
	q.Set("developer_data", "false")

	var detail domain.CoinDetail
	if err := p.getJSON(ctx, "/coins/"+url.PathEscape(id), q, &detail); err != nil {
		return nil, fmt.Errorf("fetch coin %s: %w", id, err)
	}
	return &detail, nil
}

// FetchMarketChart returns price, market cap and volume points for the last
// days. CoinGecko picks ~5 minute granularity for 1 day, hourly up to 90 days
// and daily beyond that.
func (p *CoinGeckoProvider) FetchMarketChart(ctx context.Context, id, currency string, days int) (*domain.MarketChart, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-market-chart")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", id), attribute.Int("days", days))

	q := url.Values{}
	q.Set("vs_currency", currency)
	q.Set("days", strconv.Itoa(days))

	var chart domain.MarketChart
	if err := p.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q, &chart); err != nil {
		return nil, fmt.Errorf("fetch market chart for %s: %w", id, err)
	}
	return &chart, nil
}

// FetchTrending returns the coins trending in CoinGecko searches.
func (p *CoinGeckoProvider) FetchTrending(ctx context.Context) ([]domain.TrendingCoin, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-trending")
	defer span.End()

	var payload struct {
		Coins []struct {
			Item domain.TrendingCoin `json:"item"`
		} `json:"coins"`
	}
	if err := p.getJSON(ctx, "/search/trending", nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}

	out := make([]domain.TrendingCoin, 0, len(payload.Coins))
	for _, c := range payload.Coins {
		out = append(out, c.Item)
	}
	return out, nil
}

func (p *CoinGeckoProvider) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := strings.TrimRight(p.baseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := p.doRequest(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// doRequest retries 429 and 5xx replies with exponential backoff. Other
// client errors fail immediately.
func (p *CoinGeckoProvider) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInitial

	start := time.Now()
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return p.attempt(ctx, endpoint)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.maxTries))

	metrics.UpstreamDuration.WithLabelValues("coingecko").Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues("coingecko", metrics.Outcome(err)).Inc()
	return body, err
}

func (p *CoinGeckoProvider) attempt(ctx context.Context, endpoint string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return io.ReadAll(resp.Body)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apiErr
	}
	return nil, backoff.Permanent(apiErr)
}
