// Package mcpserver exposes market lookups, whale detection and sentiment as
// Model Context Protocol tools.
package mcpserver

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
	"velaris/internal/whale"
)

type Markets interface {
	SearchMarkets(ctx context.Context, currency string, limit int, term string) ([]domain.Coin, error)
	Coin(ctx context.Context, id string) (*domain.CoinDetail, error)
	Snapshot(ctx context.Context, id string) (domain.MarketSnapshot, error)
	Trending(ctx context.Context) ([]domain.TrendingCoin, error)
}

type Sentiment interface {
	CoinSentiment(ctx context.Context, coinID string) (domain.SentimentResult, error)
}

type Alerts interface {
	List(ctx context.Context, filter domain.WhaleAlertFilter) ([]domain.WhaleAlert, error)
}

type Deps struct {
	Tracer    trace.Tracer
	Markets   Markets
	Sentiment Sentiment
	Alerts    Alerts
	Rules     whale.Rules
	Version   string
	// Timeout bounds every tool call. Zero means 10s.
	Timeout time.Duration
}

type toolset struct {
	Deps
	now func() time.Time
}

// New builds an MCP server with the velaris tools registered.
func New(d Deps) *mcp.Server {
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	ts := &toolset{Deps: d, now: time.Now}

	server := mcp.NewServer(&mcp.Implementation{Name: "velaris", Version: d.Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_markets",
		Description: "List coins by market cap with price, 1h/24h/7d change and volume. Optionally filter by name.",
	}, ts.getMarkets)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_coin",
		Description: "Current metrics and project description for one coin by CoinGecko id (e.g. bitcoin).",
	}, ts.getCoin)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_whales",
		Description: "Heuristic whale activity signals for a coin with confidence scores and a risk summary.",
	}, ts.detectWhales)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_sentiment",
		Description: "Language model sentiment read for a coin based on its description and recent headlines.",
	}, ts.analyzeSentiment)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_trending",
		Description: "Coins currently trending in CoinGecko searches.",
	}, ts.getTrending)
	if d.Alerts != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "list_whale_alerts",
			Description: "Whale alerts recorded by the background scanner, newest first.",
		}, ts.listWhaleAlerts)
	}
	return server
}

func (t *toolset) start(ctx context.Context, tool string) (context.Context, context.CancelFunc, trace.Span) {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	ctx, span := t.Tracer.Start(ctx, "mcp."+tool)
	return ctx, cancel, span
}

type getMarketsInput struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"number of coins, 1 to 250, default 20"`
	Search string `json:"search,omitempty" jsonschema:"case-insensitive name filter"`
}

type marketRow struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Rank      int     `json:"rank"`
	Price     float64 `json:"price_usd"`
	Change1h  float64 `json:"change_1h"`
	Change24h float64 `json:"change_24h"`
	Change7d  float64 `json:"change_7d"`
	MarketCap float64 `json:"market_cap"`
	Volume24h float64 `json:"volume_24h"`
}

type getMarketsOutput struct {
	Coins []marketRow `json:"coins"`
}

func (t *toolset) getMarkets(ctx context.Context, _ *mcp.CallToolRequest, in getMarketsInput) (*mcp.CallToolResult, getMarketsOutput, error) {
	ctx, cancel, span := t.start(ctx, "get-markets")
	defer cancel()
	defer span.End()

	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	coins, err := t.Markets.SearchMarkets(ctx, "usd", limit, in.Search)
	if err != nil {
		return nil, getMarketsOutput{}, fmt.Errorf("get markets: %w", err)
	}

	out := getMarketsOutput{Coins: make([]marketRow, 0, len(coins))}
	for _, c := range coins {
		out.Coins = append(out.Coins, marketRow{
			ID:        c.ID,
			Symbol:    strings.ToUpper(c.Symbol),
			Name:      c.Name,
			Rank:      c.MarketCapRank,
			Price:     c.CurrentPrice,
			Change1h:  c.PriceChange1hInCurrency,
			Change24h: c.PriceChange24hInCurrency,
			Change7d:  c.PriceChange7dInCurrency,
			MarketCap: c.MarketCap,
			Volume24h: c.TotalVolume,
		})
	}
	return nil, out, nil
}

type coinInput struct {
	CoinID string `json:"coin_id" jsonschema:"CoinGecko coin id, e.g. bitcoin"`
}

type getCoinOutput struct {
	Snapshot    domain.MarketSnapshot `json:"snapshot"`
	Description string                `json:"description,omitempty"`
	Homepage    string                `json:"homepage,omitempty"`
}

func (t *toolset) getCoin(ctx context.Context, _ *mcp.CallToolRequest, in coinInput) (*mcp.CallToolResult, getCoinOutput, error) {
	ctx, cancel, span := t.start(ctx, "get-coin")
	defer cancel()
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", in.CoinID))

	detail, err := t.Markets.Coin(ctx, in.CoinID)
	if err != nil {
		return nil, getCoinOutput{}, fmt.Errorf("get coin %s: %w", in.CoinID, err)
	}
	out := getCoinOutput{
		Snapshot:    domain.SnapshotFromDetail(*detail),
		Description: truncate(detail.Description.En, 1000),
	}
	if len(detail.Links.Homepage) > 0 {
		out.Homepage = detail.Links.Homepage[0]
	}
	return nil, out, nil
}

type detectWhalesInput struct {
	CoinID    string   `json:"coin_id" jsonschema:"CoinGecko coin id, e.g. bitcoin"`
	Sentiment *float64 `json:"sentiment,omitempty" jsonschema:"optional sentiment score in [-1,1] to check for divergence"`
}

func (t *toolset) detectWhales(ctx context.Context, _ *mcp.CallToolRequest, in detectWhalesInput) (*mcp.CallToolResult, domain.WhaleInsight, error) {
	ctx, cancel, span := t.start(ctx, "detect-whales")
	defer cancel()
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", in.CoinID))

	if in.Sentiment != nil && (*in.Sentiment < -1 || *in.Sentiment > 1) {
		return nil, domain.WhaleInsight{}, fmt.Errorf("sentiment must be between -1 and 1")
	}
	snap, err := t.Markets.Snapshot(ctx, in.CoinID)
	if err != nil {
		return nil, domain.WhaleInsight{}, fmt.Errorf("detect whales for %s: %w", in.CoinID, err)
	}
	signals := whale.DetectWithConfidence(snap, t.Rules, t.now().UTC())
	insight := whale.Insights(signals, snap.Name)
	insight.Divergence = whale.CheckDivergence(signals, in.Sentiment)
	return nil, insight, nil
}

func (t *toolset) analyzeSentiment(ctx context.Context, _ *mcp.CallToolRequest, in coinInput) (*mcp.CallToolResult, domain.SentimentResult, error) {
	ctx, cancel, span := t.start(ctx, "analyze-sentiment")
	defer cancel()
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", in.CoinID))

	res, err := t.Sentiment.CoinSentiment(ctx, in.CoinID)
	if err != nil {
		return nil, domain.SentimentResult{}, fmt.Errorf("analyze sentiment for %s: %w", in.CoinID, err)
	}
	return nil, res, nil
}

type trendingOutput struct {
	Coins []domain.TrendingCoin `json:"coins"`
}

func (t *toolset) getTrending(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, trendingOutput, error) {
	ctx, cancel, span := t.start(ctx, "get-trending")
	defer cancel()
	defer span.End()

	coins, err := t.Markets.Trending(ctx)
	if err != nil {
		return nil, trendingOutput{}, fmt.Errorf("get trending: %w", err)
	}
	return nil, trendingOutput{Coins: coins}, nil
}

type listAlertsInput struct {
	CoinID string `json:"coin_id,omitempty" jsonschema:"only alerts for this coin"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum alerts, default 50"`
}

type listAlertsOutput struct {
	Alerts []domain.WhaleAlert `json:"alerts"`
}

func (t *toolset) listWhaleAlerts(ctx context.Context, _ *mcp.CallToolRequest, in listAlertsInput) (*mcp.CallToolResult, listAlertsOutput, error) {
	ctx, cancel, span := t.start(ctx, "list-whale-alerts")
	defer cancel()
	defer span.End()

	alerts, err := t.Alerts.List(ctx, domain.WhaleAlertFilter{CoinID: in.CoinID, Limit: in.Limit})
	if err != nil {
		return nil, listAlertsOutput{}, fmt.Errorf("list whale alerts: %w", err)
	}
	if alerts == nil {
		alerts = []domain.WhaleAlert{}
	}
	return nil, listAlertsOutput{Alerts: alerts}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// HTTPHandler serves the server over streamable HTTP. A non-empty token is
// required as a bearer credential on every request.
func HTTPHandler(server *mcp.Server, token string) http.Handler {
	h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	if token == "" {
		return h
	}
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			log.Warn().Str("remote", r.RemoteAddr).Msg("mcp request rejected: bad token")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}
