package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/advisor"
	"velaris/internal/domain"
	"velaris/internal/provider"
	"velaris/internal/service"
	"velaris/internal/whale"
)

// MarketReader is the cached market data the API serves.
type MarketReader interface {
	GlobalStats(ctx context.Context) (*domain.GlobalStats, error)
	Markets(ctx context.Context, currency string, limit int) ([]domain.Coin, error)
	SearchMarkets(ctx context.Context, currency string, limit int, term string) ([]domain.Coin, error)
	Coin(ctx context.Context, id string) (*domain.CoinDetail, error)
	History(ctx context.Context, id, currency string, days int, interval string) (*service.History, error)
	Trending(ctx context.Context) ([]domain.TrendingCoin, error)
	Snapshot(ctx context.Context, id string) (domain.MarketSnapshot, error)
	Snapshots(ctx context.Context, limit int) ([]domain.MarketSnapshot, error)
}

// Advisor is the language model feature set.
type Advisor interface {
	Enabled() bool
	CoinSentiment(ctx context.Context, coinID string) (domain.SentimentResult, error)
	ExplainWhales(ctx context.Context, signals []domain.WhaleSignal, coinName string) (string, error)
	Ask(ctx context.Context, sessionID, question string) (string, error)
	QueryPortfolio(ctx context.Context, question string, coins []domain.Coin) string
	Summarize(ctx context.Context, text string, points int) []string
}

type AlertLister interface {
	List(ctx context.Context, filter domain.WhaleAlertFilter) ([]domain.WhaleAlert, error)
}

type Handler struct {
	tracer      trace.Tracer
	markets     MarketReader
	advisor     Advisor
	alerts      AlertLister
	rules       whale.Rules
	outliers    *whale.OutlierDetector
	stream      http.Handler
	chatLimiter *SessionLimiter
	apiKey      string
}

// Options carries the optional parts of the API.
type Options struct {
	Stream         http.Handler
	APIKey         string
	ChatRatePerMin int
}

func New(
	tracer trace.Tracer,
	markets MarketReader,
	adv Advisor,
	alerts AlertLister,
	rules whale.Rules,
	opts Options,
) *Handler {
	registerValidators()
	return &Handler{
		tracer:      tracer,
		markets:     markets,
		advisor:     adv,
		alerts:      alerts,
		rules:       rules,
		outliers:    whale.NewOutlierDetector(rules),
		stream:      opts.Stream,
		chatLimiter: NewSessionLimiter(opts.ChatRatePerMin),
		apiKey:      opts.APIKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/global", h.GetGlobal)
	api.GET("/coins", h.ListCoins)
	api.GET("/coins/:id", h.GetCoin)
	api.GET("/coins/:id/history", h.GetHistory)
	api.GET("/coins/:id/whales", h.GetWhales)
	api.POST("/coins/:id/whales/analysis", APIKeyAuth(h.apiKey), h.AnalyzeWhales)
	api.GET("/coins/:id/sentiment", APIKeyAuth(h.apiKey), h.GetSentiment)
	api.GET("/trending", h.GetTrending)
	api.GET("/whales/alerts", h.ListWhaleAlerts)
	api.GET("/market/outliers", h.GetOutliers)

	ai := api.Group("/ai", APIKeyAuth(h.apiKey))
	ai.GET("/status", h.AIStatus)
	ai.POST("/chat", h.Chat)
	ai.POST("/query", h.Query)
	ai.POST("/summarize", h.Summarize)

	if h.stream != nil {
		r.GET("/ws/market", gin.WrapH(h.stream))
	}
}

// respondError maps service errors onto the API's status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCoinID), errors.Is(err, service.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, provider.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "coin not found"})
	case errors.Is(err, advisor.ErrAIDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI features disabled"})
	case errors.Is(err, advisor.ErrUnavailable):
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("language model failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI feature unavailable"})
	default:
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("upstream failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "market data unavailable"})
	}
}
