package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"velaris/internal/service"
)

// GetGlobal godoc
// @Summary      Global market statistics
// @Description  Total market cap, volume and dominance, with the fear & greed index when available
// @Tags         market
// @Produce      json
// @Success      200  {object}  domain.GlobalStats
// @Failure      502  {object}  map[string]string
// @Router       /api/global [get]
func (h *Handler) GetGlobal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-global")
	defer span.End()

	stats, err := h.markets.GlobalStats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type listCoinsQuery struct {
	Limit    *int   `form:"limit" binding:"omitempty,min=1,max=250"`
	Currency string `form:"currency" binding:"omitempty,oneof=usd eur gbp jpy btc eth"`
	Search   string `form:"search" binding:"omitempty,max=100"`
}

// ListCoins godoc
// @Summary      Coins by market cap
// @Tags         market
// @Produce      json
// @Param        limit     query  int     false  "Number of coins (1-250)"  default(100)
// @Param        currency  query  string  false  "Quote currency"  default(usd)
// @Param        search    query  string  false  "Case-insensitive name filter"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/coins [get]
func (h *Handler) ListCoins(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-coins")
	defer span.End()

	var q listCoinsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	limit := 0
	if q.Limit != nil {
		limit = *q.Limit
	}
	span.SetAttributes(attribute.String("currency", q.Currency), attribute.Int("limit", limit))

	coins, err := h.markets.SearchMarkets(ctx, q.Currency, limit, q.Search)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins, "count": len(coins)})
}

// GetCoin godoc
// @Summary      Coin detail
// @Tags         market
// @Produce      json
// @Param        id  path  string  true  "CoinGecko coin id (e.g. bitcoin)"
// @Success      200  {object}  domain.CoinDetail
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/coins/{id} [get]
func (h *Handler) GetCoin(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-coin")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", c.Param("id")))

	detail, err := h.markets.Coin(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetHistory godoc
// @Summary      Price history
// @Description  Market chart for the last days, bucketed into OHLCV candles when an interval is given
// @Tags         market
// @Produce      json
// @Param        id        path   string  true   "CoinGecko coin id"
// @Param        days      query  int     false  "Days of history (1-365)"  default(7)
// @Param        interval  query  string  false  "Candle interval (5m, 15m, 1h, 4h, 1d)"
// @Param        currency  query  string  false  "Quote currency"  default(usd)
// @Success      200  {object}  service.History
// @Failure      400  {object}  map[string]string
// @Router       /api/coins/{id}/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	days := service.DefaultHistoryDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return
		}
		days = n
	}
	if days < 1 || days > service.MaxHistoryDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
		return
	}

	history, err := h.markets.History(ctx, c.Param("id"), c.Query("currency"), days, c.Query("interval"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetTrending godoc
// @Summary      Trending coins
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/trending [get]
func (h *Handler) GetTrending(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-trending")
	defer span.End()

	coins, err := h.markets.Trending(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}
