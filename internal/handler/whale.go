package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"velaris/internal/domain"
	"velaris/internal/whale"
)

const outlierUniverse = 100

type whaleResponse struct {
	CoinID   string                `json:"coin_id"`
	Symbol   string                `json:"symbol"`
	Name     string                `json:"name"`
	Snapshot domain.MarketSnapshot `json:"snapshot"`
	Insight  domain.WhaleInsight   `json:"insight"`
}

// GetWhales godoc
// @Summary      Whale signals for a coin
// @Description  Heuristic whale signals with confidence and a risk summary. Passing a sentiment score in [-1,1] also checks for divergence.
// @Tags         whales
// @Produce      json
// @Param        id         path   string  true   "CoinGecko coin id"
// @Param        sentiment  query  number  false  "Sentiment score to compare against"
// @Success      200  {object}  whaleResponse
// @Failure      400  {object}  map[string]string
// @Router       /api/coins/{id}/whales [get]
func (h *Handler) GetWhales(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-whales")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", c.Param("id")))

	var sentiment *float64
	if v := c.Query("sentiment"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -1 || f > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sentiment must be a number between -1 and 1"})
			return
		}
		sentiment = &f
	}

	snap, err := h.markets.Snapshot(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	signals := whale.DetectWithConfidence(snap, h.rules, time.Now().UTC())
	insight := whale.Insights(signals, snap.Name)
	insight.Divergence = whale.CheckDivergence(signals, sentiment)
	span.SetAttributes(attribute.Int("signal_count", len(signals)))

	c.JSON(http.StatusOK, whaleResponse{
		CoinID:   snap.CoinID,
		Symbol:   snap.Symbol,
		Name:     snap.Name,
		Snapshot: snap,
		Insight:  insight,
	})
}

// AnalyzeWhales godoc
// @Summary      AI whale narrative
// @Tags         whales
// @Produce      json
// @Param        id  path  string  true  "CoinGecko coin id"
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/coins/{id}/whales/analysis [post]
func (h *Handler) AnalyzeWhales(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.analyze-whales")
	defer span.End()

	snap, err := h.markets.Snapshot(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	signals := whale.DetectWithConfidence(snap, h.rules, time.Now().UTC())

	analysis, err := h.advisor.ExplainWhales(ctx, signals, snap.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coin_id": snap.CoinID, "signals": signals, "analysis": analysis})
}

type alertsQuery struct {
	Coin  string `form:"coin" binding:"omitempty,coinid"`
	Limit *int   `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListWhaleAlerts godoc
// @Summary      Recorded whale alerts
// @Tags         whales
// @Produce      json
// @Param        coin   query  string  false  "Only alerts for this coin id"
// @Param        limit  query  int     false  "Maximum alerts (1-500)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/whales/alerts [get]
func (h *Handler) ListWhaleAlerts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-whale-alerts")
	defer span.End()

	var q alertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	filter := domain.WhaleAlertFilter{CoinID: q.Coin}
	if q.Limit != nil {
		filter.Limit = *q.Limit
	}
	alerts, err := h.alerts.List(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "alerts unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// GetOutliers godoc
// @Summary      Market outliers
// @Description  Coins an isolation forest scores as anomalous against the top of the market
// @Tags         whales
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/market/outliers [get]
func (h *Handler) GetOutliers(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-outliers")
	defer span.End()

	snaps, err := h.markets.Snapshots(ctx, outlierUniverse)
	if err != nil {
		respondError(c, err)
		return
	}
	outliers := h.outliers.Detect(snaps, time.Now().UTC())
	c.JSON(http.StatusOK, gin.H{"outliers": outliers, "universe": len(snaps)})
}
