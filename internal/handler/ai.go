package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// GetSentiment godoc
// @Summary      AI sentiment for a coin
// @Description  When AI is unavailable the body carries error and summary instead of a verdict
// @Tags         ai
// @Produce      json
// @Param        id  path  string  true  "CoinGecko coin id"
// @Success      200  {object}  domain.SentimentResult
// @Router       /api/coins/{id}/sentiment [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment")
	defer span.End()

	result, err := h.advisor.CoinSentiment(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AIStatus godoc
// @Summary      Whether AI features are configured
// @Tags         ai
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /api/ai/status [get]
func (h *Handler) AIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.advisor.Enabled()})
}

type chatRequest struct {
	SessionID string `json:"session_id" binding:"omitempty,max=64"`
	Message   string `json:"message" binding:"required,max=2000"`
}

// Chat godoc
// @Summary      Ask the education assistant
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        body  body  chatRequest  true  "Question, optionally within an existing session"
// @Success      200  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/ai/chat [post]
func (h *Handler) Chat(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.chat")
	defer span.End()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	span.SetAttributes(attribute.String("session_id", req.SessionID))

	if !h.chatLimiter.Allow(req.SessionID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		return
	}

	reply, err := h.advisor.Ask(ctx, req.SessionID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": req.SessionID, "reply": reply})
}

type queryRequest struct {
	Question string `json:"question" binding:"required,max=1000"`
}

// Query godoc
// @Summary      Ask about the current top coins
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        body  body  queryRequest  true  "Question"
// @Success      200  {object}  map[string]string
// @Router       /api/ai/query [post]
func (h *Handler) Query(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.query")
	defer span.End()

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": h.advisor.QueryPortfolio(ctx, req.Question, nil)})
}

type summarizeRequest struct {
	Text   string `json:"text" binding:"required,max=20000"`
	Points int    `json:"points" binding:"omitempty,min=1,max=10"`
}

// Summarize godoc
// @Summary      Summarize an article into bullet points
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        body  body  summarizeRequest  true  "Article text and bullet count"
// @Success      200  {object}  map[string][]string
// @Router       /api/ai/summarize [post]
func (h *Handler) Summarize(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.summarize")
	defer span.End()

	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bullets": h.advisor.Summarize(ctx, req.Text, req.Points)})
}
