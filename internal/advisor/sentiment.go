package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"velaris/internal/domain"
)

const (
	disabledError   = "OpenAI API key not configured"
	disabledSummary = "AI features disabled. Add your OpenAI API key to .env file."
	quotaError      = "OpenAI quota exceeded"
	quotaSummary    = "AI features require OpenAI billing to be set up."
	failedSummary   = "Unable to analyze sentiment at this time."
)

// AnalyzeSentiment asks the model for a trader style verdict on the given
// headlines. Failures are reported inside the result rather than as an error.
func (s *Service) AnalyzeSentiment(ctx context.Context, headlines []string, coinName string) domain.SentimentResult {
	ctx, span := s.tracer.Start(ctx, "advisor.analyze-sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coinName), attribute.Int("headline_count", len(headlines)))

	if !s.Enabled() {
		return domain.SentimentResult{Error: disabledError, Summary: disabledSummary}
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(sentimentSystemPrompt),
		openai.UserMessage(BuildSentimentPrompt(coinName, headlines)),
	}
	reply, err := s.complete(ctx, "sentiment", messages, completionOpts{temperature: 0.3, jsonObject: true})
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Str("coin", coinName).Msg("sentiment analysis failed")
		if isQuotaError(err) {
			return domain.SentimentResult{Error: quotaError, Summary: quotaSummary}
		}
		return domain.SentimentResult{Error: err.Error(), Summary: failedSummary}
	}

	result, err := parseSentiment(reply)
	if err != nil {
		span.RecordError(err)
		return domain.SentimentResult{Error: err.Error(), Summary: failedSummary}
	}
	return result
}

// CoinSentiment builds headlines for a coin from its market data and the
// news feeds, then analyzes them.
func (s *Service) CoinSentiment(ctx context.Context, coinID string) (domain.SentimentResult, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.coin-sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", coinID))

	detail, err := s.market.Coin(ctx, coinID)
	if err != nil {
		return domain.SentimentResult{}, err
	}

	return s.AnalyzeSentiment(ctx, BuildHeadlines(*detail, s.newsFor(ctx)), detail.Name), nil
}

type sentimentPayload struct {
	Score         float64 `json:"score"`
	Verdict       string  `json:"verdict"`
	Logic         string  `json:"logic"`
	RiskLevel     string  `json:"risk_level"`
	PrimaryDriver string  `json:"primary_driver"`
	Confidence    float64 `json:"confidence"`
	PriceTarget   string  `json:"price_target"`
}

func parseSentiment(reply string) (domain.SentimentResult, error) {
	var p sentimentPayload
	if err := json.Unmarshal([]byte(trimCodeFence(reply)), &p); err != nil {
		return domain.SentimentResult{}, fmt.Errorf("decode sentiment reply: %w", err)
	}
	return domain.SentimentResult{
		Score:         clamp(p.Score, -1, 1),
		Verdict:       strings.ToUpper(strings.TrimSpace(p.Verdict)),
		Logic:         strings.TrimSpace(p.Logic),
		RiskLevel:     strings.TrimSpace(p.RiskLevel),
		PrimaryDriver: strings.TrimSpace(p.PrimaryDriver),
		Confidence:    clamp(p.Confidence, 0, 1),
		PriceTarget:   strings.TrimSpace(p.PriceTarget),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
