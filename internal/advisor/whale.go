package advisor

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/attribute"

	"velaris/internal/domain"
)

const (
	noWhaleActivity   = "No significant whale activity detected. Market conditions appear normal."
	whaleAnalysisFail = "Unable to generate AI analysis. The signals above indicate potential whale activity - exercise caution."
)

// ExplainWhales asks the model what the detected signals imply for retail
// traders.
func (s *Service) ExplainWhales(ctx context.Context, signals []domain.WhaleSignal, coinName string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.explain-whales")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coinName), attribute.Int("signal_count", len(signals)))

	if len(signals) == 0 {
		return noWhaleActivity, nil
	}
	if !s.Enabled() {
		return "", ErrAIDisabled
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(assistantSystemPrompt),
		openai.UserMessage(BuildWhalePrompt(signals, coinName)),
	}
	reply, err := s.complete(ctx, "whale_narrative", messages, completionOpts{temperature: 0.7, maxTokens: 300})
	if err != nil {
		span.RecordError(err)
		return whaleAnalysisFail, nil
	}
	return strings.TrimSpace(reply), nil
}
