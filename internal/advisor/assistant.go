package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"velaris/internal/domain"
)

const (
	topContextSize = 10
	mentionLookup  = 100
)

// Ask answers an education question within a session. The stored history
// holds the question as typed; only the outgoing prompt carries the market
// context.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.ask")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if !s.Enabled() {
		return "", ErrAIDisabled
	}

	history, err := s.convStore.RecentMessages(ctx, sessionID, s.maxHistory)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load conversation history")
		history = nil
	}

	if err := s.convStore.AppendMessage(ctx, sessionID, "user", question); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to store user message")
	}

	top, mentioned := s.gatherContext(ctx, question)
	messages := buildMessages(assistantSystemPrompt, history)
	messages = append(messages, openai.UserMessage(EnhanceQuestion(top, mentioned, question)))

	reply, err := s.complete(ctx, "assistant", messages, completionOpts{temperature: 0.7, maxTokens: 300})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := s.convStore.AppendMessage(ctx, sessionID, "assistant", reply); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to store assistant reply")
	}
	return reply, nil
}

// gatherContext returns the top coins plus any coin the question names that
// is not already among them. Market failures leave the context empty.
func (s *Service) gatherContext(ctx context.Context, question string) (top, mentioned []domain.Coin) {
	ctx, span := s.tracer.Start(ctx, "advisor.gather-context")
	defer span.End()

	if s.market == nil {
		return nil, nil
	}
	listing, err := s.market.Top(ctx, mentionLookup)
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Msg("market context unavailable")
		return nil, nil
	}

	top = listing
	if len(top) > topContextSize {
		top = top[:topContextSize]
	}
	inTop := make(map[string]bool, len(top))
	for _, c := range top {
		inTop[c.ID] = true
	}
	for _, c := range ExtractCoinMentions(question, listing) {
		if !inTop[c.ID] {
			mentioned = append(mentioned, c)
		}
	}
	return top, mentioned
}

func buildMessages(systemPrompt string, history []domain.ConversationMessage) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, msg := range history {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	return messages
}

// QueryPortfolio answers a short question about the supplied coins. It never
// fails; problems are phrased as the answer.
func (s *Service) QueryPortfolio(ctx context.Context, question string, coins []domain.Coin) string {
	ctx, span := s.tracer.Start(ctx, "advisor.query-portfolio")
	defer span.End()

	if !s.Enabled() {
		return "AI query feature requires an OpenAI API key."
	}
	if coins == nil && s.market != nil {
		top, err := s.market.Top(ctx, topContextSize)
		if err != nil {
			log.Warn().Err(err).Msg("portfolio context unavailable")
		}
		coins = top
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(BuildPortfolioPrompt(coins)),
		openai.UserMessage(question),
	}
	reply, err := s.complete(ctx, "portfolio", messages, completionOpts{temperature: 0.5, maxTokens: 150})
	if err != nil {
		span.RecordError(err)
		return fmt.Sprintf("Sorry, I couldn't process that question: %v", err)
	}
	return strings.TrimSpace(reply)
}
