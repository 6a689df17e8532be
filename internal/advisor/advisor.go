package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
	"velaris/internal/provider"
	"velaris/pkg/metrics"
)

const DefaultModel = "gpt-4o-mini"

// ErrAIDisabled is returned by features that need a language model when no
// API key is configured.
var ErrAIDisabled = errors.New("AI features disabled")

// ErrUnavailable wraps language model failures that have no canned fallback.
var ErrUnavailable = errors.New("advisor unavailable")

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// MarketQuerier provides market data for prompts.
type MarketQuerier interface {
	Top(ctx context.Context, n int) ([]domain.Coin, error)
	Coin(ctx context.Context, id string) (*domain.CoinDetail, error)
}

// NewsSource provides recent headlines to ground sentiment analysis.
type NewsSource interface {
	Headlines(ctx context.Context) []provider.Headline
}

// ConversationStore persists and retrieves chat turns per session.
type ConversationStore interface {
	AppendMessage(ctx context.Context, sessionID, role, content string) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.ConversationMessage, error)
}

type Service struct {
	tracer     trace.Tracer
	llm        LLMClient
	market     MarketQuerier
	news       NewsSource
	convStore  ConversationStore
	model      string
	maxHistory int
}

// NewService wires the language model features. A nil llm leaves every
// feature in its disabled state.
func NewService(
	tracer trace.Tracer,
	llm LLMClient,
	market MarketQuerier,
	news NewsSource,
	convStore ConversationStore,
	model string,
	maxHistory int,
) *Service {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if convStore == nil {
		convStore = NewMemoryStore(maxHistory * 4)
	}
	return &Service{
		tracer:     tracer,
		llm:        llm,
		market:     market,
		news:       news,
		convStore:  convStore,
		model:      model,
		maxHistory: maxHistory,
	}
}

func (s *Service) Enabled() bool {
	return s != nil && s.llm != nil
}

type completionOpts struct {
	temperature float64
	maxTokens   int64
	jsonObject  bool
}

func (s *Service) complete(
	ctx context.Context,
	feature string,
	messages []openai.ChatCompletionMessageParamUnion,
	opts completionOpts,
) (reply string, err error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.String("llm.feature", feature),
		attribute.Int("llm.message_count", len(messages)),
	)
	defer func() {
		metrics.LLMRequests.WithLabelValues(feature, metrics.Outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
		}
	}()

	params := openai.ChatCompletionNewParams{
		Model:       s.model,
		Messages:    messages,
		Temperature: openai.Float(opts.temperature),
	}
	if opts.maxTokens > 0 {
		params.MaxTokens = openai.Int(opts.maxTokens)
	}
	if opts.jsonObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := s.llm.CreateChatCompletion(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply = completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// isQuotaError reports whether err is the API refusing for rate or billing
// reasons.
func isQuotaError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "quota")
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

// NewOpenAIClient returns nil when apiKey is empty so callers can pass the
// result straight to NewService.
func NewOpenAIClient(apiKey, baseURL string) LLMClient {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openaiClient{client: openai.NewClient(opts...)}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
