package advisor

import (
	"context"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
)

const DefaultSummaryPoints = 3

var numberedLine = regexp.MustCompile(`^\d+\.`)

// Summarize condenses an article into bullet points. Only lines that look
// like bullets survive; preamble from the model is dropped.
func (s *Service) Summarize(ctx context.Context, text string, points int) []string {
	ctx, span := s.tracer.Start(ctx, "advisor.summarize")
	defer span.End()

	if !s.Enabled() {
		return []string{"AI summarization requires an OpenAI API key."}
	}
	if points <= 0 {
		points = DefaultSummaryPoints
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(BuildSummaryPrompt(points)),
		openai.UserMessage(text),
	}
	reply, err := s.complete(ctx, "summarize", messages, completionOpts{temperature: 0.3, maxTokens: 200})
	if err != nil {
		span.RecordError(err)
		return []string{"Unable to summarize article."}
	}
	return bulletLines(reply)
}

func bulletLines(reply string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-") || numberedLine.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}
