package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"velaris/internal/domain"
	"velaris/pkg/metrics"
)

// WebhookSender posts whale alerts to a Discord or Slack incoming webhook.
// The payload shape follows the URL: Discord URLs get "content", anything
// else gets Slack's "text".
type WebhookSender struct {
	url          string
	username     string
	client       *http.Client
	maxTries     uint
	retryInitial time.Duration
}

func NewWebhookSender(url, username string) *WebhookSender {
	if username == "" {
		username = "Velaris"
	}
	return &WebhookSender{
		url:          strings.TrimSpace(url),
		username:     username,
		client:       &http.Client{Timeout: 10 * time.Second},
		maxTries:     3,
		retryInitial: time.Second,
	}
}

func (s *WebhookSender) Enabled() bool {
	return s != nil && s.url != ""
}

// NotifyWhaleAlert is a no-op when no webhook is configured.
func (s *WebhookSender) NotifyWhaleAlert(ctx context.Context, a domain.WhaleAlert) error {
	if !s.Enabled() {
		return nil
	}
	return s.Send(ctx, FormatAlert(a))
}

func (s *WebhookSender) Send(ctx context.Context, msg string) (err error) {
	defer func() { metrics.UpstreamRequests.WithLabelValues("webhook", metrics.Outcome(err)).Inc() }()

	body, err := json.Marshal(s.payload(msg))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInitial
	b.MaxInterval = 5 * time.Second

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.post(ctx, body)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		log.Warn().Err(err).Msg("webhook delivery failed")
		return fmt.Errorf("send webhook: %w", err)
	}
	return nil
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := fmt.Errorf("webhook returned %d", resp.StatusCode)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return statusErr
	}
	return backoff.Permanent(statusErr)
}

func (s *WebhookSender) payload(msg string) map[string]string {
	if strings.Contains(s.url, "discord") {
		return map[string]string{"content": msg, "username": s.username}
	}
	return map[string]string{"text": msg, "username": s.username}
}

var severityIcon = map[domain.Severity]string{
	domain.SeverityDanger:  "🔴",
	domain.SeverityWarning: "🟠",
	domain.SeveritySuccess: "🟢",
	domain.SeverityInfo:    "🔵",
}

// FormatAlert renders an alert as a single chat line.
func FormatAlert(a domain.WhaleAlert) string {
	icon := severityIcon[a.Severity]
	if icon == "" {
		icon = "🐋"
	}
	return fmt.Sprintf("%s %s %s: %s (%s) confidence %.0f%%",
		icon, strings.ToUpper(a.Symbol), a.Type, a.Message, a.Indicator, a.Confidence*100)
}
