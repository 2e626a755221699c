package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/deusflow/trafficwatch/internal/digest"
	"github.com/deusflow/trafficwatch/internal/logger"
)

const telegramAPI = "https://api.telegram.org"

// Telegram sends the HTML rendering of the digest to a chat or channel.
type Telegram struct {
	client       *resty.Client
	baseURL      string
	token        string
	chatID       string
	dashboardURL string
	maxRetries   int
	// backoff returns the wait before the next try.
	backoff func(attempt int) time.Duration
}

func NewTelegram(token, chatID, dashboardURL string) *Telegram {
	return &Telegram{
		client:       resty.New().SetTimeout(defaultTimeout),
		baseURL:      telegramAPI,
		token:        token,
		chatID:       chatID,
		dashboardURL: dashboardURL,
		maxRetries:   3,
		// Exponential backoff: 2^attempt seconds
		backoff: func(attempt int) time.Duration { return time.Duration(1<<attempt) * time.Second },
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Send retries failed requests with exponential backoff.
func (t *Telegram) Send(ctx context.Context, r digest.Report) error {
	text := digest.Telegram(r, t.dashboardURL)

	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		err := t.sendOnce(ctx, text)
		if err == nil {
			logger.Debug("Message sent to Telegram", "attempt", attempt)
			return nil
		}

		logger.Warn("Telegram send failed", "attempt", attempt, "max", t.maxRetries, "error", err)

		if attempt < t.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.backoff(attempt)):
			}
		}
	}

	return fmt.Errorf("can't send message after %d tries", t.maxRetries)
}

func (t *Telegram) sendOnce(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode())
	}
	return nil
}
