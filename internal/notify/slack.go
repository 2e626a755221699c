package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/deusflow/trafficwatch/internal/digest"
)

// Slack posts Block Kit messages to an incoming webhook.
type Slack struct {
	client       *resty.Client
	webhookURL   string
	dashboardURL string
}

func NewSlack(webhookURL, dashboardURL string, timeout time.Duration) *Slack {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Slack{
		client:       resty.New().SetTimeout(timeout),
		webhookURL:   webhookURL,
		dashboardURL: dashboardURL,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, r digest.Report) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(digest.Slack(r, s.dashboardURL)).
		Post(s.webhookURL)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack webhook: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
