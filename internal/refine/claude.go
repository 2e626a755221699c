package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	ClaudeBaseURL      = "https://api.anthropic.com"
	DefaultClaudeModel = "claude-3-5-sonnet-20241022"
	anthropicVersion   = "2023-06-01"
)

// ClaudeCompleter calls the Anthropic Messages API over REST.
type ClaudeCompleter struct {
	client *resty.Client
	model  string
}

// NewClaude builds a completer. baseURL may be empty for the public API.
func NewClaude(apiKey, baseURL, model string, timeout time.Duration) *ClaudeCompleter {
	client := resty.New().
		SetBaseURL(orDefault(baseURL, ClaudeBaseURL)).
		SetTimeout(timeout).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json")
	return &ClaudeCompleter{client: client, model: orDefault(model, DefaultClaudeModel)}
}

func (c *ClaudeCompleter) Name() string { return "claude" }

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *ClaudeCompleter) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	var out claudeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(claudeRequest{
			Model:     c.model,
			MaxTokens: maxTokens,
			System:    system,
			Messages:  []claudeMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&out).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("claude request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("claude API error: status %d", resp.StatusCode())
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("claude: empty response")
	}
	return strings.TrimSpace(b.String()), nil
}
