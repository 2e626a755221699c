package refine

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama-3.3-70b-versatile"
	DefaultGPTModel  = "gpt-4o-mini"
)

// OpenAICompleter talks to the OpenAI chat completions API or any
// compatible endpoint (Groq).
type OpenAICompleter struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAI returns a completer for api.openai.com.
func NewOpenAI(apiKey, model string) *OpenAICompleter {
	if model == "" {
		model = DefaultGPTModel
	}
	return &OpenAICompleter{name: "openai", client: openai.NewClient(apiKey), model: model}
}

// NewGroq returns a completer for Groq's OpenAI-compatible API.
func NewGroq(apiKey, model string) *OpenAICompleter {
	return NewOpenAICompatible("groq", apiKey, GroqBaseURL, orDefault(model, DefaultGroqModel))
}

// NewOpenAICompatible points the OpenAI client at another base URL.
func NewOpenAICompatible(name, apiKey, baseURL, model string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAICompleter{name: name, client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAICompleter) Name() string { return c.name }

func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", c.name)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
