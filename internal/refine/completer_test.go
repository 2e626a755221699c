package refine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/trafficwatch/internal/news"
)

func TestOpenAICompatibleCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"relevant\": true, \"category\": \"curfew\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatible("groq", "test-key", srv.URL+"/v1", "llama-test")
	p := NewProvider(c, false)

	res, err := p.Refine(context.Background(), news.Item{Title: "Curfew in Baghdad"})
	require.NoError(t, err)
	assert.Equal(t, "curfew", res.Category)
	assert.Equal(t, "groq", res.Provider)
	assert.False(t, p.Paid())
}

func TestClaudeCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, systemPrompt, req.System)
		require.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"relevant\": false}"}]}`))
	}))
	defer srv.Close()

	p := NewProvider(NewClaude("secret", srv.URL, "", 5*time.Second), true)
	_, err := p.Refine(context.Background(), news.Item{Title: "Celebrity wedding"})
	assert.ErrorIs(t, err, ErrNotRelevant)
	assert.True(t, p.Paid())
}

func TestClaudeCompleterHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClaude("secret", srv.URL, "", 5*time.Second).Complete(context.Background(), "", "hi", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
