package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-recommender/internal/core/ai/provider"
	"recipe-recommender/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OpenRouterConfig{
		BaseURL:     srv.URL,
		APIKey:      "sk-test",
		Model:       "test/model",
		MaxTokens:   1500,
		Temperature: 0.7,
		Timeout:     2 * time.Second,
	}, nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestGenerateSendsChatCompletion(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"id":"1","model":"test/model","choices":[{"message":{"role":"assistant","content":"  {\"title\":\"Soup\"}  "}}],"usage":{"total_tokens":42}}`)
	})

	resp, err := c.Generate(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
		JSONMode: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"title":"Soup"}`, resp.Content)
	assert.Equal(t, "test/model", resp.Model)
	assert.Equal(t, 42, resp.Usage.TotalTokens)

	assert.Equal(t, "test/model", got.Model)
	assert.Equal(t, 1500, got.MaxTokens)
	assert.Equal(t, 0.7, got.Temperature)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestGenerateErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"Rate limit exceeded","code":429}}`)
	})

	_, err := c.Generate(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "Rate limit exceeded")
}

func TestGenerateEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"1","choices":[]}`)
	})

	_, err := c.Generate(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	_, err = c.Generate(context.Background(), &provider.Request{})
	require.Error(t, err)
}

func TestClientAccessors(t *testing.T) {
	c := NewClient(config.OpenRouterConfig{Model: "m", Timeout: time.Minute}, nil)
	assert.Equal(t, "m", c.GetModel())
	assert.Equal(t, time.Minute, c.GetTimeout())
	assert.NoError(t, c.Close())
}
