package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"recipe-recommender/internal/core/ai/provider"
	"recipe-recommender/internal/infrastructure/breaker"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

const maxLoggedBody = 512

// Client OpenRouter API 客戶端，實作 provider.Provider
type Client struct {
	client      *resty.Client
	breaker     *breaker.Breaker
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []provider.Message `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    float64            `json:"temperature,omitempty"`
	Stop           []string           `json:"stop,omitempty"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端；br 可為 nil
func NewClient(cfg config.OpenRouterConfig, br *breaker.Breaker) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://github.com/recipe-recommender").
		SetHeader("X-Title", "Recipe Recommender").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		client:      client,
		breaker:     br,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Generate 呼叫 /chat/completions 並回傳第一個 choice 的內容
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, fmt.Errorf("openrouter: empty request")
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.maxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = c.temperature
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := time.Now()
	out, err := breaker.Do(c.breaker, func() (*chatResponse, error) {
		return c.post(ctx, &body)
	})
	common.LogUpstreamCall("openrouter", "chat", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	common.LogInfo("Successfully generated response from AI service",
		zap.String("model", c.model),
		zap.Int("content_length", len(content)),
		zap.Int("total_tokens", out.Usage.TotalTokens),
	)

	model := out.Model
	if model == "" {
		model = c.model
	}
	return &provider.Response{
		Content: content,
		Model:   model,
		Usage:   out.Usage,
	}, nil
}

func (c *Client) post(ctx context.Context, body *chatRequest) (*chatResponse, error) {
	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to send request: %w", err)
	}

	if resp.IsError() {
		msg := truncate(resp.String())
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", c.model),
			zap.String("response", msg),
		)
		return nil, fmt.Errorf("openrouter: status %d: %s", resp.StatusCode(), msg)
	}

	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: empty choices in response")
	}
	if strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("openrouter: empty content in response")
	}
	return &out, nil
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "..."
}

// GetModel 目前使用的模型
func (c *Client) GetModel() string {
	return c.model
}

// GetTimeout 請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

var _ provider.Provider = (*Client)(nil)
