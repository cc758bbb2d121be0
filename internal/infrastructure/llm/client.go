// Package llm wraps a chat-completion endpoint behind a small interface used
// for video reranking and analysis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
)

var (
	// ErrMissingAPIKey is returned without a network call when no key is configured.
	ErrMissingAPIKey = errors.New("llm api key not configured")

	// ErrEmptyCompletion is returned when the model answers with no choices or blank content.
	ErrEmptyCompletion = errors.New("llm returned empty completion")
)

// ClientConfig holds configuration for the completion client.
type ClientConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:  apiKey,
		Model:   openai.GPT4oMini,
		Timeout: 20 * time.Second,
	}
}

// Request is a single system + user exchange.
type Request struct {
	System    string
	User      string
	MaxTokens int
	// JSON asks the model for a single JSON object.
	JSON bool
}

// Client sends chat completions.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a completion client. An empty API key yields a client
// whose calls fail with ErrMissingAPIKey.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	c := &Client{model: cfg.Model}
	if cfg.APIKey == "" {
		return c
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	c.api = openai.NewClientWithConfig(oc)
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}

// Complete returns the trimmed content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Enabled() {
		return "", ErrMissingAPIKey
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens: req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.UpstreamOpenAI, upstreamStatus(err)).Inc()
		return "", fmt.Errorf("chat completion: %w", err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.UpstreamOpenAI, metrics.UpstreamStatusSuccess).Inc()

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func upstreamStatus(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return metrics.UpstreamStatusQuotaExceeded
	}
	return metrics.UpstreamStatusError
}
