// Package llm implements an OpenAI-compatible chat-completions client and
// helpers for decoding structured model output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/config"
)

var (
	ErrNotConfigured = errors.New("LLM backend is not configured")
	ErrAPIError      = errors.New("LLM API error")
	ErrEmptyContent  = errors.New("LLM returned empty content")
)

const completionsPath = "/chat/completions"

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	httpClient *http.Client
	config     config.LLMConfig
	logger     zerolog.Logger
}

// NewClient creates a new LLM client.
func NewClient(cfg config.LLMConfig, logger zerolog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		logger:     logger.With().Str("component", "llm").Logger(),
	}
}

// IsConfigured returns true if a base URL and model are set.
func (c *Client) IsConfigured() bool {
	return c.config.BaseURL != "" && c.config.Model != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// Request is one chat completion invocation.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Generate submits the request and returns the raw assistant content. The
// caller is responsible for decoding; no retries are performed here.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	payload := chatCompletionRequest{
		Model:       c.config.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + completionsPath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.config.Model).Msg("LLM request failed")
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("model", c.config.Model).
			Msg("LLM API error")
		return "", fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, snippet(respBody, 200))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyContent)
	}

	content := completion.Choices[0].Message.Content
	if content == "" {
		// Some providers return the streaming schema even when stream=false.
		content = completion.Choices[0].Delta.Content
	}
	if content == "" {
		content = completion.Choices[0].Text
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: finish_reason=%q", ErrEmptyContent, completion.Choices[0].FinishReason)
	}

	c.logger.Debug().
		Str("model", c.config.Model).
		Int("maxTokens", req.MaxTokens).
		Int("contentLen", len(content)).
		Msg("LLM completion received")

	return content, nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatCompletionMessage `json:"message"`
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
