package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/config"
)

// LLMCallOptions control a single LLM call.
type LLMCallOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	JSONMode    bool
}

// LLMCallResult holds an LLM completion with token usage.
type LLMCallResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
	FinishReason string
	Model        string
}

// IsTruncated returns true if the response hit the max_tokens limit.
func (r *LLMCallResult) IsTruncated() bool {
	return r.FinishReason == "length"
}

// LLMClient makes chat-completion calls to an OpenAI-compatible API.
type LLMClient struct {
	cfg    *config.Config
	logger *slog.Logger

	// baseURL overrides cfg.LLMBaseURL, used in tests
	baseURL string
}

// NewLLMClient creates an LLM client from server configuration.
func NewLLMClient(cfg *config.Config, logger *slog.Logger) *LLMClient {
	return &LLMClient{cfg: cfg, logger: logger}
}

// Call sends the prompt as a single user message and returns the completion.
func (c *LLMClient) Call(ctx context.Context, prompt string, opts LLMCallOptions) (*LLMCallResult, error) {
	if c.cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("no LLM API key configured")
	}

	if opts.Temperature == 0 {
		opts.Temperature = 0.3
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 2000
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}

	reqBody := map[string]any{
		"model": c.cfg.LLMModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}
	if opts.JSONMode {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := c.apiURL()

	c.logger.Debug("making LLM API request",
		"model", c.cfg.LLMModel,
		"api_url", apiURL,
		"prompt_length", len(prompt),
		"temperature", opts.Temperature,
		"max_tokens", opts.MaxTokens,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("LLM API request failed", "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("LLM API error", "status_code", resp.StatusCode, "response", string(body))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	result, err := parseChatCompletion(body)
	if err != nil {
		return nil, err
	}
	result.Model = c.cfg.LLMModel

	if result.IsTruncated() {
		c.logger.Warn("LLM output truncated",
			"model", c.cfg.LLMModel,
			"output_tokens", result.OutputTokens,
			"max_tokens", opts.MaxTokens,
		)
	}
	return result, nil
}

func (c *LLMClient) apiURL() string {
	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = c.cfg.LLMBaseURL
	}
	return baseURL + "/chat/completions"
}

// parseChatCompletion decodes an OpenAI-format chat completion response.
func parseChatCompletion(body []byte) (*LLMCallResult, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices in response")
	}

	return &LLMCallResult{
		Content:      response.Choices[0].Message.Content,
		InputTokens:  response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		FinishReason: response.Choices[0].FinishReason,
	}, nil
}
