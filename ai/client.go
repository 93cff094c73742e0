// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/sistema-fic/cliparse"
)

const maxResponseSize = 4 << 20

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg         cliparse.AIConfig
	httpClient  *http.Client
	backoffBase time.Duration
	maxBackoff  time.Duration
}

// New builds a client from configuration. The client is usable only when
// cfg.Enabled() is true; otherwise Complete returns ErrDisabled.
func New(cfg cliparse.AIConfig) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		backoffBase: 2 * time.Second,
		maxBackoff:  30 * time.Second,
	}
}

// Enabled reports whether the client has an endpoint and model.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends a system and user prompt and returns the model's reply.
// Transient failures are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fatal(fmt.Errorf("build request body: %w", err))
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		content, err := c.doRequest(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if IsFatal(err) {
			return "", err
		}

		if attempt < c.cfg.MaxAttempts {
			wait := c.backoff(attempt)
			slog.Warn("ai request failed, retrying",
				"attempt", attempt,
				"max_attempts", c.cfg.MaxAttempts,
				"backoff", wait,
				"error", err)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return "", lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase << (attempt - 1)
	if d > c.maxBackoff || d <= 0 {
		d = c.maxBackoff
	}
	return d
}

func (c *Client) url() string {
	base := strings.TrimSuffix(c.cfg.Endpoint, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return "", fatal(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transient(fmt.Errorf("http request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", transient(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fatal(fmt.Errorf("parse response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", fatal(fmt.Errorf("no choices in response"))
	}

	slog.Debug("ai completion",
		"model", parsed.Model,
		"tokens", parsed.Usage.TotalTokens,
		"finish_reason", parsed.Choices[0].FinishReason)

	return parsed.Choices[0].Message.Content, nil
}
