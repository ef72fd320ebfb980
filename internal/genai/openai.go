package genai

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
)

// openAIClient implements LLMClient against any OpenAI-compatible chat
// completions endpoint.
type openAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAIClient creates an LLMClient talking to an OpenAI-compatible API.
func NewOpenAIClient(cfg OpenAIConfig) (LLMClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *openAIClient) Close() error { return nil }

func (c *openAIClient) GenerateSQL(ctx context.Context, prompt string, opts Options) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
	}
	if opts.MaxOutputTokens > 0 {
		payload["max_tokens"] = opts.MaxOutputTokens
	}
	if len(opts.StopSequences) > 0 {
		payload["stop"] = opts.StopSequences
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &BackendError{Kind: ErrorKindMalformed, Msg: "marshal chat payload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &BackendError{Kind: ErrorKindConnection, Msg: "build chat request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", &BackendError{Kind: ErrorKindTimeout, Msg: "chat completion timed out", Err: err}
		}
		return "", &BackendError{Kind: ErrorKindConnection, Msg: "request chat completion", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Kind: ErrorKindConnection, Msg: "read chat response body", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &BackendError{Kind: ErrorKindAuth, Msg: fmt.Sprintf("chat completion rejected status=%d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &BackendError{Kind: ErrorKindRateLimit, Msg: "chat completion rate limited"}
	case resp.StatusCode >= 400:
		return "", &BackendError{Kind: ErrorKindConnection, Msg: fmt.Sprintf("chat completion failed status=%d body=%s", resp.StatusCode, string(raw))}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &BackendError{Kind: ErrorKindMalformed, Msg: "decode chat completion response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &BackendError{Kind: ErrorKindMalformed, Msg: "empty chat completion choices"}
	}

	sql := stripMarkdownFences(parsed.Choices[0].Message.Content)
	if sql == "" {
		return "", &BackendError{Kind: ErrorKindMalformed, Msg: "model returned empty SQL"}
	}
	return sql, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
