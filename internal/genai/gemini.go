/*
 * Copyright 2025 the bitool authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// geminiClient implements LLMClient using the Google Gemini API.
type geminiClient struct {
	client *genai.Client
	model  string
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// NewGeminiClient creates a Gemini-backed LLMClient.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}
	return &geminiClient{client: client, model: model}, nil
}

func (c *geminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// GenerateSQL sends the prompt and returns the raw completion text.
func (c *geminiClient) GenerateSQL(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.client == nil {
		return "", &BackendError{Kind: ErrorKindConnection, Msg: "gemini client not initialized"}
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxOutputTokens))
	}
	if len(opts.StopSequences) > 0 {
		model.StopSequences = opts.StopSequences
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &BackendError{Kind: ErrorKindMalformed, Msg: "response contained no candidates"}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	sql := stripMarkdownFences(text)
	if sql == "" {
		return "", &BackendError{Kind: ErrorKindMalformed, Msg: "model returned empty SQL"}
	}
	return sql, nil
}

// classifyGeminiError maps gRPC status codes onto the backend error taxonomy.
func classifyGeminiError(err error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return &BackendError{Kind: ErrorKindAuth, Msg: "gemini rejected the API key", Err: err}
		case codes.ResourceExhausted:
			return &BackendError{Kind: ErrorKindRateLimit, Msg: "gemini rate limit exceeded", Err: err}
		case codes.DeadlineExceeded:
			return &BackendError{Kind: ErrorKindTimeout, Msg: "gemini request timed out", Err: err}
		case codes.Unavailable:
			return &BackendError{Kind: ErrorKindConnection, Msg: "gemini is unavailable", Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendError{Kind: ErrorKindTimeout, Msg: "gemini request timed out", Err: err}
	}
	return &BackendError{Kind: ErrorKindConnection, Msg: "gemini request failed", Err: err}
}
