package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) LLMClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return client
}

func TestOpenAIGenerateSQL(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(chatResponse(`SELECT "Sales" FROM "orders";`)))
	})

	sql, err := client.GenerateSQL(context.Background(), "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "Sales" FROM "orders";`, sql)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestOpenAIStripsMarkdownFences(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse("```sql\nSELECT 1;\n```")))
	})

	sql, err := client.GenerateSQL(context.Background(), "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", sql)
}

func TestOpenAIErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, "{}", ErrorKindAuth},
		{"forbidden", http.StatusForbidden, "{}", ErrorKindAuth},
		{"rate limited", http.StatusTooManyRequests, "{}", ErrorKindRateLimit},
		{"server error", http.StatusInternalServerError, "{}", ErrorKindConnection},
		{"garbage body", http.StatusOK, "not json", ErrorKindMalformed},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrorKindMalformed},
		{"empty content", http.StatusOK, chatResponse(""), ErrorKindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GenerateSQL(context.Background(), "prompt", Options{})
			require.Error(t, err)

			var backendErr *BackendError
			require.ErrorAs(t, err, &backendErr)
			assert.Equal(t, tt.want, backendErr.Kind)
		})
	}
}

func TestOpenAIConfigValidation(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	assert.Error(t, err)

	_, err = NewOpenAIClient(OpenAIConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT 1;", "SELECT 1;"},
		{"sql fence", "```sql\nSELECT 1;\n```", "SELECT 1;"},
		{"bare fence", "```\nSELECT 1;\n```", "SELECT 1;"},
		{"surrounding whitespace", "  SELECT 1;  ", "SELECT 1;"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdownFences(tt.in))
		})
	}
}
