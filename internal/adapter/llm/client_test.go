package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast/internal/errs"
	"podcast/internal/port"
)

var _ port.LLM = (*Client)(nil)

func newTestServer(t *testing.T, handler func(req chatRequest) (int, any)) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func reply(content string) map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": content}}},
	}
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	t.Setenv("TEST_LLM_KEY", "test-key")
	c, err := New(Options{Provider: "openai", Model: "gpt-test", APIKeyEnv: "TEST_LLM_KEY", BaseURL: baseURL + "/"})
	require.NoError(t, err)
	return c
}

func TestClient_GenerateWithSystem(t *testing.T) {
	var got chatRequest
	srv, calls := newTestServer(t, func(req chatRequest) (int, any) {
		got = req
		return http.StatusOK, reply("Welcome back to the show.")
	})
	c := newClient(t, srv.URL)
	assert.Equal(t, "gpt-test", c.ModelName())

	out, err := c.GenerateWithSystem(context.Background(), "You write scripts.", "Lessons: growth")
	require.NoError(t, err)
	assert.Equal(t, "Welcome back to the show.", out)
	assert.Equal(t, 1, *calls)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 2000, got.MaxTokens)
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: "You write scripts."},
		{Role: "user", Content: "Lessons: growth"},
	}, got.Messages)
}

func TestClient_GenerateSendsSingleUserMessage(t *testing.T) {
	srv, _ := newTestServer(t, func(req chatRequest) (int, any) {
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		return http.StatusOK, reply("ok")
	})

	out, err := newClient(t, srv.URL).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		code   errs.Code
	}{
		{"status", http.StatusTooManyRequests, map[string]string{"message": "slow down"}, errs.CodeLLMUpstream},
		{"api error", http.StatusOK, map[string]any{"error": map[string]string{"message": "bad model"}}, errs.CodeLLMUpstream},
		{"no choices", http.StatusOK, map[string]any{"choices": []any{}}, errs.CodeLLMResponse},
		{"not json", http.StatusOK, "plain text", errs.CodeLLMResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(chatRequest) (int, any) { return tt.status, tt.body })

			_, err := newClient(t, srv.URL).Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.True(t, errs.HasCode(err, tt.code), "got %v", errs.CodeOf(err))
		})
	}
}

func TestNew_Config(t *testing.T) {
	t.Setenv("TEST_LLM_MISSING", "")

	_, err := New(Options{Provider: "openai", Model: "m", APIKeyEnv: "TEST_LLM_MISSING"})
	assert.True(t, errs.HasCode(err, errs.CodeLLMConfig))

	_, err = New(Options{Provider: "acme", Model: "m"})
	assert.True(t, errs.HasCode(err, errs.CodeLLMConfig))

	_, err = New(Options{Provider: "ollama"})
	assert.True(t, errs.HasCode(err, errs.CodeLLMConfig))

	c, err := New(Options{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", c.baseURL)
	assert.Empty(t, c.apiKey)
}
