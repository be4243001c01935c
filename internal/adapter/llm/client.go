// Package llm provides an OpenAI-compatible chat completion client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"podcast/internal/errs"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var providers = map[string]struct {
	baseURL   string
	keyEnvVar string
}{
	"openai":   {"https://api.openai.com/v1", "OPENAI_API_KEY"},
	"deepseek": {"https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
	"ollama":   {"http://localhost:11434/v1", ""},
}

// Options configures a Client. Zero values fall back to the provider
// defaults.
type Options struct {
	Provider    string
	Model       string
	APIKeyEnv   string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client talks to a /chat/completions endpoint.
type Client struct {
	provider    string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// New builds a client for a known provider, or for any provider name when
// BaseURL is set.
func New(opts Options) (*Client, error) {
	p, known := providers[opts.Provider]
	if !known && opts.BaseURL == "" {
		return nil, errs.New(errs.CodeLLMConfig, "unknown provider and no base URL",
			errs.FieldProvider(opts.Provider))
	}
	if opts.Model == "" {
		return nil, errs.New(errs.CodeLLMConfig, "model is required", errs.FieldProvider(opts.Provider))
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = p.baseURL
	}

	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = p.keyEnvVar
	}
	var apiKey string
	if keyEnv != "" {
		apiKey = os.Getenv(keyEnv)
		if apiKey == "" {
			return nil, errs.New(errs.CodeLLMConfig, "API key not found in environment",
				errs.FieldProvider(opts.Provider), errs.Field("env", keyEnv))
		}
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}

	return &Client{
		provider:    opts.Provider,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, []chatMessage{{Role: "user", Content: prompt}})
}

func (c *Client) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.chat(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
}

func (c *Client) ModelName() string {
	return c.model
}

func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	jsonData, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", errs.Wrap(err, errs.CodeLLMUpstream, "marshal request", errs.FieldProvider(c.provider))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", errs.Wrap(err, errs.CodeLLMUpstream, "create request", errs.FieldProvider(c.provider))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeLLMUpstream, "request failed", errs.FieldProvider(c.provider))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeLLMUpstream, "read response", errs.FieldProvider(c.provider))
	}

	if resp.StatusCode != http.StatusOK {
		return "", errs.New(errs.CodeLLMUpstream, fmt.Sprintf("API returned status %d: %s", resp.StatusCode, preview(body)),
			errs.FieldProvider(c.provider), errs.Field("status", resp.StatusCode))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", errs.Wrap(err, errs.CodeLLMResponse, "parse response (body: "+preview(body)+")",
			errs.FieldProvider(c.provider))
	}
	if chatResp.Error != nil {
		return "", errs.New(errs.CodeLLMUpstream, "API error: "+chatResp.Error.Message, errs.FieldProvider(c.provider))
	}
	if len(chatResp.Choices) == 0 {
		return "", errs.New(errs.CodeLLMResponse, "response has no choices", errs.FieldProvider(c.provider))
	}

	return chatResp.Choices[0].Message.Content, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
